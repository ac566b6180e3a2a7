package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"slide-extractor/internal/slides"
)

// TraceReport is the diagnostic view of an extraction run.
type TraceReport struct {
	Threshold   float64             `json:"threshold"`
	Interval    float64             `json:"interval"`
	SampleCount int                 `json:"sample_count"`
	Transitions []int               `json:"transitions"`
	Segments    []slides.Segment    `json:"segments"`
	Slides      []slides.Slide      `json:"slides"`
	Trace       []slides.TracePoint `json:"trace"`
}

func NewTraceReport(res *slides.Result, interval float64) TraceReport {
	return TraceReport{
		Threshold:   res.Threshold,
		Interval:    interval,
		SampleCount: res.SampleCount,
		Transitions: res.Transitions,
		Segments:    res.Segments,
		Slides:      res.Slides,
		Trace:       res.Trace,
	}
}

// WriteTraceJSON writes the report as indented JSON.
func WriteTraceJSON(path string, report TraceReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal trace: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write trace: %w", err)
	}
	return nil
}

// WriteTraceCSV writes one row per trace point with the threshold and a
// below-threshold flag, ready for plotting.
func WriteTraceCSV(path string, trace []slides.TracePoint, threshold float64) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create trace csv: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"ordinal", "timestamp", "score", "threshold", "below"}); err != nil {
		return err
	}
	thr := strconv.FormatFloat(threshold, 'f', -1, 64)
	for _, p := range trace {
		row := []string{
			strconv.Itoa(p.Ordinal),
			strconv.FormatFloat(p.Timestamp, 'f', 3, 64),
			strconv.FormatFloat(p.Score, 'f', 6, 64),
			thr,
			strconv.FormatBool(p.Score < threshold),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
