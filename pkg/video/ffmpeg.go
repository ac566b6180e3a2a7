package video

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"slide-extractor/log"
)

// ErrUnavailable wraps every failure to open or probe a video.
var ErrUnavailable = errors.New("video: source unavailable")

// FFmpegOptions selects the binaries used for probing and decoding.
type FFmpegOptions struct {
	FFmpegPath  string
	FFprobePath string
}

func (o FFmpegOptions) withDefaults() FFmpegOptions {
	if strings.TrimSpace(o.FFmpegPath) == "" {
		o.FFmpegPath = "ffmpeg"
	}
	if strings.TrimSpace(o.FFprobePath) == "" {
		o.FFprobePath = "ffprobe"
	}
	return o
}

// FFmpegSource decodes frames by running the ffmpeg CLI. Frames are
// returned as *image.RGBA in stored orientation (rotation metadata is
// ignored so that probed and decoded dimensions always agree).
type FFmpegSource struct {
	path string
	opts FFmpegOptions
	info Info
}

var _ Source = (*FFmpegSource)(nil)
var _ Sequencer = (*FFmpegSource)(nil)

// OpenFFmpeg probes path and returns a source for it.
func OpenFFmpeg(ctx context.Context, path string, opts FFmpegOptions) (*FFmpegSource, error) {
	opts = opts.withDefaults()
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	info, err := probe(ctx, opts.FFprobePath, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	log.GetLogger().Info("video opened",
		zap.String("path", path),
		zap.Float64("duration", info.Duration),
		zap.Float64("fps", info.FPS),
		zap.Int("frames", info.FrameCount),
		zap.Int("width", info.Width),
		zap.Int("height", info.Height))

	return &FFmpegSource{path: path, opts: opts, info: info}, nil
}

func (s *FFmpegSource) Info() Info { return s.info }

func (s *FFmpegSource) Close() error { return nil }

// Frame seeks to the frame's timestamp and decodes a single frame.
func (s *FFmpegSource) Frame(ctx context.Context, index int) (image.Image, error) {
	if index < 0 || (s.info.FrameCount > 0 && index >= s.info.FrameCount) {
		return nil, ErrEndOfStream
	}
	ts := float64(index) / s.info.FPS
	args := []string{
		"-v", "error",
		"-noautorotate",
		"-ss", strconv.FormatFloat(ts, 'f', 6, 64),
		"-i", s.path,
		"-frames:v", "1",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"pipe:1",
	}
	cmd := exec.CommandContext(ctx, s.opts.FFmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.GetLogger().Error("ffmpeg frame decode failed",
			zap.String("path", s.path),
			zap.Int("index", index),
			zap.String("output", stderr.String()),
			zap.Error(err))
		return nil, fmt.Errorf("decode frame %d: %w", index, err)
	}

	size := s.frameSize()
	if len(out) < size {
		return nil, ErrEndOfStream
	}
	return rgb24ToImage(out[:size], s.info.Width, s.info.Height), nil
}

// Sample decodes every step-th frame with ffmpeg's select filter in a
// single pass over the file.
func (s *FFmpegSource) Sample(ctx context.Context, step int, fn func(index int, img image.Image) error) error {
	if step < 1 {
		step = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	args := []string{
		"-v", "error",
		"-noautorotate",
		"-i", s.path,
		"-an", "-sn",
		"-vf", fmt.Sprintf("select=not(mod(n\\,%d))", step),
		"-vsync", "0",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"pipe:1",
	}
	cmd := exec.CommandContext(ctx, s.opts.FFmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	reader := bufio.NewReaderSize(stdout, s.frameSize())
	decoded := 0
	var fnErr error
	for {
		buf := make([]byte, s.frameSize())
		if _, err := io.ReadFull(reader, buf); err != nil {
			// io.EOF or a truncated trailing frame both end the stream
			break
		}
		if fnErr = fn(decoded*step, rgb24ToImage(buf, s.info.Width, s.info.Height)); fnErr != nil {
			cancel()
			break
		}
		decoded++
	}
	waitErr := cmd.Wait()

	if fnErr != nil {
		return fnErr
	}
	if waitErr != nil && decoded == 0 {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		log.GetLogger().Error("ffmpeg sampling failed",
			zap.String("path", s.path),
			zap.String("output", stderr.String()),
			zap.Error(waitErr))
		return fmt.Errorf("ffmpeg sample: %w", waitErr)
	}
	if waitErr != nil {
		// late decode errors are treated as end of stream
		log.GetLogger().Warn("ffmpeg exited with error after decoding frames",
			zap.String("path", s.path),
			zap.Int("decoded", decoded),
			zap.String("output", stderr.String()),
			zap.Error(waitErr))
	}
	return nil
}

func (s *FFmpegSource) frameSize() int {
	return s.info.Width * s.info.Height * 3
}

func rgb24ToImage(buf []byte, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i, j := 0, 0; i+2 < len(buf) && j+3 < len(img.Pix); i, j = i+3, j+4 {
		img.Pix[j] = buf[i]
		img.Pix[j+1] = buf[i+1]
		img.Pix[j+2] = buf[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}

type probeOutput struct {
	Streams []struct {
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
		NbFrames     string `json:"nb_frames"`
		Duration     string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func probe(ctx context.Context, ffprobe, path string) (Info, error) {
	cmd := exec.CommandContext(ctx, ffprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate,avg_frame_rate,nb_frames,duration:format=duration",
		"-of", "json",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return Info{}, fmt.Errorf("ffprobe: %w", err)
	}
	return parseProbe(output)
}

func parseProbe(data []byte) (Info, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return Info{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(out.Streams) == 0 {
		return Info{}, errors.New("no video stream")
	}
	stream := out.Streams[0]
	if stream.Width <= 0 || stream.Height <= 0 {
		return Info{}, fmt.Errorf("invalid dimensions %dx%d", stream.Width, stream.Height)
	}

	fps := parseRate(stream.AvgFrameRate)
	if fps <= 0 {
		fps = parseRate(stream.RFrameRate)
	}
	if fps <= 0 {
		return Info{}, errors.New("unknown frame rate")
	}

	duration := parseFloat(stream.Duration)
	if duration <= 0 {
		duration = parseFloat(out.Format.Duration)
	}

	frames, _ := strconv.Atoi(strings.TrimSpace(stream.NbFrames))
	if frames <= 0 && duration > 0 {
		frames = int(math.Round(duration * fps))
	}
	if duration <= 0 && frames > 0 {
		duration = float64(frames) / fps
	}

	return Info{
		FPS:        fps,
		FrameCount: frames,
		Width:      stream.Width,
		Height:     stream.Height,
		Duration:   duration,
	}, nil
}

func parseRate(rate string) float64 {
	rate = strings.TrimSpace(rate)
	if rate == "" {
		return 0
	}
	num, den, found := strings.Cut(rate, "/")
	if !found {
		return parseFloat(num)
	}
	n, d := parseFloat(num), parseFloat(den)
	if d == 0 {
		return 0
	}
	return n / d
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
