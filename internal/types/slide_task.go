package types

// SlideTaskStatus is persisted as a small integer.
type SlideTaskStatus uint8

const (
	SlideTaskStatusPending    SlideTaskStatus = 0
	SlideTaskStatusProcessing SlideTaskStatus = 1
	SlideTaskStatusSuccess    SlideTaskStatus = 2
	SlideTaskStatusFailed     SlideTaskStatus = 3
)

func (s SlideTaskStatus) String() string {
	switch s {
	case SlideTaskStatusPending:
		return "pending"
	case SlideTaskStatusProcessing:
		return "processing"
	case SlideTaskStatusSuccess:
		return "success"
	case SlideTaskStatusFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether the task can be retried.
func (s SlideTaskStatus) Terminal() bool {
	return s == SlideTaskStatusSuccess || s == SlideTaskStatusFailed
}

// SlideTask is one extraction job and its artifacts.
type SlideTask struct {
	Id               uint64          `json:"id" gorm:"primaryKey;autoIncrement"`
	TaskId           string          `json:"task_id" gorm:"uniqueIndex"`
	VideoSrc         string          `json:"video_src"`
	LocalVideoPath   string          `json:"-"`
	Threshold        float64         `json:"threshold"`
	Interval         float64         `json:"interval"`
	MinSlideDuration float64         `json:"min_slide_duration"`
	Rotate           int             `json:"rotate"`
	SaveImages       bool            `json:"save_images"`
	Status           SlideTaskStatus `json:"status"`
	StatusMsg        string          `json:"status_msg"`
	FailReason       string          `json:"fail_reason"`
	ProcessPct       uint8           `json:"process_pct"`
	SampleCount      int             `json:"sample_count"`
	SlideCount       int             `json:"slide_count"`
	PdfPath          string          `json:"pdf_path"`
	ZipPath          string          `json:"zip_path"`
	TracePath        string          `json:"trace_path"`
	OssKey           string          `json:"oss_key"`
	OssUrl           string          `json:"oss_url"`
	SlideInfos       []SlideInfo     `json:"slide_infos" gorm:"foreignKey:TaskId;references:TaskId;constraint:OnDelete:CASCADE"`
	CreateTime       int64           `json:"create_time" gorm:"autoCreateTime"`
	UpdateTime       int64           `json:"update_time" gorm:"autoUpdateTime"`
}

// SlideInfo describes one extracted slide of a task.
type SlideInfo struct {
	Id            uint64  `json:"id" gorm:"primaryKey;autoIncrement"`
	TaskId        string  `json:"task_id" gorm:"index"`
	Seq           int     `json:"seq"`
	SampleOrdinal int     `json:"sample_ordinal"`
	FrameIndex    int     `json:"frame_index"`
	Timestamp     float64 `json:"timestamp"`
	Sharpness     float64 `json:"sharpness"`
	SegmentStart  int     `json:"segment_start"`
	SegmentEnd    int     `json:"segment_end"`
	ImagePath     string  `json:"image_path"`
}
