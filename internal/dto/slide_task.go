package dto

// StartSlideTaskReq starts an extraction. Url is either local:<path> or an
// http(s) link. Nil options fall back to the [extract] config section.
type StartSlideTaskReq struct {
	Url              string   `json:"url" binding:"required"`
	Threshold        *float64 `json:"threshold"`
	Interval         *float64 `json:"interval"`
	MinSlideDuration *float64 `json:"min_slide_duration"`
	Rotate           *int     `json:"rotate"`
	SaveImages       *bool    `json:"save_images"`
	ReuseTaskId      string   `json:"-"`
}

type StartSlideTaskResData struct {
	TaskId string `json:"task_id"`
}

type GetSlideTaskReq struct {
	TaskId string `form:"taskId" binding:"required"`
}

type SlideTaskResultData struct {
	TaskId       string          `json:"task_id"`
	Status       string          `json:"status"`
	StatusMsg    string          `json:"status_msg"`
	FailReason   string          `json:"fail_reason,omitempty"`
	ProcessPct   uint8           `json:"process_percent"`
	SampleCount  int             `json:"sample_count"`
	SlideCount   int             `json:"slide_count"`
	PdfUrl       string          `json:"pdf_url,omitempty"`
	ZipUrl       string          `json:"zip_url,omitempty"`
	TraceUrl     string          `json:"trace_url,omitempty"`
	OssUrl       string          `json:"oss_url,omitempty"`
	Slides       []SlideInfoData `json:"slides"`
}

type SlideInfoData struct {
	Seq       int     `json:"seq"`
	Timestamp float64 `json:"timestamp"`
	Sharpness float64 `json:"sharpness"`
	ImageUrl  string  `json:"image_url,omitempty"`
}

type TaskHistoryItem struct {
	TaskId     string  `json:"task_id"`
	VideoSrc   string  `json:"video_src"`
	Status     string  `json:"status"`
	SlideCount int     `json:"slide_count"`
	ProcessPct uint8   `json:"process_percent"`
	Threshold  float64 `json:"threshold"`
	CreateTime int64   `json:"create_time"`
}
