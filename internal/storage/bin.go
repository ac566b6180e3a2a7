package storage

// Executable paths, filled in by deps.CheckDependency.
var (
	FfmpegPath  = "ffmpeg"
	FfprobePath = "ffprobe"
)
