package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"slide-extractor/config"
	"slide-extractor/internal/appdirs"
	"slide-extractor/internal/dto"
	"slide-extractor/internal/output"
	"slide-extractor/internal/slides"
	"slide-extractor/internal/storage"
	"slide-extractor/internal/types"
	"slide-extractor/log"
	apperrors "slide-extractor/pkg/errors"
	"slide-extractor/pkg/fetch"
	"slide-extractor/pkg/oss"
)

const (
	localPrefix = "local:"

	pdfName    = appdirs.TaskPdfName
	zipName    = appdirs.TaskZipName
	traceName  = appdirs.TaskTraceName
	imagesName = appdirs.TaskImagesName

	historyLimit = 200

	// Progress bands: fetching ends at pctFetched, analysis fills the range
	// up to pctAnalysed and output writing takes the rest.
	pctFetched  = 5
	pctAnalysed = 90
	pctWritten  = 95
)

// StartSlideTask persists a new task and hands it to the dispatcher.
func (s Service) StartSlideTask(req dto.StartSlideTaskReq) (*dto.StartSlideTaskResData, error) {
	req.Url = strings.TrimSpace(req.Url)
	if err := validateSource(req.Url); err != nil {
		return nil, err
	}
	opts, err := resolveOptions(req, config.Conf.Extract)
	if err != nil {
		return nil, err
	}

	taskId := req.ReuseTaskId
	if taskId == "" {
		taskId = uuid.New().String()
	}

	task := &types.SlideTask{
		TaskId:           taskId,
		VideoSrc:         req.Url,
		Threshold:        opts.Threshold,
		Interval:         opts.Interval,
		MinSlideDuration: opts.MinSlideDuration,
		Rotate:           opts.Rotate,
		SaveImages:       opts.SaveImages,
		Status:           types.SlideTaskStatusPending,
		StatusMsg:        "Queued",
	}
	if req.ReuseTaskId != "" {
		if prev, err := storage.GetTask(taskId); err == nil && prev.VideoSrc == req.Url {
			task.LocalVideoPath = prev.LocalVideoPath
		}
	}
	if err := storage.SaveTask(task); err != nil {
		log.GetLogger().Error("StartSlideTask SaveTask err", zap.String("taskId", taskId), zap.Error(err))
		return nil, apperrors.Wrap(apperrors.CodeDBError, "Failed to save task", err)
	}
	if req.ReuseTaskId != "" {
		// slides of the previous run must not outlive it
		if err := storage.ReplaceSlides(taskId, nil); err != nil {
			log.GetLogger().Error("StartSlideTask ReplaceSlides err", zap.String("taskId", taskId), zap.Error(err))
			return nil, apperrors.Wrap(apperrors.CodeDBError, "Failed to reset task slides", err)
		}
	}
	log.GetLogger().Info("slide task created",
		zap.String("taskId", taskId),
		zap.String("url", req.Url),
		zap.Float64("threshold", opts.Threshold),
		zap.Float64("interval", opts.Interval),
		zap.Float64("min_slide_duration", opts.MinSlideDuration))

	if err := s.dispatch(taskId); err != nil {
		_ = s.fail(task, "Not queued", err)
		return nil, apperrors.Wrap(apperrors.CodeUnknown, "Failed to queue task", err)
	}
	return &dto.StartSlideTaskResData{TaskId: taskId}, nil
}

func (s Service) dispatch(taskId string) error {
	if s.Dispatcher != nil {
		return s.Dispatcher.Dispatch(taskId)
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				const size = 64 << 10
				buf := make([]byte, size)
				buf = buf[:runtime.Stack(buf, false)]
				log.GetLogger().Error("slide task panic", zap.Any("panic", r), zap.ByteString("stack", buf))
			}
		}()
		_ = s.RunSlideTask(context.Background(), taskId)
	}()
	return nil
}

func validateSource(url string) error {
	switch {
	case url == "":
		return apperrors.WrapWithDetail(apperrors.CodeInvalidParams, "Video url is required", "", nil)
	case strings.HasPrefix(url, localPrefix):
		path := strings.TrimPrefix(url, localPrefix)
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			return apperrors.WrapWithDetail(apperrors.CodeFileNotFound, apperrors.ErrFileNotFound.Message, path, err)
		}
		return nil
	case fetch.IsRemote(url):
		return nil
	}
	return apperrors.WrapWithDetail(apperrors.CodeInvalidParams, "Unsupported video url", "use local:<path> or an http(s) link", nil)
}

// resolveOptions overlays the request on the configured defaults and
// validates the result with the same rules as the config file.
func resolveOptions(req dto.StartSlideTaskReq, defaults config.Extract) (config.Extract, error) {
	opts := defaults
	if req.Threshold != nil {
		opts.Threshold = *req.Threshold
	}
	if req.Interval != nil {
		opts.Interval = *req.Interval
	}
	if req.MinSlideDuration != nil {
		opts.MinSlideDuration = *req.MinSlideDuration
	}
	if req.Rotate != nil {
		opts.Rotate = *req.Rotate
	}
	if req.SaveImages != nil {
		opts.SaveImages = *req.SaveImages
	}
	if err := opts.Validate(); err != nil {
		return opts, apperrors.WrapWithDetail(apperrors.CodeInvalidParams, apperrors.ErrInvalidParams.Message, err.Error(), err)
	}
	return opts, nil
}

// RunSlideTask executes a persisted task end to end and records the
// outcome on the task row. The returned error is the failure reason.
func (s Service) RunSlideTask(ctx context.Context, taskId string) error {
	task, err := storage.GetTask(taskId)
	if err != nil {
		return fmt.Errorf("load task %s: %w", taskId, err)
	}
	logger := log.GetLogger().With(zap.String("taskId", taskId))
	logger.Info("slide task started", zap.String("url", task.VideoSrc))

	task.Status = types.SlideTaskStatusProcessing
	task.FailReason = ""
	task.ProcessPct = 0
	task.StatusMsg = "Fetching video"
	if err := storage.SaveTask(task); err != nil {
		return fmt.Errorf("save task %s: %w", taskId, err)
	}

	outputDir, err := resolveTaskOutputDir(taskId)
	if err != nil {
		return s.fail(task, "Failed", err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return s.fail(task, "Failed", apperrors.Wrap(apperrors.CodeFileWriteError, "Failed to create task dir", err))
	}

	localPath, err := s.localVideo(ctx, task, filepath.Dir(outputDir))
	if err != nil {
		return s.fail(task, "Download failed", err)
	}
	task.LocalVideoPath = localPath
	task.ProcessPct = pctFetched
	task.StatusMsg = "Analyzing frames"
	saveProgress(logger, task)

	res, err := s.extract(ctx, task, localPath)
	if err != nil {
		return s.fail(task, "Analysis failed", err)
	}
	task.SampleCount = res.SampleCount
	task.SlideCount = len(res.Slides)
	task.ProcessPct = pctAnalysed
	task.StatusMsg = "Writing documents"
	saveProgress(logger, task)

	infos, err := s.writeArtifacts(ctx, task, res, outputDir)
	if err != nil {
		return s.fail(task, "Output failed", err)
	}
	if err := storage.ReplaceSlides(taskId, infos); err != nil {
		return s.fail(task, "Output failed", apperrors.Wrap(apperrors.CodeDBError, "Failed to save slides", err))
	}

	if s.Uploader != nil {
		task.ProcessPct = pctWritten
		task.StatusMsg = "Uploading"
		saveProgress(logger, task)

		key := oss.ObjectKey(config.Conf.Oss.Prefix, taskId, pdfName)
		uploaded, err := s.Uploader.Upload(ctx, task.PdfPath, key)
		if err != nil {
			return s.fail(task, "Upload failed", err)
		}
		task.OssKey = uploaded.Key
		task.OssUrl = uploaded.URL
	}

	task.Status = types.SlideTaskStatusSuccess
	task.ProcessPct = 100
	task.StatusMsg = "Completed"
	if err := storage.SaveTask(task); err != nil {
		return fmt.Errorf("save task %s: %w", taskId, err)
	}
	logger.Info("slide task completed",
		zap.Int("samples", task.SampleCount),
		zap.Int("slides", task.SlideCount),
		zap.String("pdf", task.PdfPath))
	return nil
}

// saveProgress persists a stage change. A failed write only costs the
// intermediate status, so the run goes on.
func saveProgress(logger *zap.Logger, task *types.SlideTask) {
	if err := storage.SaveTask(task); err != nil {
		logger.Warn("task progress save failed",
			zap.String("status_msg", task.StatusMsg),
			zap.Uint8("pct", task.ProcessPct),
			zap.Error(err))
	}
}

func (s Service) localVideo(ctx context.Context, task *types.SlideTask, taskDir string) (string, error) {
	src := task.VideoSrc
	if strings.HasPrefix(src, localPrefix) {
		return strings.TrimPrefix(src, localPrefix), nil
	}
	if !fetch.IsRemote(src) {
		return "", apperrors.WrapWithDetail(apperrors.CodeInvalidParams, "Unsupported video url", src, nil)
	}
	if task.LocalVideoPath != "" {
		if _, err := os.Stat(task.LocalVideoPath); err == nil {
			log.GetLogger().Info("reusing downloaded video", zap.String("path", task.LocalVideoPath))
			return task.LocalVideoPath, nil
		}
	}
	if s.Fetcher == nil {
		return "", apperrors.Wrap(apperrors.CodeDownloadFailed, apperrors.ErrDownloadFailed.Message, errors.New("no fetcher configured"))
	}
	return s.Fetcher.Download(ctx, src, taskDir)
}

func (s Service) extract(ctx context.Context, task *types.SlideTask, localPath string) (*slides.Result, error) {
	open := s.OpenSource
	if open == nil {
		open = openFFmpeg
	}
	src, err := open(ctx, localPath)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	lastPct := uint8(pctFetched)
	extractor, err := slides.NewExtractor(slides.Options{
		Threshold:        task.Threshold,
		Interval:         task.Interval,
		MinSlideDuration: task.MinSlideDuration,
		Progress: func(p slides.Progress) {
			if p.Stage != slides.StageAnalyzing {
				return
			}
			pct := analysisPercent(p)
			if pct == lastPct {
				return
			}
			lastPct = pct
			if err := storage.UpdateProgress(task.TaskId, pct, "Analyzing frames"); err != nil {
				log.GetLogger().Warn("progress update failed", zap.String("taskId", task.TaskId), zap.Error(err))
			}
		},
	})
	if err != nil {
		return nil, err
	}
	return extractor.Extract(ctx, src)
}

func analysisPercent(p slides.Progress) uint8 {
	return uint8(pctFetched + p.Percent()*(pctAnalysed-pctFetched)/100)
}

// writeArtifacts produces the PDF, the optional image set with its zip
// bundle and the trace report, and returns the slide rows to persist.
func (s Service) writeArtifacts(ctx context.Context, task *types.SlideTask, res *slides.Result, outputDir string) ([]types.SlideInfo, error) {
	images := res.Images()
	pdfPath := filepath.Join(outputDir, pdfName)
	if err := output.WritePDF(pdfPath, images, output.PDFOptions{
		DPI:    config.Conf.Extract.Dpi,
		Rotate: task.Rotate,
		Title:  task.TaskId,
	}); err != nil {
		return nil, err
	}
	task.PdfPath = pdfPath

	var imagePaths []string
	if task.SaveImages {
		paths, err := output.WriteImages(ctx, filepath.Join(outputDir, imagesName), images, task.Rotate)
		if err != nil {
			return nil, err
		}
		imagePaths = paths

		zipPath := filepath.Join(outputDir, zipName)
		if err := output.Zip(ctx, paths, zipPath); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeEncodeFailed, apperrors.ErrEncodeFailed.Message, err)
		}
		task.ZipPath = zipPath
	}

	tracePath := filepath.Join(outputDir, traceName)
	if err := output.WriteTraceJSON(tracePath, output.NewTraceReport(res, task.Interval)); err != nil {
		log.GetLogger().Warn("trace export failed", zap.String("taskId", task.TaskId), zap.Error(err))
	} else {
		task.TracePath = tracePath
	}

	return lo.Map(res.Slides, func(slide slides.Slide, i int) types.SlideInfo {
		info := types.SlideInfo{
			TaskId:        task.TaskId,
			Seq:           i + 1,
			SampleOrdinal: slide.Ordinal,
			FrameIndex:    slide.FrameIndex,
			Timestamp:     slide.Timestamp,
			Sharpness:     slide.Sharpness,
			SegmentStart:  slide.Segment.Start,
			SegmentEnd:    slide.Segment.End,
		}
		if i < len(imagePaths) {
			info.ImagePath = imagePaths[i]
		}
		return info
	}), nil
}

func (s Service) fail(task *types.SlideTask, statusMsg string, taskErr error) error {
	log.GetLogger().Error("slide task failed",
		zap.String("taskId", task.TaskId),
		zap.String("stage", statusMsg),
		zap.Error(taskErr))
	task.Status = types.SlideTaskStatusFailed
	task.StatusMsg = statusMsg
	task.FailReason = failReason(taskErr)
	if err := storage.SaveTask(task); err != nil {
		log.GetLogger().Error("failed to persist task failure", zap.String("taskId", task.TaskId), zap.Error(err))
	}
	return taskErr
}

// failReason prefers the user facing AppError message and detail over the
// full wrapped chain.
func failReason(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Detail != "" {
			return appErr.Message + ": " + appErr.Detail
		}
		return appErr.Message
	}
	return err.Error()
}

func (s Service) GetTaskStatus(req dto.GetSlideTaskReq) (*dto.SlideTaskResultData, error) {
	task, err := s.getTask(req.TaskId)
	if err != nil {
		return nil, err
	}
	return &dto.SlideTaskResultData{
		TaskId:      task.TaskId,
		Status:      task.Status.String(),
		StatusMsg:   task.StatusMsg,
		FailReason:  task.FailReason,
		ProcessPct:  task.ProcessPct,
		SampleCount: task.SampleCount,
		SlideCount:  task.SlideCount,
		PdfUrl:      downloadURL(task.PdfPath),
		ZipUrl:      downloadURL(task.ZipPath),
		TraceUrl:    downloadURL(task.TracePath),
		OssUrl:      task.OssUrl,
		Slides: lo.Map(task.SlideInfos, func(item types.SlideInfo, _ int) dto.SlideInfoData {
			return dto.SlideInfoData{
				Seq:       item.Seq,
				Timestamp: item.Timestamp,
				Sharpness: item.Sharpness,
				ImageUrl:  downloadURL(item.ImagePath),
			}
		}),
	}, nil
}

func (s Service) GetTaskHistory() ([]dto.TaskHistoryItem, error) {
	tasks, err := storage.GetTaskHistory(historyLimit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDBError, apperrors.ErrDBError.Message, err)
	}
	return lo.Map(tasks, func(task types.SlideTask, _ int) dto.TaskHistoryItem {
		return dto.TaskHistoryItem{
			TaskId:     task.TaskId,
			VideoSrc:   task.VideoSrc,
			Status:     task.Status.String(),
			SlideCount: task.SlideCount,
			ProcessPct: task.ProcessPct,
			Threshold:  task.Threshold,
			CreateTime: task.CreateTime,
		}
	}), nil
}

// DeleteTask removes the task row, its slides and its directory. Running
// tasks cannot be deleted.
func (s Service) DeleteTask(taskId string) error {
	task, err := s.getTask(taskId)
	if err != nil {
		return err
	}
	if task.Status == types.SlideTaskStatusProcessing {
		return apperrors.WrapWithDetail(apperrors.CodeInvalidParams, "Task is still running", taskId, nil)
	}

	if taskDir, err := resolveTaskDir(taskId); err == nil {
		if err := os.RemoveAll(taskDir); err != nil {
			log.GetLogger().Error("DeleteTask RemoveAll err", zap.String("path", taskDir), zap.Error(err))
		}
	}
	if err := storage.DeleteTask(taskId); err != nil {
		return apperrors.Wrap(apperrors.CodeDBError, apperrors.ErrDBError.Message, err)
	}
	log.GetLogger().Info("slide task deleted", zap.String("taskId", taskId))
	return nil
}

// RetryTask re-runs a finished or failed task with its stored options.
func (s Service) RetryTask(taskId string) (*dto.StartSlideTaskResData, error) {
	task, err := s.getTask(taskId)
	if err != nil {
		return nil, err
	}
	if !task.Status.Terminal() {
		return nil, apperrors.WrapWithDetail(apperrors.CodeInvalidParams, "Only failed or completed tasks can be retried", task.Status.String(), nil)
	}

	return s.StartSlideTask(dto.StartSlideTaskReq{
		Url:              task.VideoSrc,
		Threshold:        lo.ToPtr(task.Threshold),
		Interval:         lo.ToPtr(task.Interval),
		MinSlideDuration: lo.ToPtr(task.MinSlideDuration),
		Rotate:           lo.ToPtr(task.Rotate),
		SaveImages:       lo.ToPtr(task.SaveImages),
		ReuseTaskId:      task.TaskId,
	})
}

func (s Service) getTask(taskId string) (*types.SlideTask, error) {
	if strings.TrimSpace(taskId) == "" {
		return nil, apperrors.WrapWithDetail(apperrors.CodeInvalidParams, "Task id is required", "", nil)
	}
	task, err := storage.GetTask(taskId)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.WrapWithDetail(apperrors.CodeNotFound, "Task not found", taskId, err)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDBError, apperrors.ErrDBError.Message, err)
	}
	return task, nil
}
