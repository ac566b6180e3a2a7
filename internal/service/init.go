package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"slide-extractor/config"
	"slide-extractor/internal/storage"
	"slide-extractor/log"
	apperrors "slide-extractor/pkg/errors"
	"slide-extractor/pkg/fetch"
	"slide-extractor/pkg/oss"
	"slide-extractor/pkg/video"
)

// Fetcher downloads a remote video into destDir.
type Fetcher interface {
	Download(ctx context.Context, rawURL, destDir string) (string, error)
}

// Dispatcher hands a persisted task to whatever executes it, either the
// in-process runner or the Redis queue.
type Dispatcher interface {
	Dispatch(taskId string) error
}

// SourceOpener opens a local video file for decoding.
type SourceOpener func(ctx context.Context, path string) (video.Source, error)

type Service struct {
	Fetcher    Fetcher
	Uploader   oss.Uploader
	OpenSource SourceOpener
	Dispatcher Dispatcher
}

func NewService() *Service {
	svc := &Service{
		Fetcher:    fetch.New(fetch.Options{Proxy: config.Conf.App.Proxy}),
		OpenSource: openFFmpeg,
	}

	if config.Conf.Oss.Enabled {
		client, err := oss.NewClient(oss.Config{
			Region:          config.Conf.Oss.Region,
			Endpoint:        config.Conf.Oss.Endpoint,
			Bucket:          config.Conf.Oss.Bucket,
			AccessKeyId:     config.Conf.Oss.AccessKeyId,
			AccessKeySecret: config.Conf.Oss.AccessKeySecret,
		})
		if err != nil {
			log.GetLogger().Error("oss client disabled", zap.Error(err))
		} else {
			svc.Uploader = client
			log.GetLogger().Info("oss upload enabled", zap.String("bucket", config.Conf.Oss.Bucket))
		}
	}
	return svc
}

func openFFmpeg(ctx context.Context, path string) (video.Source, error) {
	src, err := video.OpenFFmpeg(ctx, path, video.FFmpegOptions{
		FFmpegPath:  storage.FfmpegPath,
		FFprobePath: storage.FfprobePath,
	})
	if err != nil {
		if errors.Is(err, video.ErrUnavailable) {
			return nil, apperrors.WrapWithDetail(apperrors.CodeSourceUnavailable, apperrors.ErrSourceUnavailable.Message, path, err)
		}
		return nil, err
	}
	return src, nil
}
