// Package fetch downloads remote videos to local disk so they can be decoded
// with ffmpeg.
package fetch

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"slide-extractor/log"
	apperrors "slide-extractor/pkg/errors"
)

const (
	defaultTimeout  = 30 * time.Minute
	defaultFileName = "source.mp4"
	userAgent       = "slide-extractor/1.0"
)

type Options struct {
	Proxy   string
	Timeout time.Duration
	Retries int
}

type Client struct {
	http *resty.Client
}

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	client := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.Retries).
		SetHeader("User-Agent", userAgent)
	if opts.Proxy != "" {
		client.SetProxy(opts.Proxy)
	}
	return &Client{http: client}
}

// IsRemote reports whether src is an http(s) URL.
func IsRemote(src string) bool {
	lower := strings.ToLower(strings.TrimSpace(src))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// FileNameFor derives a safe local file name from a URL path.
func FileNameFor(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return defaultFileName
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return defaultFileName
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	if filepath.Ext(name) == "" {
		name += ".mp4"
	}
	return name
}

// Download fetches rawURL into destDir and returns the local path. The body
// goes to a temporary file first so a failed transfer never leaves a
// truncated video behind.
func (c *Client) Download(ctx context.Context, rawURL, destDir string) (string, error) {
	if !IsRemote(rawURL) {
		return "", apperrors.WrapWithDetail(apperrors.CodeInvalidParams, "Unsupported video url", rawURL, nil)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", apperrors.Wrap(apperrors.CodeFileWriteError, "Failed to create download dir", err)
	}

	target := filepath.Join(destDir, FileNameFor(rawURL))
	partial := target + ".part"
	start := time.Now()

	resp, err := c.http.R().
		SetContext(ctx).
		SetOutput(partial).
		Get(rawURL)
	if err != nil {
		_ = os.Remove(partial)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", apperrors.WrapWithDetail(apperrors.CodeDownloadFailed, apperrors.ErrDownloadFailed.Message, rawURL, err)
	}
	if resp.IsError() {
		_ = os.Remove(partial)
		return "", apperrors.WrapWithDetail(apperrors.CodeDownloadFailed, apperrors.ErrDownloadFailed.Message, rawURL,
			fmt.Errorf("unexpected status %s", resp.Status()))
	}
	if err := os.Rename(partial, target); err != nil {
		_ = os.Remove(partial)
		return "", apperrors.Wrap(apperrors.CodeFileWriteError, "Failed to store downloaded video", err)
	}

	info, _ := os.Stat(target)
	size := int64(0)
	if info != nil {
		size = info.Size()
	}
	log.GetLogger().Info("video downloaded",
		zap.String("url", rawURL),
		zap.String("path", target),
		zap.Int64("bytes", size),
		zap.Duration("elapsed", time.Since(start)))
	return target, nil
}
