// Package oss uploads produced slide documents to Alibaba Cloud OSS.
package oss

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss"
	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss/credentials"
	"go.uber.org/zap"

	"slide-extractor/log"
	apperrors "slide-extractor/pkg/errors"
)

const defaultURLExpiry = 24 * time.Hour

// Uploader stores a local file under key and returns where it can be fetched.
type Uploader interface {
	Upload(ctx context.Context, localPath, key string) (*UploadResult, error)
}

type UploadResult struct {
	Key  string
	URL  string
	ETag string
}

type Config struct {
	Region          string
	Endpoint        string
	Bucket          string
	AccessKeyId     string
	AccessKeySecret string
	URLExpiry       time.Duration
}

type Client struct {
	client *oss.Client
	bucket string
	expiry time.Duration
}

var _ Uploader = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	if cfg.Region == "" || cfg.Bucket == "" {
		return nil, apperrors.WrapWithDetail(apperrors.CodeInvalidParams, "Incomplete OSS configuration", "region and bucket are required", nil)
	}
	if cfg.AccessKeyId == "" || cfg.AccessKeySecret == "" {
		return nil, apperrors.WrapWithDetail(apperrors.CodeInvalidParams, "Incomplete OSS configuration", "access key id and secret are required", nil)
	}
	if cfg.URLExpiry <= 0 {
		cfg.URLExpiry = defaultURLExpiry
	}

	ossCfg := oss.LoadDefaultConfig().
		WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyId, cfg.AccessKeySecret)).
		WithRegion(cfg.Region)
	if cfg.Endpoint != "" {
		ossCfg = ossCfg.WithEndpoint(cfg.Endpoint)
	}

	return &Client{
		client: oss.NewClient(ossCfg),
		bucket: cfg.Bucket,
		expiry: cfg.URLExpiry,
	}, nil
}

// Upload puts the file and presigns a GET url for it. A presign failure is
// logged but does not fail the upload; the key is still usable.
func (c *Client) Upload(ctx context.Context, localPath, key string) (*UploadResult, error) {
	if _, err := os.Stat(localPath); err != nil {
		return nil, apperrors.WrapWithDetail(apperrors.CodeFileNotFound, apperrors.ErrFileNotFound.Message, localPath, err)
	}

	put, err := c.client.PutObjectFromFile(ctx, &oss.PutObjectRequest{
		Bucket: oss.Ptr(c.bucket),
		Key:    oss.Ptr(key),
	}, localPath)
	if err != nil {
		log.GetLogger().Error("oss upload failed", zap.String("bucket", c.bucket), zap.String("key", key), zap.Error(err))
		return nil, apperrors.WrapWithDetail(apperrors.CodeUploadFailed, apperrors.ErrUploadFailed.Message, key, err)
	}

	result := &UploadResult{Key: key, ETag: oss.ToString(put.ETag)}

	presigned, err := c.client.Presign(ctx, &oss.GetObjectRequest{
		Bucket: oss.Ptr(c.bucket),
		Key:    oss.Ptr(key),
	}, oss.PresignExpires(c.expiry))
	if err != nil {
		log.GetLogger().Warn("oss presign failed", zap.String("key", key), zap.Error(err))
	} else {
		result.URL = presigned.URL
	}

	log.GetLogger().Info("oss upload done", zap.String("bucket", c.bucket), zap.String("key", key))
	return result, nil
}

// ObjectKey joins prefix and parts into a slash separated object key without
// a leading slash.
func ObjectKey(prefix string, parts ...string) string {
	elems := make([]string, 0, len(parts)+1)
	if p := strings.Trim(prefix, "/ "); p != "" {
		elems = append(elems, p)
	}
	for _, part := range parts {
		if p := strings.Trim(part, "/ "); p != "" {
			elems = append(elems, p)
		}
	}
	return path.Join(elems...)
}

func (c *Client) String() string {
	return fmt.Sprintf("oss://%s", c.bucket)
}
