// Package storage 提供了与对象存储服务（MinIO）交互的功能，用于归档每次导入生成的 CSV。
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"insta-iq-go/internal/config"
	"insta-iq-go/pkg/log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Archive 把导入 blob 写入 MinIO 存储桶。
type Archive struct {
	client *minio.Client
	bucket string
}

// NewArchive 初始化 MinIO 客户端并确保指定的存储桶存在。
func NewArchive(ctx context.Context, cfg config.MinIOConfig) (*Archive, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 MinIO 客户端失败: %w", err)
	}
	log.Info("MinIO 客户端初始化成功")

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("检查 MinIO 存储桶失败: %w", err)
	}
	if !exists {
		log.Infof("存储桶 '%s' 不存在，正在创建...", cfg.BucketName)
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("创建 MinIO 存储桶失败: %w", err)
		}
		log.Infof("存储桶 '%s' 创建成功", cfg.BucketName)
	} else {
		log.Infof("存储桶 '%s' 已存在", cfg.BucketName)
	}
	return &Archive{client: client, bucket: cfg.BucketName}, nil
}

// ObjectName 返回 posts/<profile>/<runID>.csv。
func ObjectName(profile, runID string) string {
	return fmt.Sprintf("posts/%s/%s.csv", profile, runID)
}

// ArchiveBlob 上传 blob 并返回对象名。
func (a *Archive) ArchiveBlob(ctx context.Context, profile, runID, blob string) (string, error) {
	object := ObjectName(profile, runID)
	_, err := a.client.PutObject(ctx, a.bucket, object, strings.NewReader(blob), int64(len(blob)), minio.PutObjectOptions{
		ContentType: "text/csv",
	})
	if err != nil {
		return "", fmt.Errorf("上传 %s 失败: %w", object, err)
	}
	log.Infof("[Archive] 已归档 %s/%s (%d bytes)", a.bucket, object, len(blob))
	return object, nil
}

// PresignedURL generates a presigned download URL for an archived object.
func (a *Archive) PresignedURL(ctx context.Context, object string, expiry time.Duration) (string, error) {
	u, err := a.client.PresignedGetObject(ctx, a.bucket, object, expiry, nil)
	if err != nil {
		log.Errorf("Error generating presigned URL: %s", err)
		return "", err
	}
	return u.String(), nil
}
