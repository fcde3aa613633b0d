// Package storage mirrors document thumbnails into MinIO so the admin UI
// can show previews without another round trip to Telegram. Entirely
// optional: when MinIO is not configured uploads proceed without mirroring.
package storage

import (
	"FileVaultBot/config"
	"context"
	"fmt"
	"io"
	"log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinIOStorage struct {
	Client *minio.Client
	Bucket string
}

var Minio *MinIOStorage

// InitMinio initializes the MinIO client and bucket. A missing MINIO_HOST
// disables the thumbnail mirror.
func InitMinio() {
	if config.AppConfig.MinioHost == "" {
		log.Println("minio not configured, thumbnail mirror disabled")
		return
	}
	client, err := minio.New(fmt.Sprintf("%s:%s", config.AppConfig.MinioHost, config.AppConfig.MinioPort), &minio.Options{
		Creds:  credentials.NewStaticV4(config.AppConfig.MinioUser, config.AppConfig.MinioPass, ""),
		Secure: false,
	})
	if err != nil {
		log.Fatalln("minio error:", err)
	}
	ctx := context.Background()
	exists, err := client.BucketExists(ctx, config.AppConfig.BucketName)
	if err != nil {
		log.Fatalln("check bucket fail:", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, config.AppConfig.BucketName, minio.MakeBucketOptions{}); err != nil {
			log.Fatalln("create bucket fail:", err)
		}
	}
	Minio = &MinIOStorage{
		Client: client,
		Bucket: config.AppConfig.BucketName,
	}
	log.Println("init minio success")
}

// PutObject uploads an object into the configured bucket.
func (m *MinIOStorage) PutObject(ctx context.Context, object string, reader io.Reader, size int64, contentType string) error {
	_, err := m.Client.PutObject(ctx, m.Bucket, object, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}
