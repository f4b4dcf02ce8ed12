package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// deleteBatch — максимум ключей в одном DeleteObjects.
const deleteBatch = 1000

// S3Options — параметры подключения к S3-совместимому хранилищу.
type S3Options struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	// PublicURL — база публичных ссылок; пусто — {Endpoint}/{Bucket}
	PublicURL string
}

// S3Store — хранилище поверх S3 API (path-style адресация).
type S3Store struct {
	client    *s3.Client
	presign   *s3.PresignClient
	uploader  *manager.Uploader
	bucket    string
	publicURL string
	logger    *slog.Logger
}

// NewS3Store создаёт клиента S3. Соединение не проверяется: для этого Check.
func NewS3Store(ctx context.Context, opts S3Options, logger *slog.Logger) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка конфигурации S3: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(opts.Endpoint)
		o.UsePathStyle = true
	})

	publicURL := opts.PublicURL
	if publicURL == "" {
		publicURL = strings.TrimRight(opts.Endpoint, "/") + "/" + opts.Bucket
	}

	return &S3Store{
		client:    client,
		presign:   s3.NewPresignClient(client),
		uploader:  manager.NewUploader(client),
		bucket:    opts.Bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger.With(slog.String("component", "s3_store")),
	}, nil
}

// Bucket возвращает имя bucket.
func (s *S3Store) Bucket() string {
	return s.bucket
}

// Upload загружает объект через multipart-менеджер.
func (s *S3Store) Upload(ctx context.Context, key, contentType string, r io.Reader, size int64) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	err = s.mapError(err)
	observe("upload", err)
	if err != nil {
		return fmt.Errorf("ошибка загрузки %s: %w", key, err)
	}
	s.logger.Debug("Объект загружен", slog.String("key", key), slog.Int64("size", size))
	return nil
}

// Remove удаляет объекты пакетами по 1000 ключей.
func (s *S3Store) Remove(ctx context.Context, keys ...string) error {
	for start := 0; start < len(keys); start += deleteBatch {
		end := min(start+deleteBatch, len(keys))

		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(k)})
		}

		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		err = s.mapError(err)
		if err == nil && len(out.Errors) > 0 {
			e := out.Errors[0]
			err = fmt.Errorf("%s: %s", aws.ToString(e.Key), aws.ToString(e.Message))
		}
		observe("remove", err)
		if err != nil {
			return fmt.Errorf("ошибка удаления объектов: %w", err)
		}
	}
	if len(keys) > 0 {
		s.logger.Debug("Объекты удалены", slog.Int("count", len(keys)))
	}
	return nil
}

// Open открывает объект на чтение. Вызывающий закрывает поток.
func (s *S3Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	err = s.mapError(err)
	observe("open", err)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения %s: %w", key, err)
	}
	return out.Body, nil
}

// PublicURL — адрес объекта без подписи.
func (s *S3Store) PublicURL(key string) string {
	return s.publicURL + "/" + escapeKey(key)
}

// SignedURL — presigned GET-ссылка.
func (s *S3Store) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	observe("presign", err)
	if err != nil {
		return "", fmt.Errorf("ошибка подписи ссылки %s: %w", key, err)
	}
	return req.URL, nil
}

// Check проверяет bucket запросом HeadBucket.
func (s *S3Store) Check(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	err = s.mapError(err)
	observe("check", err)
	return err
}

// mapError переводит ошибки S3 в ошибки пакета.
func (s *S3Store) mapError(err error) error {
	if err == nil {
		return nil
	}
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return fmt.Errorf("%w: %s", ErrBucketNotFound, s.bucket)
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return ErrObjectNotFound
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchBucket":
			return fmt.Errorf("%w: %s", ErrBucketNotFound, s.bucket)
		case "NotFound":
			// HeadBucket отвечает 404 без тела
			return fmt.Errorf("%w: %s", ErrBucketNotFound, s.bucket)
		case "NoSuchKey":
			return ErrObjectNotFound
		}
	}
	return err
}

// escapeKey экранирует сегменты ключа, сохраняя разделители.
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
