package s3storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"premium_gallery/internal/storage"
)

type Options struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	BaseURL         string
}

// S3Storage хранит вложения в бакете S3 (или MinIO)
type S3Storage struct {
	client  s3iface.S3API
	bucket  string
	baseURL string
}

func New(opts Options) (*S3Storage, error) {
	const op = "storage.s3storage.New"

	awsConfig := &aws.Config{
		Region: aws.String(opts.Region),
		Credentials: credentials.NewStaticCredentials(
			opts.AccessKeyID,
			opts.SecretAccessKey,
			"",
		),
	}

	// MinIO для локальной разработки
	if opts.Endpoint != "" {
		awsConfig.Endpoint = aws.String(opts.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
		awsConfig.DisableSSL = aws.Bool(!opts.UseSSL)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create AWS session: %w", op, err)
	}

	client := s3.New(sess)

	// Бакет может еще не существовать в MinIO
	if _, err := client.HeadBucket(&s3.HeadBucketInput{Bucket: aws.String(opts.Bucket)}); err != nil {
		if _, err := client.CreateBucket(&s3.CreateBucketInput{Bucket: aws.String(opts.Bucket)}); err != nil {
			var aerr awserr.Error
			if !errors.As(err, &aerr) || aerr.Code() != s3.ErrCodeBucketAlreadyOwnedByYou {
				return nil, fmt.Errorf("%s: failed to create bucket: %w", op, err)
			}
		}
	}

	return NewWithClient(client, opts.Bucket, baseURL(opts)), nil
}

func NewWithClient(client s3iface.S3API, bucket, baseURL string) *S3Storage {
	return &S3Storage{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func baseURL(opts Options) string {
	if opts.BaseURL != "" {
		return opts.BaseURL
	}

	if opts.Endpoint != "" {
		protocol := "http"
		if opts.UseSSL {
			protocol = "https"
		}
		endpoint := strings.TrimPrefix(opts.Endpoint, "http://")
		endpoint = strings.TrimPrefix(endpoint, "https://")
		return fmt.Sprintf("%s://%s/%s", protocol, endpoint, opts.Bucket)
	}

	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opts.Bucket, region)
}

func (s *S3Storage) Store(ctx context.Context, data []byte, contentType, key string) (string, error) {
	const op = "storage.s3storage.Store"

	if key == "" {
		return "", fmt.Errorf("%s: %w", op, storage.ErrEmptyPath)
	}

	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey(key)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("%s: failed to upload file to S3: %w", op, err)
	}

	return key, nil
}

func (s *S3Storage) Read(ctx context.Context, key string) ([]byte, error) {
	const op = "storage.s3storage.Read"

	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(key)),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, fmt.Errorf("%s: %s: %w", op, key, storage.ErrFileNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return data, nil
}

// Delete удаляет объект, S3 не возвращает ошибку для отсутствующего ключа
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	const op = "storage.s3storage.Delete"

	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("%s: failed to delete file from S3: %w", op, err)
	}

	return nil
}

// GetFullPath возвращает адрес объекта вида s3://bucket/key
func (s *S3Storage) GetFullPath(key string) string {
	return "s3://" + s.bucket + "/" + objectKey(key)
}

func (s *S3Storage) BaseURL() string {
	return s.baseURL
}

func objectKey(key string) string {
	return strings.TrimPrefix(path.Clean("/"+key), "/")
}
