package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/okieraised/go-faceauth-pipeline/config"
)

// S3Config carries the credentials and location of the reference photo bucket.
type S3Config struct {
	Region    string `json:"region" yaml:"region"`
	Endpoint  string `json:"endpoint" yaml:"endpoint"` // Endpoint overrides the AWS default for MinIO compatible deployments.
	Bucket    string `json:"bucket" yaml:"bucket"`
	AccessKey string `json:"access_key" yaml:"access_key"`
	SecretKey string `json:"secret_key" yaml:"secret_key"`
}

// S3Store keeps one reference photo object per identity in an S3 bucket.
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store builds an S3 backed reference store from static credentials.
func NewS3Store(ctx context.Context, cfg *S3Config) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("storage error: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

func (s *S3Store) referenceKey(identityKey string) string {
	return fmt.Sprintf("references/%s", identityKey)
}

func (s *S3Store) Get(ctx context.Context, identityKey string) (*config.ReferencePhoto, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.referenceKey(identityKey)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage error: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("storage error: %w", err)
	}

	photo := &config.ReferencePhoto{
		IdentityKey: identityKey,
		Data:        data,
	}
	if out.ContentType != nil {
		photo.ContentType = *out.ContentType
	}
	if source, ok := out.Metadata["source"]; ok {
		photo.Source = source
	}
	if out.LastModified != nil {
		photo.UpdatedAt = *out.LastModified
	}
	return photo, nil
}

func (s *S3Store) Put(ctx context.Context, photo *config.ReferencePhoto) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.referenceKey(photo.IdentityKey)),
		Body:        bytes.NewReader(photo.Data),
		ContentType: aws.String(photo.ContentType),
		Metadata:    map[string]string{"source": photo.Source},
	})
	if err != nil {
		return fmt.Errorf("storage error: %w", err)
	}
	return nil
}

func (s *S3Store) Delete(ctx context.Context, identityKey string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.referenceKey(identityKey)),
	})
	if err != nil {
		return fmt.Errorf("storage error: %w", err)
	}
	return nil
}
