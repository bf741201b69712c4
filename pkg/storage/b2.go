package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"label-catalog-api/pkg/apperr"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/sirupsen/logrus"
)

type B2Config struct {
	Endpoint       string
	Region         string
	KeyID          string
	ApplicationKey string
	Bucket         string
}

// B2Storage talks to Backblaze B2 through its S3-compatible API.
type B2Storage struct {
	S3       s3iface.S3API
	Endpoint string
	Bucket   string
	Prober   Prober
	Now      func() time.Time
}

func NewB2Storage(cfg B2Config, prober Prober) (*B2Storage, error) {
	if cfg.Endpoint == "" || cfg.Region == "" || cfg.KeyID == "" || cfg.ApplicationKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: b2 endpoint, region, key id, application key and bucket are required", apperr.ErrNotInitialized)
	}

	sess, err := session.NewSession(&aws.Config{
		Endpoint:    aws.String("https://" + cfg.Endpoint),
		Region:      aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(cfg.KeyID, cfg.ApplicationKey, ""),
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrNotInitialized, err)
	}

	return &B2Storage{
		S3:       s3.New(sess),
		Endpoint: cfg.Endpoint,
		Bucket:   cfg.Bucket,
		Prober:   prober,
		Now:      time.Now,
	}, nil
}

func (b *B2Storage) publicURL(key string) string {
	return fmt.Sprintf("https://%s/file/%s/%s", b.Endpoint, b.Bucket, key)
}

func (b *B2Storage) keyFromURL(url string) (string, bool) {
	parts := strings.SplitN(url, "/file/"+b.Bucket+"/", 2)
	if len(parts) < 2 || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func (b *B2Storage) Upload(ctx context.Context, data []byte, fileName string, folder Folder, contentType string) (string, error) {
	contentType, err := CheckUpload(data, folder, contentType)
	if err != nil {
		return "", err
	}

	key := ObjectKey(folder, fileName, b.Now())
	_, err = b.S3.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		ACL:         aws.String(s3.ObjectCannedACLPublicRead),
	})
	if err != nil {
		return "", apperr.Wrap(apperr.ErrUploadFailed, err)
	}

	logrus.WithField("key", key).Info("Uploaded file to B2")
	return b.publicURL(key), nil
}

// Delete removes the object behind url. Deleting a missing object is not an error.
func (b *B2Storage) Delete(ctx context.Context, url string) error {
	key, ok := b.keyFromURL(url)
	if !ok {
		return fmt.Errorf("%w: not a file in bucket %s: %s", apperr.ErrInvalid, b.Bucket, url)
	}

	_, err := b.S3.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.Bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return apperr.Wrap(apperr.ErrDeleteFailed, err)
	}
	return nil
}

func (b *B2Storage) Exists(ctx context.Context, url string) (bool, error) {
	key, ok := b.keyFromURL(url)
	if !ok {
		if b.Prober == nil {
			return false, fmt.Errorf("%w: not a file in bucket %s: %s", apperr.ErrInvalid, b.Bucket, url)
		}
		return b.Prober.Exists(ctx, url)
	}

	_, err := b.S3.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func isNotFound(err error) bool {
	if reqErr, ok := err.(awserr.RequestFailure); ok && reqErr.StatusCode() == http.StatusNotFound {
		return true
	}
	if aerr, ok := err.(awserr.Error); ok {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}
