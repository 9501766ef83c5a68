package staging

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config configures an S3 staging bucket.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// S3Source reads staged files from an S3 compatible bucket.
type S3Source struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewS3Source constructs a source over the configured bucket.
func NewS3Source(cfg S3Config) (*S3Source, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("staging: empty s3 endpoint")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("staging: empty s3 bucket")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}
	return &S3Source{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// List returns the feather objects under the prefix sorted by key.
func (s *S3Source) List(ctx context.Context) ([]StagedFile, error) {
	// Cancelling stops the listing goroutine on early return.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var files []StagedFile
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: s.prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if strings.HasSuffix(obj.Key, "/") || !IsFeather(obj.Key) {
			continue
		}
		files = append(files, StagedFile{Name: obj.Key, Size: obj.Size, ModTime: obj.LastModified})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Open streams an object.
func (s *S3Source) Open(ctx context.Context, file StagedFile) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, file.Name, minio.GetObjectOptions{})
	if err != nil {
		return nil, translateS3Error(err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, translateS3Error(err)
	}
	return obj, nil
}

// Remove deletes an object.
func (s *S3Source) Remove(ctx context.Context, file StagedFile) error {
	return s.client.RemoveObject(ctx, s.bucket, file.Name, minio.RemoveObjectOptions{})
}

func translateS3Error(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrNotFound
	}
	return err
}
