package media

import (
	"context"
	"io"
	"strings"

	"repurposer/domain/model"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// S3Store keeps uploads in a bucket. Objects are public-read so Instagram and
// Facebook can fetch them by URL.
type S3Store struct {
	bucket        string
	publicBaseURL string
	uploader      *s3manager.Uploader
	svc           *s3.S3
}

func NewS3Store(bucket, region, publicBaseURL string) (*S3Store, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, err
	}
	return NewS3StoreWithSession(sess, bucket, publicBaseURL), nil
}

func NewS3StoreWithSession(sess *session.Session, bucket, publicBaseURL string) *S3Store {
	if publicBaseURL == "" {
		publicBaseURL = "https://" + bucket + ".s3.amazonaws.com"
	}
	return &S3Store{
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		uploader:      s3manager.NewUploader(sess),
		svc:           s3.New(sess),
	}
}

func (s *S3Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

func (s *S3Store) Save(ctx context.Context, key, contentType string, r io.Reader) (*model.MediaRef, error) {
	in := &s3manager.UploadInput{
		ACL:    aws.String("public-read"),
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := s.uploader.UploadWithContext(ctx, in); err != nil {
		return nil, err
	}
	return &model.MediaRef{Key: key, ContentType: contentType, PublicURL: s.publicBaseURL + "/" + key}, nil
}
