package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/circulars-cli/internal/model"
)

// ObjectPutter is the subset of the S3 client used by the sink.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 stores run documents and downloaded PDFs in a bucket.
//
// Run documents go to <prefix>/<category>/<subfolder>/<timestamp>.json and
// artifacts to <prefix>/<category>/<subfolder>/pdf/<file name>.
type S3 struct {
	client ObjectPutter
	bucket string
	prefix string
}

// NewS3 creates an S3 sink using the default AWS credential chain.
func NewS3(ctx context.Context, bucket, prefix, region string) (*S3, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "sink: load aws config")
	}
	return NewS3WithClient(s3.NewFromConfig(cfg), bucket, prefix), nil
}

// NewS3WithClient creates an S3 sink around an existing client.
func NewS3WithClient(client ObjectPutter, bucket, prefix string) *S3 {
	return &S3{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (s *S3) key(target model.Target, parts ...string) string {
	elems := append([]string{s.prefix, slug(target.Category), slug(target.Subfolder)}, parts...)
	return strings.TrimPrefix(path.Join(elems...), "/")
}

// Write uploads the run result, records included, as one JSON document.
func (s *S3) Write(ctx context.Context, result *model.RunResult) error {
	if err := checkResult(result); err != nil {
		return err
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return eris.Wrap(err, "sink: marshal result")
	}
	key := s.key(result.Target, stamp(result)+".json")
	if err := s.put(ctx, key, bytes.NewReader(data), "application/json"); err != nil {
		return err
	}
	zap.L().Info("sink: uploaded run", zap.String("bucket", s.bucket), zap.String("key", key))
	return nil
}

// UploadArtifact copies a downloaded PDF to the bucket.
func (s *S3) UploadArtifact(ctx context.Context, target model.Target, art model.Artifact) error {
	f, err := os.Open(art.Path)
	if err != nil {
		return eris.Wrapf(err, "sink: open artifact %s", art.Path)
	}
	defer f.Close() //nolint:errcheck

	name := art.FileName
	if name == "" {
		name = path.Base(art.Path)
	}
	return s.put(ctx, s.key(target, "pdf", name), f, "application/pdf")
}

func (s *S3) put(ctx context.Context, key string, body io.ReadSeeker, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return eris.Wrapf(err, "sink: put s3://%s/%s", s.bucket, key)
	}
	return nil
}

func (s *S3) Close() error { return nil }
