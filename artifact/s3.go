package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Store retains archives in an S3 bucket under
// {prefix}/runs/{runID}/{key}.
type S3Store struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Store creates an S3Store for the given bucket and key prefix.
func NewS3Store(client S3API, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3Store) objectKey(runID, key string) string {
	return path.Join(s.prefix, "runs", runID, key)
}

// Put uploads the archive. The content is buffered to compute the
// SHA256 checksum, which is stored as object metadata.
func (s *S3Store) Put(ctx context.Context, runID, key string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("artifact: read archive data: %w", err)
	}

	sum := sha256.Sum256(data)
	metadata := map[string]string{
		"checksum":   hex.EncodeToString(sum[:]),
		"size":       fmt.Sprintf("%d", len(data)),
		"created-at": time.Now().UTC().Format(time.RFC3339),
	}

	objectKey := s.objectKey(runID, key)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        newByteReadSeeker(data),
		ContentType: aws.String("application/zip"),
		Metadata:    metadata,
	})
	if err != nil {
		return fmt.Errorf("artifact: put %s to s3://%s: %w", key, s.bucket, err)
	}
	return nil
}

// List returns metadata for all archives retained under a run.
func (s *S3Store) List(ctx context.Context, runID string) ([]Archive, error) {
	prefix := path.Join(s.prefix, "runs", runID) + "/"
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("artifact: list run %s in s3://%s: %w", runID, s.bucket, err)
	}

	var archives []Archive
	for _, obj := range out.Contents {
		a := Archive{Key: path.Base(aws.ToString(obj.Key))}
		if obj.Size != nil {
			a.Size = *obj.Size
		}
		if obj.LastModified != nil {
			a.CreatedAt = *obj.LastModified
		}
		archives = append(archives, a)
	}
	return archives, nil
}

// byteReadSeeker adapts a byte slice to io.ReadSeeker for PutObject,
// which needs a seekable body to sign the request.
type byteReadSeeker struct {
	data   []byte
	offset int64
}

func newByteReadSeeker(data []byte) *byteReadSeeker {
	return &byteReadSeeker{data: data}
}

func (r *byteReadSeeker) Read(p []byte) (int, error) {
	if r.offset >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.offset:])
	r.offset += int64(n)
	return n, nil
}

func (r *byteReadSeeker) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = r.offset + offset
	case io.SeekEnd:
		abs = int64(len(r.data)) + offset
	default:
		return 0, fmt.Errorf("invalid whence: %d", whence)
	}
	if abs < 0 {
		return 0, fmt.Errorf("negative seek position: %d", abs)
	}
	r.offset = abs
	return abs, nil
}
