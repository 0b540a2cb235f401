package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func TestLocalStorePutAndList(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	content := []byte("zip contents")
	if err := store.Put(ctx, "run-1", "sam-json-processor.zip", strings.NewReader(string(content))); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Put(ctx, "run-1", "report-generator.zip", strings.NewReader("other")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	archives, err := store.List(ctx, "run-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(archives) != 2 {
		t.Fatalf("expected 2 archives, got %d", len(archives))
	}
	// Sorted by key.
	if archives[0].Key != "report-generator.zip" || archives[1].Key != "sam-json-processor.zip" {
		t.Errorf("unexpected keys: %v, %v", archives[0].Key, archives[1].Key)
	}

	sum := sha256.Sum256(content)
	if archives[1].Checksum != hex.EncodeToString(sum[:]) {
		t.Errorf("checksum mismatch: %s", archives[1].Checksum)
	}
	if archives[1].Size != int64(len(content)) {
		t.Errorf("size = %d, want %d", archives[1].Size, len(content))
	}
}

func TestLocalStoreListUnknownRun(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	archives, err := store.List(context.Background(), "no-such-run")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(archives) != 0 {
		t.Fatalf("expected empty list, got %d", len(archives))
	}
}

type mockS3Client struct {
	putObjectFunc     func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	listObjectsV2Func func(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

func (m *mockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putObjectFunc != nil {
		return m.putObjectFunc(ctx, params, optFns...)
	}
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if m.listObjectsV2Func != nil {
		return m.listObjectsV2Func(ctx, params, optFns...)
	}
	return &s3.ListObjectsV2Output{}, nil
}

func TestS3StorePut(t *testing.T) {
	var captured *s3.PutObjectInput
	client := &mockS3Client{
		putObjectFunc: func(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			captured = params
			return &s3.PutObjectOutput{}, nil
		},
	}

	store := NewS3Store(client, "fndeploy-artifacts", "dev")
	if err := store.Put(context.Background(), "run-7", "u.zip", strings.NewReader("bytes")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if captured == nil {
		t.Fatal("PutObject was not called")
	}
	if got := awsv2.ToString(captured.Key); got != "dev/runs/run-7/u.zip" {
		t.Errorf("object key = %q", got)
	}
	if captured.Metadata["checksum"] == "" {
		t.Error("expected checksum metadata")
	}
}

func TestS3StoreList(t *testing.T) {
	client := &mockS3Client{
		listObjectsV2Func: func(_ context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
			if got := awsv2.ToString(params.Prefix); got != "dev/runs/run-7/" {
				t.Errorf("list prefix = %q", got)
			}
			return &s3.ListObjectsV2Output{
				Contents: []s3types.Object{
					{Key: awsv2.String("dev/runs/run-7/u.zip"), Size: awsv2.Int64(5)},
				},
			}, nil
		},
	}

	store := NewS3Store(client, "fndeploy-artifacts", "dev")
	archives, err := store.List(context.Background(), "run-7")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(archives) != 1 || archives[0].Key != "u.zip" || archives[0].Size != 5 {
		t.Errorf("unexpected archives: %+v", archives)
	}
}
