package objectstore

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// fakeS3 records the last put and returns scripted errors.
type fakeS3 struct {
	putKey      string
	putType     string
	putBody     []byte
	putErr      error
	deletedKeys []string
}

func (f *fakeS3) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.putKey = *input.Key
	f.putType = *input.ContentType
	f.putBody, _ = io.ReadAll(input.Body)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletedKeys = append(f.deletedKeys, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestUpload(t *testing.T) {
	fake := &fakeS3{}
	s := NewWithClient(fake, Config{Bucket: "supplies", Endpoint: "https://minio.local"})

	url, err := s.Upload(context.Background(), "medical-supplies/x.jpg", "image/jpeg", []byte("data"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if fake.putKey != "medical-supplies/x.jpg" || fake.putType != "image/jpeg" {
		t.Errorf("unexpected put: key=%q type=%q", fake.putKey, fake.putType)
	}
	if string(fake.putBody) != "data" {
		t.Errorf("unexpected body: %q", fake.putBody)
	}
	if url != "https://minio.local/supplies/medical-supplies/x.jpg" {
		t.Errorf("unexpected url: %q", url)
	}
}

func TestUploadError(t *testing.T) {
	fake := &fakeS3{putErr: errors.New("denied")}
	s := NewWithClient(fake, Config{Bucket: "supplies"})

	if _, err := s.Upload(context.Background(), "k", "image/jpeg", nil); err == nil {
		t.Error("expected error from failed put")
	}
}

func TestDelete(t *testing.T) {
	fake := &fakeS3{}
	s := NewWithClient(fake, Config{Bucket: "supplies"})

	if err := s.Delete(context.Background(), "medical-supplies/old.jpg"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(fake.deletedKeys) != 1 || fake.deletedKeys[0] != "medical-supplies/old.jpg" {
		t.Errorf("unexpected deletes: %v", fake.deletedKeys)
	}
}

func TestURLPrecedence(t *testing.T) {
	// PublicBaseURL wins over everything.
	s := NewWithClient(nil, Config{Bucket: "b", Endpoint: "https://minio.local", PublicBaseURL: "https://cdn.example/"})
	if got := s.URL("k.jpg"); got != "https://cdn.example/k.jpg" {
		t.Errorf("unexpected url: %q", got)
	}

	// Custom endpoint uses path-style addressing.
	s = NewWithClient(nil, Config{Bucket: "b", Endpoint: "https://minio.local"})
	if got := s.URL("k.jpg"); got != "https://minio.local/b/k.jpg" {
		t.Errorf("unexpected url: %q", got)
	}

	// Plain AWS falls back to the virtual-hosted form.
	s = NewWithClient(nil, Config{Bucket: "b", Region: "eu-west-1"})
	if got := s.URL("k.jpg"); got != "https://b.s3.eu-west-1.amazonaws.com/k.jpg" {
		t.Errorf("unexpected url: %q", got)
	}
}

func TestObjectKey(t *testing.T) {
	key := ObjectKey("item-42", "jpg")

	re := regexp.MustCompile(`^medical-supplies/item-42-\d+\.jpg$`)
	if !re.MatchString(key) {
		t.Errorf("unexpected key shape: %q", key)
	}

	// The extension is normalized, never taken verbatim.
	if key := ObjectKey("item-42", ".PNG"); !strings.HasSuffix(key, ".png") {
		t.Errorf("expected normalized .png extension, got %q", key)
	}
}

func TestTempObjectKey(t *testing.T) {
	key := TempObjectKey("jpg")

	re := regexp.MustCompile(`^medical-supplies/temp-\d+-[0-9a-f]{8}\.jpg$`)
	if !re.MatchString(key) {
		t.Errorf("unexpected key shape: %q", key)
	}

	// Two concurrent drafts never collide on the random component.
	if key == TempObjectKey("jpg") {
		t.Error("expected distinct temp keys")
	}
}

func TestExtDefaultsToJPG(t *testing.T) {
	key := ObjectKey("item-1", "")
	if !strings.HasSuffix(key, ".jpg") {
		t.Errorf("expected .jpg fallback, got %q", key)
	}
}

func TestConfigEnabled(t *testing.T) {
	if (Config{}).Enabled() {
		t.Error("empty config must not be enabled")
	}
	if !(Config{Bucket: "b", AccessKey: "a", SecretKey: "s"}).Enabled() {
		t.Error("complete config must be enabled")
	}
}
