package s3filesystem

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// fakeClient stores objects in memory keyed by bucket/key.
type fakeClient struct {
	objects      map[string][]byte
	contentTypes map[string]string
	putErr       error
}

func newFakeClient() *fakeClient {
	return &fakeClient{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (f *fakeClient) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	k := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[k] = data
	f.contentTypes[k] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeClient) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeClient) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestParsePath(t *testing.T) {
	tests := []struct {
		in      string
		bucket  string
		key     string
		wantErr bool
	}{
		{"s3://media/previews/a/preview.vtt", "media", "previews/a/preview.vtt", false},
		{"s3://media", "media", "", false},
		{"s3:///key", "", "", true},
		{"/tmp/out", "", "", true},
	}

	for _, tt := range tests {
		bucket, key, err := ParsePath(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidPath) {
				t.Errorf("ParsePath(%q): expected ErrInvalidPath, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePath(%q) failed: %v", tt.in, err)
			continue
		}
		if bucket != tt.bucket || key != tt.key {
			t.Errorf("ParsePath(%q) = %q, %q", tt.in, bucket, key)
		}
	}
}

func TestFileSystem_Join(t *testing.T) {
	fs := New(context.Background(), newFakeClient())

	if got := fs.Join("s3://media/previews/", "abc", "preview_0.jpeg"); got != "s3://media/previews/abc/preview_0.jpeg" {
		t.Errorf("unexpected join %q", got)
	}
	if got := fs.Join("local", "x.vtt"); got != "local/x.vtt" {
		t.Errorf("unexpected join %q", got)
	}
}

func TestFileSystem_WriteReadRemove(t *testing.T) {
	client := newFakeClient()
	fs := New(context.Background(), client)
	p := "s3://media/previews/preview.vtt"

	if err := fs.WriteFile(p, []byte("WEBVTT\n\n")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if got := client.contentTypes["media/previews/preview.vtt"]; got != "text/vtt" {
		t.Errorf("expected text/vtt, got %q", got)
	}

	data, err := fs.ReadFile(p)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "WEBVTT\n\n" {
		t.Errorf("unexpected content %q", data)
	}

	if err := fs.Remove(p); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, ok := client.objects["media/previews/preview.vtt"]; ok {
		t.Error("expected object to be gone")
	}
}

func TestFileSystem_WriteError(t *testing.T) {
	client := newFakeClient()
	client.putErr = errors.New("access denied")
	fs := New(context.Background(), client)

	if err := fs.WriteFile("s3://media/x.png", []byte{1}); err == nil {
		t.Error("expected error")
	}
	if err := fs.WriteFile("/local/x.png", []byte{1}); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("expected ErrInvalidPath, got %v", err)
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"a/preview_0.jpeg": "image/jpeg",
		"a/preview_0.png":  "image/png",
		"a/preview_0.bmp":  "image/bmp",
		"a/metadata.json":  "application/json",
		"a/preview.vtt":    "text/vtt",
		"a/unknown.zzz":    "application/octet-stream",
	}
	for key, want := range tests {
		if got := ContentType(key); got != want {
			t.Errorf("ContentType(%q) = %q, want %q", key, got, want)
		}
	}
}
