package source

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	lferrors "github.com/logflow/tablelog/pkg/errors"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		in      string
		scheme  string
		bucket  string
		key     string
		path    string
		wantErr bool
	}{
		{in: "restaurant_log.csv", scheme: "file", path: "restaurant_log.csv"},
		{in: " /var/log/run.csv.gz ", scheme: "file", path: "/var/log/run.csv.gz"},
		{in: "file:///tmp/a.csv", scheme: "file", path: "/tmp/a.csv"},
		{in: "s3://logs/2025/05/run.csv", scheme: "s3", bucket: "logs", key: "2025/05/run.csv"},
		{in: "S3://logs/run.xlsx", scheme: "s3", bucket: "logs", key: "run.xlsx"},
		{in: "s3://logs", wantErr: true},
		{in: "s3:///key", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		loc, err := ParseLocation(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseLocation(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLocation(%q) failed: %v", tt.in, err)
			continue
		}
		if loc.Scheme != tt.scheme || loc.Bucket != tt.bucket || loc.Key != tt.key || loc.Path != tt.path {
			t.Errorf("ParseLocation(%q) = %+v", tt.in, loc)
		}
	}
}

func TestLocation_Name(t *testing.T) {
	loc, _ := ParseLocation("s3://b/dir/run.xlsx")
	if loc.Name() != "dir/run.xlsx" || !loc.IsRemote() {
		t.Errorf("unexpected %+v", loc)
	}
	if loc.String() != "s3://b/dir/run.xlsx" {
		t.Errorf("String() = %q", loc.String())
	}
}

func TestOpen_Gzip(t *testing.T) {
	dir := t.TempDir()
	content := []byte("Timestamp,Waiters\n2025-05-01 12:00:00,3 active\n")

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write(content)
	zw.Close()

	// Detected by suffix and, without the suffix, by magic bytes.
	for _, name := range []string{"log.csv.gz", "log.csv"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			t.Fatal(err)
		}
		rc, err := Open(path)
		if err != nil {
			t.Fatalf("Open(%s) failed: %v", name, err)
		}
		got, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if !bytes.Equal(got, content) {
			t.Errorf("%s: got %q", name, got)
		}
	}
}

func TestOpen_Plain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	os.WriteFile(path, []byte("a,b\n"), 0o644)

	rc, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "a,b\n" {
		t.Errorf("got %q", got)
	}
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.csv"))
	if !lferrors.IsCode(err, lferrors.CodeFileNotFound) {
		t.Errorf("Expected file not found, got %v", err)
	}
}

func TestResolver_Local(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.csv")
	os.WriteFile(path, []byte("Timestamp\n"), 0o644)

	r := NewResolver(DefaultS3Config(), nil)

	res, err := r.Resolve(context.Background(), path)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Path != path || res.Size != int64(len("Timestamp\n")) {
		t.Errorf("unexpected %+v", res)
	}
	if err := res.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("Close must not remove local inputs")
	}

	if _, err := r.Resolve(context.Background(), filepath.Join(dir, "missing.csv")); !lferrors.IsCode(err, lferrors.CodeFileNotFound) {
		t.Errorf("Expected file not found, got %v", err)
	}
	if _, err := r.Resolve(context.Background(), dir); !lferrors.IsCode(err, lferrors.CodeSourceUnavailable) {
		t.Errorf("Expected source unavailable for a directory, got %v", err)
	}
}
