package source

import (
	"bufio"
	"compress/gzip"
	"io"
	"os"
	"strings"

	lferrors "github.com/logflow/tablelog/pkg/errors"
)

var gzipMagic = []byte{0x1f, 0x8b}

// Open opens a local file, decompressing it when it is gzip-compressed.
// Compression is detected from the .gz suffix or the gzip magic bytes.
func Open(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, lferrors.FileNotFound(path)
		}
		return nil, lferrors.Wrap(err, lferrors.CodeSourceUnavailable, "failed to open input").
			WithContext("path", path)
	}

	br := bufio.NewReader(file)
	head, _ := br.Peek(len(gzipMagic))
	if !IsGzipFile(path) && string(head) != string(gzipMagic) {
		return &readCloser{Reader: br, close: file.Close}, nil
	}

	gz, err := gzip.NewReader(br)
	if err != nil {
		file.Close()
		return nil, lferrors.Wrap(err, lferrors.CodeInvalidFormat, "invalid gzip stream").
			WithContext("path", path)
	}
	return &readCloser{
		Reader: gz,
		close: func() error {
			gz.Close()
			return file.Close()
		},
	}, nil
}

type readCloser struct {
	io.Reader
	close func() error
}

func (r *readCloser) Close() error {
	return r.close()
}

// IsGzipFile returns true if the file path indicates gzip compression.
func IsGzipFile(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".gz")
}
