package source

import (
	"context"
	"log/slog"
	"os"
	"time"

	lferrors "github.com/logflow/tablelog/pkg/errors"
)

// Resolved is a location available as a local file.
type Resolved struct {
	Location Location

	// Path is the local file to read.
	Path string

	Size    int64
	ModTime time.Time

	temp bool
}

// Close removes a downloaded copy. It is a no-op for local files.
func (r *Resolved) Close() error {
	if r == nil || !r.temp {
		return nil
	}
	return os.Remove(r.Path)
}

// Resolver turns locations into local files.
type Resolver struct {
	S3Config S3Config

	// TempDir receives downloaded objects. Empty uses os.TempDir.
	TempDir string

	Logger *slog.Logger

	s3 *S3Client
}

// NewResolver creates a resolver. The S3 client is created on first use.
func NewResolver(s3cfg S3Config, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{S3Config: s3cfg, Logger: logger}
}

// Resolve makes location readable locally. The caller must Close the result.
func (r *Resolver) Resolve(ctx context.Context, location string) (*Resolved, error) {
	loc, err := ParseLocation(location)
	if err != nil {
		return nil, lferrors.Wrap(err, lferrors.CodeSourceUnavailable, "invalid location")
	}

	if !loc.IsRemote() {
		info, err := os.Stat(loc.Path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, lferrors.FileNotFound(loc.Path)
			}
			return nil, lferrors.Wrap(err, lferrors.CodeSourceUnavailable, "cannot stat input").
				WithContext("path", loc.Path)
		}
		if info.IsDir() {
			return nil, lferrors.New(lferrors.CodeSourceUnavailable, "input is a directory").
				WithContext("path", loc.Path)
		}
		return &Resolved{Location: loc, Path: loc.Path, Size: info.Size(), ModTime: info.ModTime()}, nil
	}

	client, err := r.client(ctx)
	if err != nil {
		return nil, lferrors.Wrap(err, lferrors.CodeSourceUnavailable, "s3 client unavailable")
	}

	info, err := client.Stat(ctx, loc.Bucket, loc.Key)
	if err != nil {
		return nil, lferrors.Wrap(err, lferrors.CodeSourceUnavailable, "s3 object unavailable").
			WithContext("location", loc.String())
	}

	start := time.Now()
	path, err := client.Download(ctx, loc.Bucket, loc.Key, r.TempDir)
	if err != nil {
		return nil, lferrors.Wrap(err, lferrors.CodeSourceUnavailable, "s3 download failed").
			WithContext("location", loc.String())
	}
	r.Logger.Debug("downloaded input",
		"location", loc.String(),
		"bytes", info.Size,
		"duration", time.Since(start))

	return &Resolved{
		Location: loc,
		Path:     path,
		Size:     info.Size,
		ModTime:  info.LastModified,
		temp:     true,
	}, nil
}

func (r *Resolver) client(ctx context.Context) (*S3Client, error) {
	if r.s3 != nil {
		return r.s3, nil
	}
	c, err := NewS3Client(ctx, r.S3Config)
	if err != nil {
		return nil, err
	}
	r.s3 = c
	return c, nil
}
