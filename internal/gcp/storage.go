package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// ErrObjectExists is returned by UploadFile when the destination exists and
// overwriting was not requested.
var ErrObjectExists = errors.New("object already exists")

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GetEnvInt reads a positive integer environment variable, returning
// fallback when it is unset or malformed.
func GetEnvInt(key string, fallback int) int {
	n, err := strconv.Atoi(GetEnv(key, ""))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// ParseGCSURI splits "gs://bucket/object" into bucket and object. The object
// may be empty or end in "/" when the URI names a prefix.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", fmt.Errorf("invalid GCS URI %q: missing gs:// scheme", uri)
	}
	bucket, object, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("invalid GCS URI %q: missing bucket", uri)
	}
	return bucket, object, nil
}

// ListPDFObjects returns the names of the ".pdf" objects under prefix in
// name order.
func ListPDFObjects(ctx context.Context, bucket *storage.BucketHandle, prefix string) ([]string, error) {
	it := bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects under %q: %w", prefix, err)
		}
		if strings.HasSuffix(attrs.Name, ".pdf") {
			names = append(names, attrs.Name)
		}
	}
	return names, nil
}

// DownloadObject streams an object into a local file.
func DownloadObject(ctx context.Context, bucket *storage.BucketHandle, object, destPath string) error {
	reader, err := bucket.Object(object).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("failed to get GCS object reader for %s: %w", object, err)
	}
	defer reader.Close()
	localFile, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file at %s: %w", destPath, err)
	}
	defer localFile.Close()
	if _, err := io.Copy(localFile, reader); err != nil {
		return fmt.Errorf("failed to copy GCS object to local file: %w", err)
	}
	return localFile.Close()
}

// UploadFile copies a local file to an object, retrying with exponential
// backoff. Without overwrite the write only succeeds if the object does not
// exist yet; a lost race returns ErrObjectExists and is not retried.
func UploadFile(ctx context.Context, bucket *storage.BucketHandle, localPath, destObject string, overwrite bool) error {
	const maxRetries = 4
	var backoff = 1 * time.Second
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := func() error {
			localFileReader, err := os.Open(localPath)
			if err != nil {
				return fmt.Errorf("could not open local file %s: %w", localPath, err)
			}
			defer localFileReader.Close()

			writeCtx, cancel := context.WithTimeout(ctx, time.Second*50)
			defer cancel()

			obj := bucket.Object(destObject)
			if !overwrite {
				obj = obj.If(storage.Conditions{DoesNotExist: true})
			}
			gcsWriter := obj.NewWriter(writeCtx)
			gcsWriter.ContentType = "application/pdf"

			if _, err := io.Copy(gcsWriter, localFileReader); err != nil {
				_ = gcsWriter.Close()
				return fmt.Errorf("io.Copy to GCS failed: %w", err)
			}
			if err := gcsWriter.Close(); err != nil {
				return fmt.Errorf("failed to close GCS writer (finalize upload): %w", err)
			}
			return nil
		}()

		if err == nil {
			return nil
		}
		if isPreconditionFailed(err) {
			return fmt.Errorf("%w: %s", ErrObjectExists, destObject)
		}

		lastErr = err
		slog.Warn(
			"Upload failed, will retry.",
			"gcsObject", destObject,
			"attempt", i+1,
			"maxRetries", maxRetries,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			slog.Error("Context cancelled during backoff. Aborting retries.", "gcsObject", destObject, "error", ctx.Err())
			return ctx.Err()
		}
	}
	slog.Error("Upload failed after all retries.", "gcsObject", destObject, "error", lastErr)
	return fmt.Errorf("upload for %s failed after all retries: %w", destObject, lastErr)
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == 412
}
