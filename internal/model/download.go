package model

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Download fetches url into dest and returns the number of bytes written.
//
// The body is streamed into a temporary file next to dest and renamed once
// complete; dest's directory is created if needed. A non-2xx response is an
// error and leaves no file behind.
func Download(ctx context.Context, client *http.Client, url, dest string) (int64, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("failed to fetch %s: unexpected status %s", url, resp.Status)
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	n, err := io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", dest, err)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		return 0, fmt.Errorf("failed to move download into place: %w", err)
	}
	return n, nil
}

// FetchAll downloads every entry of weights into dir. Individual failures
// are logged and do not stop the remaining downloads; they are returned
// joined together.
func FetchAll(ctx context.Context, client *http.Client, weights []Weights, dir string, log logrus.FieldLogger) error {
	if log == nil {
		log = logrus.StandardLogger()
	}

	var errs []error
	for _, w := range weights {
		dest := filepath.Join(dir, w.Name)
		entry := log.WithFields(logrus.Fields{"file": w.Name, "url": w.URL})

		entry.Info("Downloading")
		n, err := Download(ctx, client, w.URL, dest)
		if err != nil {
			entry.WithError(err).Error("Download failed")
			errs = append(errs, fmt.Errorf("%s: %w", w.Name, err))
			continue
		}
		entry.WithFields(logrus.Fields{"bytes": n, "path": dest}).Info("Downloaded")
	}
	return errors.Join(errs...)
}
