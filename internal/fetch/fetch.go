// Package fetch downloads remote audio resources into local ephemeral storage.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultMaxBytes = 512 << 20

// Fetcher downloads remote resources into caller-owned scratch directories.
// The caller is responsible for removing the directory afterwards.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

func New(timeout time.Duration, maxBytes int64) *Fetcher {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// Fetch downloads rawURL into dir and returns the local file path. The file
// keeps the URL's extension when it has one, so downstream tools and upload
// filenames stay meaningful.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, dir string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "whisperd/1")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("fetch audio: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if resp.ContentLength > f.maxBytes {
		return "", fmt.Errorf("fetch audio: resource is %d bytes, over the %d byte limit", resp.ContentLength, f.maxBytes)
	}

	dst := filepath.Join(dir, "audio-"+uuid.NewString()+fileExt(u.Path))
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create local file: %w", err)
	}

	written, err := io.Copy(out, io.LimitReader(resp.Body, f.maxBytes+1))
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("write local file: %w", err)
	}
	if written > f.maxBytes {
		_ = os.Remove(dst)
		return "", fmt.Errorf("fetch audio: resource exceeds the %d byte limit", f.maxBytes)
	}

	return dst, nil
}

// fileExt returns the URL path's extension when it looks like a media suffix.
func fileExt(urlPath string) string {
	ext := path.Ext(urlPath)
	if ext == "" || len(ext) > 8 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return strings.ToLower(ext)
}
