// Package fetch retrieves guest modules and assets by location.
//
// Locations starting with http:// or https:// are fetched over HTTP with a
// single GET. file:// URLs and anything else are read from the local file
// system. There are no retries.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/pixelbridge/errors"
)

// DefaultTimeout bounds a single HTTP fetch when the caller's context has no
// deadline.
const DefaultTimeout = 30 * time.Second

// Fetcher loads bytes from HTTP(S) URLs or file paths.
type Fetcher struct {
	Client *http.Client
	// MaxBytes caps the response size. 0 means unlimited.
	MaxBytes int64
}

// New returns a fetcher with a client using DefaultTimeout.
func New() *Fetcher {
	return &Fetcher{Client: &http.Client{Timeout: DefaultTimeout}}
}

var defaultFetcher = New()

// Load fetches location with the default fetcher.
func Load(ctx context.Context, location string) ([]byte, error) {
	return defaultFetcher.Load(ctx, location)
}

// IsRemote reports whether location is fetched over HTTP.
func IsRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// Load fetches location.
func (f *Fetcher) Load(ctx context.Context, location string) ([]byte, error) {
	if location == "" {
		return nil, errors.InvalidInput(errors.PhaseFetch, "empty location")
	}

	var (
		data []byte
		err  error
	)
	start := time.Now()
	if IsRemote(location) {
		data, err = f.get(ctx, location)
	} else {
		data, err = f.readFile(location)
	}
	if err != nil {
		return nil, errors.Fetch(location, err)
	}

	Logger().Debug("fetched",
		zap.String("location", location),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(start)))
	return data, nil
}

func (f *Fetcher) get(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return f.readAll(resp.Body)
}

func (f *Fetcher) readFile(location string) ([]byte, error) {
	path := location
	if strings.HasPrefix(location, "file://") {
		u, err := url.Parse(location)
		if err != nil {
			return nil, err
		}
		path = u.Path
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return f.readAll(file)
}

func (f *Fetcher) readAll(r io.Reader) ([]byte, error) {
	if f.MaxBytes <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, f.MaxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > f.MaxBytes {
		return nil, fmt.Errorf("exceeds %d bytes", f.MaxBytes)
	}
	return data, nil
}
