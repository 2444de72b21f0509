package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aktagon/dailypost/internal/postfile"
)

var (
	httpClient = &http.Client{Timeout: 30 * time.Second}

	// maxRemoteSize caps a downloaded topic library
	maxRemoteSize int64 = 4 << 20
)

// HTTPError represents an HTTP error with status code
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return e.Message
}

func isRemote(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// readSource returns the bytes at path, downloading http(s) URLs
func readSource(path string) ([]byte, error) {
	if isRemote(path) {
		return fetchCached(path, getConfigPath("cache"))
	}
	return os.ReadFile(path)
}

// fetchCached downloads url and stores a copy in cacheDir. When the download
// fails the cached copy, if any, is returned instead.
func fetchCached(url, cacheDir string) ([]byte, error) {
	cachePath := filepath.Join(cacheDir, "topics-"+postfile.Hash(url)+".yaml")

	data, err := fetch(url)
	if err != nil {
		cached, cacheErr := os.ReadFile(cachePath)
		if cacheErr != nil {
			return nil, fmt.Errorf("fetching %s: %w", url, err)
		}
		debugLog("fetching %s failed, using cache %s: %v", url, cachePath, err)
		return cached, nil
	}

	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		debugLog("creating cache directory: %v", err)
		return data, nil
	}
	if err := os.WriteFile(cachePath, data, 0644); err != nil {
		debugLog("caching %s: %v", url, err)
	}
	return data, nil
}

func fetch(url string) ([]byte, error) {
	resp, err := httpClient.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("bad status code: %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxRemoteSize {
		return nil, fmt.Errorf("response larger than %d bytes", maxRemoteSize)
	}
	return data, nil
}
