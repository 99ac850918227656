// Package snippets loads OpenAPI documents from a file or over HTTP.
//
// This file manages fetching the OpenAPI document from the API host, caching
// it locally, and parsing it into a Document. Fetching is the only network
// access in the generator and happens once, before any snippet is emitted.
package snippets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/oauth2"
)

const cacheFilePrefix = ".apisnippets-openapi-cache"

// ErrUnsupportedSource is returned when neither a file nor a URL is configured
var ErrUnsupportedSource = errors.New("no OpenAPI source configured")

// LoadDocument loads the OpenAPI document described by config.
// A configured file is read directly; a URL is served from cache while the
// cache is fresh, unless forceRefresh is set.
func LoadDocument(ctx context.Context, config *GeneratorConfig, forceRefresh bool) (*Document, error) {
	src := config.GetSourceConfig()

	if src.File != "" {
		data, err := os.ReadFile(src.File)
		if err != nil {
			return nil, fmt.Errorf("failed to read OpenAPI document %s: %w", src.File, err)
		}
		log.Printf("Loaded OpenAPI document from %s", src.File)
		return ParseDocument(data)
	}
	if src.URL == "" {
		return nil, ErrUnsupportedSource
	}

	cachePath := getCachePath(src)
	if !forceRefresh {
		if doc := loadFromCache(cachePath, src.CacheMaxAge()); doc != nil {
			if info := getCacheInfo(src); info != nil {
				log.Printf("Using cached OpenAPI document (age: %s, location: %s)", formatDuration(info.Age), info.Path)
			}
			return doc, nil
		}
		log.Printf("No valid cache found, fetching from URL")
	} else {
		log.Printf("Clearing cache and forcing refresh of OpenAPI document")
		if err := ClearCache(src); err != nil {
			log.Printf("Warning: %v", err)
		}
	}

	log.Printf("Fetching OpenAPI document from %s (timeout: %s)", src.URL, src.Timeout())
	data, err := fetchFromURL(ctx, src, config.GetAuthConfig())
	if err != nil {
		log.Printf("Failed to fetch OpenAPI document: %v", err)
		return nil, fmt.Errorf("failed to fetch OpenAPI document: %w", err)
	}

	doc, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	log.Printf("Successfully fetched OpenAPI document (%d operations)", len(doc.Operations))

	if err := saveToCache(cachePath, data); err != nil {
		// Log but don't fail if cache save fails
		log.Printf("Warning: failed to cache OpenAPI document: %v", err)
	} else {
		log.Printf("Cached OpenAPI document to %s", cachePath)
	}

	return doc, nil
}

// fetchFromURL fetches the raw OpenAPI document.
// A token is sent as an OAuth2 bearer token; access and secret keys as Basic auth.
func fetchFromURL(ctx context.Context, src *SourceConfig, auth *AuthConfig) ([]byte, error) {
	client := &http.Client{
		Timeout: src.Timeout(),
	}
	if auth.Token != "" {
		base := context.WithValue(ctx, oauth2.HTTPClient, client)
		client = oauth2.NewClient(base, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: auth.Token}))
		client.Timeout = src.Timeout()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if src.Accept != "" {
		req.Header.Set("Accept", src.Accept)
	}
	if auth.Token == "" && auth.AccessKey != "" {
		req.SetBasicAuth(auth.AccessKey, auth.SecretKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch OpenAPI document from URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read OpenAPI document response body: %w", err)
	}
	if LoaderDebug {
		log.Printf("DEBUG: fetched %d bytes (content type: %s)", len(body), resp.Header.Get("Content-Type"))
	}
	return body, nil
}

// CacheInfo contains information about the cached OpenAPI document
type CacheInfo struct {
	Path    string
	ModTime time.Time
	Age     time.Duration
	Exists  bool
}

// GetCacheInfo returns information about the cache file (exported for CLI)
func GetCacheInfo(config *GeneratorConfig) *CacheInfo {
	return getCacheInfo(config.GetSourceConfig())
}

func getCacheInfo(src *SourceConfig) *CacheInfo {
	cachePath := getCachePath(src)
	if cachePath == "" {
		return nil
	}

	info, err := os.Stat(cachePath)
	if err != nil {
		return &CacheInfo{
			Path:   cachePath,
			Exists: false,
		}
	}

	return &CacheInfo{
		Path:    cachePath,
		ModTime: info.ModTime(),
		Age:     time.Since(info.ModTime()),
		Exists:  true,
	}
}

// cacheFileName names the cache file of a source URL; each URL gets its own file.
func cacheFileName(sourceURL string) string {
	return fmt.Sprintf("%s-%016x.json", cacheFilePrefix, xxhash.Sum64String(sourceURL))
}

// getCachePath returns the path to the cache file of the configured URL
func getCachePath(src *SourceConfig) string {
	dir := src.CacheDir
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = homeDir
	}
	return filepath.Join(dir, cacheFileName(src.URL))
}

// ClearCache removes the cached OpenAPI document
func ClearCache(src *SourceConfig) error {
	cachePath := getCachePath(src)
	if cachePath == "" {
		return fmt.Errorf("could not determine cache path")
	}

	if err := os.Remove(cachePath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	return nil
}

// loadFromCache loads the document from cache if it exists, is fresh and parses
func loadFromCache(cachePath string, maxAge time.Duration) *Document {
	if cachePath == "" {
		return nil
	}

	info, err := os.Stat(cachePath)
	if err != nil {
		return nil
	}
	if time.Since(info.ModTime()) > maxAge {
		return nil
	}

	data, err := os.ReadFile(cachePath)
	if err != nil {
		return nil
	}

	doc, err := ParseDocument(data)
	if err != nil {
		if LoaderDebug {
			log.Printf("DEBUG: cached document does not parse, invalidating cache: %v", err)
		}
		os.Remove(cachePath)
		return nil
	}
	return doc
}

// saveToCache saves the raw document to cache
func saveToCache(cachePath string, data []byte) error {
	if cachePath == "" {
		return fmt.Errorf("could not determine cache path")
	}
	if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	return os.WriteFile(cachePath, data, 0644)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0f seconds", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1f minutes", d.Minutes())
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%.1f hours", d.Hours())
	}
	return fmt.Sprintf("%.1f days", d.Hours()/24)
}
