// --- START OF FINAL REVISED FILE pkg/converter/cache/cache.go ---
package cache

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// --- Constants ---

// CacheFileName is the name of the cache index inside the output directory.
const CacheFileName = ".obs2org.cache"

// CacheSchemaVersion is the version of the cache file structure.
// Load discards indexes written with another version.
const CacheSchemaVersion = "2.0"

const (
	// DefaultCacheFormat specifies the default serialization format.
	DefaultCacheFormat = "gob"
	// CacheFormatGob represents the gob serialization format.
	CacheFormatGob = "gob"
	// CacheFormatJSON represents the JSON serialization format.
	CacheFormatJSON = "json"
)

// devVersion marks development builds; their caches are compatible with any version.
const devVersion = "dev"

// --- Error Variables ---

// ErrCacheLoad indicates the cache index could not be opened. Corrupt or
// outdated indexes are not errors; they load as empty.
var ErrCacheLoad = errors.New("failed to load cache index")

// ErrCachePersist indicates the cache index could not be written.
var ErrCachePersist = errors.New("failed to persist cache index")

// --- Data Structures ---

// CacheEntry is the stored state of one converted note.
type CacheEntry struct {
	SourceModTime time.Time `json:"sourceModTime"`
	SourceHash    string    `json:"sourceHash"`
	ConfigHash    string    `json:"configHash"`
	// OutputHash is the SHA-256 of the corrected Org file as written.
	OutputHash string `json:"outputHash"`
	// Dependencies are the output-relative paths of the Org files the note's
	// links were resolved against. The note is stale when one of them changes.
	Dependencies     []string `json:"dependencies,omitempty"`
	SchemaVersion    string   `json:"schemaVersion"`
	ConverterVersion string   `json:"converterVersion"`
}

// CacheFileHeader is written at the beginning of the cache file.
type CacheFileHeader struct {
	SchemaVersion    string `json:"schemaVersion"`
	ConverterVersion string `json:"converterVersion"`
}

// jsonCacheFile is the layout of a JSON cache file.
type jsonCacheFile struct {
	Header CacheFileHeader       `json:"header"`
	Index  map[string]CacheEntry `json:"index"`
}

// --- Interfaces ---

// CacheManager stores per-note conversion state between runs.
//
// Stability: Public Stable API - Implementations can be provided externally.
// Check, Update and Retain must be safe for concurrent use.
type CacheManager interface {
	// Load reads the index at cachePath. A missing, corrupt or outdated file
	// yields an empty index and a nil error; only I/O failures such as
	// permission errors return an error wrapping ErrCacheLoad.
	Load(cachePath string) error

	// Check returns the entry for filePath when its modification time, source
	// hash and config hash all match.
	Check(filePath string, modTime time.Time, sourceHash string, configHash string) (CacheEntry, bool)

	// Update stores entry for filePath, stamping it with the current versions.
	Update(filePath string, entry CacheEntry) error

	// Retain drops every entry whose path is not in keep and returns how many
	// were dropped.
	Retain(keep map[string]bool) int

	// Persist atomically writes the index to cachePath. An empty index removes the file.
	Persist(cachePath string) error
}

// --- FileCacheManager Implementation ---

// fileCacheManager keeps the index in memory and persists it as gob or JSON.
type fileCacheManager struct {
	index            map[string]CacheEntry
	mu               sync.RWMutex
	logger           *slog.Logger
	schemaVersion    string
	converterVersion string
	format           string
}

// NewFileCacheManager creates a file-based cache manager. cacheFormat is
// "gob" (default) or "json".
func NewFileCacheManager(loggerHandler slog.Handler, schemaVersion string, converterVersion string, cacheFormat string) CacheManager { // minimal comment
	if loggerHandler == nil {
		loggerHandler = slog.NewTextHandler(io.Discard, nil)
	}
	format := strings.ToLower(cacheFormat)
	if format != CacheFormatJSON && format != CacheFormatGob {
		format = DefaultCacheFormat
	}
	logger := slog.New(loggerHandler).With(
		slog.String("component", "cacheManager"),
		slog.String("format", format),
	)
	if schemaVersion == "" {
		schemaVersion = CacheSchemaVersion
	}
	if converterVersion == "" {
		converterVersion = devVersion
	}
	return &fileCacheManager{
		index:            make(map[string]CacheEntry),
		logger:           logger,
		schemaVersion:    schemaVersion,
		converterVersion: converterVersion,
		format:           format,
	}
}

// versionsCompatible reports whether data written by version other can be used.
func (c *fileCacheManager) versionsCompatible(schema, other string) bool {
	if schema != c.schemaVersion {
		return false
	}
	return c.converterVersion == devVersion || other == devVersion || other == c.converterVersion
}

func (c *fileCacheManager) decode(r io.Reader) (CacheFileHeader, map[string]CacheEntry, error) {
	var header CacheFileHeader
	var index map[string]CacheEntry
	if c.format == CacheFormatJSON {
		var data jsonCacheFile
		if err := json.NewDecoder(r).Decode(&data); err != nil {
			return header, nil, err
		}
		return data.Header, data.Index, nil
	}
	dec := gob.NewDecoder(r)
	if err := dec.Decode(&header); err != nil {
		return header, nil, err
	}
	if err := dec.Decode(&index); err != nil && !errors.Is(err, io.EOF) {
		return header, nil, err
	}
	return header, index, nil
}

// Load implements the CacheManager interface.
func (c *fileCacheManager) Load(cachePath string) error { // minimal comment
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = make(map[string]CacheEntry)

	file, err := os.Open(cachePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.logger.Info("Cache file not found, starting with an empty index", "path", cachePath)
			return nil
		}
		c.logger.Error("Critical cache load error", "path", cachePath, "error", err.Error())
		return fmt.Errorf("%w: failed to open cache file '%s': %w", ErrCacheLoad, cachePath, err)
	}
	defer file.Close()

	header, index, err := c.decode(file)
	if err != nil {
		c.logger.Warn("Cache file unreadable (empty, corrupted or other format), treating as miss",
			"path", cachePath, "format_expected", c.format, "error", err.Error())
		return nil
	}
	if !c.versionsCompatible(header.SchemaVersion, header.ConverterVersion) {
		c.logger.Warn("Cache file version mismatch, invalidating cache",
			"path", cachePath,
			"file_schema", header.SchemaVersion, "expected_schema", c.schemaVersion,
			"file_converter", header.ConverterVersion, "expected_converter", c.converterVersion)
		return nil
	}
	if index != nil {
		c.index = index
	}
	c.logger.Info("Cache loaded", "path", cachePath, "entries_loaded", len(c.index))
	return nil
}

// Check implements the CacheManager interface.
func (c *fileCacheManager) Check(filePath string, modTime time.Time, sourceHash string, configHash string) (CacheEntry, bool) { // minimal comment
	c.mu.RLock()
	entry, found := c.index[filePath]
	c.mu.RUnlock()

	logArgs := []any{slog.String("path", filePath)}
	switch {
	case !found:
		c.logger.Debug("Cache check: Miss (entry not found)", logArgs...)
	case !c.versionsCompatible(entry.SchemaVersion, entry.ConverterVersion):
		c.logger.Debug("Cache check: Miss (version mismatch in entry)", logArgs...)
	case !entry.SourceModTime.Equal(modTime):
		c.logger.Debug("Cache check: Miss (modTime mismatch)", logArgs...)
	case entry.SourceHash != sourceHash:
		c.logger.Debug("Cache check: Miss (sourceHash mismatch)", logArgs...)
	case entry.ConfigHash != configHash:
		c.logger.Debug("Cache check: Miss (configHash mismatch)", logArgs...)
	default:
		c.logger.Debug("Cache check: Hit", append(logArgs, slog.String("outputHash", entry.OutputHash))...)
		return entry, true
	}
	return CacheEntry{}, false
}

// Update implements the CacheManager interface.
func (c *fileCacheManager) Update(filePath string, entry CacheEntry) error { // minimal comment
	entry.SchemaVersion = c.schemaVersion
	entry.ConverterVersion = c.converterVersion

	c.mu.Lock()
	defer c.mu.Unlock()
	c.index[filePath] = entry
	c.logger.Debug("Cache index updated in memory", slog.String("path", filePath))
	return nil
}

// Retain implements the CacheManager interface.
func (c *fileCacheManager) Retain(keep map[string]bool) int { // minimal comment
	c.mu.Lock()
	defer c.mu.Unlock()
	dropped := 0
	for path := range c.index {
		if !keep[path] {
			delete(c.index, path)
			dropped++
		}
	}
	if dropped > 0 {
		c.logger.Debug("Dropped cache entries of vanished notes", "count", dropped)
	}
	return dropped
}

// Persist implements the CacheManager interface.
func (c *fileCacheManager) Persist(cachePath string) error { // minimal comment
	c.mu.RLock()
	indexCopy := make(map[string]CacheEntry, len(c.index))
	for k, v := range c.index {
		indexCopy[k] = v
	}
	c.mu.RUnlock()

	if len(indexCopy) == 0 {
		if err := os.Remove(cachePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("Failed to remove empty cache file", "path", cachePath, "error", err.Error())
		}
		return nil
	}

	cacheDir := filepath.Dir(cachePath)
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return fmt.Errorf("%w: failed to ensure cache directory exists '%s': %w", ErrCachePersist, cacheDir, err)
	}
	tempFile, err := os.CreateTemp(cacheDir, filepath.Base(cachePath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: failed to create temporary cache file in '%s': %w", ErrCachePersist, cacheDir, err)
	}
	tempFilePath := tempFile.Name()
	renamed := false
	defer func() {
		_ = tempFile.Close()
		if !renamed {
			_ = os.Remove(tempFilePath)
		}
	}()

	header := CacheFileHeader{SchemaVersion: c.schemaVersion, ConverterVersion: c.converterVersion}
	var encodeErr error
	if c.format == CacheFormatJSON {
		encoder := json.NewEncoder(tempFile)
		encoder.SetIndent("", "  ")
		encodeErr = encoder.Encode(jsonCacheFile{Header: header, Index: indexCopy})
	} else {
		encoder := gob.NewEncoder(tempFile)
		if encodeErr = encoder.Encode(header); encodeErr == nil {
			encodeErr = encoder.Encode(indexCopy)
		}
	}
	if encodeErr != nil {
		c.logger.Error("Cache persist encoding error", "path", cachePath, "error", encodeErr.Error())
		return fmt.Errorf("%w: failed to encode cache (%s): %w", ErrCachePersist, c.format, encodeErr)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("%w: failed to close temporary cache file '%s': %w", ErrCachePersist, tempFilePath, err)
	}
	if err := os.Rename(tempFilePath, cachePath); err != nil {
		c.logger.Error("Cache persist atomic rename error", "path", cachePath, "error", err.Error())
		return fmt.Errorf("%w: failed to rename '%s' to '%s': %w", ErrCachePersist, tempFilePath, cachePath, err)
	}
	renamed = true

	c.logger.Info("Cache persisted", "path", cachePath, "entries_saved", len(indexCopy))
	return nil
}

// --- END OF FINAL REVISED FILE pkg/converter/cache/cache.go ---
