package cache

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/forest-guardian/tidalflat-cli/internal/log"
	"github.com/forest-guardian/tidalflat-cli/internal/properties"
)

type CacheEntry[T any] struct {
	Data      T         `json:"data"`
	CreatedAt time.Time `json:"created_at"`
	Checksum  string    `json:"checksum"`
}

type CacheService[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T) error
	GenerateKey(params ...interface{}) string
}

// FileCache stores one JSON file per key under a directory. Entries whose
// checksum no longer matches their data are treated as misses.
type FileCache[T any] struct {
	cacheDir string
}

// NewFileCache roots the cache at dir. A relative dir is resolved against
// the data root.
func NewFileCache[T any](dir string) *FileCache[T] {
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(rootData(), dir)
	}
	return &FileCache[T]{cacheDir: dir}
}

func rootData() string {
	if root := properties.RootPath(); root != "" {
		return filepath.Join(root, "data")
	}
	return "data"
}

func (fc *FileCache[T]) Dir() string {
	return fc.cacheDir
}

func (fc *FileCache[T]) GenerateKey(params ...interface{}) string {
	parts := make([]string, len(params))
	for i, param := range params {
		parts[i] = fmt.Sprintf("%v", param)
	}
	h := sha1.New()
	h.Write([]byte(strings.Join(parts, "_")))
	return hex.EncodeToString(h.Sum(nil))
}

func (fc *FileCache[T]) Get(key string) (T, bool) {
	var zero T
	cacheFile := filepath.Join(fc.cacheDir, key+".json")

	data, err := os.ReadFile(cacheFile)
	if err != nil {
		return zero, false
	}

	var entry CacheEntry[T]
	if err := json.Unmarshal(data, &entry); err != nil {
		log.Warnf("discarding unreadable cache entry %s: %v", cacheFile, err)
		return zero, false
	}

	if entry.Checksum != fc.calculateChecksum(entry.Data) {
		log.Warnf("discarding cache entry %s with a bad checksum", cacheFile)
		return zero, false
	}

	log.Debugf("cache hit %s", key)
	return entry.Data, true
}

func (fc *FileCache[T]) Set(key string, data T) error {
	if err := os.MkdirAll(fc.cacheDir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	entry := CacheEntry[T]{
		Data:      data,
		CreatedAt: time.Now(),
		Checksum:  fc.calculateChecksum(data),
	}

	jsonData, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	cacheFile := filepath.Join(fc.cacheDir, key+".json")
	tmpFile, err := os.CreateTemp(fc.cacheDir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	if _, err := tmpFile.Write(jsonData); err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return fmt.Errorf("failed to write temp cache file: %w", err)
	}
	tmpFile.Close()

	if err := os.Rename(tmpFile.Name(), cacheFile); err != nil {
		os.Remove(tmpFile.Name())
		return fmt.Errorf("failed to rename temp cache file: %w", err)
	}

	return nil
}

func (fc *FileCache[T]) calculateChecksum(data T) string {
	jsonData, _ := json.Marshal(data)
	hash := md5.Sum(jsonData)
	return hex.EncodeToString(hash[:])
}
