package ci

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/codeconform/conform/internal/atomicfile"
	"github.com/codeconform/conform/internal/checks"
)

// CheckCache is a keyed file cache for check results with a TTL. It has
// no concurrency guard; the runner serializes writes per key. Full-scan
// runs skip it entirely so they are always fresh.
type CheckCache struct {
	dir string
	ttl time.Duration
}

// NewCheckCache returns a cache rooted at dir.
func NewCheckCache(dir string, ttl time.Duration) *CheckCache {
	return &CheckCache{dir: dir, ttl: ttl}
}

type cacheEntry struct {
	Key      string          `json:"key"`
	CachedAt time.Time       `json:"cached_at"`
	Results  []checks.Result `json:"results"`
}

// Key hashes the check identity together with the content of every
// scoped file, so any edit invalidates the entry.
func (c *CheckCache) Key(checkID, repoRoot string, files []string) string {
	sorted := append([]string(nil), files...)
	sort.Strings(sorted)

	h := sha256.New()
	h.Write([]byte(checkID))
	for _, f := range sorted {
		h.Write([]byte{0})
		h.Write([]byte(f))
		h.Write([]byte{0})
		if data, err := os.ReadFile(filepath.Join(repoRoot, f)); err == nil {
			sum := sha256.Sum256(data)
			h.Write(sum[:])
		}
	}
	return hex.EncodeToString(h.Sum(nil))[:24]
}

// Get returns cached results for a key, or nil on miss or expiry.
func (c *CheckCache) Get(key string) []checks.Result {
	data, err := os.ReadFile(filepath.Join(c.dir, key+".json"))
	if err != nil {
		return nil
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil
	}
	if entry.Key != key || time.Since(entry.CachedAt) > c.ttl {
		return nil
	}
	return entry.Results
}

// Put stores results under a key. Write failures are non-fatal; the
// cache is an optimization.
func (c *CheckCache) Put(key string, results []checks.Result) {
	entry := cacheEntry{Key: key, CachedAt: time.Now().UTC(), Results: results}
	_ = atomicfile.WriteJSON(filepath.Join(c.dir, key+".json"), entry)
}

// Purge removes entries older than the TTL. Returns the count removed.
func (c *CheckCache) Purge() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading cache directory: %w", err)
	}
	removed := 0
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) > c.ttl {
			if os.Remove(filepath.Join(c.dir, e.Name())) == nil {
				removed++
			}
		}
	}
	return removed, nil
}
