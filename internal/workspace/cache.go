package workspace

import (
	"crypto/sha256"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dgallion1/codetransmute/internal/extractor"
	"github.com/dgallion1/codetransmute/internal/metrics"
)

type cacheEntry struct {
	hash  string
	trees []extractor.Tree
}

// TreeCache holds extracted trees per file so that a level change, or a
// second viewer of the same file, never re-parses unchanged text. Cached
// trees are shared and must not be mutated.
type TreeCache struct {
	entries *lru.Cache[string, cacheEntry]
	hits    atomic.Int64
	misses  atomic.Int64
}

func NewTreeCache(size int) (*TreeCache, error) {
	if size <= 0 {
		size = 256
	}
	entries, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("create tree cache: %w", err)
	}
	return &TreeCache{entries: entries}, nil
}

// Trees returns the extracted trees for a file's current content,
// extracting only when the content hash changed.
func (c *TreeCache) Trees(path string, data []byte) []extractor.Tree {
	hash := ContentHashHex(data)
	if e, ok := c.entries.Get(path); ok && e.hash == hash {
		c.hits.Add(1)
		metrics.TreeCacheLookups.WithLabelValues("hit").Inc()
		return e.trees
	}

	c.misses.Add(1)
	metrics.TreeCacheLookups.WithLabelValues("miss").Inc()
	trees := extractor.ExtractFile(path, data)
	for _, t := range trees {
		metrics.Extractions.WithLabelValues(string(t.Language)).Inc()
	}
	c.entries.Add(path, cacheEntry{hash: hash, trees: trees})
	return trees
}

// Invalidate drops the entry for a path.
func (c *TreeCache) Invalidate(path string) {
	c.entries.Remove(path)
}

// Len is the number of cached files.
func (c *TreeCache) Len() int {
	return c.entries.Len()
}

// Stats reports lifetime hit and miss counts.
func (c *TreeCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
