package proxy

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/teeverse/attestation/pkg/attestation"
)

// resultCache memoizes verification outcomes keyed by the exact
// report/policy pair. Verification is deterministic for a given pair
// within the collateral validity window, so entries carry a TTL.
type resultCache struct {
	entries *lru.Cache[string, cacheEntry]
	ttl     time.Duration
}

type cacheEntry struct {
	status    attestation.Status
	expiresAt time.Time
}

func newResultCache(size int, ttl time.Duration) (*resultCache, error) {
	entries, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &resultCache{entries: entries, ttl: ttl}, nil
}

func cacheKey(reportJSON, policyJSON string) string {
	h := sha256.New()
	h.Write([]byte(reportJSON))
	h.Write([]byte{0})
	h.Write([]byte(policyJSON))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *resultCache) get(reportJSON, policyJSON string) (attestation.Status, bool) {
	key := cacheKey(reportJSON, policyJSON)
	entry, ok := c.entries.Get(key)
	if !ok {
		return attestation.Status{}, false
	}
	if time.Now().After(entry.expiresAt) {
		c.entries.Remove(key)
		return attestation.Status{}, false
	}
	return entry.status, true
}

func (c *resultCache) put(reportJSON, policyJSON string, status attestation.Status) {
	c.entries.Add(cacheKey(reportJSON, policyJSON), cacheEntry{
		status:    status,
		expiresAt: time.Now().Add(c.ttl),
	})
}

// purgeExpired drops entries past their TTL and returns how many were
// removed.
func (c *resultCache) purgeExpired() int {
	removed := 0
	now := time.Now()
	for _, key := range c.entries.Keys() {
		if entry, ok := c.entries.Peek(key); ok && now.After(entry.expiresAt) {
			c.entries.Remove(key)
			removed++
		}
	}
	return removed
}
