package address

import (
	"context"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
)

// DefaultCacheSize is the number of host names kept by NewCachingResolver
// when size is not positive.
const DefaultCacheSize = 256

// CachingResolver caches successful forward lookups of an inner Resolver.
// Reverse lookups are passed through. It is safe for concurrent use.
type CachingResolver struct {
	inner Resolver
	cache *lru.Cache[string, [][]byte]
}

// NewCachingResolver wraps inner with an LRU of size entries.
func NewCachingResolver(inner Resolver, size int) (*CachingResolver, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, [][]byte](size)
	if err != nil {
		return nil, err
	}
	return &CachingResolver{inner: inner, cache: cache}, nil
}

// LookupIP returns cached addresses for host, resolving on a miss.
func (c *CachingResolver) LookupIP(ctx context.Context, host string) ([][]byte, error) {
	key := strings.ToLower(strings.TrimSuffix(host, "."))
	if raws, ok := c.cache.Get(key); ok {
		logrus.WithFields(logrus.Fields{
			"function": "CachingResolver.LookupIP",
			"host":     host,
		}).Debug("Resolver cache hit")
		return cloneRaws(raws), nil
	}

	raws, err := c.inner.LookupIP(ctx, host)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, cloneRaws(raws))
	return raws, nil
}

// LookupAddr delegates to the inner resolver.
func (c *CachingResolver) LookupAddr(ctx context.Context, addr []byte) ([]string, error) {
	return c.inner.LookupAddr(ctx, addr)
}

// Purge drops every cached entry.
func (c *CachingResolver) Purge() {
	c.cache.Purge()
}

// Len returns the number of cached host names.
func (c *CachingResolver) Len() int {
	return c.cache.Len()
}

func cloneRaws(raws [][]byte) [][]byte {
	out := make([][]byte, len(raws))
	for i, r := range raws {
		out[i] = append([]byte(nil), r...)
	}
	return out
}
