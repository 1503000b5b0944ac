package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	cacheBypassKey = "cache_bypass"

	// CacheStatusHeader reports whether a cached read was served from cache.
	CacheStatusHeader = "X-Cache"
)

// CacheControl records whether the caller asked to skip cached responses
// with Cache-Control: no-cache (or the legacy Pragma: no-cache).
func CacheControl() gin.HandlerFunc {
	return func(c *gin.Context) {
		bypass := hasNoCache(c.GetHeader("Cache-Control")) || hasNoCache(c.GetHeader("Pragma"))
		c.Set(cacheBypassKey, bypass)
		c.Next()
	}
}

// CacheBypass reports the flag captured by CacheControl.
func CacheBypass(c *gin.Context) bool {
	return c.GetBool(cacheBypassKey)
}

// SetCacheStatus writes the X-Cache header for the current response.
func SetCacheStatus(c *gin.Context, status string) {
	if status != "" {
		c.Header(CacheStatusHeader, status)
	}
}

func hasNoCache(header string) bool {
	for _, directive := range strings.Split(header, ",") {
		if strings.EqualFold(strings.TrimSpace(directive), "no-cache") {
			return true
		}
	}
	return false
}
