package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/galleryzip/models"
)

// identityKey is where Auth stores the caller's key for RateLimit.
const identityKey = "api_key"

// queryKeyParam lets GET links (archive downloads) carry the key.
const queryKeyParam = "api_key"

// Auth returns API-key authentication middleware. A key is accepted from
//
//	X-API-Key: <key>
//	Authorization: Bearer <key>
//	?api_key=<key>   (GET only)
//
// With no non-empty keys configured every request passes.
func Auth(apiKeys []string) gin.HandlerFunc {
	var digests [][sha256.Size]byte
	for _, k := range apiKeys {
		if k != "" {
			digests = append(digests, sha256.Sum256([]byte(k)))
		}
	}
	if len(digests) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	known := func(key string) bool {
		d := sha256.Sum256([]byte(key))
		match := 0
		for i := range digests {
			match |= subtle.ConstantTimeCompare(d[:], digests[i][:])
		}
		return match == 1
	}

	return func(c *gin.Context) {
		key, ok := credential(c)
		switch {
		case !ok:
			abortUnauthorized(c, "missing API key: provide X-API-Key header or Authorization: Bearer <key>")
		case !known(key):
			abortUnauthorized(c, "invalid API key")
		default:
			c.Set(identityKey, key)
			c.Next()
		}
	}
}

func credential(c *gin.Context) (string, bool) {
	if key := c.GetHeader("X-API-Key"); key != "" {
		return key, true
	}
	if key, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); found && key != "" {
		return key, true
	}
	if c.Request.Method == http.MethodGet {
		if key := c.Query(queryKeyParam); key != "" {
			return key, true
		}
	}
	return "", false
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
		Error: &models.ErrorDetail{Code: models.ErrCodeUnauthorized, Message: msg},
	})
}
