package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSConfig defines CORS configuration options.
type CORSConfig struct {
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
	MaxAge       time.Duration
}

// DefaultCORSConfig permits extension origins alongside localhost dev pages.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"moz-extension://*", "chrome-extension://*", "http://localhost:*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Content-Length",
			"Accept",
			"Origin",
		},
		MaxAge: 12 * time.Hour,
	}
}

// CORS creates a CORS middleware with the provided configuration. Wildcard
// scheme origins (moz-extension://*) are matched by prefix.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	var exact []string
	var prefixes []string
	for _, origin := range cfg.AllowOrigins {
		if strings.HasSuffix(origin, "*") {
			prefixes = append(prefixes, strings.TrimSuffix(origin, "*"))
		} else {
			exact = append(exact, origin)
		}
	}

	return cors.New(cors.Config{
		AllowBrowserExtensions: true,
		AllowOrigins:           exact,
		AllowOriginFunc: func(origin string) bool {
			for _, p := range prefixes {
				if strings.HasPrefix(origin, p) {
					return true
				}
			}
			return false
		},
		AllowMethods: cfg.AllowMethods,
		AllowHeaders: cfg.AllowHeaders,
		MaxAge:       cfg.MaxAge,
	})
}
