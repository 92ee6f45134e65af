// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

func I18nMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("lang", parseLanguage(c.GetHeader("Accept-Language")))
		c.Next()
	}
}

// parseLanguage picks the first preferred language we have a catalog for.
func parseLanguage(header string) string {
	// Handle cases like "af-ZA,af;q=0.9,en;q=0.8"
	for _, candidate := range strings.Split(header, ",") {
		tag := strings.ToLower(strings.TrimSpace(strings.Split(candidate, ";")[0]))
		tag = strings.ReplaceAll(tag, "_", "-")
		switch {
		case tag == "af" || strings.HasPrefix(tag, "af-"):
			return "af"
		case tag == "en" || strings.HasPrefix(tag, "en-"):
			return "en"
		}
	}
	return "en"
}
