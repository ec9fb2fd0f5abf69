package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	actionAllowMethods  = "GET,POST,PUT,OPTIONS"
	actionAllowHeaders  = "Content-Type, Authorization, Content-Encoding, Accept-Encoding, X-Accept-Action-Version, X-Accept-Blockchain-Ids"
	actionExposeHeaders = "X-Action-Version, X-Blockchain-Ids"
)

// ActionHeaders выставляет CORS-заголовки action-протокола на каждый ответ,
// в том числе без заголовка Origin. Preflight OPTIONS завершается здесь с 200.
func ActionHeaders(actionVersion, blockchainID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", actionAllowMethods)
		h.Set("Access-Control-Allow-Headers", actionAllowHeaders)
		h.Set("Access-Control-Expose-Headers", actionExposeHeaders)
		h.Set("X-Action-Version", actionVersion)
		h.Set("X-Blockchain-Ids", blockchainID)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}
