package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderRequestID = "X-Request-ID"
	ctxKeyRequestID = "requestID"
)

// RequestID 沿用客戶端帶來的 X-Request-ID，沒有則產生一個
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(HeaderRequestID, reqID)
		c.Set(ctxKeyRequestID, reqID)
		c.Next()
	}
}

// GetRequestID 從 gin 上下文取出請求 ID
func GetRequestID(c *gin.Context) string {
	return c.GetString(ctxKeyRequestID)
}
