package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Origin 跨域白名单；为空时放行所有来源。只对带 Origin 头的请求生效。
// 不调用 c.Next，可以放进 MiddlewareManager
func Origin(allowed []string) gin.HandlerFunc {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(strings.ToLower(o), "/")] = struct{}{}
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" || len(set) == 0 {
			return
		}
		if _, ok := set[strings.TrimRight(strings.ToLower(origin), "/")]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": 1002, "msg": "origin not allowed"})
			return
		}
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Vary", "Origin")
		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization,Content-Type")
			c.AbortWithStatus(http.StatusNoContent)
		}
	}
}
