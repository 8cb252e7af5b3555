package security

import (
	"net/http"
	"strings"

	"FlashChat/tools/errs"
	"FlashChat/tools/security"

	"github.com/gin-gonic/gin"
)

// —— context key ——
// 后续 handler 统一用这两个 key 读取
const (
	CtxUserIDKey = "userID"        // string
	CtxTokenKey  = "authorization" // string
)

type Options struct {
	JWT security.Options
	// 读取哪个请求头
	HeaderToken string // 默认 "authorization"
	// websocket 握手无法自定义头时从查询参数取
	QueryToken string // 默认 "token"
}

func DefaultOptions(jwt security.Options) *Options {
	return &Options{JWT: jwt, HeaderToken: CtxTokenKey, QueryToken: "token"}
}

func tokenFrom(c *gin.Context, opts *Options) string {
	// 兼容 Authorization: Bearer xxx
	if authz := strings.TrimSpace(c.GetHeader(opts.HeaderToken)); authz != "" {
		if len(authz) > len("bearer ") && strings.EqualFold(authz[:len("bearer ")], "bearer ") {
			return strings.TrimSpace(authz[len("bearer "):])
		}
		return authz
	}
	if opts.QueryToken != "" {
		return strings.TrimSpace(c.Query(opts.QueryToken))
	}
	return ""
}

func Middleware(opts *Options) gin.HandlerFunc {
	if opts.HeaderToken == "" {
		opts.HeaderToken = CtxTokenKey
	}
	return func(c *gin.Context) {
		token := tokenFrom(c, opts)
		if token == "" {
			abort(c, errs.ErrUnauthenticated.WrapMsg("missing token"))
			return
		}
		claims, err := security.Verify(opts.JWT, token, "")
		if err != nil {
			abort(c, err)
			return
		}
		c.Set(CtxTokenKey, token)
		c.Set(CtxUserIDKey, claims.UserID())
		c.Next()
	}
}

func abort(c *gin.Context, err error) {
	ce := errs.AsCode(err)
	if ce == nil {
		ce = errs.ErrUnauthenticated
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":   ce.Code,
		"msg":    ce.Msg,
		"detail": err.Error(),
	})
}

// UserID 认证通过后的用户 ID
func UserID(c *gin.Context) string {
	return c.GetString(CtxUserIDKey)
}
