package middleware

import (
	"github.com/gin-gonic/gin"
)

// 配置选项
type RouteOpt struct {
	IsAuth bool
}

// Router 按 RouteOpt 决定是否挂鉴权中间件
type Router struct {
	g    gin.IRoutes
	auth gin.HandlerFunc
}

func NewRouter(g gin.IRoutes, auth gin.HandlerFunc) *Router {
	return &Router{g: g, auth: auth}
}

func (r *Router) chain(h gin.HandlerFunc, opt RouteOpt) []gin.HandlerFunc {
	if opt.IsAuth && r.auth != nil {
		return []gin.HandlerFunc{r.auth, h}
	}
	return []gin.HandlerFunc{h}
}

// 封装 POST
func (r *Router) POST(path string, h gin.HandlerFunc, opt RouteOpt) {
	r.g.POST(path, r.chain(h, opt)...)
}

// 封装 GET
func (r *Router) GET(path string, h gin.HandlerFunc, opt RouteOpt) {
	r.g.GET(path, r.chain(h, opt)...)
}

// 封装 DELETE
func (r *Router) DELETE(path string, h gin.HandlerFunc, opt RouteOpt) {
	r.g.DELETE(path, r.chain(h, opt)...)
}
