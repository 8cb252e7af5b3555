package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRouterAuthOption(t *testing.T) {
	gin.SetMode(gin.TestMode)
	e := gin.New()
	deny := func(c *gin.Context) { c.AbortWithStatus(http.StatusUnauthorized) }
	r := NewRouter(e, deny)
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/open", ok, RouteOpt{})
	r.GET("/closed", ok, RouteOpt{IsAuth: true})

	for path, want := range map[string]int{"/open": http.StatusOK, "/closed": http.StatusUnauthorized} {
		w := httptest.NewRecorder()
		e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, w.Code, path)
	}
}

func TestManagerStopsOnAbort(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewManager()
	var hits []string
	m.Add(func(c *gin.Context) { hits = append(hits, "a") })
	m.Add(func(c *gin.Context) { hits = append(hits, "b"); c.AbortWithStatus(http.StatusTeapot) })
	m.Add(func(c *gin.Context) { hits = append(hits, "c") })

	e := gin.New()
	e.Use(m.Use())
	e.GET("/", func(c *gin.Context) { hits = append(hits, "handler") })
	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, []string{"a", "b"}, hits)
}

func TestOriginAndRecover(t *testing.T) {
	gin.SetMode(gin.TestMode)
	e := gin.New()
	e.Use(Recover(), Origin([]string{"https://app.example.com/"}))
	e.GET("/boom", func(c *gin.Context) { panic("x") })
	e.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w = httptest.NewRecorder()
	e.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestOriginInsideManager(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewManager()
	m.Add(Origin([]string{"https://app.example.com"}))
	var ran bool
	e := gin.New()
	e.Use(m.Use())
	e.GET("/ok", func(c *gin.Context) { ran = true; c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, ran)

	req = httptest.NewRequest(http.MethodOptions, "/ok", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w = httptest.NewRecorder()
	e.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, ran)
}
