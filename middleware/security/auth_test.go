package security

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"FlashChat/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func router(opts *Options) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(opts))
	r.GET("/me", func(c *gin.Context) { c.String(http.StatusOK, UserID(c)) })
	return r
}

func TestMiddleware(t *testing.T) {
	jwt := security.DefaultOptions([]byte("k"))
	r := router(DefaultOptions(jwt))
	tok, _, err := security.Generate(jwt, "alice", nil)
	require.NoError(t, err)

	cases := []struct {
		name   string
		setup  func(*http.Request)
		status int
		body   string
	}{
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) }, http.StatusOK, "alice"},
		{"raw header", func(r *http.Request) { r.Header.Set("Authorization", tok) }, http.StatusOK, "alice"},
		{"query", func(r *http.Request) { r.URL.RawQuery = "token=" + tok }, http.StatusOK, "alice"},
		{"missing", func(r *http.Request) {}, http.StatusUnauthorized, ""},
		{"bad", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tc.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, w.Body.String())
			} else {
				assert.Contains(t, w.Body.String(), `"code":1006`)
			}
		})
	}
}
