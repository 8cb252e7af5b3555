package api

import (
	"net/http"

	"FlashChat/tools/errs"

	"github.com/gin-gonic/gin"
)

type errorBody struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

// HTTPStatus 业务码到 HTTP 状态码
func HTTPStatus(code int) int {
	switch code {
	case errs.ValidationError:
		return http.StatusBadRequest
	case errs.AuthorizationError:
		return http.StatusForbidden
	case errs.NotFoundError:
		return http.StatusNotFound
	case errs.UploadError:
		return http.StatusBadGateway
	case errs.UnauthenticatedError:
		return http.StatusUnauthorized
	case errs.HubClosedError:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (s *Server) writeErr(c *gin.Context, err error) {
	body := errorBody{Code: errs.ServerInternalError, Msg: "ServerInternalError"}
	if ce := errs.AsCode(err); ce != nil {
		body.Code = ce.Code
		body.Msg = ce.Msg
		body.Detail = err.Error()
	}
	status := HTTPStatus(body.Code)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zapPath(c), zapErr(err))
	}
	c.AbortWithStatusJSON(status, body)
}

// handle 让 handler 直接返回 error
func (s *Server) handle(h func(c *gin.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h(c); err != nil {
			s.writeErr(c, err)
		}
	}
}

func bind(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return errs.ErrValidation.WrapMsg("invalid request body", "err", err.Error())
	}
	return nil
}
