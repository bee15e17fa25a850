package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dailychallenge/server/errs"
)

// JSONResponse is the error envelope shared by every endpoint.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error writes an error envelope with the given status and application code.
func Error(ctx *gin.Context, status int, code int, message string) {
	ctx.JSON(status, JSONResponse{Code: code, Message: message})
}

// Fail maps err to a response. *errs.ApiErr carries its own status; anything else is a logged 500.
func Fail(ctx *gin.Context, err error) {
	var apiErr *errs.ApiErr
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= http.StatusInternalServerError {
			Logger.Error("request failed", zap.String("path", ctx.FullPath()), zap.Error(err))
		}
		ctx.AbortWithStatusJSON(apiErr.StatusCode, JSONResponse{Code: apiErr.Code, Message: apiErr.Error()})
		return
	}
	Logger.Error("unexpected error", zap.String("path", ctx.FullPath()), zap.Error(err))
	_ = ctx.Error(err)
	ctx.AbortWithStatusJSON(http.StatusInternalServerError, JSONResponse{Code: 50000, Message: "internal server error"})
}
