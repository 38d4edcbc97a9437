package httpapi

import (
	"errors"
	"net/http"

	"github.com/Stephi-25/Odjassa/internal/apperr"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type ErrorBody struct {
	Kind    apperr.Kind       `json:"kind"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func kindForStatus(status int) apperr.Kind {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		return apperr.KindValidation
	case http.StatusUnauthorized:
		return apperr.KindUnauthenticated
	case http.StatusForbidden:
		return apperr.KindForbidden
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return apperr.KindNotFound
	case http.StatusConflict:
		return apperr.KindConflict
	}
	return apperr.KindInternal
}

// handleError renders every error as an ErrorResponse. Causes are logged,
// never returned to the client.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	body := ErrorBody{Kind: apperr.KindInternal, Code: apperr.ErrInternal.Code, Message: apperr.ErrInternal.Message}

	var appErr *apperr.Error
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &appErr):
		status = appErr.Kind.HTTPStatus()
		body = ErrorBody{Kind: appErr.Kind, Code: appErr.Code, Message: appErr.Message, Fields: appErr.Fields}
	case errors.As(err, &httpErr):
		status = httpErr.Code
		kind := kindForStatus(status)
		msg := http.StatusText(status)
		if m, ok := httpErr.Message.(string); ok && status < 500 {
			msg = m
		}
		body = ErrorBody{Kind: kind, Code: string(kind), Message: msg}
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			zap.String("path", c.Path()),
			zap.Error(err))
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, ErrorResponse{Error: body})
	}
	if writeErr != nil {
		s.logger.Warn("write error response", zap.Error(writeErr))
	}
}
