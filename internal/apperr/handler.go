package apperr

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type errorBody struct {
	Code    Kind     `json:"code"`
	Message string   `json:"message"`
	Details []Detail `json:"details,omitempty"`
	Debug   string   `json:"debug,omitempty"`
}

type envelope struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

// Handler returns the fiber error handler. Server-side failures keep their
// cause in the log; the client only sees it when debug is true.
func Handler(log *zap.Logger, debug bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, body := classify(err)

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.String("code", string(body.Code)),
		}
		if rid, ok := c.Locals("request_id").(string); ok {
			fields = append(fields, zap.String("request_id", rid))
		}
		if status >= http.StatusInternalServerError {
			log.Error("request failed", append(fields, zap.Error(err))...)
		} else {
			log.Debug("request rejected", append(fields, zap.String("reason", body.Message))...)
		}

		if debug && status >= http.StatusInternalServerError {
			body.Debug = err.Error()
		}
		return c.Status(status).JSON(envelope{Success: false, Error: body})
	}
}

func classify(err error) (int, errorBody) {
	var appErr *Error
	if errors.As(err, &appErr) {
		body := errorBody{Code: appErr.Kind, Message: appErr.Message, Details: appErr.Details}
		if appErr.Kind.Status() >= http.StatusInternalServerError {
			body.Message = genericMessage(appErr.Kind)
		}
		return appErr.Kind.Status(), body
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, errorBody{Code: kindForStatus(fe.Code), Message: fe.Message}
	}

	return http.StatusInternalServerError, errorBody{Code: KindPersistence, Message: "Internal server error"}
}

func genericMessage(kind Kind) string {
	if kind == KindAggregationFailure {
		return "Report could not be generated"
	}
	return "Internal server error"
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized:
		return KindUnauthenticated
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	}
	if status < http.StatusInternalServerError {
		return KindValidation
	}
	return KindPersistence
}
