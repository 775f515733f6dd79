package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Error kinds. Domain errors wrap one of these to pick their HTTP status.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrBadRequest  = errors.New("bad request")
	ErrUnavailable = errors.New("service unavailable")
)

func StatusFor(err error) int {
	var verr *ValidationError
	var ferr *fiber.Error
	switch {
	case errors.As(err, &verr), errors.Is(err, ErrBadRequest):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, ErrUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.As(err, &ferr):
		return ferr.Code
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandlerMiddleware turns errors returned by handlers into the error envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code := StatusFor(err)
		var verr *ValidationError
		if errors.As(err, &verr) {
			return ctx.Status(code).JSON(ErrorResponseWithDetails(code, "Validation failed", verr.Fields))
		}
		return ctx.Status(code).JSON(ErrorResponse(code, err.Error()))
	}
}

type kindError struct {
	kind error
	err  error
}

func (e *kindError) Error() string   { return e.err.Error() }
func (e *kindError) Unwrap() []error { return []error{e.err, e.kind} }

// WithKind tags err with one of the error kinds while keeping its message.
func WithKind(kind, err error) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, err: err}
}
