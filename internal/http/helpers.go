package http

import (
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"syntego/internal/advice"
	"syntego/internal/core"
	"syntego/internal/services"
)

var templateFuncs = template.FuncMap{
	"dollars": core.FormatDollars,
	"negative": func(d decimal.Decimal) bool {
		return d.IsNegative()
	},
}

// sanitizeInput drops control characters other than tab and newlines and trims.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrDescriptionLong),
		errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrIndexOutOfRange),
		errors.Is(err, services.ErrNothingSelected),
		errors.Is(err, advice.ErrEmptyQuery),
		errors.Is(err, errInvalidIndex):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// userMessage hides internal failures from clients.
func userMessage(err error) string {
	if statusFor(err) == http.StatusInternalServerError {
		return "Something went wrong. Please try again."
	}
	return err.Error()
}
