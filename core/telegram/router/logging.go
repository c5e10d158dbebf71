// Package router binds update endpoints to one dispatch function and logs a
// summary line per handled update.
package router

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/pdfbot/core/logger"
)

// Summary overrides the status and outcome of a handler.summary line.
// Empty fields are derived from the error.
type Summary struct {
	Status  string
	Outcome string
}

// HandleWithSummary runs fn under a handler-scoped context and logs its result.
func HandleWithSummary(ctx context.Context, handlerName string, fn func(context.Context) error, extras ...slog.Attr) error {
	start := time.Now()
	name := NormalizeHandlerName(handlerName)
	ctx = logger.WithHandler(ctx, name)
	err := fn(ctx)
	LogSummary(ctx, name, start, Summary{}, err, extras...)
	return err
}

// LogSummary writes the handler.handled line.
func LogSummary(ctx context.Context, handlerName string, start time.Time, s Summary, err error, extras ...slog.Attr) {
	status := s.Status
	if status == "" {
		status = logger.Status(err)
	}
	outcome := s.Outcome
	if outcome == "" {
		outcome = "ok"
		if err != nil {
			outcome = "fail"
		}
	}

	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("handler", handlerName),
		slog.String("outcome", outcome),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", DeriveErrorCode(err)),
		)
	}
	attrs = append(attrs, extras...)

	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelError
	}
	logger.Event(ctx, logger.CompTG, level, "handler.handled", attrs...)
}

// NormalizeHandlerName turns "/Create_Invoice" into "create_invoice".
func NormalizeHandlerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	name = strings.TrimPrefix(name, "/")
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}

// DeriveErrorCode returns the Code() of the first error in the chain that
// has one, else the upper-cased type name of err.
func DeriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	type coder interface{ Code() string }
	var c coder
	if errors.As(err, &c) {
		if code := strings.TrimSpace(c.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil && t.Name() != "" {
		return strings.ToUpper(t.Name())
	}
	return "UNKNOWN_ERROR"
}
