// Package access is the static allow-list that gates operator commands.
package access

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m3rciful/pdfbot/core/logger"
)

// ErrUnauthorized is returned by Check for users outside the allow-list.
var ErrUnauthorized error = unauthorizedError{}

type unauthorizedError struct{}

func (unauthorizedError) Error() string { return "access: user not allowed" }
func (unauthorizedError) Code() string  { return "unauthorized" }

// Filter answers allow/deny for a Telegram user ID. The zero value and an
// empty list deny everyone.
type Filter struct {
	ids map[int64]struct{}
}

// New builds a filter from the parsed ADMINS list.
func New(ids []int64) Filter {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return Filter{ids: set}
}

// Allowed reports whether userID is on the list.
func (f Filter) Allowed(userID int64) bool {
	_, ok := f.ids[userID]
	return ok
}

// NotAllowed is the exact inverse of Allowed.
func (f Filter) NotAllowed(userID int64) bool {
	return !f.Allowed(userID)
}

// Check returns ErrUnauthorized when userID is not allowed.
func (f Filter) Check(userID int64) error {
	if f.NotAllowed(userID) {
		return ErrUnauthorized
	}
	return nil
}

// Len returns the number of allowed users.
func (f Filter) Len() int {
	return len(f.ids)
}

// ReportLoaded logs the allow-list size once at startup and warns about
// chunks that could not be parsed as user IDs.
func ReportLoaded(ctx context.Context, f Filter, rejected []string) {
	logger.Info(ctx, logger.CompAccess, "access.loaded", slog.Int("count", f.Len()))
	if f.Len() == 0 {
		logger.Warn(ctx, logger.CompAccess, "access.empty",
			slog.String("cause", "ADMINS is empty, every operator command is denied"),
		)
	}
	if len(rejected) > 0 {
		preview, truncated := logger.SummarizeStrings(rejected, 5)
		logger.Warn(ctx, logger.CompAccess, "access.rejected",
			slog.Int("count", len(rejected)),
			slog.String("payload", logger.SanitizeLimit(strings.TrimSpace(preview), 120)),
			slog.Bool("truncated", truncated),
		)
	}
}
