package router

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type codedErr struct{}

func (codedErr) Error() string { return "boom" }
func (codedErr) Code() string  { return "render failed" }

type plainErr struct{}

func (*plainErr) Error() string { return "plain" }

func TestDeriveErrorCode(t *testing.T) {
	assert.Equal(t, "", DeriveErrorCode(nil))
	assert.Equal(t, "RENDER_FAILED", DeriveErrorCode(codedErr{}))
	assert.Equal(t, "RENDER_FAILED", DeriveErrorCode(fmt.Errorf("wrap: %w", codedErr{})))
	assert.Equal(t, "PLAINERR", DeriveErrorCode(&plainErr{}))
}

func TestNormalizeHandlerName(t *testing.T) {
	assert.Equal(t, "create_invoice", NormalizeHandlerName("/Create_Invoice"))
	assert.Equal(t, "unknown", NormalizeHandlerName("  "))
	assert.Equal(t, "form_invoice.email", NormalizeHandlerName("form invoice.email"))
}

func TestHandleWithSummaryPassesError(t *testing.T) {
	want := errors.New("send failed")
	var seen string
	err := HandleWithSummary(context.Background(), "/okx", func(ctx context.Context) error {
		seen = "called"
		return want
	})
	require.ErrorIs(t, err, want)
	assert.Equal(t, "called", seen)
}
