package engine

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileURLIsAbsolute(t *testing.T) {
	url, err := fileURL(filepath.Join("assets", "invoice", "pdf.html"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "file:///"), url)
	assert.True(t, strings.HasSuffix(url, "/assets/invoice/pdf.html"), url)
}

func TestNewDefaultsTimeout(t *testing.T) {
	assert.Equal(t, 60*time.Second, New(Options{}).opts.Timeout)
	assert.Equal(t, time.Second, New(Options{Timeout: time.Second}).opts.Timeout)
}

func TestCloseWithoutBrowser(t *testing.T) {
	c := New(Options{})
	assert.NotPanics(t, c.Close)
}
