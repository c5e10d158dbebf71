package pdfmerge

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// minimalPDF builds an uncompressed PDF with n empty pages and a correct xref table.
func minimalPDF(n int) []byte {
	var objs []string
	objs = append(objs, "<< /Type /Catalog /Pages 2 0 R >>")
	kids := make([]string, n)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	objs = append(objs, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n))
	for i := 0; i < n; i++ {
		objs = append(objs, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 200] /Resources << >> >>")
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, body := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func TestMergeTakesFirstTitlePage(t *testing.T) {
	dir := t.TempDir()
	title := filepath.Join(dir, "title.pdf")
	content := filepath.Join(dir, "content.pdf")
	out := filepath.Join(dir, "out.pdf")
	require.NoError(t, os.WriteFile(title, minimalPDF(2), 0o644))
	require.NoError(t, os.WriteFile(content, minimalPDF(3), 0o644))

	require.NoError(t, New().Merge(context.Background(), title, content, out))

	pages, err := api.PageCountFile(out)
	require.NoError(t, err)
	assert.Equal(t, 4, pages)
	assert.NoFileExists(t, filepath.Join(dir, "out.title1.pdf"))
}

func TestMergeRejectsBrokenContent(t *testing.T) {
	dir := t.TempDir()
	title := filepath.Join(dir, "title.pdf")
	content := filepath.Join(dir, "content.pdf")
	require.NoError(t, os.WriteFile(title, minimalPDF(1), 0o644))
	require.NoError(t, os.WriteFile(content, []byte("not a pdf"), 0o644))

	err := New().Merge(context.Background(), title, content, filepath.Join(dir, "out.pdf"))
	assert.Error(t, err)
}

func TestMergeHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, New().Merge(ctx, "a", "b", "c"), context.Canceled)
}
