package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_TextFile(t *testing.T) {
	e := New()
	res, err := e.Extract(context.Background(), "sheet.txt", []byte("Capacity: 23.1 cuft\nVoltage: 115V\n"))
	require.NoError(t, err)

	assert.Equal(t, "text/plain", res.MimeType)
	assert.Equal(t, 1, res.PageCount)
	assert.Contains(t, res.Text, "Capacity: 23.1 cuft")
}

func TestExtract_InvalidUTF8ReplacedNotRejected(t *testing.T) {
	e := New()
	data := append([]byte("Capacity: 23.1 cuft "), 0xff, 0xfe)
	data = append(data, []byte(" cold storage")...)

	res, err := e.Extract(context.Background(), "sheet.txt", data)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "Capacity: 23.1 cuft")
	assert.Contains(t, res.Text, "cold storage")
	assert.Contains(t, res.Text, "�")
}

func TestExtract_FormFeedSynthesizesPages(t *testing.T) {
	e := New()
	res, err := e.Extract(context.Background(), "sheet.txt", []byte("page one\fpage two\fpage three"))
	require.NoError(t, err)

	require.Equal(t, 3, res.PageCount)
	assert.Equal(t, 1, res.Pages[0].Number)
	assert.Equal(t, "page one", res.Pages[0].Text)
	assert.Equal(t, "page three", res.Pages[2].Text)
}

func TestExtract_FormFeedOnlyWhitespacePagesDropped(t *testing.T) {
	e := New()
	res, err := e.Extract(context.Background(), "sheet.txt", []byte("page one\f \f\fpage two"))
	require.NoError(t, err)

	require.Equal(t, 2, res.PageCount)
	assert.Equal(t, "page one", res.Pages[0].Text)
	assert.Equal(t, "page two", res.Pages[1].Text)
}

func TestExtract_MarkdownHeadingsSynthesizePages(t *testing.T) {
	e := New()
	md := "# Premier Refrigerator\nCapacity: 23.1 cuft\n# Premier Freezer\nCapacity: 20 cuft\n"
	res, err := e.Extract(context.Background(), "catalog.md", []byte(md))
	require.NoError(t, err)

	assert.Equal(t, "text/markdown", res.MimeType)
	require.Equal(t, 2, res.PageCount)
	assert.True(t, strings.HasPrefix(res.Pages[0].Text, "# Premier Refrigerator"))
	assert.True(t, strings.HasPrefix(res.Pages[1].Text, "# Premier Freezer"))
}

func TestExtract_MarkdownFormFeedTakesPrecedence(t *testing.T) {
	e := New()
	md := "# One\nalpha\f# Two\nbeta\n# Three\ngamma"
	res, err := e.Extract(context.Background(), "catalog.md", []byte(md))
	require.NoError(t, err)
	assert.Equal(t, 2, res.PageCount)
}

func TestExtract_EmptyDocument(t *testing.T) {
	e := New()
	_, err := e.Extract(context.Background(), "blank.txt", []byte("   \n\f  \n"))
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	e := New()
	_, err := e.Extract(context.Background(), "photo.png", []byte{0x89, 0x50})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestSupported(t *testing.T) {
	e := New()
	assert.True(t, e.Supported("spec.PDF"))
	assert.True(t, e.Supported("notes.md"))
	assert.True(t, e.Supported("sheet.txt"))
	assert.False(t, e.Supported("scan.tiff"))
}

func TestNormalizeText_StripsControlCharacters(t *testing.T) {
	got := normalizeText("a\r\nb\rc\x00d\te")
	assert.Equal(t, "a\nb\ncd\te", got)
}

