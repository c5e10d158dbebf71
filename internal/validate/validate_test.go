package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmail(t *testing.T) {
	got, err := Email("  user@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", got)

	for _, bad := range []string{"", "user", "user@", "user@host", "@host.com", "a@b@c.d"} {
		_, err := Email(bad)
		var verr *Error
		require.True(t, errors.As(err, &verr), bad)
		assert.Equal(t, ReasonEmail, verr.Reason)
	}
}

func TestDate(t *testing.T) {
	got, err := Date("25/12/2023")
	require.NoError(t, err)
	assert.Equal(t, "25/12/2023", got)

	_, err = Date("29/02/2024")
	assert.NoError(t, err)

	_, err = Date("31/02/2023")
	assert.ErrorIs(t, err, &Error{Reason: ReasonDateInvalid})

	_, err = Date("29/02/2023")
	assert.ErrorIs(t, err, &Error{Reason: ReasonDateInvalid})

	_, err = Date("00/01/2023")
	assert.ErrorIs(t, err, &Error{Reason: ReasonDateInvalid})

	for _, bad := range []string{"2023-12-25", "1/1/2023", "25.12.2023", "25/12/23", ""} {
		_, err := Date(bad)
		assert.ErrorIs(t, err, &Error{Reason: ReasonDateFormat}, bad)
	}
}

func TestNonEmpty(t *testing.T) {
	got, err := NonEmpty("name", "  Иван ")
	require.NoError(t, err)
	assert.Equal(t, "Иван", got)

	_, err = NonEmpty("name", " \t\n")
	assert.ErrorIs(t, err, &Error{Field: "name", Reason: ReasonEmpty})
	assert.Equal(t, "VALIDATION_EMPTY", err.(*Error).Code())
}

func TestPDFName(t *testing.T) {
	assert.NoError(t, PDFName("Course.PDF"))
	assert.NoError(t, PDFName("a.pdf"))
	assert.ErrorIs(t, PDFName("a.docx"), &Error{Reason: ReasonExtension})
	assert.Error(t, PDFName(""))
}

func TestFormatCost(t *testing.T) {
	cases := map[string]string{
		"1234567":      "1 234 567",
		"1234,5":       "1 235",
		"1234.4":       "1 234",
		"2.5":          "3",
		"15 000 руб.":  "15 000",
		"999":          "999",
		"0":            "0",
		"abc":          "abc",
		"1.2.3":        "1.2.3",
		"":             "",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatCost(in), in)
	}
}

func TestGroupThousands(t *testing.T) {
	assert.Equal(t, "1", GroupThousands("1", " "))
	assert.Equal(t, "100", GroupThousands("100", " "))
	assert.Equal(t, "1,000", GroupThousands("1000", ","))
	assert.Equal(t, "123 456", GroupThousands("123456", " "))
	assert.Equal(t, "1 234 567", GroupThousands("1234567", " "))
}
