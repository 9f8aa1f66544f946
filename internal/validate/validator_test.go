package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mweiler/primary-preserver/internal/trust"
)

// stubInspector fakes PDF inspection so tests need no real PDF fixtures.
type stubInspector struct {
	pages int
	text  string
	err   error
}

func (s stubInspector) Inspect(string, int) (int, string, error) {
	return s.pages, s.text, s.err
}

func newValidator(ins stubInspector, scanOnly bool) *Validator {
	return New(ins, trust.NewPolicy(nil), scanOnly, zap.NewNop())
}

func TestValidateAcceptsSubjectAndSanePages(t *testing.T) {
	res := newValidator(stubInspector{
		pages: 13,
		text:  "Zur Elektrodynamik bewegter Körper; von A. Einstein. Annalen der Physik.",
	}, false).Validate("x.pdf", "https://journals.aps.org/article", false)

	require.True(t, res.Accepted)
	require.True(t, res.HasSubject)
	require.True(t, res.HasVenue)
	require.True(t, res.PageSane)
	require.Equal(t, 13, res.Pages)
	require.Equal(t, "journals.aps.org", res.Host)
}

func TestValidateVenueNotRequired(t *testing.T) {
	res := newValidator(stubInspector{
		pages: 8,
		text:  "by albert EINSTEIN, some obscure offprint",
	}, false).Validate("x.pdf", "https://archive.org/x", false)

	require.True(t, res.Accepted)
	require.False(t, res.HasVenue)
}

func TestValidateRejectsWithoutSubject(t *testing.T) {
	res := newValidator(stubInspector{
		pages: 10,
		text:  "an unrelated pamphlet about agriculture " + strings.Repeat("filler ", 50),
	}, false).Validate("x.pdf", "https://archive.org/x", false)

	require.False(t, res.Accepted)
	require.True(t, res.PageSane)
}

func TestValidatePageCountBounds(t *testing.T) {
	cases := []struct {
		name  string
		pages int
		book  bool
		sane  bool
	}{
		{"zero pages", 0, false, false},
		{"one page", 1, false, true},
		{"upper bound", 200, false, true},
		{"over bound", 201, false, false},
		{"book over bound", 480, true, true},
		{"book tiny", 20, true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := newValidator(stubInspector{pages: tc.pages, text: "einstein"}, false).
				Validate("x.pdf", "https://archive.org/x", tc.book)
			require.Equal(t, tc.sane, res.PageSane)
		})
	}
}

func TestValidateScanOnlyRelaxation(t *testing.T) {
	scan := stubInspector{pages: 45, text: ""}

	t.Run("enabled and trusted accepts", func(t *testing.T) {
		res := newValidator(scan, true).Validate("x.pdf", "https://archive.org/scan", false)
		require.True(t, res.Accepted)
		require.False(t, res.HasSubject)
	})

	t.Run("disabled rejects", func(t *testing.T) {
		res := newValidator(scan, false).Validate("x.pdf", "https://archive.org/scan", false)
		require.False(t, res.Accepted)
	})

	t.Run("untrusted host rejects", func(t *testing.T) {
		res := newValidator(scan, true).Validate("x.pdf", "https://nature.com/scan", false)
		require.False(t, res.Accepted)
	})

	t.Run("page count outside article range rejects", func(t *testing.T) {
		res := newValidator(stubInspector{pages: 81, text: ""}, true).
			Validate("x.pdf", "https://archive.org/scan", false)
		require.False(t, res.Accepted)
	})

	t.Run("never flips acceptance to rejection", func(t *testing.T) {
		res := newValidator(stubInspector{pages: 13, text: "einstein"}, true).
			Validate("x.pdf", "https://archive.org/scan", false)
		require.True(t, res.Accepted)
	})
}

func TestValidateParseFailure(t *testing.T) {
	res := newValidator(stubInspector{err: errors.New("not a pdf")}, true).
		Validate("x.pdf", "https://archive.org/x", false)

	require.False(t, res.Accepted)
	require.False(t, res.HasSubject)
	require.False(t, res.HasVenue)
	require.False(t, res.PageSane)
	require.Zero(t, res.Pages)
	require.Zero(t, res.TextLen)
	require.Equal(t, "archive.org", res.Host)
}
