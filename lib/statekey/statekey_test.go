package statekey

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodesMapToUniqueNames(t *testing.T) {
	n := NewNormalizer()
	seen := map[string]int{}
	for code := 1; code <= 51; code++ {
		name, err := n.Canonical(strconv.Itoa(code))
		require.NoError(t, err)
		require.NotEmpty(t, name)
		if prev, ok := seen[name]; ok {
			t.Fatalf("codes %d and %d both map to %q", prev, code, name)
		}
		seen[name] = code
	}
	require.Len(t, seen, 51)
	require.Equal(t, 9, seen["District of Columbia"])
	require.Equal(t, 51, seen["Wyoming"])
}

func TestCodesOutsideTable(t *testing.T) {
	n := NewNormalizer()
	for _, code := range []string{"0", "52", "99"} {
		_, err := n.Canonical(code)
		require.ErrorIs(t, err, ErrUnknownCode, code)
	}
}

func TestCanonicalForms(t *testing.T) {
	n := NewNormalizer("Puerto Rico")

	testCases := []struct {
		input    string
		expected string
	}{
		{"Ohio", "Ohio"},
		{"  ohio ", "Ohio"},
		{"OH", "Ohio"},
		{"dc", "District of Columbia"},
		{"District  of   Columbia", "District of Columbia"},
		{"NEW YORK", "New York"},
		{"36", "Ohio"},
		{"puerto rico", "Puerto Rico"},
	}
	for _, test := range testCases {
		name, err := n.Canonical(test.input)
		require.NoError(t, err, test.input)
		require.Equal(t, test.expected, name, test.input)
	}
}

func TestUnknownStateSuggestsClosest(t *testing.T) {
	n := NewNormalizer()

	_, err := n.Canonical("Pensylvania")
	require.ErrorIs(t, err, ErrUnknownState)
	require.Contains(t, err.Error(), `"Pennsylvania"`)

	_, err = n.Canonical("Atlantis")
	require.ErrorIs(t, err, ErrUnknownState)
	require.NotContains(t, err.Error(), "did you mean")

	_, err = n.Canonical("   ")
	require.ErrorIs(t, err, ErrUnknownState)
}

func TestKeyWhitespaceInvariance(t *testing.T) {
	n := NewNormalizer()

	a, err := n.Key("Texas", "2020")
	require.NoError(t, err)
	b, err := n.Key("  Texas\t", " 2020 ")
	require.NoError(t, err)
	c, err := n.Key("New York ", "2020")
	require.NoError(t, err)
	d, err := n.Key(" New York", "2020")
	require.NoError(t, err)

	require.Equal(t, a, b)
	require.Equal(t, "Texas2020", a.ID())
	require.Equal(t, c.ID(), d.ID())
	require.Equal(t, "New York2020", c.ID())
}

func TestKeyRejectsBadYears(t *testing.T) {
	n := NewNormalizer()
	for _, year := range []string{"", "20", "20a0", "20201"} {
		_, err := n.Key("Ohio", year)
		require.ErrorIs(t, err, ErrInvalidYear, year)
	}
}

func TestNamesIsACopy(t *testing.T) {
	names := Names()
	names[0] = "changed"
	name, err := NameForCode(1)
	require.NoError(t, err)
	require.Equal(t, "Alabama", name)
}
