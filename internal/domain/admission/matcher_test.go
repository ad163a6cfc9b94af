package admission

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllowListMatches(t *testing.T) {
	list, err := Compile([]string{" abc123 ", "", "regex:^okhttp/", "regex:/^diyp/i"})
	require.NoError(t, err)
	require.Equal(t, 3, list.Len())

	cases := []struct {
		name  string
		value string
		want  bool
	}{
		{name: "literal", value: "abc123", want: true},
		{name: "literal is exact", value: "abc1234", want: false},
		{name: "bare regex", value: "okhttp/4.9", want: true},
		{name: "delimited regex with flag", value: "DIYP-TV", want: true},
		{name: "no entry", value: "curl/8.0", want: false},
		{name: "empty value", value: "", want: false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, list.Matches(tc.value), tc.name)
	}
}

func TestCompileInvalidRegexNeverMatches(t *testing.T) {
	list, err := Compile([]string{"regex:([a-z", "fallback"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "regex:([a-z")
	require.Equal(t, 2, list.Len())
	require.False(t, list.Matches("([a-z"))
	require.True(t, list.Matches("fallback"))
}

func TestMatchesRawEntries(t *testing.T) {
	require.True(t, Matches("token", []string{"regex:[", "token"}))
	require.False(t, Matches("anything", []string{"regex:["}))
	require.False(t, Matches("x", nil))
}

func TestCompilePatternModifiers(t *testing.T) {
	re, err := compilePattern("#^a.b$#s")
	require.NoError(t, err)
	require.True(t, re.MatchString("a\nb"))

	_, err = compilePattern("/abc/e")
	require.Error(t, err)

	re, err = compilePattern("/")
	require.NoError(t, err)
	require.True(t, re.MatchString("a/b"))
}
