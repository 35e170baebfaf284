package version_test

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	. "github.com/pseudomuto/groundskeeper/pkg/version"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Local
	}{
		{name: "initial", input: "v0.00", want: Local{}},
		{name: "two digit minor", input: "v1.05", want: Local{Major: 1, Minor: 5}},
		{name: "large major", input: "v12.34", want: Local{Major: 12, Minor: 34}},
		{name: "label", input: "v1.01-hotfix", want: Local{Major: 1, Minor: 1, Label: "-hotfix"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.input, got.String())
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "single digit minor", input: "v1.5"},
		{name: "missing prefix", input: "1.05"},
		{name: "uppercase prefix", input: "V1.05"},
		{name: "empty", input: ""},
		{name: "too long", input: "v1.00" + strings.Repeat("x", MaxNameLength)},
		{name: "major overflow", input: "v99999999999999999999999.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)

			var fe *FormatError
			require.True(t, errors.As(err, &fe))
			require.Equal(t, tt.input, fe.Name)
		})
	}
}

func TestSortIsNumeric(t *testing.T) {
	versions := []Local{
		MustParse("v10.00"),
		MustParse("v2.00"),
		MustParse("v1.10"),
		MustParse("v1.02"),
		MustParse("v1.02-b"),
		MustParse("v1.02-a"),
	}

	Sort(versions)

	names := make([]string, len(versions))
	for i, v := range versions {
		names[i] = v.String()
	}

	require.Equal(t, []string{"v1.02", "v1.02-a", "v1.02-b", "v1.10", "v2.00", "v10.00"}, names)
}

func TestCompare(t *testing.T) {
	require.Equal(t, 0, Compare(MustParse("v1.00"), MustParse("v1.00")))
	require.Equal(t, -1, Compare(MustParse("v9.99"), MustParse("v10.00")))
	require.Equal(t, 1, Compare(MustParse("v1.01"), MustParse("v1.00")))
	require.True(t, MustParse("v0.00").Less(MustParse("v0.01")))
}

func TestLatest(t *testing.T) {
	_, ok := Latest(nil)
	require.False(t, ok)

	v, ok := Latest([]Local{MustParse("v1.00"), MustParse("v3.01"), MustParse("v3.00")})
	require.True(t, ok)
	require.Equal(t, "v3.01", v.String())
}

func TestIncrement(t *testing.T) {
	existing := []Local{MustParse("v0.00"), MustParse("v1.00"), MustParse("v1.01")}

	t.Run("major", func(t *testing.T) {
		v, err := IncrementMajor(existing, "")
		require.NoError(t, err)
		require.Equal(t, "v2.00", v.String())
	})

	t.Run("minor", func(t *testing.T) {
		v, err := IncrementMinor(existing, "")
		require.NoError(t, err)
		require.Equal(t, "v1.02", v.String())
	})

	t.Run("label", func(t *testing.T) {
		v, err := IncrementMinor(existing, "-seed")
		require.NoError(t, err)
		require.Equal(t, "v1.02-seed", v.String())
	})

	t.Run("empty workspace", func(t *testing.T) {
		v, err := IncrementMinor(nil, "")
		require.NoError(t, err)
		require.Equal(t, "v0.01", v.String())
	})

	t.Run("minor exhausted", func(t *testing.T) {
		_, err := IncrementMinor([]Local{MustParse("v1.99")}, "")
		var fe *FormatError
		require.True(t, errors.As(err, &fe))
	})
}

func TestIsVersionName(t *testing.T) {
	require.True(t, IsVersionName("v1.00"))
	require.True(t, IsVersionName("v1"))
	require.False(t, IsVersionName("vendor"))
	require.False(t, IsVersionName("_init"))
	require.False(t, IsVersionName("v"))
}
