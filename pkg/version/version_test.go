// SPDX-License-Identifier: Apache-2.0

package version

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SemVer(t *testing.T) {
	tests := []struct {
		input       string
		expect      string
		expectError bool
	}{
		{input: "0.0.0", expect: "0.0.0"},
		{input: "1.2.3", expect: "1.2.3"},
		{input: "10.20.30", expect: "10.20.30"},
		{input: "v1.2.3", expectError: true},
		{input: "1.2", expectError: true},
		{input: "1", expectError: true},
		{input: "1.2.3.4", expectError: true},
		{input: "1.2.3-alpha.1", expectError: true},
		{input: "1.2.3+build.7", expectError: true},
		{input: "1.02.3", expectError: true},
		{input: ">=1.2.3", expectError: true},
		{input: "", expectError: true},
		{input: "one.two.three", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := Parse(EncodingSemVer, tt.input)

			if tt.expectError {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expect, v.String())
			assert.Equal(t, EncodingSemVer, v.Encoding())
		})
	}
}

func TestParse_Sequence(t *testing.T) {
	tests := []struct {
		input       string
		expect      string
		expectError bool
	}{
		{input: "0", expect: "0"},
		{input: "1", expect: "1"},
		{input: "42", expect: "42"},
		{input: "007", expect: "7"}, // normalized to canonical decimal
		{input: "-1", expectError: true},
		{input: "+1", expectError: true},
		{input: "1.0", expectError: true},
		{input: "abc", expectError: true},
		{input: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := Parse(EncodingSequence, tt.input)

			if tt.expectError {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expect, v.String())
			assert.Equal(t, EncodingSequence, v.Encoding())
		})
	}
}

func TestZero(t *testing.T) {
	t.Run("semver", func(t *testing.T) {
		z := Zero(EncodingSemVer)
		assert.True(t, z.IsZero())
		assert.Equal(t, "0.0.0", z.String())
		assert.True(t, z.Equal(MustParse(EncodingSemVer, "0.0.0")))
	})

	t.Run("sequence", func(t *testing.T) {
		z := Zero(EncodingSequence)
		assert.True(t, z.IsZero())
		assert.Equal(t, "0", z.String())
		assert.True(t, z.Equal(MustParse(EncodingSequence, "0")))
	})

	t.Run("non-zero versions are not zero", func(t *testing.T) {
		assert.False(t, MustParse(EncodingSemVer, "0.0.1").IsZero())
		assert.False(t, MustParse(EncodingSequence, "1").IsZero())
	})
}

func TestCompare_SemVer(t *testing.T) {
	tests := []struct {
		a, b   string
		expect int
	}{
		{"1.0.0", "1.0.0", 0},
		{"0.0.1", "0.1.0", -1},
		{"0.1.0", "1.0.0", -1},
		{"1.0.0", "0.9.9", 1},
		{"1.2.3", "1.2.4", -1},
		{"2.0.0", "1.99.99", 1},
		{"0.0.0", "0.0.1", -1},
	}

	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			a := MustParse(EncodingSemVer, tt.a)
			b := MustParse(EncodingSemVer, tt.b)

			assert.Equal(t, tt.expect, a.Compare(b))
			assert.Equal(t, -tt.expect, b.Compare(a))
			assert.Equal(t, tt.expect < 0, a.Less(b))
			assert.Equal(t, tt.expect == 0, a.Equal(b))
		})
	}
}

func TestCompare_Sequence(t *testing.T) {
	a := MustParse(EncodingSequence, "2")
	b := MustParse(EncodingSequence, "10")

	assert.Equal(t, -1, a.Compare(b)) // numeric, not lexicographic
	assert.True(t, a.Less(b))
	assert.True(t, a.Equal(MustParse(EncodingSequence, "2")))
}

func TestCompare_IsTotalOrder(t *testing.T) {
	raw := []string{"2.0.0", "0.0.1", "1.10.0", "1.2.0", "0.0.0", "1.2.3"}

	versions := make([]Version, 0, len(raw))
	for _, s := range raw {
		versions = append(versions, MustParse(EncodingSemVer, s))
	}

	sort.Slice(versions, func(i, j int) bool { return versions[i].Less(versions[j]) })

	got := make([]string, 0, len(versions))
	for _, v := range versions {
		got = append(got, v.String())
	}

	assert.Equal(t, []string{"0.0.0", "0.0.1", "1.2.0", "1.2.3", "1.10.0", "2.0.0"}, got)
}

func TestParseEncoding(t *testing.T) {
	enc, err := ParseEncoding("semver")
	require.NoError(t, err)
	assert.Equal(t, EncodingSemVer, enc)

	enc, err = ParseEncoding("sequence")
	require.NoError(t, err)
	assert.Equal(t, EncodingSequence, enc)

	_, err = ParseEncoding("timestamp")
	require.Error(t, err)

	assert.Equal(t, "semver", EncodingSemVer.String())
	assert.Equal(t, "sequence", EncodingSequence.String())
}
