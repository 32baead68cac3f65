package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSequenceNumber(t *testing.T) {
	t.Parallel()

	cases := []struct {
		year int
		seq  int64
		want string
	}{
		{2024, 1, "ENV-2024-001"},
		{2024, 42, "ENV-2024-042"},
		{2025, 999, "ENV-2025-999"},
		{2025, 1000, "ENV-2025-1000"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatSequenceNumber(tc.year, tc.seq))
	}
}

func TestNextSequenceNumber(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		previous  string
		year      int
		reset     bool
		want      string
		malformed bool
	}{
		{name: "empty store", previous: "", year: 2024, want: "ENV-2024-001"},
		{name: "increment", previous: "ENV-2024-007", year: 2024, want: "ENV-2024-008"},
		{name: "past 999", previous: "ENV-2024-999", year: 2024, want: "ENV-2024-1000"},
		{name: "garbage", previous: "garbage", year: 2024, want: "ENV-2024-001", malformed: true},
		{name: "two parts", previous: "ENV-2024", year: 2024, want: "ENV-2024-001", malformed: true},
		{name: "non numeric suffix", previous: "ENV-2024-abc", year: 2024, want: "ENV-2024-001", malformed: true},
		{name: "four parts", previous: "ENV-2024-001-x", year: 2024, want: "ENV-2024-001", malformed: true},
		{name: "new year continues", previous: "ENV-2024-057", year: 2025, want: "ENV-2025-058"},
		{name: "new year resets", previous: "ENV-2024-057", year: 2025, reset: true, want: "ENV-2025-001"},
		{name: "same year with reset", previous: "ENV-2025-003", year: 2025, reset: true, want: "ENV-2025-004"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := NextSequenceNumber(tc.previous, tc.year, tc.reset)
			assert.Equal(t, tc.want, got)
			if tc.malformed {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseSequenceNumber(t *testing.T) {
	t.Parallel()

	year, seq, err := ParseSequenceNumber("ENV-2024-012")
	require.NoError(t, err)
	assert.Equal(t, 2024, year)
	assert.Equal(t, int64(12), seq)

	_, _, err = ParseSequenceNumber("ENV-twenty-012")
	assert.Error(t, err)
}
