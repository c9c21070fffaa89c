package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
		ok       bool
	}{
		{"ISO", "1967-01-01", "1967-01-01", true},
		{"UK slashes", "01/03/1968", "1968-03-01", true},
		{"UK dashes", "25-12-1971", "1971-12-25", true},
		{"ISO slashes", "1985/06/30", "1985-06-30", true},
		{"long form", "2 January 1969", "1969-01-02", true},
		{"US long form", "January 2, 1969", "1969-01-02", true},
		{"whitespace", "  1967-01-01  ", "1967-01-01", true},
		{"empty", "", "", false},
		{"garbage", "not a date", "", false},
		{"partial", "1967", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseDateField(t *testing.T) {
	logger := testLogger()

	t.Run("first matching key wins", func(t *testing.T) {
		props := Properties{"DateListed": "01/03/1968"}
		got := parseDateField(props, logger, "ListDate", "DateListed")
		require.NotNil(t, got)
		assert.Equal(t, "1968-03-01", *got)
	})

	t.Run("absent key", func(t *testing.T) {
		assert.Nil(t, parseDateField(Properties{}, logger, "ListDate"))
	})

	t.Run("unparseable value", func(t *testing.T) {
		props := Properties{"ListDate": "circa 1900"}
		assert.Nil(t, parseDateField(props, logger, "ListDate"))
	})
}
