package timefmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	for _, tc := range []struct {
		name string
		in   string
		want int32
		err  bool
	}{
		{"midnight", "00:00:00", 0, false},
		{"morning", "08:30:00", 8*3600 + 30*60, false},
		{"post_midnight", "25:10:00", 25*3600 + 10*60, false},
		{"bad_format", "08:30", 0, true},
		{"bad_hour", "xx:30:00", 0, true},
		{"bad_minute", "08:xx:00", 0, true},
		{"minute_out_of_range", "08:60:00", 0, true},
		{"second_out_of_range", "08:00:60", 0, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseClock(tc.in)
			if tc.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "08:30:00", FormatSeconds(8*3600+30*60))
	assert.Equal(t, "25:10:05", FormatSeconds(25*3600+10*60+5))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "3 min 5 s", FormatDuration(3*60+5))
}

func TestParseClockFormatSecondsRoundTrip(t *testing.T) {
	secs, err := ParseClock("14:22:07")
	require.NoError(t, err)
	assert.Equal(t, "14:22:07", FormatSeconds(secs))
}
