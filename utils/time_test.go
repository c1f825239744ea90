package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogTime(t *testing.T) {
	want := time.Date(2024, 3, 1, 9, 5, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value string
		want  *time.Time
	}{
		{name: "space separated", value: "2024-03-01 09:05:00", want: &want},
		{name: "padded", value: "  2024-03-01 09:05:00 ", want: &want},
		{name: "rfc3339 with offset", value: "2024-03-01T12:35:00+03:30", want: &want},
		{name: "T separated without zone", value: "2024-03-01T09:05:00", want: &want},
		{name: "minutes only", value: "2024-03-01 09:05", want: &want},
		{name: "us style", value: "03/01/2024 09:05:00", want: &want},
		{name: "us style short", value: "3/1/2024 09:05", want: &want},
		{name: "empty", value: ""},
		{name: "garbage", value: "yesterday"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseLogTime(tt.value)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	t.Run("date only", func(t *testing.T) {
		got := ParseLogTime("2024-03-01")
		require.NotNil(t, got)
		assert.True(t, got.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	})
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2024-02-29 ")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", d.Format(DateLayout))

	_, err = ParseDate("2023-02-29")
	assert.Error(t, err)
	_, err = ParseDate("29/02/2024")
	assert.Error(t, err)
}

func TestMinMaxTime(t *testing.T) {
	a := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	b := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	c := time.Date(2024, 2, 28, 9, 0, 0, 0, time.UTC)

	earliest, latest := MinMaxTime([]*time.Time{&a, nil, &b, &c})
	require.NotNil(t, earliest)
	require.NotNil(t, latest)
	assert.True(t, earliest.Equal(c))
	assert.True(t, latest.Equal(b))

	earliest, latest = MinMaxTime([]*time.Time{nil, nil})
	assert.Nil(t, earliest)
	assert.Nil(t, latest)
}

func TestTimeToUTCPtr(t *testing.T) {
	assert.Nil(t, TimeToUTCPtr(nil))

	local := time.Date(2024, 3, 1, 12, 30, 0, 0, time.FixedZone("IRST", 3*3600+1800))
	got := TimeToUTCPtr(&local)
	require.NotNil(t, got)
	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, 9, got.Hour())
}
