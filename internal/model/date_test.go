package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDateJSONRoundTrip(t *testing.T) {
	d := MustDate("2026-03-10")
	b, err := json.Marshal(d)
	require.NoError(t, err)
	require.Equal(t, `"2026-03-10"`, string(b))

	var got Date
	require.NoError(t, json.Unmarshal(b, &got))
	require.True(t, got.Equal(d))
}

func TestDateUnmarshalRejectsGarbage(t *testing.T) {
	var d Date
	require.Error(t, json.Unmarshal([]byte(`"10/03/2026"`), &d))
	require.Error(t, json.Unmarshal([]byte(`20260310`), &d))
}

func TestDateOfTruncatesToUTCDay(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	// 01:30 IST on March 11 is still March 10 in UTC.
	d := DateOf(time.Date(2026, 3, 11, 1, 30, 0, 0, loc))
	require.Equal(t, "2026-03-10", d.String())
}

func TestDateArithmetic(t *testing.T) {
	d := MustDate("2026-03-10")
	require.Equal(t, "2026-02-08", d.AddDays(-30).String())
	require.Equal(t, 68, d.DaysSince(MustDate("2026-01-01")))
	require.True(t, MustDate("2026-03-09").Before(d))
	require.True(t, d.After(MustDate("2026-03-09")))
	require.Equal(t, "2026-03", d.MonthKey())
}

func TestValidTimeOfDay(t *testing.T) {
	require.True(t, ValidTimeOfDay("06:00:00"))
	require.True(t, ValidTimeOfDay("23:59:59"))
	require.False(t, ValidTimeOfDay("24:00:00"))
	require.False(t, ValidTimeOfDay("6:00"))
	require.False(t, ValidTimeOfDay(""))
}
