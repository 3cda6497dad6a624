//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "RFC3339 with Z",
			input: "2024-03-01T09:30:00Z",
			want:  time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		},
		{
			name:  "RFC3339 with offset",
			input: "2024-03-01T11:30:00+02:00",
			want:  time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		},
		{
			name:  "fractional seconds",
			input: "2024-03-01T09:30:00.250Z",
			want:  time.Date(2024, 3, 1, 9, 30, 0, 250_000_000, time.UTC),
		},
		{
			name:  "naive datetime read as UTC",
			input: "2024-03-01T09:30:00",
			want:  time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		},
		{
			name:  "space separated",
			input: "2024-03-01 09:30:00",
			want:  time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		},
		{
			name:  "bare date",
			input: " 2024-03-01 ",
			want:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "yesterday", wantErr: true},
		{name: "US format", input: "03/01/2024", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestTimestamp_Before(t *testing.T) {
	early := TimestampFromString("2024-01-01")
	late := TimestampFromString("2024-02-01")
	bad := TimestampFromString("not a date")

	assert.True(t, early.Before(late))
	assert.False(t, late.Before(early))
	assert.False(t, early.Before(early), "equal instants are not strictly before")
	assert.True(t, late.Before(bad), "valid orders before invalid")
	assert.False(t, bad.Before(early))
	assert.False(t, bad.Before(bad))
}

func TestTimestamp_JSON(t *testing.T) {
	t.Run("valid round trip", func(t *testing.T) {
		ts := NewTimestamp(time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC))
		data, err := json.Marshal(ts)
		require.NoError(t, err)
		assert.Equal(t, `"2024-03-01T09:30:00Z"`, string(data))

		var back Timestamp
		require.NoError(t, json.Unmarshal(data, &back))
		assert.True(t, back.Valid())
		assert.True(t, ts.Time().Equal(back.Time()))
	})

	t.Run("invalid keeps raw text", func(t *testing.T) {
		var ts Timestamp
		require.NoError(t, json.Unmarshal([]byte(`"sometime in May"`), &ts))
		assert.False(t, ts.Valid())
		assert.Equal(t, "sometime in May", ts.String())

		data, err := json.Marshal(ts)
		require.NoError(t, err)
		assert.Equal(t, `"sometime in May"`, string(data))
	})

	t.Run("null is invalid", func(t *testing.T) {
		ts := TimestampFromString("2024-01-01")
		require.NoError(t, json.Unmarshal([]byte(`null`), &ts))
		assert.False(t, ts.Valid())
	})

	t.Run("non-string is an error", func(t *testing.T) {
		var ts Timestamp
		assert.Error(t, json.Unmarshal([]byte(`12345`), &ts))
	})
}

func TestPressRelease_JSON(t *testing.T) {
	id := uuid.MustParse("7f1d7c36-9c2a-4f54-a8d8-2d9a3a0a6d11")
	pr := PressRelease{
		ID:                    id,
		Ticker:                "ACME",
		SourceURL:             "https://acme.example.com/news/q1",
		PressReleaseTimestamp: TimestampFromString("2024-04-10T12:00:00Z"),
		CrawlTimestamp:        time.Date(2024, 4, 11, 0, 0, 0, 0, time.UTC),
		Unprocessed:           true,
	}

	data, err := json.Marshal(pr)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, id.String(), m["id"])
	assert.Equal(t, "2024-04-10T12:00:00Z", m["press_release_timestamp"])
	assert.Equal(t, true, m["unprocessed"])
	assert.NotContains(t, m, "raw_result", "list views omit the crawl payload")
	assert.NotContains(t, m, "title")
}

func TestPressRelease_DisplayTitle(t *testing.T) {
	assert.Equal(t, "Q1 results", (&PressRelease{Title: "Q1 results", SourceURL: "https://x"}).DisplayTitle())
	assert.Equal(t, "https://x", (&PressRelease{SourceURL: "https://x"}).DisplayTitle())
	assert.Equal(t, "Untitled", (&PressRelease{}).DisplayTitle())
}

func TestPressRelease_Content(t *testing.T) {
	assert.Empty(t, (&PressRelease{}).Content())

	pr := &PressRelease{RawResult: &CrawlResult{MainContent: "main"}}
	assert.Equal(t, "main", pr.Content())

	pr.RawResult.MarkdownContent = "# md"
	assert.Equal(t, "# md", pr.Content())
}

func TestNormalizeTicker(t *testing.T) {
	assert.Equal(t, "ACME", NormalizeTicker(" acme "))
	assert.Equal(t, "BRK.B", NormalizeTicker("brk.b"))
	assert.Equal(t, "", NormalizeTicker("   "))
}
