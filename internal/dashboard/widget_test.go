package dashboard

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/crmimport/internal/store"
)

var keyPattern = regexp.MustCompile(`^dashboard\.widget\.[0-9]*_[0-9a-f]{16}$`)

func TestCacheKey(t *testing.T) {
	w := Widget{ID: 12, Type: "lead.created", Params: map[string]any{"b": 2, "a": 1}}

	k1 := cacheKey(w, 99)
	assert.Regexp(t, keyPattern, k1)
	assert.Contains(t, k1, "dashboard.widget.12_")

	same := Widget{ID: 12, Type: "lead.created", Params: map[string]any{"a": 1, "b": 2}}
	assert.Equal(t, k1, cacheKey(same, 99), "param order must not matter")
	assert.NotEqual(t, k1, cacheKey(w, 100), "keys are per user")
	assert.NotEqual(t, k1, cacheKey(Widget{ID: 12, Type: "lead.created"}, 99), "keys depend on params")

	assert.Regexp(t, `^dashboard\.widget\._[0-9a-f]{16}$`, cacheKey(Widget{}, 99))
}

func TestDetail_CacheRoundTrip(t *testing.T) {
	f := NewFactory(8, time.Hour)
	w := Widget{ID: 1, Type: "lead.created"}

	d := f.Create(w, 99)
	assert.False(t, d.IsCached())
	assert.True(t, d.SetTemplateData(map[string]any{"total": 3}, false))

	again := f.Create(w, 99)
	require.True(t, again.IsCached())
	assert.Equal(t, map[string]any{"total": 3}, again.TemplateData())

	assert.False(t, f.Create(w, 7).IsCached(), "other users do not share the cache")
}

func TestDetail_SkipCache(t *testing.T) {
	f := NewFactory(8, time.Hour)
	w := Widget{ID: 1, Type: "lead.created"}

	d := f.Create(w, 1)
	assert.False(t, d.SetTemplateData(map[string]any{"total": 1}, true))
	assert.Equal(t, map[string]any{"total": 1}, d.TemplateData())
	assert.False(t, f.Create(w, 1).IsCached())
}

func TestDetail_WidgetTimeout(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	f := NewFactory(8, time.Hour)
	f.now = func() time.Time { return now }
	w := Widget{ID: 1, Type: "lead.created", CacheTimeout: time.Minute}

	f.Create(w, 1).SetTemplateData(map[string]any{"total": 1}, false)

	now = now.Add(30 * time.Second)
	assert.True(t, f.Create(w, 1).IsCached())

	now = now.Add(time.Minute)
	assert.False(t, f.Create(w, 1).IsCached())
}

func TestFormatDateParam(t *testing.T) {
	ts := time.Date(2024, 3, 15, 8, 30, 0, 0, time.UTC)

	got, err := FormatDateParam(ts)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15 08:30:00", got)

	got, err = FormatDateParam(&ts)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15 08:30:00", got)

	for _, v := range []any{"2024-03-15", nil, (*time.Time)(nil), 42} {
		_, err := FormatDateParam(v)
		assert.ErrorIs(t, err, ErrCouldNotFormatDateTime)
	}
	assert.Equal(t, "cannot format date parameter as a string", ErrCouldNotFormatDateTime.Error())
}

type countingSource struct {
	calls int
	rows  []store.ImportSummary
}

func (s *countingSource) SummarizeImports(context.Context, time.Time, time.Time) ([]store.ImportSummary, error) {
	s.calls++
	return s.rows, nil
}

func TestImportSummary_Render(t *testing.T) {
	src := &countingSource{rows: []store.ImportSummary{
		{Kind: "companies", Runs: 2, Inserted: 10, Merged: 3, Failed: 1},
		{Kind: "contacts", Runs: 1, Inserted: 5, Merged: 0, Failed: 2},
	}}
	w := NewImportSummary(NewFactory(8, time.Hour), src)
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	ctx := context.Background()

	data, cached, err := w.Render(ctx, 1, from, to)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 15, data["inserted"])
	assert.Equal(t, 3, data["merged"])
	assert.Equal(t, 3, data["failed"])
	assert.Equal(t, "2024-03-01 00:00:00", data["dateFrom"])

	_, cached, err = w.Render(ctx, 1, from, to)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 1, src.calls)
}
