package transform

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/sitewright/sitewright/internal/interfaces"
	"github.com/sitewright/sitewright/internal/models"
)

// sliceSource is an in-memory RowSource for tests
type sliceSource struct {
	headers []string
	rows    []map[string]string
}

func (s *sliceSource) Headers() []string { return s.headers }

func (s *sliceSource) Rows() (interfaces.RowIterator, error) {
	return &sliceIterator{rows: s.rows}, nil
}

type sliceIterator struct {
	rows []map[string]string
	pos  int
}

func (it *sliceIterator) Next() (*interfaces.Row, error) {
	if it.pos >= len(it.rows) {
		return nil, io.EOF
	}
	it.pos++
	return &interfaces.Row{Number: it.pos, Fields: it.rows[it.pos-1]}, nil
}

func (it *sliceIterator) Close() error { return nil }

func baseConfig() models.ConversionConfig {
	cfg := models.NewDefaultConversionConfig()
	cfg.URLTemplate = "https://x.com{url}"
	cfg.ColumnMapping = map[string]string{"url": "url"}
	return cfg
}

func convert(t *testing.T, cfg models.ConversionConfig, rows []map[string]string) (*models.URLRecordSet, []models.Exclusion) {
	t.Helper()
	src := &sliceSource{headers: []string{"url"}, rows: rows}
	tr := New(cfg, arbor.NewLogger())
	set, exclusions, err := tr.ConvertFile(context.Background(), "test.csv", src)
	require.NoError(t, err)
	return set, exclusions
}

func TestConvertFile_DuplicateURLs(t *testing.T) {
	set, _ := convert(t, baseConfig(), []map[string]string{
		{"url": "/a"},
		{"url": "/a"},
		{"url": "/b"},
	})

	assert.Equal(t, 3, set.Stats.TotalRows)
	assert.Equal(t, 2, set.Stats.ValidURLs)
	assert.Equal(t, 1, set.Stats.DuplicateURLs)
	assert.Equal(t, 0, set.Stats.ExcludedRows)

	require.Len(t, set.Records, 2)
	assert.Equal(t, "https://x.com/a", set.Records[0].Loc)
	assert.Equal(t, "https://x.com/b", set.Records[1].Loc)
}

func TestConvertFile_MissingFieldExcludesRow(t *testing.T) {
	cfg := baseConfig()
	cfg.URLTemplate = "https://x.com/{section}/{url}"
	cfg.ColumnMapping = map[string]string{"url": "url", "section": "section"}

	src := &sliceSource{
		headers: []string{"url", "section"},
		rows: []map[string]string{
			{"url": "/a", "section": "docs"},
			{"url": "  ", "section": ""},
		},
	}
	tr := New(cfg, arbor.NewLogger())
	set, exclusions, err := tr.ConvertFile(context.Background(), "test.csv", src)
	require.NoError(t, err)

	assert.Equal(t, 1, set.Stats.ValidURLs)
	assert.Equal(t, 1, set.Stats.ExcludedRows)
	require.Len(t, exclusions, 1)
	assert.Equal(t, 2, exclusions[0].Row)
	// Missing field names appear verbatim, in template order
	assert.Equal(t, "missing value for fields: section, url", exclusions[0].Reason)
}

func TestConvertFile_LinkPlaceholder(t *testing.T) {
	cfg := baseConfig()
	cfg.URLTemplate = "https://x.com/p/{link}"
	cfg.LinkColumn = "slug"
	cfg.ColumnMapping = map[string]string{"url": "url"}

	src := &sliceSource{
		headers: []string{"slug"},
		rows:    []map[string]string{{"slug": "widget-1"}},
	}
	tr := New(cfg, arbor.NewLogger())
	set, _, err := tr.ConvertFile(context.Background(), "test.csv", src)
	require.NoError(t, err)

	require.Len(t, set.Records, 1)
	assert.Equal(t, "https://x.com/p/widget-1", set.Records[0].Loc)
}

func TestConvertFile_InvalidLastmodOmitsFieldOnly(t *testing.T) {
	cfg := baseConfig()
	cfg.IncludeLastmod = true
	cfg.LastmodField = "updated"
	cfg.ColumnMapping = map[string]string{"url": "url", "updated": "updated"}

	src := &sliceSource{
		headers: []string{"url", "updated"},
		rows: []map[string]string{
			{"url": "/a", "updated": "2026-01-15"},
			{"url": "/b", "updated": "15/01/2026"},
			{"url": "/c", "updated": "2026-02-30"}, // not a calendar date
			{"url": "/d", "updated": ""},
		},
	}
	tr := New(cfg, arbor.NewLogger())
	set, _, err := tr.ConvertFile(context.Background(), "test.csv", src)
	require.NoError(t, err)

	assert.Equal(t, 4, set.Stats.ValidURLs)
	assert.Equal(t, 2, set.Stats.InvalidDates)
	require.Len(t, set.Records, 4)
	assert.Equal(t, "2026-01-15", set.Records[0].LastMod)
	assert.Empty(t, set.Records[1].LastMod)
	assert.Empty(t, set.Records[2].LastMod)
	assert.Empty(t, set.Records[3].LastMod)
}

func TestConvertFile_GroupKeys(t *testing.T) {
	cfg := baseConfig()
	cfg.Grouping = "category"
	cfg.ColumnMapping = map[string]string{"url": "url", "category": "category"}

	src := &sliceSource{
		headers: []string{"url", "category"},
		rows: []map[string]string{
			{"url": "/a", "category": "Sports & Outdoors"},
			{"url": "/b", "category": "---"},
			{"url": "/c", "category": "Books"},
		},
	}
	tr := New(cfg, arbor.NewLogger())
	set, _, err := tr.ConvertFile(context.Background(), "test.csv", src)
	require.NoError(t, err)

	require.Len(t, set.Records, 3)
	assert.Equal(t, "sports-outdoors", set.Records[0].GroupKey)
	assert.Equal(t, models.FallbackGroupKey, set.Records[1].GroupKey)
	assert.Equal(t, "books", set.Records[2].GroupKey)
}

func TestConvertFile_PreserveGroupingReadsGroupColumn(t *testing.T) {
	cfg := baseConfig()
	cfg.Grouping = models.GroupingPreserve
	cfg.ColumnMapping = map[string]string{"url": "url", "group": "Segment"}

	src := &sliceSource{
		headers: []string{"url", "Segment"},
		rows: []map[string]string{
			{"url": "/a", "Segment": "News & Media"},
			{"url": "/b", "Segment": ""},
			{"url": "/c", "Segment": "Archive"},
		},
	}
	tr := New(cfg, arbor.NewLogger())
	set, _, err := tr.ConvertFile(context.Background(), "test.csv", src)
	require.NoError(t, err)

	require.Len(t, set.Records, 3)
	assert.Equal(t, "news-media", set.Records[0].GroupKey)
	assert.Equal(t, models.FallbackGroupKey, set.Records[1].GroupKey)
	assert.Equal(t, "archive", set.Records[2].GroupKey)
}

func TestConvertFile_PreserveGroupingUnmappedFallsBack(t *testing.T) {
	cfg := baseConfig()
	cfg.Grouping = models.GroupingPreserve
	// No "group" entry in the mapping: every row lands in the fallback group

	set, _ := convert(t, cfg, []map[string]string{{"url": "/a"}})
	require.Len(t, set.Records, 1)
	assert.Equal(t, models.FallbackGroupKey, set.Records[0].GroupKey)
}

func TestConvertFile_GroupingNoneUsesConstantKey(t *testing.T) {
	set, _ := convert(t, baseConfig(), []map[string]string{{"url": "/a"}})
	require.Len(t, set.Records, 1)
	assert.Equal(t, models.DefaultGroupKey, set.Records[0].GroupKey)
}

func TestConvertFile_FixedAttributes(t *testing.T) {
	cfg := baseConfig()
	cfg.ChangeFreq = models.ChangeFreqWeekly
	priority := 0.8
	cfg.Priority = &priority

	set, _ := convert(t, cfg, []map[string]string{{"url": "/a"}})
	require.Len(t, set.Records, 1)
	assert.Equal(t, models.ChangeFreqWeekly, set.Records[0].ChangeFreq)
	require.NotNil(t, set.Records[0].Priority)
	assert.Equal(t, 0.8, *set.Records[0].Priority)
}

func TestSanitizeGroupKey(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Books", "books"},
		{"Sports & Outdoors", "sports-outdoors"},
		{"  Home/Garden  ", "home-garden"},
		{"--weird--", "weird"},
		{"___", ""},
		{"", ""},
		{"Ähnlich", "hnlich"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeGroupKey(tt.raw), "raw=%q", tt.raw)
	}
}

func TestConvertFile_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &sliceSource{headers: []string{"url"}, rows: []map[string]string{{"url": "/a"}}}
	tr := New(baseConfig(), arbor.NewLogger())
	_, _, err := tr.ConvertFile(ctx, "test.csv", src)
	require.Error(t, err)

	var taskErr *models.TaskError
	require.ErrorAs(t, err, &taskErr)
	assert.Equal(t, models.ErrorCategoryTimeout, taskErr.Category)
}
