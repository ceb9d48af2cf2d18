package generator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/sitewright/sitewright/internal/models"
)

type memRecordSets struct {
	sets map[string]*models.URLRecordSet
}

func (s *memRecordSets) SaveRecordSet(ctx context.Context, set *models.URLRecordSet) error {
	s.sets[set.ID] = set
	return nil
}

func (s *memRecordSets) GetRecordSet(ctx context.Context, id string) (*models.URLRecordSet, error) {
	set, ok := s.sets[id]
	if !ok {
		return nil, fmt.Errorf("record set not found: %s", id)
	}
	return set, nil
}

func (s *memRecordSets) DeleteRecordSet(ctx context.Context, id string) error { return nil }

func (s *memRecordSets) ListRecordSets(ctx context.Context, batchID string) ([]*models.URLRecordSet, error) {
	return nil, nil
}

type memBlobs struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemBlobs() *memBlobs {
	return &memBlobs{blobs: make(map[string][]byte)}
}

func (s *memBlobs) Save(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = data
	return nil
}

func (s *memBlobs) Load(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, fmt.Errorf("blob not found: %s", key)
	}
	return data, nil
}

func (s *memBlobs) Delete(ctx context.Context, key string) error { return nil }

func (s *memBlobs) List(ctx context.Context, batchID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k := range s.blobs {
		if strings.HasPrefix(k, batchID+"/") {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func testConfig() models.ConversionConfig {
	cfg := models.NewDefaultConversionConfig()
	cfg.URLTemplate = "https://x.com/{link}"
	cfg.LinkColumn = "slug"
	cfg.ColumnMapping = map[string]string{"category": "Category"}
	return cfg
}

func storedSet(n int, group string) *models.URLRecordSet {
	set := &models.URLRecordSet{
		ID:      "set_1",
		BatchID: "batch_1",
	}
	for i := 0; i < n; i++ {
		set.Records = append(set.Records, models.URLRecord{
			Loc:      fmt.Sprintf("https://x.com/%s/%d", group, i),
			GroupKey: group,
			Row:      i + 1,
		})
	}
	set.Stats.ValidURLs = n
	return set
}

func newTestService(sets ...*models.URLRecordSet) (*Service, *memBlobs) {
	records := &memRecordSets{sets: map[string]*models.URLRecordSet{}}
	for _, set := range sets {
		records.sets[set.ID] = set
	}
	blobs := newMemBlobs()
	return NewService(records, blobs, arbor.NewLogger()), blobs
}

func TestGenerateSitemaps_SingleFile(t *testing.T) {
	svc, blobs := newTestService(storedSet(10, models.DefaultGroupKey))

	result, err := svc.GenerateSitemaps(context.Background(), "set_1", testConfig())
	require.NoError(t, err)

	require.Len(t, result.Files, 1)
	assert.Equal(t, "sitemap.xml", result.Files[0].Name)
	assert.Equal(t, 10, result.Files[0].URLCount)
	assert.False(t, result.HasIndex)

	data, err := blobs.Load(context.Background(), "batch_1/set_1/sitemap.xml")
	require.NoError(t, err)
	assert.Contains(t, string(data), "<urlset")
}

func TestGenerateSitemaps_ChunkedWithIndex(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPerFile = 4

	svc, blobs := newTestService(storedSet(10, models.DefaultGroupKey))

	result, err := svc.GenerateSitemaps(context.Background(), "set_1", cfg)
	require.NoError(t, err)

	require.Len(t, result.Files, 3)
	assert.True(t, result.HasIndex)
	assert.Equal(t, "sitemap-index.xml", result.IndexName)

	total := 0
	for _, f := range result.Files {
		total += f.URLCount
		_, err := blobs.Load(context.Background(), "batch_1/set_1/"+f.Name)
		require.NoError(t, err, "chunk %s should be stored", f.Name)
	}
	assert.Equal(t, 10, total)

	index, err := blobs.Load(context.Background(), "batch_1/set_1/sitemap-index.xml")
	require.NoError(t, err)
	assert.Contains(t, string(index), "<sitemapindex")

	keys, err := blobs.List(context.Background(), "batch_1")
	require.NoError(t, err)
	assert.Len(t, keys, 4)
}

func TestPreviewSitemaps_WritesNothing(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPerFile = 4

	svc, blobs := newTestService(storedSet(10, models.DefaultGroupKey))

	result, err := svc.PreviewSitemaps(context.Background(), "set_1", cfg)
	require.NoError(t, err)

	require.Len(t, result.Files, 3)
	assert.True(t, result.HasIndex)

	keys, err := blobs.List(context.Background(), "batch_1")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestGenerateSitemaps_GroupedNaming(t *testing.T) {
	set := storedSet(3, "books")
	set.Records = append(set.Records, storedSet(2, "games").Records...)

	cfg := testConfig()
	cfg.Grouping = "category"

	svc, _ := newTestService(set)
	result, err := svc.GenerateSitemaps(context.Background(), "set_1", cfg)
	require.NoError(t, err)

	require.Len(t, result.Files, 2)
	assert.Equal(t, "sitemap-books-1.xml", result.Files[0].Name)
	assert.Equal(t, "sitemap-games-1.xml", result.Files[1].Name)
	assert.True(t, result.HasIndex)
}

func TestGenerateSitemaps_UnknownRecordSet(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.GenerateSitemaps(context.Background(), "set_missing", testConfig())
	require.Error(t, err)

	var taskErr *models.TaskError
	require.ErrorAs(t, err, &taskErr)
	assert.Equal(t, models.ErrorCategoryStorage, taskErr.Category)
}

func TestGenerateSitemaps_InvalidConfig(t *testing.T) {
	svc, _ := newTestService(storedSet(1, models.DefaultGroupKey))

	cfg := testConfig()
	cfg.MaxPerFile = 0

	_, err := svc.GenerateSitemaps(context.Background(), "set_1", cfg)
	require.Error(t, err)

	var taskErr *models.TaskError
	require.ErrorAs(t, err, &taskErr)
	assert.Equal(t, models.ErrorCategoryValidation, taskErr.Category)
}

func TestGenerateSitemaps_SiblingSetsDoNotCollide(t *testing.T) {
	first := storedSet(2, models.DefaultGroupKey)
	second := storedSet(3, models.DefaultGroupKey)
	second.ID = "set_2"

	svc, blobs := newTestService(first, second)
	ctx := context.Background()

	_, err := svc.GenerateSitemaps(ctx, "set_1", testConfig())
	require.NoError(t, err)
	_, err = svc.GenerateSitemaps(ctx, "set_2", testConfig())
	require.NoError(t, err)

	// Both files share the batch scope and the default document name; each
	// set's output must survive the other's generation
	keys, err := blobs.List(ctx, "batch_1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"batch_1/set_1/sitemap.xml",
		"batch_1/set_2/sitemap.xml",
	}, keys)

	data, err := blobs.Load(ctx, "batch_1/set_1/sitemap.xml")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "<url>"))

	data, err = blobs.Load(ctx, "batch_1/set_2/sitemap.xml")
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(data), "<url>"))
}

func TestGenerateSitemaps_AdHocSetScopesByID(t *testing.T) {
	set := storedSet(2, models.DefaultGroupKey)
	set.BatchID = ""

	svc, blobs := newTestService(set)
	_, err := svc.GenerateSitemaps(context.Background(), "set_1", testConfig())
	require.NoError(t, err)

	_, err = blobs.Load(context.Background(), "set_1/sitemap.xml")
	require.NoError(t, err)
}
