package sitemap

import (
	"fmt"
	"time"

	"github.com/sitewright/sitewright/internal/models"
	"github.com/sitewright/sitewright/internal/transform"
)

const (
	// DefaultSitemapName is used when exactly one group produces exactly one chunk
	DefaultSitemapName = "sitemap.xml"

	// IndexName is the name of the generated sitemap index document
	IndexName = "sitemap-index.xml"
)

// Chunker partitions a URL record set into groups and size-bounded chunks.
// It is a pure function of its inputs and safe for concurrent use.
type Chunker struct {
	cfg models.ConversionConfig
}

// NewChunker creates a chunker for the given configuration
func NewChunker(cfg models.ConversionConfig) *Chunker {
	return &Chunker{cfg: cfg}
}

type recordGroup struct {
	key     string
	records []models.URLRecord
}

// Partition splits the records into an ordered list of sitemap files. Every
// record lands in exactly one file, chunk membership and names are stable
// across re-runs, and no file exceeds the configured max-per-file bound.
func (c *Chunker) Partition(records []models.URLRecord) []models.SitemapFile {
	groups := c.groupRecords(records)

	var files []models.SitemapFile
	for _, group := range groups {
		chunks := splitChunks(group.records, c.cfg.MaxPerFile)
		for i, chunk := range chunks {
			files = append(files, models.SitemapFile{
				GroupKey:   group.key,
				ChunkIndex: i + 1,
				Records:    chunk,
			})
		}
	}

	if len(files) == 1 {
		files[0].Name = DefaultSitemapName
	} else {
		for i := range files {
			files[i].Name = FileName(files[i].GroupKey, files[i].ChunkIndex)
		}
	}

	return files
}

// BuildIndex returns an index referencing every file, or nil when a single
// file needs none
func (c *Chunker) BuildIndex(files []models.SitemapFile, now time.Time) *models.SitemapIndex {
	if len(files) <= 1 {
		return nil
	}

	index := &models.SitemapIndex{
		Name:    IndexName,
		LastMod: now.Format("2006-01-02"),
	}
	for _, f := range files {
		index.Files = append(index.Files, f.Name)
	}
	return index
}

// groupRecords partitions by group key in first-appearance order. The none
// and auto modes ignore per-record keys and keep the original sequence as a
// single synthetic group, so auto splitting is purely positional.
func (c *Chunker) groupRecords(records []models.URLRecord) []recordGroup {
	if !c.cfg.GroupsByField() {
		if len(records) == 0 {
			return nil
		}
		return []recordGroup{{key: models.DefaultGroupKey, records: records}}
	}

	byKey := make(map[string]int)
	var groups []recordGroup
	for _, r := range records {
		// Keys are sanitized at transform time; sanitize again so records
		// from other producers still merge on collision
		key := transform.SanitizeGroupKey(r.GroupKey)
		if key == "" {
			key = models.FallbackGroupKey
		}
		idx, ok := byKey[key]
		if !ok {
			idx = len(groups)
			byKey[key] = idx
			groups = append(groups, recordGroup{key: key})
		}
		groups[idx].records = append(groups[idx].records, r)
	}
	return groups
}

// splitChunks slices records into consecutive chunks of at most maxPerChunk,
// preserving relative order
func splitChunks(records []models.URLRecord, maxPerChunk int) [][]models.URLRecord {
	if len(records) == 0 {
		return nil
	}

	var chunks [][]models.URLRecord
	for start := 0; start < len(records); start += maxPerChunk {
		end := start + maxPerChunk
		if end > len(records) {
			end = len(records)
		}
		chunks = append(chunks, records[start:end])
	}
	return chunks
}

// FileName derives the deterministic name for a group/chunk pair. The
// default group key is elided so positional chunking yields sitemap-1.xml,
// sitemap-2.xml and so on.
func FileName(groupKey string, chunkIndex int) string {
	if groupKey == "" || groupKey == models.DefaultGroupKey {
		return fmt.Sprintf("sitemap-%d.xml", chunkIndex)
	}
	return fmt.Sprintf("sitemap-%s-%d.xml", groupKey, chunkIndex)
}
