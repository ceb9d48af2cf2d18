package models

// SitemapNamespace is the sitemap protocol XML namespace
const SitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// SitemapFile is one size-bounded chunk of a group's URL records, rendered
// as a single sitemap document. Count never exceeds the configured
// max-per-file bound.
type SitemapFile struct {
	Name       string      `json:"name"`
	GroupKey   string      `json:"group_key"`
	ChunkIndex int         `json:"chunk_index"` // 1-based within the group
	Records    []URLRecord `json:"records"`
}

// Count returns the number of records in the file
func (f *SitemapFile) Count() int {
	return len(f.Records)
}

// SitemapIndex references every sitemap file produced for one run. It is
// generated if and only if more than one file exists.
type SitemapIndex struct {
	Name    string   `json:"name"`
	Files   []string `json:"files"`
	LastMod string   `json:"lastmod"` // generation date, YYYY-MM-DD
}

// GeneratedFile summarizes one produced sitemap document
type GeneratedFile struct {
	Name     string `json:"name"`
	URLCount int    `json:"url_count"`
}

// GenerateResult is the outcome of a generate or preview run
type GenerateResult struct {
	Files     []GeneratedFile `json:"files"`
	HasIndex  bool            `json:"has_index"`
	IndexName string          `json:"index_name,omitempty"`
}
