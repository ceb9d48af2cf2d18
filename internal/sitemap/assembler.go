package sitemap

import (
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/sitewright/sitewright/internal/models"
)

// urlEntry is one <url> element of a sitemap document. Optional elements are
// emitted only when the underlying value is present.
type urlEntry struct {
	XMLName    xml.Name `xml:"url"`
	Loc        string   `xml:"loc"`
	LastMod    string   `xml:"lastmod,omitempty"`
	ChangeFreq string   `xml:"changefreq,omitempty"`
	Priority   string   `xml:"priority,omitempty"`
}

type urlSet struct {
	XMLName xml.Name   `xml:"urlset"`
	Xmlns   string     `xml:"xmlns,attr"`
	URLs    []urlEntry `xml:"url"`
}

type indexEntry struct {
	XMLName xml.Name `xml:"sitemap"`
	Loc     string   `xml:"loc"`
	LastMod string   `xml:"lastmod,omitempty"`
}

type sitemapIndex struct {
	XMLName  xml.Name     `xml:"sitemapindex"`
	Xmlns    string       `xml:"xmlns,attr"`
	Sitemaps []indexEntry `xml:"sitemap"`
}

// RenderSitemap renders one sitemap file into its XML document. Identical
// records always produce byte-identical output.
func RenderSitemap(file *models.SitemapFile) ([]byte, error) {
	doc := urlSet{
		Xmlns: models.SitemapNamespace,
		URLs:  make([]urlEntry, 0, len(file.Records)),
	}

	for _, r := range file.Records {
		entry := urlEntry{
			Loc:        r.Loc,
			LastMod:    r.LastMod,
			ChangeFreq: string(r.ChangeFreq),
		}
		if r.Priority != nil {
			// Shortest representation that round-trips the configured value
			entry.Priority = strconv.FormatFloat(*r.Priority, 'f', -1, 64)
		}
		doc.URLs = append(doc.URLs, entry)
	}

	return marshalDocument(doc)
}

// RenderIndex renders the sitemap index document
func RenderIndex(index *models.SitemapIndex) ([]byte, error) {
	doc := sitemapIndex{
		Xmlns:    models.SitemapNamespace,
		Sitemaps: make([]indexEntry, 0, len(index.Files)),
	}

	for _, name := range index.Files {
		doc.Sitemaps = append(doc.Sitemaps, indexEntry{
			Loc:     name,
			LastMod: index.LastMod,
		})
	}

	return marshalDocument(doc)
}

func marshalDocument(doc interface{}) ([]byte, error) {
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sitemap document: %w", err)
	}

	out := make([]byte, 0, len(xml.Header)+len(body)+1)
	out = append(out, xml.Header...)
	out = append(out, body...)
	out = append(out, '\n')
	return out, nil
}
