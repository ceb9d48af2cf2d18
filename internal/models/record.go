package models

import "time"

// ChangeFreq is the sitemap change frequency hint
type ChangeFreq string

const (
	ChangeFreqAlways  ChangeFreq = "always"
	ChangeFreqHourly  ChangeFreq = "hourly"
	ChangeFreqDaily   ChangeFreq = "daily"
	ChangeFreqWeekly  ChangeFreq = "weekly"
	ChangeFreqMonthly ChangeFreq = "monthly"
	ChangeFreqYearly  ChangeFreq = "yearly"
	ChangeFreqNever   ChangeFreq = "never"
)

// IsValid returns true if the change frequency is one of the protocol values
func (c ChangeFreq) IsValid() bool {
	switch c {
	case ChangeFreqAlways, ChangeFreqHourly, ChangeFreqDaily, ChangeFreqWeekly,
		ChangeFreqMonthly, ChangeFreqYearly, ChangeFreqNever:
		return true
	}
	return false
}

// URLRecord is one fully-resolved sitemap entry produced from a source row.
// LastMod is empty when the source row carried no usable date.
type URLRecord struct {
	Loc        string     `json:"loc"`
	GroupKey   string     `json:"group_key"`
	LastMod    string     `json:"lastmod,omitempty"` // YYYY-MM-DD
	ChangeFreq ChangeFreq `json:"changefreq,omitempty"`
	Priority   *float64   `json:"priority,omitempty"`
	Row        int        `json:"row"` // 1-based originating row number
}

// ConversionStats accumulates per-file conversion counters.
// Row-level problems (missing fields, duplicates, bad dates) are recorded
// here and never raised as errors.
type ConversionStats struct {
	TotalRows     int `json:"total_rows"`
	ValidURLs     int `json:"valid_urls"`
	ExcludedRows  int `json:"excluded_rows"`
	DuplicateURLs int `json:"duplicate_urls"`
	InvalidDates  int `json:"invalid_dates"`
}

// Add merges another stats value into this one
func (s *ConversionStats) Add(other ConversionStats) {
	s.TotalRows += other.TotalRows
	s.ValidURLs += other.ValidURLs
	s.ExcludedRows += other.ExcludedRows
	s.DuplicateURLs += other.DuplicateURLs
	s.InvalidDates += other.InvalidDates
}

// URLRecordSet is the result of converting one source file. Location strings
// are unique within Records; duplicates encountered during conversion are
// counted in Stats but never stored twice.
type URLRecordSet struct {
	ID         string          `json:"id"`
	BatchID    string          `json:"batch_id,omitempty"`
	TaskID     string          `json:"task_id,omitempty"`
	SourceFile string          `json:"source_file"`
	Records    []URLRecord     `json:"records"`
	Stats      ConversionStats `json:"stats"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Size returns the number of unique, valid records in the set
func (s *URLRecordSet) Size() int {
	return len(s.Records)
}

// Exclusion describes a row dropped during conversion with a human-readable
// reason. Exclusions are metadata, not errors.
type Exclusion struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}
