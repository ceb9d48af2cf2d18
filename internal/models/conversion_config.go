package models

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Grouping mode constants. Any other non-empty Grouping value names the
// mapped field whose sanitized column value becomes the group key.
const (
	GroupingNone     = "none"     // single constant group
	GroupingAuto     = "auto"     // ignore group fields, split by position
	GroupingPreserve = "preserve" // honor the mapped "group" column per row
)

// DefaultGroupKey is the group key assigned when grouping is disabled
const DefaultGroupKey = "sitemap"

// FallbackGroupKey is used when a grouping field resolves to an empty or
// unusable value
const FallbackGroupKey = "uncategorized"

// ConversionConfig controls how rows become URL records and how records
// become sitemap files. Immutable once a batch starts.
type ConversionConfig struct {
	// ColumnMapping maps template field names to source column headers
	ColumnMapping map[string]string `json:"column_mapping" toml:"column_mapping" validate:"required,min=1"`

	// LinkColumn is the source column the {link} placeholder resolves to
	LinkColumn string `json:"link_column" toml:"link_column"`

	// URLTemplate contains {field} placeholders resolved per row
	URLTemplate string `json:"url_template" toml:"url_template" validate:"required"`

	// Grouping is none|auto|preserve or an explicit mapped field name
	Grouping string `json:"grouping" toml:"grouping"`

	// MaxPerFile bounds the record count of one sitemap file
	MaxPerFile int `json:"max_per_file" toml:"max_per_file" validate:"min=1,max=50000"`

	// IncludeLastmod enables lastmod extraction from LastmodField
	IncludeLastmod bool   `json:"include_lastmod" toml:"include_lastmod"`
	LastmodField   string `json:"lastmod_field" toml:"lastmod_field"`

	// Fixed optional sitemap attributes applied to every record
	ChangeFreq ChangeFreq `json:"changefreq,omitempty" toml:"changefreq" validate:"omitempty,oneof=always hourly daily weekly monthly yearly never"`
	Priority   *float64   `json:"priority,omitempty" toml:"priority" validate:"omitempty,min=0,max=1"`

	// Scheduler bounds
	MaxConcurrentFiles int `json:"max_concurrent_files" toml:"max_concurrent_files" validate:"min=1,max=10"`
	RetryAttempts      int `json:"retry_attempts" toml:"retry_attempts" validate:"min=0,max=5"`
	TimeoutMs          int `json:"timeout_ms" toml:"timeout_ms" validate:"min=30000,max=600000"`
}

var configValidator = validator.New()

// NewDefaultConversionConfig returns a configuration with sensible defaults.
// ColumnMapping and URLTemplate must still be supplied by the caller.
func NewDefaultConversionConfig() ConversionConfig {
	return ConversionConfig{
		Grouping:           GroupingNone,
		MaxPerFile:         50000,
		MaxConcurrentFiles: 3,
		RetryAttempts:      2,
		TimeoutMs:          120000,
	}
}

// Validate checks option bounds and enum membership
func (c *ConversionConfig) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid conversion config: %w", err)
	}
	return nil
}

// Timeout returns the per-task timeout as a duration
func (c *ConversionConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// GroupField returns the mapped field name driving grouping, or empty when
// grouping is positional or disabled. Preserve mode reads the "group" field.
func (c *ConversionConfig) GroupField() string {
	switch c.Grouping {
	case "", GroupingNone, GroupingAuto:
		return ""
	case GroupingPreserve:
		return "group"
	default:
		return c.Grouping
	}
}

// GroupsByField returns true when records carry meaningful group keys
func (c *ConversionConfig) GroupsByField() bool {
	return c.GroupField() != ""
}
