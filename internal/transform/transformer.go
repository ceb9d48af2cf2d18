package transform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/sitewright/sitewright/internal/common"
	"github.com/sitewright/sitewright/internal/interfaces"
	"github.com/sitewright/sitewright/internal/models"
)

var (
	placeholderPattern = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)
	isoDatePattern     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	nonAlnumRuns       = regexp.MustCompile(`[^a-z0-9]+`)
)

// LinkField is the reserved placeholder resolving to the designated link column
const LinkField = "link"

// Transformer converts source rows into URL records according to one
// conversion configuration. It holds no mutable state between files, so a
// single instance may serve concurrent tasks.
type Transformer struct {
	cfg    models.ConversionConfig
	logger arbor.ILogger
}

// New creates a transformer for the given configuration
func New(cfg models.ConversionConfig, logger arbor.ILogger) *Transformer {
	return &Transformer{
		cfg:    cfg,
		logger: logger,
	}
}

// ConvertFile transforms every row of the source into URL records. Row-level
// problems (missing fields, duplicate URLs, invalid dates) are recorded as
// statistics and exclusions, never as errors. The returned set contains each
// resolved URL exactly once, in row order.
func (t *Transformer) ConvertFile(ctx context.Context, fileName string, src interfaces.RowSource) (*models.URLRecordSet, []models.Exclusion, error) {
	iter, err := src.Rows()
	if err != nil {
		return nil, nil, classifySourceError(err, fmt.Sprintf("failed to open rows for %s", fileName))
	}
	defer iter.Close()

	set := &models.URLRecordSet{
		ID:         common.NewRecordSetID(),
		SourceFile: fileName,
		CreatedAt:  time.Now(),
	}

	// Seen set lives for the duration of one file's conversion
	seen := make(map[string]struct{})
	var exclusions []models.Exclusion

	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, models.NewTaskError(models.ErrorCategoryTimeout, fmt.Sprintf("conversion of %s interrupted: %v", fileName, err))
		}

		row, err := iter.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, classifySourceError(err, fmt.Sprintf("failed to read row from %s", fileName))
		}

		set.Stats.TotalRows++

		record, exclusion := t.convertRow(row, seen, &set.Stats)
		if exclusion != nil {
			set.Stats.ExcludedRows++
			exclusions = append(exclusions, *exclusion)
			continue
		}
		if record == nil {
			// Duplicate of an earlier row in the same file
			set.Stats.DuplicateURLs++
			continue
		}

		seen[record.Loc] = struct{}{}
		set.Records = append(set.Records, *record)
		set.Stats.ValidURLs++
	}

	t.logger.Debug().
		Str("file", fileName).
		Int("total", set.Stats.TotalRows).
		Int("valid", set.Stats.ValidURLs).
		Int("excluded", set.Stats.ExcludedRows).
		Int("duplicates", set.Stats.DuplicateURLs).
		Msg("File conversion finished")

	return set, exclusions, nil
}

// convertRow resolves one row into a record, an exclusion, or (nil, nil) for
// a duplicate URL. Invalid lastmod values only drop the field, not the row.
func (t *Transformer) convertRow(row *interfaces.Row, seen map[string]struct{}, stats *models.ConversionStats) (*models.URLRecord, *models.Exclusion) {
	loc, missing := t.resolveTemplate(row)
	if len(missing) > 0 {
		return nil, &models.Exclusion{
			Row:    row.Number,
			Reason: "missing value for fields: " + strings.Join(missing, ", "),
		}
	}

	if _, dup := seen[loc]; dup {
		return nil, nil
	}

	record := &models.URLRecord{
		Loc:        loc,
		GroupKey:   t.groupKey(row),
		ChangeFreq: t.cfg.ChangeFreq,
		Priority:   t.cfg.Priority,
		Row:        row.Number,
	}

	if t.cfg.IncludeLastmod && t.cfg.LastmodField != "" {
		if raw := t.lookup(row, t.cfg.LastmodField); raw != "" {
			if isValidISODate(raw) {
				record.LastMod = raw
			} else {
				stats.InvalidDates++
				t.logger.Debug().
					Int("row", row.Number).
					Msg("Invalid last-modified value, field omitted")
			}
		}
	}

	return record, nil
}

// resolveTemplate substitutes every {field} placeholder in the URL template.
// Empty or whitespace-only values are collected as missing, verbatim in the
// order encountered.
func (t *Transformer) resolveTemplate(row *interfaces.Row) (string, []string) {
	var missing []string

	resolved := placeholderPattern.ReplaceAllStringFunc(t.cfg.URLTemplate, func(match string) string {
		field := match[1 : len(match)-1]
		value := t.lookup(row, field)
		if strings.TrimSpace(value) == "" {
			missing = append(missing, field)
			return ""
		}
		return value
	})

	return resolved, missing
}

// lookup resolves a template field to its row value through the column
// mapping. The reserved "link" field resolves to the designated link column.
func (t *Transformer) lookup(row *interfaces.Row, field string) string {
	column := ""
	if field == LinkField && t.cfg.LinkColumn != "" {
		column = t.cfg.LinkColumn
	} else if mapped, ok := t.cfg.ColumnMapping[field]; ok {
		column = mapped
	}
	if column == "" {
		return ""
	}
	return row.Fields[column]
}

// groupKey derives the record's group key per the configured grouping mode
func (t *Transformer) groupKey(row *interfaces.Row) string {
	field := t.cfg.GroupField()
	if field == "" {
		return models.DefaultGroupKey
	}

	key := SanitizeGroupKey(t.lookup(row, field))
	if key == "" {
		return models.FallbackGroupKey
	}
	return key
}

// SanitizeGroupKey lowercases the value, collapses non-alphanumeric runs to
// single hyphens and trims leading/trailing hyphens. Distinct raw labels
// sanitizing to the same key end up in the same group.
func SanitizeGroupKey(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = nonAlnumRuns.ReplaceAllString(key, "-")
	return strings.Trim(key, "-")
}

// classifySourceError keeps classified collaborator errors intact and wraps
// everything else as a processing failure
func classifySourceError(err error, context string) error {
	var taskErr *models.TaskError
	if errors.As(err, &taskErr) {
		return taskErr
	}
	return models.NewTaskError(models.ErrorCategoryProcessing, fmt.Sprintf("%s: %v", context, err))
}

// isValidISODate accepts only calendar-valid YYYY-MM-DD values
func isValidISODate(value string) bool {
	if !isoDatePattern.MatchString(value) {
		return false
	}
	_, err := time.Parse("2006-01-02", value)
	return err == nil
}
