package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/law-makers/pdfharvest/pkg/models"
)

// SaveRecords writes the harvested records to path as pretty-printed JSON,
// replacing any previous content. Tagged output is an array of objects, plain
// output an array of URL strings.
func SaveRecords(path string, records []models.LinkRecord, tagged bool) error {
	var export interface{}
	if tagged {
		export = ensureRecords(records)
	} else {
		urls := make([]string, 0, len(records))
		for _, r := range records {
			urls = append(urls, r.URL)
		}
		export = urls
	}

	content, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	return os.WriteFile(path, content, 0644)
}

// LoadRecords reads a file written by SaveRecords in either shape.
func LoadRecords(path string) ([]models.LinkRecord, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRecords(content)
}

// ParseRecords decodes a plain or tagged record array
func ParseRecords(content []byte) ([]models.LinkRecord, error) {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty record file")
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("record file must hold a JSON array: %w", err)
	}

	records := make([]models.LinkRecord, 0, len(raw))
	for i, item := range raw {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '"' {
			var u string
			if err := json.Unmarshal(item, &u); err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
			records = append(records, models.LinkRecord{URL: u})
			continue
		}
		var rec models.LinkRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if rec.URL == "" {
			return nil, fmt.Errorf("entry %d: missing url", i)
		}
		records = append(records, rec)
	}
	return records, nil
}

// ensureRecords keeps an empty run serialized as [] rather than null
func ensureRecords(records []models.LinkRecord) []models.LinkRecord {
	if records == nil {
		return []models.LinkRecord{}
	}
	return records
}
