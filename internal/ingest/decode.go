// Package ingest decodes uploaded event batches into the tabular model.
// Two wire formats are accepted: CSV with a header row, and a JSON array
// of flat objects.
package ingest

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/socforge/socassist/internal/schema"
)

// ErrEmptyBatch marks an upload that decodes to zero rows.
var ErrEmptyBatch = errors.New("batch contains no rows")

// DecodeCSV reads a CSV document with a header row into a Table. Cell
// values stay strings; empty cells become absent keys so downstream
// feature defaults apply uniformly.
func DecodeCSV(r io.Reader) (schema.Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return schema.Table{}, ErrEmptyBatch
	}
	if err != nil {
		return schema.Table{}, fmt.Errorf("reading CSV header: %w", err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	var rows []schema.Record
	for {
		cells, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return schema.Table{}, fmt.Errorf("reading CSV row %d: %w", len(rows)+2, err)
		}

		rec := make(schema.Record, len(columns))
		for i, cell := range cells {
			if i >= len(columns) || cell == "" {
				continue
			}
			rec[columns[i]] = cell
		}
		rows = append(rows, rec)
	}

	if len(rows) == 0 {
		return schema.Table{}, ErrEmptyBatch
	}
	return schema.Table{Columns: columns, Rows: rows}, nil
}

// DecodeJSON reads a JSON array of flat objects into a Table. The column
// set is the sorted union of keys across all rows, so decoding is
// deterministic regardless of per-row key order.
func DecodeJSON(r io.Reader) (schema.Table, error) {
	var raw []map[string]any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return schema.Table{}, fmt.Errorf("decoding JSON batch: %w", err)
	}
	if len(raw) == 0 {
		return schema.Table{}, ErrEmptyBatch
	}

	seen := make(map[string]struct{})
	for _, obj := range raw {
		for k := range obj {
			seen[k] = struct{}{}
		}
	}
	columns := make([]string, 0, len(seen))
	for k := range seen {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	rows := make([]schema.Record, len(raw))
	for i, obj := range raw {
		rec := make(schema.Record, len(obj))
		for k, v := range obj {
			if v == nil {
				continue
			}
			rec[k] = v
		}
		rows[i] = rec
	}

	return schema.Table{Columns: columns, Rows: rows}, nil
}
