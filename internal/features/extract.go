// Package features derives the numeric feature matrix consumed by the risk
// classifier from canonicalized event tables, and aligns arbitrary feature
// sets to a classifier's trained column order.
package features

import (
	"errors"
	"fmt"
	"net/netip"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/socforge/socassist/internal/schema"
)

// ErrNotTabular marks a caller contract violation: the input is not a
// well-formed table (e.g. nil rows inside a non-empty row set). Malformed
// individual values never trigger it.
var ErrNotTabular = errors.New("input is not tabular")

// BaseNumericFeatures lists the fixed numeric features, in matrix order.
var BaseNumericFeatures = []string{
	"hour",
	"is_weekend",
	"src_is_private",
	"dst_is_private",
	"src_ip_int",
	"dst_ip_int",
}

// CategoricalFeatures lists the columns that are one-hot encoded per batch.
var CategoricalFeatures = []string{
	schema.ColEventType,
	schema.ColUsername,
	schema.ColStatus,
}

// Matrix is a fixed-width numeric feature table. Every row has exactly
// len(Columns) values; cells are never NaN.
type Matrix struct {
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

// Len returns the number of rows.
func (m Matrix) Len() int { return len(m.Rows) }

// Row returns a single-row matrix for row i, sharing the column list.
func (m Matrix) Row(i int) Matrix {
	return Matrix{Columns: m.Columns, Rows: m.Rows[i : i+1]}
}

// timestampLayouts are tried in order when parsing event timestamps.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
	time.RFC1123,
	time.RFC1123Z,
}

// parseTimestamp parses a cell value as a calendar timestamp in UTC.
// Numeric values are treated as Unix seconds. Returns ok=false when the
// value is absent or unparsable.
func parseTimestamp(v any) (time.Time, bool) {
	switch tv := v.(type) {
	case nil:
		return time.Time{}, false
	case float64:
		return time.Unix(int64(tv), 0).UTC(), true
	case int64:
		return time.Unix(tv, 0).UTC(), true
	case string:
		s := strings.TrimSpace(tv)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UTC(), true
			}
		}
		if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Unix(secs, 0).UTC(), true
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// ipToFloat returns the unsigned integer form of an IP address as a
// float64. IPv4 values are exact; IPv6 values fold big-endian into the
// float64 mantissa and lose precision above 2^53, which is acceptable for
// a feature column. Unparsable input returns 0.
func ipToFloat(ip string) float64 {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return 0
	}
	var v float64
	for _, b := range addr.AsSlice() {
		v = v*256 + float64(b)
	}
	return v
}

// ipIsPrivate reports whether an IP is non-routable in the RFC1918/4193
// sense, including loopback and link-local, matching the privacy flag the
// classifier was trained on. Unparsable input returns false.
func ipIsPrivate(ip string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	return addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast()
}

// categoricalValue resolves the encoding value for a categorical cell:
// absent and nil cells become "unknown"; everything else is stringified.
func categoricalValue(r schema.Record, col string) string {
	v, ok := r[col]
	if !ok || v == nil {
		return "unknown"
	}
	switch tv := v.(type) {
	case string:
		return tv
	default:
		return fmt.Sprintf("%v", tv)
	}
}

// boolToFloat is the 0/1 encoding used for flag features.
func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Extract derives the model-ready feature matrix from a canonicalized
// table: six numeric base features followed by batch-local one-hot
// encodings of the categorical columns. Malformed timestamps and IPs
// default to zero-valued features; missing categorical columns encode as
// "unknown". The encoding vocabulary is local to this batch — route the
// result through Align before handing it to a trained classifier.
func Extract(t schema.Table) (Matrix, error) {
	for _, row := range t.Rows {
		if row == nil {
			return Matrix{}, fmt.Errorf("%w: nil row", ErrNotTabular)
		}
	}

	// Batch-local one-hot vocabulary, sorted per column for determinism.
	vocab := make(map[string][]string, len(CategoricalFeatures))
	for _, col := range CategoricalFeatures {
		seen := make(map[string]bool)
		for _, row := range t.Rows {
			seen[categoricalValue(row, col)] = true
		}
		values := make([]string, 0, len(seen))
		for v := range seen {
			values = append(values, v)
		}
		sort.Strings(values)
		vocab[col] = values
	}

	columns := make([]string, 0, len(BaseNumericFeatures))
	columns = append(columns, BaseNumericFeatures...)
	for _, col := range CategoricalFeatures {
		for _, v := range vocab[col] {
			columns = append(columns, col+"_"+v)
		}
	}

	rows := make([][]float64, len(t.Rows))
	for i, row := range t.Rows {
		vec := make([]float64, 0, len(columns))

		ts, tsOK := parseTimestamp(row[schema.ColTimestamp])
		hour, weekend := 0.0, 0.0
		if tsOK {
			hour = float64(ts.Hour())
			wd := ts.Weekday()
			weekend = boolToFloat(wd == time.Saturday || wd == time.Sunday)
		}
		srcIP := row.String(schema.ColSourceIP)
		dstIP := row.String(schema.ColDestinationIP)

		vec = append(vec,
			hour,
			weekend,
			boolToFloat(ipIsPrivate(srcIP)),
			boolToFloat(ipIsPrivate(dstIP)),
			ipToFloat(srcIP),
			ipToFloat(dstIP),
		)

		for _, col := range CategoricalFeatures {
			val := categoricalValue(row, col)
			for _, v := range vocab[col] {
				vec = append(vec, boolToFloat(v == val))
			}
		}

		rows[i] = vec
	}

	return Matrix{Columns: columns, Rows: rows}, nil
}
