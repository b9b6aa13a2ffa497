package schema

import "strings"

// defaultAliases maps normalized vendor column names to canonical targets.
// Many-to-one; sourced from the log formats observed across Windows event
// logs, syslog shippers, and common SIEM exports.
var defaultAliases = map[string]string{
	// timestamp
	"@timestamp":          ColTimestamp,
	"time":                ColTimestamp,
	"date":                ColTimestamp,
	"datetime":            ColTimestamp,
	"date_time":           ColTimestamp,
	"event_time":          ColTimestamp,
	"event_time_utc":      ColTimestamp,
	"timestamp_utc":       ColTimestamp,
	"timecreated":         ColTimestamp,
	"eventreceivedtime":   ColTimestamp,
	"event_received_time": ColTimestamp,
	"log_time":            ColTimestamp,
	"logtime":             ColTimestamp,
	"created":             ColTimestamp,
	"recorded_time":       ColTimestamp,
	"recordtime":          ColTimestamp,
	// source ip
	"src":            ColSourceIP,
	"src_ip":         ColSourceIP,
	"sip":            ColSourceIP,
	"source":         ColSourceIP,
	"sourceaddress":  ColSourceIP,
	"source_address": ColSourceIP,
	// destination ip
	"dst":                 ColDestinationIP,
	"dst_ip":              ColDestinationIP,
	"dip":                 ColDestinationIP,
	"destination":         ColDestinationIP,
	"destinationaddress":  ColDestinationIP,
	"destination_address": ColDestinationIP,
	// event type
	"event":      ColEventType,
	"eventid":    ColEventType,
	"event_id":   ColEventType,
	"eventtype":  ColEventType,
	"eventname":  ColEventType,
	"event_name": ColEventType,
	"eventcode":  ColEventType,
	"event_code": ColEventType,
	"provider":   ColEventType,
	"task":       ColEventType,
	"opcode":     ColEventType,
	// username
	"user":              ColUsername,
	"user_name":         ColUsername,
	"useraccount":       ColUsername,
	"user_account":      ColUsername,
	"account":           ColUsername,
	"accountname":       ColUsername,
	"account_name":      ColUsername,
	"subjectusername":   ColUsername,
	"subject_user_name": ColUsername,
	"logon_account":     ColUsername,
	// status/outcome
	"result":  ColStatus,
	"outcome": ColStatus,
	"action":  ColStatus,
}

// Canonicalizer renames vendor-specific column names to the canonical
// vocabulary. It is stateless and safe for concurrent use.
type Canonicalizer struct {
	aliases map[string]string
}

// NewCanonicalizer returns a canonicalizer with the built-in alias table.
func NewCanonicalizer() *Canonicalizer {
	return &Canonicalizer{aliases: defaultAliases}
}

// NormalizeName lowercases, trims, and folds spaces/hyphens to underscores.
func NormalizeName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, " ", "_")
	n = strings.ReplaceAll(n, "-", "_")
	return n
}

// Canonicalize returns a copy of t with column names normalized and known
// aliases renamed to their canonical targets. The canonical name always
// wins: an alias whose target is already present in the normalized column
// set is dropped, never allowed to overwrite it. When several aliases of
// the same target appear without the canonical column, the leftmost is
// renamed and the rest are dropped. The precedence is a property of the
// input column set, not of iteration order. Empty tables are returned
// as-is.
func (c *Canonicalizer) Canonicalize(t Table) Table {
	if t.Empty() {
		return t
	}

	normalized := make([]string, len(t.Columns))
	present := make(map[string]bool, len(t.Columns))
	for i, col := range t.Columns {
		normalized[i] = NormalizeName(col)
		present[normalized[i]] = true
	}

	// Decide the fate of each original column: rename, pass through, or
	// drop. Targets already present in the input shadow every alias.
	rename := make(map[string]string, len(t.Columns))
	claimed := make(map[string]bool)
	finalCols := make([]string, 0, len(t.Columns))
	for i, orig := range t.Columns {
		name := normalized[i]
		if target, ok := c.aliases[name]; ok {
			if present[target] || claimed[target] {
				continue // shadowed alias, dropped
			}
			claimed[target] = true
			name = target
		}
		rename[orig] = name
		finalCols = append(finalCols, name)
	}

	rows := make([]Record, len(t.Rows))
	for i, row := range t.Rows {
		out := make(Record, len(row))
		for col, val := range row {
			name, ok := rename[col]
			if !ok {
				continue
			}
			out[name] = val
		}
		rows[i] = out
	}

	return Table{Columns: finalCols, Rows: rows}
}
