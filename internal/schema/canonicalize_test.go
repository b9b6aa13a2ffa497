package schema

import "testing"

// =============================================================================
// Name Normalization Tests
// =============================================================================

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"Source IP", "source_ip"},
		{"  Event-Time  ", "event_time"},
		{"USERNAME", "username"},
		{"dst-ip", "dst_ip"},
		{"already_fine", "already_fine"},
	}

	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.expected {
			t.Errorf("NormalizeName(%q): expected %q, got %q", tt.in, tt.expected, got)
		}
	}
}

// =============================================================================
// Alias Mapping Tests
// =============================================================================

// TestCanonicalize_AliasesMapToTarget verifies every alias renames to its
// canonical target and the alias name disappears from the output.
func TestCanonicalize_AliasesMapToTarget(t *testing.T) {
	c := NewCanonicalizer()

	for alias, target := range defaultAliases {
		table := Table{
			Columns: []string{alias},
			Rows:    []Record{{alias: "value"}},
		}

		out := c.Canonicalize(table)

		if len(out.Columns) != 1 || out.Columns[0] != target {
			t.Errorf("alias %q: expected column %q, got %v", alias, target, out.Columns)
			continue
		}
		if out.Rows[0].String(target) != "value" {
			t.Errorf("alias %q: value not carried to %q", alias, target)
		}
		if out.Rows[0].Has(alias) && alias != target {
			t.Errorf("alias %q still present after canonicalization", alias)
		}
	}
}

// TestCanonicalize_CanonicalWins verifies an explicitly named canonical
// column is never overwritten by an alias.
func TestCanonicalize_CanonicalWins(t *testing.T) {
	c := NewCanonicalizer()

	table := Table{
		Columns: []string{"src", "source_ip"},
		Rows: []Record{
			{"src": "1.2.3.4", "source_ip": "10.0.0.1"},
		},
	}

	out := c.Canonicalize(table)

	if len(out.Columns) != 1 || out.Columns[0] != "source_ip" {
		t.Fatalf("expected only source_ip to survive, got %v", out.Columns)
	}
	if out.Rows[0].String("source_ip") != "10.0.0.1" {
		t.Errorf("canonical value overwritten: got %q", out.Rows[0].String("source_ip"))
	}
	// The shadowed alias is dropped, never merged.
	if out.Rows[0].Has("src") {
		t.Errorf("shadowed alias should be dropped, got %v", out.Rows[0])
	}
}

// TestCanonicalize_CanonicalWinsRegardlessOfOrder verifies the precedence
// rule does not depend on which column appears first.
func TestCanonicalize_CanonicalWinsRegardlessOfOrder(t *testing.T) {
	c := NewCanonicalizer()

	table := Table{
		Columns: []string{"source_ip", "sip"},
		Rows: []Record{
			{"source_ip": "10.0.0.1", "sip": "1.2.3.4"},
		},
	}

	out := c.Canonicalize(table)

	if out.Rows[0].String("source_ip") != "10.0.0.1" {
		t.Errorf("canonical value overwritten: got %q", out.Rows[0].String("source_ip"))
	}
}

// TestCanonicalize_FirstAliasClaims verifies that with two aliases of the
// same target and no canonical column, the leftmost is renamed and the
// rest are dropped.
func TestCanonicalize_FirstAliasClaims(t *testing.T) {
	c := NewCanonicalizer()

	table := Table{
		Columns: []string{"src", "sip"},
		Rows: []Record{
			{"src": "1.1.1.1", "sip": "2.2.2.2"},
		},
	}

	out := c.Canonicalize(table)

	if len(out.Columns) != 1 || out.Columns[0] != "source_ip" {
		t.Fatalf("expected only source_ip to survive, got %v", out.Columns)
	}
	if out.Rows[0].String("source_ip") != "1.1.1.1" {
		t.Errorf("expected leftmost alias to claim source_ip, got %q", out.Rows[0].String("source_ip"))
	}
	if out.Rows[0].Has("sip") {
		t.Errorf("trailing alias should be dropped, got %v", out.Rows[0])
	}
}

// =============================================================================
// Pass-Through and Edge Cases
// =============================================================================

func TestCanonicalize_UnknownColumnsPassThrough(t *testing.T) {
	c := NewCanonicalizer()

	table := Table{
		Columns: []string{"Custom Field", "severity"},
		Rows:    []Record{{"Custom Field": "x", "severity": "high"}},
	}

	out := c.Canonicalize(table)

	if out.Columns[0] != "custom_field" || out.Columns[1] != "severity" {
		t.Errorf("unexpected columns: %v", out.Columns)
	}
	if out.Rows[0].String("custom_field") != "x" {
		t.Errorf("unknown column value lost: %v", out.Rows[0])
	}
}

func TestCanonicalize_EmptyTableIsIdentity(t *testing.T) {
	c := NewCanonicalizer()

	empty := Table{}
	if out := c.Canonicalize(empty); !out.Empty() {
		t.Errorf("empty table should stay empty, got %v", out)
	}

	noRows := Table{Columns: []string{"src"}}
	if out := c.Canonicalize(noRows); !out.Empty() {
		t.Errorf("zero-row table should pass through, got %v", out)
	}
}

// TestCanonicalize_SpacedVendorName covers the "Source IP" → source_ip
// end-to-end rename with values intact.
func TestCanonicalize_SpacedVendorName(t *testing.T) {
	c := NewCanonicalizer()

	table := Table{
		Columns: []string{"Source IP"},
		Rows: []Record{
			{"Source IP": "192.0.2.7"},
			{"Source IP": "198.51.100.9"},
		},
	}

	out := c.Canonicalize(table)

	if out.Columns[0] != "source_ip" {
		t.Fatalf("expected source_ip column, got %v", out.Columns)
	}
	if out.Rows[0].String("source_ip") != "192.0.2.7" || out.Rows[1].String("source_ip") != "198.51.100.9" {
		t.Errorf("values not preserved: %v", out.Rows)
	}
}

// TestCanonicalize_AlreadyCanonicalIsNoOp verifies canonical input passes
// through unchanged.
func TestCanonicalize_AlreadyCanonicalIsNoOp(t *testing.T) {
	c := NewCanonicalizer()

	table := Table{
		Columns: CanonicalColumns,
		Rows: []Record{{
			ColTimestamp:     "2025-11-03T10:15:00Z",
			ColSourceIP:      "10.0.0.5",
			ColDestinationIP: "185.199.108.153",
			ColEventType:     "login_failure",
			ColUsername:      "alice",
			ColStatus:        "failed",
		}},
	}

	out := c.Canonicalize(table)

	for i, col := range CanonicalColumns {
		if out.Columns[i] != col {
			t.Errorf("column %d: expected %q, got %q", i, col, out.Columns[i])
		}
	}
	if out.Rows[0].String(ColUsername) != "alice" {
		t.Errorf("row mutated: %v", out.Rows[0])
	}
}

// TestCanonicalize_DoesNotMutateInput verifies the transform is pure.
func TestCanonicalize_DoesNotMutateInput(t *testing.T) {
	c := NewCanonicalizer()

	row := Record{"Source IP": "1.2.3.4"}
	table := Table{Columns: []string{"Source IP"}, Rows: []Record{row}}

	_ = c.Canonicalize(table)

	if table.Columns[0] != "Source IP" {
		t.Errorf("input columns mutated: %v", table.Columns)
	}
	if !row.Has("Source IP") {
		t.Errorf("input row mutated: %v", row)
	}
}
