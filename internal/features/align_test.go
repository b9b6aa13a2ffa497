package features

import (
	"reflect"
	"testing"
)

// =============================================================================
// Alignment Tests
// =============================================================================

func TestAlign_ReorderAndFill(t *testing.T) {
	m := Matrix{
		Columns: []string{"b", "a", "dropme"},
		Rows: [][]float64{
			{2, 1, 9},
			{4, 3, 9},
		},
	}

	out := Align(m, []string{"a", "b", "c"})

	want := Matrix{
		Columns: []string{"a", "b", "c"},
		Rows: [][]float64{
			{1, 2, 0},
			{3, 4, 0},
		},
	}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("Align mismatch:\n got %+v\nwant %+v", out, want)
	}
}

// TestAlign_Total verifies output width always matches the expected list,
// whatever the input shape.
func TestAlign_Total(t *testing.T) {
	expected := []string{"x", "y", "z"}

	cases := []Matrix{
		{},
		{Columns: []string{"x"}, Rows: [][]float64{{1}}},
		{Columns: []string{"p", "q", "r", "s"}, Rows: [][]float64{{1, 2, 3, 4}}},
	}

	for i, m := range cases {
		out := Align(m, expected)
		if len(out.Columns) != len(expected) {
			t.Errorf("case %d: expected %d columns, got %d", i, len(expected), len(out.Columns))
		}
		for j, row := range out.Rows {
			if len(row) != len(expected) {
				t.Errorf("case %d row %d: expected width %d, got %d", i, j, len(expected), len(row))
			}
		}
	}
}

// TestAlign_Idempotent verifies align(align(X, F), F) == align(X, F).
func TestAlign_Idempotent(t *testing.T) {
	m := Matrix{
		Columns: []string{"c", "a"},
		Rows:    [][]float64{{3, 1}, {6, 4}},
	}
	expected := []string{"a", "b", "c"}

	once := Align(m, expected)
	twice := Align(once, expected)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("alignment not idempotent:\n once %+v\ntwice %+v", once, twice)
	}
}

func TestAlign_EmptyExpected(t *testing.T) {
	m := Matrix{Columns: []string{"a"}, Rows: [][]float64{{1}}}

	out := Align(m, nil)

	if len(out.Columns) != 0 {
		t.Errorf("expected zero columns, got %v", out.Columns)
	}
	if len(out.Rows) != 1 || len(out.Rows[0]) != 0 {
		t.Errorf("expected one empty row, got %v", out.Rows)
	}
}
