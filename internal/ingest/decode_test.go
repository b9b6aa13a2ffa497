package ingest

import (
	"errors"
	"strings"
	"testing"
)

func TestDecodeCSV_Basic(t *testing.T) {
	input := "Source IP,Event Type,status\n10.0.0.1,login_failure,failed\n10.0.0.2,port_scan,\n"

	table, err := DecodeCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("DecodeCSV failed: %v", err)
	}

	if len(table.Columns) != 3 || table.Columns[0] != "Source IP" {
		t.Errorf("unexpected columns: %v", table.Columns)
	}
	if table.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", table.Len())
	}
	if table.Rows[0]["Event Type"] != "login_failure" {
		t.Errorf("unexpected cell: %v", table.Rows[0]["Event Type"])
	}
	// Empty cells stay absent so feature defaults apply.
	if table.Rows[1].Has("status") {
		t.Error("empty CSV cell should be an absent key")
	}
}

func TestDecodeCSV_EmptyInput(t *testing.T) {
	_, err := DecodeCSV(strings.NewReader(""))
	if !errors.Is(err, ErrEmptyBatch) {
		t.Errorf("expected ErrEmptyBatch, got %v", err)
	}
}

func TestDecodeCSV_HeaderOnly(t *testing.T) {
	_, err := DecodeCSV(strings.NewReader("a,b,c\n"))
	if !errors.Is(err, ErrEmptyBatch) {
		t.Errorf("expected ErrEmptyBatch, got %v", err)
	}
}

func TestDecodeJSON_Basic(t *testing.T) {
	input := `[
		{"source_ip": "10.0.0.1", "event_type": "login_failure"},
		{"source_ip": "10.0.0.2", "status": "failed"}
	]`

	table, err := DecodeJSON(strings.NewReader(input))
	if err != nil {
		t.Fatalf("DecodeJSON failed: %v", err)
	}

	// Sorted union of keys.
	want := []string{"event_type", "source_ip", "status"}
	if len(table.Columns) != len(want) {
		t.Fatalf("unexpected columns: %v", table.Columns)
	}
	for i, col := range want {
		if table.Columns[i] != col {
			t.Errorf("column %d: expected %s, got %s", i, col, table.Columns[i])
		}
	}
	if table.Rows[0].String("event_type") != "login_failure" {
		t.Errorf("unexpected cell: %v", table.Rows[0]["event_type"])
	}
	if table.Rows[0].Has("status") {
		t.Error("missing JSON key should be an absent key")
	}
}

func TestDecodeJSON_NullBecomesAbsent(t *testing.T) {
	table, err := DecodeJSON(strings.NewReader(`[{"source_ip": null, "status": "ok"}]`))
	if err != nil {
		t.Fatalf("DecodeJSON failed: %v", err)
	}
	if table.Rows[0].Has("source_ip") {
		t.Error("null value should be an absent key")
	}
}

func TestDecodeJSON_EmptyArray(t *testing.T) {
	_, err := DecodeJSON(strings.NewReader(`[]`))
	if !errors.Is(err, ErrEmptyBatch) {
		t.Errorf("expected ErrEmptyBatch, got %v", err)
	}
}

func TestDecodeJSON_Malformed(t *testing.T) {
	_, err := DecodeJSON(strings.NewReader(`{"not": "an array"}`))
	if err == nil {
		t.Error("expected decode error for non-array input")
	}
}
