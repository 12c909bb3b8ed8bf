package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestJSONTimeUnmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{`"2025-05-16T15:32:25Z"`, time.Date(2025, 5, 16, 15, 32, 25, 0, time.UTC)},
		{`"2025-05-16T21:02:25+05:30"`, time.Date(2025, 5, 16, 15, 32, 25, 0, time.UTC)},
		{`"2025-05-16T15:32:25.181226"`, time.Date(2025, 5, 16, 15, 32, 25, 181226000, time.UTC)},
		{`"2025-05-16T15:32:25.000"`, time.Date(2025, 5, 16, 15, 32, 25, 0, time.UTC)},
		{`"2025-05-16T15:32:25"`, time.Date(2025, 5, 16, 15, 32, 25, 0, time.UTC)},
		{`"2025-05-16"`, time.Date(2025, 5, 16, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		var jt JSONTime
		if err := json.Unmarshal([]byte(tt.in), &jt); err != nil {
			t.Errorf("unmarshal %s: %v", tt.in, err)
			continue
		}
		if !jt.Time().Equal(tt.want) {
			t.Errorf("unmarshal %s = %v, want %v", tt.in, jt.Time(), tt.want)
		}
	}

	var bad JSONTime
	if err := json.Unmarshal([]byte(`"16/05/2025"`), &bad); err == nil {
		t.Error("expected error for unsupported layout")
	}
}

func TestJSONTimeMarshalAndScan(t *testing.T) {
	jt := JSONTime(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	b, err := json.Marshal(jt)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"2025-01-02T03:04:05Z"` {
		t.Errorf("marshal = %s", b)
	}

	var scanned JSONTime
	if err := scanned.Scan("2025-01-02 03:04:05+00:00"); err != nil {
		t.Fatalf("scan sqlite layout: %v", err)
	}
	if !scanned.Time().Equal(jt.Time()) {
		t.Errorf("scan = %v, want %v", scanned.Time(), jt.Time())
	}
	if err := scanned.Scan(nil); err != nil || !scanned.IsZero() {
		t.Errorf("scan nil should give zero time, got %v (%v)", scanned.Time(), err)
	}
	if err := scanned.Scan(42); err == nil {
		t.Error("expected error scanning an int")
	}
}
