package utils

import "testing"

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in      string
		region  string
		want    string
		wantErr bool
	}{
		{"98480 22338", "IN", "+919848022338", false},
		{"+91 98480-22338", "IN", "+919848022338", false},
		{"12345", "IN", "", true},
		{"", "IN", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizePhone(tt.in, tt.region)
		if tt.wantErr {
			if !IsKind(err, KindValidation) {
				t.Errorf("NormalizePhone(%q) expected validation error, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizePhone(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
