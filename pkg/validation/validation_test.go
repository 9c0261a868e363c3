package validation

import (
	"math"
	"strings"
	"testing"
)

func TestValidateReportID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"generated id", "report_3f2a9c1d0e8b4a7f9c6d5e4f3a2b1c0d", false},
		{"short id", "r1", false},
		{"empty", "", true},
		{"path traversal", "../etc", true},
		{"spaces", "report 1", true},
		{"too long", strings.Repeat("a", 101), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateReportID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateReportID() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateAlertKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"known key", "dropped-frames", false},
		{"unknown but well formed", "unknown", false},
		{"empty", "", true},
		{"upper case", "High-CPU", true},
		{"trailing dash", "high-", true},
		{"double dash", "high--cpu", true},
		{"too long", strings.Repeat("a", 65), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAlertKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAlertKey() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateBitrate(t *testing.T) {
	tests := []struct {
		name    string
		kbps    float64
		wantErr bool
	}{
		{"typical", 4500, false},
		{"fractional", 0.5, false},
		{"max", MaxBitrate, false},
		{"zero", 0, true},
		{"negative", -100, true},
		{"nan", math.NaN(), true},
		{"inf", math.Inf(1), true},
		{"too high", MaxBitrate + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBitrate(tt.kbps)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBitrate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{"5", 5, false},
		{"500", 500, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseLimit(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLimit(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLimit(%q) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestValidateServerURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"http", "http://localhost:8080", false},
		{"https with path", "https://pulse.example.com/base", false},
		{"empty", "", true},
		{"websocket scheme", "ws://localhost:8080", true},
		{"no host", "http://", true},
		{"garbage", "://bad", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateServerURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateServerURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
