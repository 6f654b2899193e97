package parser

import (
	"testing"

	"github.com/lkhoram/patrascan/models"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "awaiting delivery with extra spaces",
			input:    "در انتظار  تحویل",
			expected: "در انتظار تحویل",
		},
		{
			name:     "awaiting delivery with words between",
			input:    "در انتظار ارسال و تحویل",
			expected: "در انتظار تحویل",
		},
		{
			name:     "collected",
			input:    "وصولی",
			expected: "وصولی",
		},
		{
			name:     "collected inside sentence",
			input:    "سفارش وصولی شد",
			expected: "وصولی",
		},
		{
			name:     "final cancellation",
			input:    "کنسل نهایی",
			expected: "کنسل نهایی",
		},
		{
			name:     "short cancellation spelling",
			input:    "کنسلی",
			expected: "کنسل نهایی",
		},
		{
			name:     "withdrawal",
			input:    "انصرافی هماهنگی",
			expected: "انصرافی هماهنگی",
		},
		{
			name:     "bare withdrawal",
			input:    "انصرافی",
			expected: "انصرافی هماهنگی",
		},
		{
			name:     "arabic lookalike letters folded",
			input:    "وصولي",
			expected: "وصولی",
		},
		{
			name:     "uncategorized stays normalized",
			input:    "  در حال  بررسی ",
			expected: "در حال بررسی",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
		{
			name:     "whitespace only",
			input:    "   ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeStatus(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeStatus(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalizeStatusIdempotent(t *testing.T) {
	inputs := []string{
		"در انتظار  تحویل",
		"وصولي",
		"کنسلی",
		"انصرافی",
		"متن آزاد",
		"",
	}
	for _, input := range inputs {
		once := NormalizeStatus(input)
		twice := NormalizeStatus(once)
		if once != twice {
			t.Errorf("NormalizeStatus not idempotent for %q: %q != %q", input, once, twice)
		}
	}
}

func TestValidateRecord(t *testing.T) {
	tests := []struct {
		name    string
		record  *models.CustomerRecord
		wantErr bool
	}{
		{
			name:    "valid record",
			record:  &models.CustomerRecord{Name: "علی رضایی", Mobile: "09120000000"},
			wantErr: false,
		},
		{
			name:    "mobile only",
			record:  &models.CustomerRecord{Mobile: "09120000000"},
			wantErr: false,
		},
		{
			name:    "blank identity",
			record:  &models.CustomerRecord{Name: "  ", Mobile: "\t"},
			wantErr: true,
		},
		{
			name:    "nil record",
			record:  nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecord(tt.record)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRecord() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPickLabel(t *testing.T) {
	values := map[string]string{
		"شماره موبایل": "",
		"موبایل":       "09121112233",
	}
	if got := PickLabel(values, "شماره موبایل", "موبایل", "تلفن همراه"); got != "09121112233" {
		t.Fatalf("PickLabel = %q, want fallback value", got)
	}
	if got := PickLabel(values, "نام"); got != "" {
		t.Fatalf("PickLabel = %q, want empty for absent labels", got)
	}
}

func TestStripSpaces(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "ascii whitespace",
			input:    "تاریخ  ثبت\n",
			expected: "تاریخثبت",
		},
		{
			name:     "non-breaking space",
			input:    "تاریخ\u00a0ثبت",
			expected: "تاریخثبت",
		},
		{
			name:     "thin space",
			input:    "وضعیت\u2009مشتری",
			expected: "وضعیتمشتری",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripSpaces(tt.input); got != tt.expected {
				t.Errorf("StripSpaces(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
