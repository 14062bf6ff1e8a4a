package language

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en-us", "en-us"},
		{"EN_US", "en-us"},
		{"en", "en"},
		{"de-DE", "de-de"},
		{"pt-br", "pt-br"},
		// ISO 639-2 codes collapse to their 2-letter form.
		{"eng", "en"},
		{"ger", "de"},
		{"fra", "fr"},
		// English names.
		{"English", "en"},
		{" spanish ", "es"},
	}
	for _, tt := range tests {
		got, err := Normalize(tt.input)
		if err != nil {
			t.Errorf("Normalize(%q) error: %v", tt.input, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "   ", "not a language", "12345"} {
		if got, err := Normalize(input); err == nil {
			t.Errorf("Normalize(%q) = %q, expected error", input, got)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "English"},
		{"fre", "French"},
		{"", "Unknown"},
		{"???", "???"},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.input); got != tt.expected {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
