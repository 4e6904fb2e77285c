package utils

import "testing"

func TestMaskPhoneNumber(t *testing.T) {
	tests := []struct {
		name     string
		phone    string
		expected string
	}{
		{
			name:     "Normalized phone number",
			phone:    "79991234567",
			expected: "7********67",
		},
		{
			name:     "Exactly 6 characters",
			phone:    "123456",
			expected: "****",
		},
		{
			name:     "7 characters (first valid to mask)",
			phone:    "1234567",
			expected: "1****67",
		},
		{
			name:     "Empty string",
			phone:    "",
			expected: "****",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MaskPhoneNumber(tt.phone)
			if result != tt.expected {
				t.Errorf("MaskPhoneNumber(%q) = %q, want %q", tt.phone, result, tt.expected)
			}
		})
	}
}

func TestMaskSecret(t *testing.T) {
	if got := MaskSecret("0123456789abcdef"); got != "0123****" {
		t.Errorf("MaskSecret() = %q", got)
	}
	if got := MaskSecret("abc"); got != "****" {
		t.Errorf("MaskSecret(short) = %q", got)
	}
}
