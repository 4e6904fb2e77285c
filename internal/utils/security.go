package utils

import "strings"

// MaskPhoneNumber hides the subscriber part of a phone number for logging.
// The country digit and the last two digits stay visible.
//
// Examples:
//   - "79991234567" -> "7********67"
//   - "12345" -> "****"
func MaskPhoneNumber(phone string) string {
	if len(phone) <= 6 {
		return "****"
	}
	return phone[:1] + strings.Repeat("*", len(phone)-3) + phone[len(phone)-2:]
}

// MaskSecret keeps only the first four characters of an API hash or
// challenge token
func MaskSecret(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:4] + "****"
}
