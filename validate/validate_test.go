package validate

import (
	"strings"
	"testing"
)

func TestCheckID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"0123456789", true},
		{"9999999999", true},
		{"012345678", false},
		{"01234567890", false},
		{"01234x6789", false},
		{"", false},
		{" 123456789", false},
	}

	for _, tt := range tests {
		if got := CheckID(tt.id); got != tt.want {
			t.Errorf("CheckID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestPayloadLength(t *testing.T) {
	ptr := func(s string) *string { return &s }

	tests := []struct {
		name    string
		payload *string
		want    string
	}{
		{"short", ptr("Hi Mike, can you join us for dinner tonight"), PayloadReady},
		{"empty", ptr(""), PayloadReady},
		{"exact limit", ptr(strings.Repeat("a", 250)), PayloadReady},
		{"one over", ptr(strings.Repeat("a", 251)), "Message exceeds 250 characters by 1, please reduce size."},
		{"fifty over", ptr(strings.Repeat("a", 300)), "Message exceeds 250 characters by 50, please reduce size."},
		{"multibyte counted as characters", ptr(strings.Repeat("é", 250)), PayloadReady},
		{"nil payload", nil, "Message exceeds 250 characters by -250, please reduce size."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PayloadLength(tt.payload); got != tt.want {
				t.Errorf("PayloadLength() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPayloadTooLong(t *testing.T) {
	if PayloadTooLong(strings.Repeat("x", 250)) {
		t.Error("250 characters must fit")
	}
	if !PayloadTooLong(strings.Repeat("x", 251)) {
		t.Error("251 characters must not fit")
	}
}

func TestRecipient(t *testing.T) {
	tests := []struct {
		recipient string
		want      string
	}{
		{"+27123456789", RecipientCaptured},
		{"+27838884567", RecipientCaptured},
		{"0712345678", RecipientInvalid},
		{"+2712345678", RecipientInvalid},
		{"+271234567890", RecipientInvalid},
		{"+28123456789", RecipientInvalid},
		{"invalid", RecipientInvalid},
		{"", RecipientInvalid},
		{"   ", RecipientInvalid},
		{" +27123456789", RecipientInvalid},
	}

	for _, tt := range tests {
		if got := Recipient(tt.recipient); got != tt.want {
			t.Errorf("Recipient(%q) = %q, want %q", tt.recipient, got, tt.want)
		}
		if got := ValidRecipient(tt.recipient); got != (tt.want == RecipientCaptured) {
			t.Errorf("ValidRecipient(%q) = %v", tt.recipient, got)
		}
	}
}
