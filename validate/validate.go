// Package validate holds the input rules a message must satisfy before it
// can be sent. All functions are pure.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxPayloadLength is the largest payload, in characters, that can be sent.
const MaxPayloadLength = 250

const (
	PayloadReady      = "Message ready to send."
	RecipientCaptured = "Cell phone number successfully captured."
	RecipientInvalid  = "Cell phone number is incorrectly formatted or does not contain an international code. Please correct the number and try again."
)

var (
	idPattern        = regexp.MustCompile(`^[0-9]{10}$`)
	recipientPattern = regexp.MustCompile(`^\+27[0-9]{9}$`)
)

// CheckID reports whether id consists of exactly ten decimal digits.
func CheckID(id string) bool {
	return idPattern.MatchString(id)
}

// PayloadLength returns PayloadReady when the payload fits, otherwise a
// message reporting the excess. A nil payload reports an excess of -250.
func PayloadLength(payload *string) string {
	if payload == nil {
		return exceeds(0 - MaxPayloadLength)
	}
	n := utf8.RuneCountInString(*payload)
	if n <= MaxPayloadLength {
		return PayloadReady
	}
	return exceeds(n - MaxPayloadLength)
}

// PayloadTooLong reports whether payload is over MaxPayloadLength characters.
func PayloadTooLong(payload string) bool {
	return utf8.RuneCountInString(payload) > MaxPayloadLength
}

func exceeds(excess int) string {
	return fmt.Sprintf("Message exceeds %d characters by %d, please reduce size.", MaxPayloadLength, excess)
}

// ValidRecipient reports whether recipient is a South African number in
// international format (+27 followed by nine digits).
func ValidRecipient(recipient string) bool {
	if strings.TrimSpace(recipient) == "" {
		return false
	}
	return recipientPattern.MatchString(recipient)
}

// Recipient returns RecipientCaptured or RecipientInvalid.
func Recipient(recipient string) string {
	if ValidRecipient(recipient) {
		return RecipientCaptured
	}
	return RecipientInvalid
}
