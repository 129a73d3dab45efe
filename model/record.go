package model

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
)

// Status is the lifecycle state of a Record.
type Status string

const (
	StatusNew         Status = "New"
	StatusSent        Status = "Sent"
	StatusStored      Status = "Stored"
	StatusDisregarded Status = "Disregarded"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusSent, StatusStored, StatusDisregarded:
		return true
	}
	return false
}

// Record represents a single chat message addressed to a phone number.
type Record struct {
	ID        string
	Recipient string
	Payload   string
	Index     int
	Hash      string
	Status    Status
}

// IDGenerator returns a fresh message id.
type IDGenerator func() string

// RandomID returns a zero padded 10 digit id. Ids are not checked for uniqueness.
func RandomID() string {
	return fmt.Sprintf("%010d", rand.Int64N(10_000_000_000))
}

// NewRecord creates a record in the New state. A nil gen falls back to RandomID.
func NewRecord(recipient, payload string, gen IDGenerator) *Record {
	if gen == nil {
		gen = RandomID
	}
	return &Record{
		ID:        gen(),
		Recipient: recipient,
		Payload:   payload,
		Status:    StatusNew,
	}
}

// IDNotification is shown to the user right after a record is created.
func (r *Record) IDNotification() string {
	return "Message ID generated: " + r.ID
}

// Dispatched reports whether the record has been given a dispatch index.
func (r *Record) Dispatched() bool {
	return r.Index != 0
}

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]`)

// isSeparator matches the ASCII whitespace that splits payload words. Other
// Unicode spaces, such as U+00A0, stay part of a word.
func isSeparator(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

// IsBlank reports whether s holds nothing but ASCII spaces and control
// characters.
func IsBlank(s string) bool {
	return strings.TrimFunc(s, func(r rune) bool { return r <= ' ' }) == ""
}

// MakeHash builds the mnemonic fingerprint "{id[0:2]}:{index}:{FIRST}{LAST}".
// It returns an empty string when id is shorter than two characters.
func MakeHash(id string, index int, payload string) string {
	if len(id) < 2 {
		return ""
	}

	prefix := id[:2] + ":" + strconv.Itoa(index) + ":"
	words := strings.FieldsFunc(payload, isSeparator)
	if len(words) == 0 {
		return strings.ToUpper(prefix)
	}

	first := nonAlphanumeric.ReplaceAllString(words[0], "")
	last := nonAlphanumeric.ReplaceAllString(words[len(words)-1], "")
	return strings.ToUpper(prefix + first + last)
}
