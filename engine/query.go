package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dhcgn/quickchat/model"
	"github.com/dhcgn/quickchat/stats"
)

const (
	MsgNoneSent        = "No messages have been sent yet."
	MsgNoLongest       = "No messages have been sent or stored to determine the longest."
	MsgNoSentReport    = "No sent messages to report."
	MsgAskID           = "Please provide a message ID to search."
	MsgAskRecipient    = "Please provide a recipient number to search."
	MsgAskHash         = "Please provide a message hash to delete."
	unknownSenderLabel = "Unknown"
)

// AllSentInfo lists sender and recipient of every sent record. The sender is
// the active display name.
func (e *Engine) AllSentInfo() string {
	sent := e.view(bySent)
	if len(sent) == 0 {
		return MsgNoneSent
	}

	sender := e.displayName
	if sender == "" {
		sender = unknownSenderLabel
	}

	var sb strings.Builder
	sb.WriteString("--- All Sent Messages ---\n")
	for _, ent := range sent {
		fmt.Fprintf(&sb, "Sender: %s, Recipient: %s\n", sender, ent.rec.Recipient)
	}
	return sb.String()
}

// LongestMessage returns the longest payload among sent and stored records,
// counting each record once. The first record seen wins a tie.
func (e *Engine) LongestMessage() string {
	candidates := e.sentAndStored()
	if len(candidates) == 0 {
		return MsgNoLongest
	}

	longest, most := "", 0
	for _, ent := range candidates {
		if n := utf8.RuneCountInString(ent.rec.Payload); n > most {
			longest, most = ent.rec.Payload, n
		}
	}
	return longest
}

// FindByID looks the id up among sent records, then stored records.
func (e *Engine) FindByID(id string) string {
	if model.IsBlank(id) {
		return MsgAskID
	}

	for _, source := range []struct {
		label string
		pick  func(*entry) int
	}{
		{"Sent", bySent},
		{"Stored", byStored},
	} {
		for _, ent := range e.view(source.pick) {
			if ent.rec.ID == id {
				return fmt.Sprintf("Message Found (%s):\nRecipient: %s\nMessage: \"%s\"",
					source.label, ent.rec.Recipient, ent.rec.Payload)
			}
		}
	}

	return "No message found with ID: " + id
}

// FindByRecipient lists every sent or stored record addressed to recipient,
// sent records first.
func (e *Engine) FindByRecipient(recipient string) string {
	if model.IsBlank(recipient) {
		return MsgAskRecipient
	}

	var sb strings.Builder
	found := false
	for _, ent := range e.sentAndStored() {
		if ent.rec.Recipient != recipient {
			continue
		}
		if !found {
			fmt.Fprintf(&sb, "--- Messages for Recipient: %s ---\n", recipient)
			found = true
		}
		fmt.Fprintf(&sb, "%s: \"%s\"\n", ent.rec.Status, ent.rec.Payload)
	}

	if !found {
		return "No messages found for recipient: " + recipient
	}
	return sb.String()
}

// DeleteByHash removes the first record with the given hash, searching sent,
// stored and disregarded records in that order. The record leaves every view
// and its file is deleted when it has one.
func (e *Engine) DeleteByHash(hash string) string {
	if model.IsBlank(hash) {
		return MsgAskHash
	}

	var target *entry
	for _, pick := range []func(*entry) int{bySent, byStored, byDisregarded} {
		for _, ent := range e.view(pick) {
			if ent.rec.Hash == hash {
				target = ent
				break
			}
		}
		if target != nil {
			break
		}
	}

	if target == nil {
		return fmt.Sprintf("Message with hash %s not found.", hash)
	}

	rec := target.rec
	delete(e.entries, rec)

	if target.stored > 0 || target.persisted {
		if err := e.store.Remove(*rec); err != nil {
			e.emit(stats.Event{Stage: stats.StageEngine, Type: stats.EventTypeError, MessageID: rec.ID, Err: err})
			if e.logger != nil {
				e.logger.Warn("remove record file", "id", rec.ID, "err", err)
			}
		}
	}

	e.emit(stats.Event{Stage: stats.StageEngine, Type: stats.EventTypeDeleted, MessageID: rec.ID})
	e.debug("message deleted", "id", rec.ID, "hash", hash)
	return fmt.Sprintf("Message \"%s\" successfully deleted.", rec.Payload)
}

// SentReport renders a numbered report of every sent record.
func (e *Engine) SentReport() string {
	sent := e.view(bySent)
	if len(sent) == 0 {
		return MsgNoSentReport
	}

	var sb strings.Builder
	sb.WriteString("--- QuickChat Sent Messages Report ---\n\n")
	for i, ent := range sent {
		fmt.Fprintf(&sb, "Message #%d:\n", i+1)
		fmt.Fprintf(&sb, "  Hash: %s\n", ent.rec.Hash)
		fmt.Fprintf(&sb, "  Recipient: %s\n", ent.rec.Recipient)
		fmt.Fprintf(&sb, "  Message: \"%s\"\n\n", ent.rec.Payload)
	}
	return sb.String()
}
