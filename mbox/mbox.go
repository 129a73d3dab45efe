package mbox

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"os"
	"strconv"
	"strings"
	"time"

	mboxlib "github.com/emersion/go-mbox"

	"github.com/dhcgn/quickchat/filter"
	"github.com/dhcgn/quickchat/model"
	"github.com/dhcgn/quickchat/runner"
	"github.com/dhcgn/quickchat/stats"
)

const (
	HeaderID     = "X-Quickchat-Id"
	HeaderIndex  = "X-Quickchat-Index"
	HeaderHash   = "X-Quickchat-Hash"
	HeaderStatus = "X-Quickchat-Status"
	// HeaderLength carries the payload size in bytes, with line breaks
	// counted as a single "\n".
	HeaderLength = "X-Quickchat-Length"

	defaultSender = "quickchat"
)

var ErrNoRecipient = errors.New("mbox message has no To header")

// Export writes one mbox message per record. The sender defaults to
// "quickchat" when from is blank.
func Export(w io.Writer, records []model.Record, from string, now time.Time) (int, error) {
	from = strings.TrimSpace(from)
	if from == "" {
		from = defaultSender
	}

	mw := mboxlib.NewWriter(w)
	for i, rec := range records {
		msg, err := mw.CreateMessage(from, now)
		if err != nil {
			return i, fmt.Errorf("message %d: %w", i, err)
		}
		if err := writeRecord(msg, rec, from, now); err != nil {
			return i, fmt.Errorf("message %d write: %w", i, err)
		}
	}
	if err := mw.Close(); err != nil {
		return len(records), fmt.Errorf("close mbox: %w", err)
	}
	return len(records), nil
}

// ExportFile creates or truncates path and exports records into it.
func ExportFile(path string, records []model.Record, from string) (int, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create mbox: %w", err)
	}

	n, err := Export(file, records, from, time.Now())
	if cerr := file.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close mbox file: %w", cerr)
	}
	return n, err
}

func writeRecord(w io.Writer, rec model.Record, from string, now time.Time) error {
	var sb strings.Builder
	header := func(key, value string) {
		sb.WriteString(key)
		sb.WriteString(": ")
		sb.WriteString(value)
		sb.WriteString("\n")
	}

	header("From", from)
	header("To", rec.Recipient)
	header("Date", now.Format(time.RFC1123Z))
	header("Subject", "QuickChat message "+rec.ID)
	header(HeaderID, rec.ID)
	header(HeaderIndex, strconv.Itoa(rec.Index))
	if rec.Hash != "" {
		header(HeaderHash, rec.Hash)
	}
	payload := normalizeNewlines(rec.Payload)
	header(HeaderStatus, string(rec.Status))
	header(HeaderLength, strconv.Itoa(len(payload)))
	header("Content-Type", "text/plain; charset=utf-8")
	sb.WriteString("\n")
	sb.WriteString(payload)
	sb.WriteString("\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// ImportOptions controls how mbox messages become batch entries.
type ImportOptions struct {
	// Action is applied to every entry. When empty, the action is derived
	// from the X-Quickchat-Status header.
	Action runner.Action
	Filter *filter.Filter
	Sink   stats.Sink
	Logger *slog.Logger
}

// Import reads every message in r and returns it as a batch entry. Messages
// that cannot be parsed, have no recipient or fail the filter are skipped.
func Import(r io.Reader, opts ImportOptions) ([]runner.Entry, error) {
	reader := mboxlib.NewReader(r)

	var entries []runner.Entry
	for idx := 0; ; idx++ {
		msgReader, err := reader.NextMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return entries, nil
			}
			return entries, fmt.Errorf("message %d: %w", idx, err)
		}

		entry, status, err := parseMessage(msgReader)
		if err != nil {
			opts.skip(idx, err)
			continue
		}

		if opts.Filter != nil && !opts.Filter.Allows(model.Record{Recipient: entry.Recipient, Payload: entry.Payload, Status: status}) {
			opts.emit(stats.Event{Stage: stats.StageImport, Type: stats.EventTypeSkipped, Detail: "filtered"})
			continue
		}

		entry.Action = opts.Action
		if entry.Action == runner.ActionNone {
			entry.Action = actionFor(status)
		}
		entries = append(entries, entry)
	}
}

// ImportFile opens path and imports its messages.
func ImportFile(path string, opts ImportOptions) ([]runner.Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mbox: %w", err)
	}
	defer file.Close()

	return Import(file, opts)
}

func parseMessage(r io.Reader) (runner.Entry, model.Status, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return runner.Entry{}, "", fmt.Errorf("parse: %w", err)
	}

	recipient := strings.TrimSpace(msg.Header.Get("To"))
	if recipient == "" {
		return runner.Entry{}, "", ErrNoRecipient
	}

	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return runner.Entry{}, "", fmt.Errorf("read body: %w", err)
	}

	status := model.Status(strings.TrimSpace(msg.Header.Get(HeaderStatus)))
	return runner.Entry{
		Recipient: recipient,
		Payload:   payloadOf(normalizeNewlines(string(body)), msg.Header.Get(HeaderLength)),
	}, status, nil
}

// payloadOf cuts the payload out of a message body. The mbox reader hands
// back the blank separator lines with the body, so messages written by Export
// are cut at their recorded length. Other messages lose their trailing line
// breaks.
func payloadOf(body, length string) string {
	if n, err := strconv.Atoi(strings.TrimSpace(length)); err == nil && n >= 0 && n <= len(body) {
		return body[:n]
	}
	return strings.TrimRight(body, "\n")
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

func actionFor(status model.Status) runner.Action {
	switch status {
	case model.StatusSent:
		return runner.ActionSend
	case model.StatusStored:
		return runner.ActionStore
	case model.StatusDisregarded:
		return runner.ActionDisregard
	}
	return runner.ActionNone
}

func (o ImportOptions) skip(idx int, err error) {
	if o.Logger != nil {
		o.Logger.Warn("skipping mbox message", "message", idx, "err", err)
	}
	o.emit(stats.Event{Stage: stats.StageImport, Type: stats.EventTypeSkipped, Err: err})
}

func (o ImportOptions) emit(evt stats.Event) {
	if o.Sink != nil {
		o.Sink.Emit(evt)
	}
}

// CountMessages counts the messages in an mbox file without parsing them.
func CountMessages(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open mbox: %w", err)
	}
	defer file.Close()

	reader := mboxlib.NewReader(file)
	count := 0
	for {
		msgReader, err := reader.NextMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return count, nil
			}
			return 0, err
		}

		// Count the message even if its body cannot be read.
		_, _ = io.Copy(io.Discard, msgReader)
		count++
	}
}
