package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/dhcgn/quickchat/engine"
	"github.com/dhcgn/quickchat/stats"
	"github.com/dhcgn/quickchat/validate"
)

var (
	ErrUnknownAction = errors.New("unknown batch action")
	ErrNoEngine      = errors.New("runner requires an engine")
)

// Action selects what happens to a batch entry once it passes validation.
type Action string

const (
	ActionNone      Action = ""
	ActionSend      Action = "send"
	ActionStore     Action = "store"
	ActionDisregard Action = "disregard"
)

// Entry is one message of a batch.
type Entry struct {
	Recipient string `yaml:"recipient"`
	Payload   string `yaml:"payload"`
	Action    Action `yaml:"action"`
}

// Batch is the YAML document accepted by LoadBatch.
type Batch struct {
	Entries []Entry `yaml:"entries"`
}

// LoadBatch reads a batch file from disk.
func LoadBatch(path string) (Batch, error) {
	file, err := os.Open(path)
	if err != nil {
		return Batch{}, fmt.Errorf("open batch: %w", err)
	}
	defer file.Close()

	return ParseBatch(file)
}

// ParseBatch decodes a YAML batch. Action names are case-insensitive.
func ParseBatch(r io.Reader) (Batch, error) {
	var b Batch
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&b); err != nil {
		if errors.Is(err, io.EOF) {
			return Batch{}, nil
		}
		return Batch{}, fmt.Errorf("decode batch: %w", err)
	}

	for i := range b.Entries {
		action, err := ParseAction(string(b.Entries[i].Action))
		if err != nil {
			return Batch{}, fmt.Errorf("entry %d: %w", i+1, err)
		}
		b.Entries[i].Action = action
	}
	return b, nil
}

// ParseAction normalises an action name.
func ParseAction(name string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(name))); a {
	case ActionNone, ActionSend, ActionStore, ActionDisregard:
		return a, nil
	}
	return ActionNone, fmt.Errorf("%w: %q", ErrUnknownAction, name)
}

// Result describes a finished batch run.
type Result struct {
	RunID     string
	Processed int
	// Sent counts entries sent during this run.
	Sent int
	// TotalSent is the engine's dispatch count after the run.
	TotalSent int
	Duration  time.Duration
	Summary   string
}

// Runner feeds batch entries through an engine one at a time.
type Runner struct {
	engine *engine.Engine
	logger *slog.Logger
	sink   stats.Sink
}

func New(e *engine.Engine, logger *slog.Logger, sink stats.Sink) (*Runner, error) {
	if e == nil {
		return nil, ErrNoEngine
	}
	return &Runner{engine: e, logger: logger, sink: sink}, nil
}

// Run validates each entry, applies its action and returns the transcript.
// Sent entries are also stored. A cancelled context stops the run before the
// next entry; entries already handled stay handled.
func (r *Runner) Run(ctx context.Context, entries []Entry) (Result, error) {
	res := Result{RunID: uuid.NewString()}
	started := time.Now()
	logger := r.logger
	if logger != nil {
		logger = logger.With("run", res.RunID)
		logger.Info("batch started", "entries", len(entries))
	}

	var sb strings.Builder
	sb.WriteString("--- Message Batch Processing ---\n")

	var runErr error
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		n := i + 1
		fmt.Fprintf(&sb, "Processing Message %d of %d...\n", n, len(entries))
		outcome := r.process(&sb, n, entry, &res)
		res.Processed++
		r.emit(stats.Event{Stage: stats.StageBatch, Type: stats.EventTypeProcessed, Detail: outcome})
		if logger != nil {
			logger.Debug("batch entry processed", "entry", n, "action", entry.Action, "outcome", outcome)
		}
	}

	res.TotalSent = r.engine.DispatchCount()
	sb.WriteString("--- Batch Processing Complete ---\n")
	fmt.Fprintf(&sb, "Total messages successfully sent in this session: %d\n", res.Sent)
	fmt.Fprintf(&sb, "Overall total messages sent: %d", res.TotalSent)
	res.Summary = sb.String()
	res.Duration = time.Since(started)

	if logger != nil {
		if runErr != nil {
			logger.Warn("batch interrupted", "processed", res.Processed, "err", runErr)
		} else {
			logger.Info("batch completed", "processed", res.Processed, "sent", res.Sent, "duration", res.Duration)
		}
	}
	return res, runErr
}

func (r *Runner) process(sb *strings.Builder, n int, entry Entry, res *Result) string {
	rec := r.engine.NewRecord(entry.Recipient, entry.Payload)
	sb.WriteString(rec.IDNotification() + "\n")

	if msg := validate.Recipient(rec.Recipient); msg != validate.RecipientCaptured {
		return r.skip(sb, n, rec.ID, msg)
	}
	if msg := validate.PayloadLength(&rec.Payload); msg != validate.PayloadReady {
		return r.skip(sb, n, rec.ID, msg)
	}

	var outcome string
	switch entry.Action {
	case ActionSend:
		outcome = r.engine.Send(rec)
		sb.WriteString("Send Status: " + outcome + "\n")
		if outcome == engine.MsgSent {
			res.Sent++
			stored := r.engine.Store(rec)
			sb.WriteString("  (Stored to file as part of sending: " + stored + ")\n")
		}
	case ActionStore:
		outcome = r.engine.Store(rec)
		sb.WriteString("Store Status: " + outcome + "\n")
	case ActionDisregard:
		r.engine.Disregard(rec)
		outcome = "Message disregarded by user."
		sb.WriteString(outcome + "\n")
	default:
		outcome = fmt.Sprintf("No action selected for message %d.", n)
		sb.WriteString(outcome + "\n")
		r.emit(stats.Event{Stage: stats.StageBatch, Type: stats.EventTypeSkipped, MessageID: rec.ID, Detail: outcome})
	}
	sb.WriteString("\n")
	return outcome
}

func (r *Runner) skip(sb *strings.Builder, n int, id, msg string) string {
	fmt.Fprintf(sb, "Validation Failed for Message %d:\n%s\n", n, msg)
	r.emit(stats.Event{Stage: stats.StageBatch, Type: stats.EventTypeSkipped, MessageID: id, Detail: msg})
	return msg
}

func (r *Runner) emit(evt stats.Event) {
	if r.sink != nil {
		r.sink.Emit(evt)
	}
}
