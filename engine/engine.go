// Package engine owns every message record known to the process: it sends,
// stores and disregards records, reloads them from the file store and answers
// queries over them.
//
// An Engine is not safe for concurrent use. Callers that share one across
// goroutines must guard it with a single lock.
package engine

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/dhcgn/quickchat/model"
	"github.com/dhcgn/quickchat/stats"
	"github.com/dhcgn/quickchat/store"
	"github.com/dhcgn/quickchat/validate"
)

const (
	MsgSent           = "Message successfully sent."
	MsgStored         = "Message successfully stored."
	MsgEmptyPayload   = "Failed to send message: Message content cannot be empty"
	MsgPayloadTooLong = "Failed to send message: Payload too long"
	MsgBadRecipient   = "Failed to send message: Invalid recipient"
	MsgBadID          = "Failed to send message: Invalid message ID (system error)"
	MsgAlreadySent    = "Failed to send message: Message already sent"
	MsgStoreFailed    = "Failed to store message: IO Exception."
)

var ErrNoStore = errors.New("engine requires a store")

// Options configures a new Engine.
type Options struct {
	Store  store.Store
	Logger *slog.Logger
	// Sink receives an event for every state change. Optional.
	Sink stats.Sink
	// NewID generates record ids. Defaults to model.RandomID.
	NewID model.IDGenerator
}

// entry is the single place a record lives. Entries are keyed by the record
// pointer, so two records that happen to share an id stay apart. Each
// membership field holds the sequence number at which the record joined that
// view, or 0.
type entry struct {
	rec         *model.Record
	first       int
	sent        int
	stored      int
	disregarded int
	indexed     int
	// persisted is set once the record is known to have a file.
	persisted bool
}

type Engine struct {
	store  store.Store
	logger *slog.Logger
	sink   stats.Sink
	newID  model.IDGenerator

	entries     map[*model.Record]*entry
	seq         int
	dispatch    int
	displayName string
}

func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, ErrNoStore
	}
	newID := opts.NewID
	if newID == nil {
		newID = model.RandomID
	}
	return &Engine{
		store:   opts.Store,
		logger:  opts.Logger,
		sink:    opts.Sink,
		newID:   newID,
		entries: make(map[*model.Record]*entry),
	}, nil
}

// NewRecord creates a New record. It is not tracked until it is sent, stored
// or disregarded.
func (e *Engine) NewRecord(recipient, payload string) *model.Record {
	return model.NewRecord(recipient, payload, e.newID)
}

// SetDisplayName sets the name reported as sender of sent messages.
func (e *Engine) SetDisplayName(name string) {
	e.displayName = name
}

func (e *Engine) DisplayName() string {
	return e.displayName
}

// DispatchCount returns the index given to the most recent send.
func (e *Engine) DispatchCount() int {
	return e.dispatch
}

// Send validates rec and, when every check passes, assigns the next dispatch
// index, computes the hash and marks it Sent. Nothing changes on failure.
func (e *Engine) Send(rec *model.Record) string {
	if msg := e.checkSendable(rec); msg != "" {
		id := ""
		if rec != nil {
			id = rec.ID
		}
		e.emit(stats.Event{Stage: stats.StageEngine, Type: stats.EventTypeRejected, MessageID: id, Detail: msg})
		e.debug("send rejected", "id", id, "reason", msg)
		return msg
	}

	e.dispatch++
	rec.Index = e.dispatch
	rec.Hash = model.MakeHash(rec.ID, rec.Index, rec.Payload)
	rec.Status = model.StatusSent

	ent := e.track(rec)
	if ent.sent == 0 {
		ent.sent = e.next()
	}
	if ent.indexed == 0 {
		ent.indexed = e.next()
	}

	e.emit(stats.Event{Stage: stats.StageEngine, Type: stats.EventTypeSent, MessageID: rec.ID})
	e.debug("message sent", "id", rec.ID, "index", rec.Index, "hash", rec.Hash)
	return MsgSent
}

func (e *Engine) checkSendable(rec *model.Record) string {
	if rec == nil || model.IsBlank(rec.Payload) {
		return MsgEmptyPayload
	}
	if rec.Dispatched() {
		return MsgAlreadySent
	}
	if msg := validate.PayloadLength(&rec.Payload); msg != validate.PayloadReady {
		if validate.PayloadTooLong(rec.Payload) {
			return MsgPayloadTooLong
		}
		return msg
	}
	if !validate.ValidRecipient(rec.Recipient) {
		return MsgBadRecipient
	}
	if !validate.CheckID(rec.ID) {
		return MsgBadID
	}
	return ""
}

// Store persists rec. A missing hash is computed and a New record becomes
// Stored; any other status is kept. The record joins the stored view even
// when the file write fails. A nil record is reported as a failed store.
func (e *Engine) Store(rec *model.Record) string {
	if rec == nil {
		return MsgStoreFailed
	}
	if rec.Hash == "" {
		rec.Hash = model.MakeHash(rec.ID, rec.Index, rec.Payload)
	}
	if rec.Status == model.StatusNew {
		rec.Status = model.StatusStored
	}

	ent := e.track(rec)
	if ent.stored == 0 {
		ent.stored = e.next()
	}
	if ent.indexed == 0 {
		ent.indexed = e.next()
	}

	if err := e.store.Save(*rec); err != nil {
		e.emit(stats.Event{Stage: stats.StageEngine, Type: stats.EventTypeError, MessageID: rec.ID, Err: err})
		if e.logger != nil {
			e.logger.Error("store message", "id", rec.ID, "err", err)
		}
		return MsgStoreFailed
	}
	ent.persisted = true

	e.emit(stats.Event{Stage: stats.StageEngine, Type: stats.EventTypeStored, MessageID: rec.ID})
	e.debug("message stored", "id", rec.ID, "file", store.FileName(*rec), "status", rec.Status)
	return MsgStored
}

// Disregard marks rec as Disregarded. It is neither validated nor persisted.
// A nil record is ignored.
func (e *Engine) Disregard(rec *model.Record) {
	if rec == nil {
		return
	}
	rec.Status = model.StatusDisregarded
	ent := e.track(rec)
	if ent.disregarded == 0 {
		ent.disregarded = e.next()
	}
	e.emit(stats.Event{Stage: stats.StageEngine, Type: stats.EventTypeDisregarded, MessageID: rec.ID})
	e.debug("message disregarded", "id", rec.ID)
}

// Reload drops all in-memory state and rebuilds it from the store. The
// dispatch counter continues from the highest index on file, so the next send
// never reuses the file of a loaded record.
func (e *Engine) Reload() error {
	e.clear()

	records, err := e.store.LoadAll()
	if err != nil {
		return err
	}

	for i := range records {
		rec := &records[i]
		ent := e.track(rec)
		ent.persisted = true
		if rec.Index > e.dispatch {
			e.dispatch = rec.Index
		}
		switch rec.Status {
		case model.StatusSent:
			ent.sent = e.next()
		case model.StatusStored:
			ent.stored = e.next()
		case model.StatusDisregarded:
			ent.disregarded = e.next()
		}
		if ent.indexed == 0 {
			ent.indexed = e.next()
		}
	}

	if e.logger != nil {
		e.logger.Debug("records reloaded", e.Inventory().LogAttrs()...)
	}
	return nil
}

// Reset clears every collection, the counter and the display name, and
// deletes all record files.
func (e *Engine) Reset() error {
	e.clear()
	e.displayName = ""
	return e.store.Purge()
}

func (e *Engine) clear() {
	e.entries = make(map[*model.Record]*entry)
	e.seq = 0
	e.dispatch = 0
}

func (e *Engine) next() int {
	e.seq++
	return e.seq
}

// track returns the entry for rec, creating it the first time rec is seen.
func (e *Engine) track(rec *model.Record) *entry {
	ent, ok := e.entries[rec]
	if !ok {
		ent = &entry{rec: rec, first: e.next()}
		e.entries[rec] = ent
	}
	return ent
}

// view returns the entries whose membership selected by pick is set, in the
// order they joined.
func (e *Engine) view(pick func(*entry) int) []*entry {
	var out []*entry
	for _, ent := range e.entries {
		if pick(ent) > 0 {
			out = append(out, ent)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return pick(out[i]) < pick(out[j])
	})
	return out
}

func bySent(ent *entry) int        { return ent.sent }
func byStored(ent *entry) int      { return ent.stored }
func byDisregarded(ent *entry) int { return ent.disregarded }
func byIndexed(ent *entry) int     { return ent.indexed }
func byFirst(ent *entry) int       { return ent.first }

func records(entries []*entry) []model.Record {
	out := make([]model.Record, len(entries))
	for i, ent := range entries {
		out[i] = *ent.rec
	}
	return out
}

// Sent returns copies of the sent records in the order they were sent.
func (e *Engine) Sent() []model.Record { return records(e.view(bySent)) }

// Stored returns copies of the stored records in the order they were stored.
func (e *Engine) Stored() []model.Record { return records(e.view(byStored)) }

func (e *Engine) Disregarded() []model.Record { return records(e.view(byDisregarded)) }

// Records returns every tracked record in the order the engine first saw it.
func (e *Engine) Records() []model.Record { return records(e.view(byFirst)) }

// IDs lists the ids of every sent or stored record.
func (e *Engine) IDs() []string {
	var out []string
	for _, ent := range e.view(byIndexed) {
		out = append(out, ent.rec.ID)
	}
	return out
}

// Hashes lists the non-empty hashes of every sent or stored record.
func (e *Engine) Hashes() []string {
	var out []string
	for _, ent := range e.view(byIndexed) {
		if ent.rec.Hash != "" {
			out = append(out, ent.rec.Hash)
		}
	}
	return out
}

// Inventory summarises the current collections.
func (e *Engine) Inventory() stats.Inventory {
	inv := stats.Inventory{
		Sent:          len(e.view(bySent)),
		Stored:        len(e.view(byStored)),
		Disregarded:   len(e.view(byDisregarded)),
		IDs:           len(e.IDs()),
		Hashes:        len(e.Hashes()),
		DispatchCount: e.dispatch,
		Recipients:    make(map[string]int),
	}
	for _, ent := range e.sentAndStored() {
		inv.Recipients[ent.rec.Recipient]++
	}
	return inv
}

// sentAndStored returns sent entries followed by stored entries that were
// never sent.
func (e *Engine) sentAndStored() []*entry {
	out := e.view(bySent)
	for _, ent := range e.view(byStored) {
		if ent.sent == 0 {
			out = append(out, ent)
		}
	}
	return out
}

func (e *Engine) emit(evt stats.Event) {
	if e.sink != nil {
		e.sink.Emit(evt)
	}
}

func (e *Engine) debug(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}
