package stats

import (
	"fmt"
	"io"
	"sort"
	"sync"
)

type Stage string

const (
	StageEngine Stage = "engine"
	StageBatch  Stage = "batch"
	StageImport Stage = "import"
)

type EventType string

const (
	EventTypeSent        EventType = "sent"
	EventTypeStored      EventType = "stored"
	EventTypeDisregarded EventType = "disregarded"
	EventTypeDeleted     EventType = "deleted"
	EventTypeRejected    EventType = "rejected"
	EventTypeSkipped     EventType = "skipped"
	EventTypeProcessed   EventType = "processed"
	EventTypeError       EventType = "error"
)

type Event struct {
	Stage     Stage
	Type      EventType
	MessageID string
	Err       error
	Detail    string
}

// Sink receives events as they happen.
type Sink interface {
	Emit(evt Event)
}

type Summary struct {
	Processed   int
	Sent        int
	Stored      int
	Disregarded int
	Deleted     int
	Rejected    int
	Skipped     int
	Errors      int
	LastError   error
}

func (s Summary) LogAttrs() []any {
	attrs := []any{
		"processed", s.Processed,
		"sent", s.Sent,
		"stored", s.Stored,
		"disregarded", s.Disregarded,
		"deleted", s.Deleted,
		"rejected", s.Rejected,
		"skipped", s.Skipped,
		"errors", s.Errors,
	}
	if s.LastError != nil {
		attrs = append(attrs, "lastError", s.LastError.Error())
	}
	return attrs
}

// Collector counts events. It is safe for concurrent use.
type Collector struct {
	mu      sync.Mutex
	summary Summary
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Emit(evt Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch evt.Type {
	case EventTypeProcessed:
		c.summary.Processed++
	case EventTypeSent:
		c.summary.Sent++
	case EventTypeStored:
		c.summary.Stored++
	case EventTypeDisregarded:
		c.summary.Disregarded++
	case EventTypeDeleted:
		c.summary.Deleted++
	case EventTypeRejected:
		c.summary.Rejected++
	case EventTypeSkipped:
		c.summary.Skipped++
	case EventTypeError:
		c.summary.Errors++
		if evt.Err != nil {
			c.summary.LastError = evt.Err
		}
	}
}

func (c *Collector) Snapshot() Summary {
	c.mu.Lock()
	summary := c.summary
	c.mu.Unlock()
	return summary
}

// Fanout forwards every event to each sink in order.
type Fanout []Sink

func (f Fanout) Emit(evt Event) {
	for _, s := range f {
		if s != nil {
			s.Emit(evt)
		}
	}
}

// Inventory describes what the engine currently holds.
type Inventory struct {
	Sent          int
	Stored        int
	Disregarded   int
	IDs           int
	Hashes        int
	DispatchCount int
	Recipients    map[string]int
}

func (i Inventory) LogAttrs() []any {
	return []any{
		"sent", i.Sent,
		"stored", i.Stored,
		"disregarded", i.Disregarded,
		"ids", i.IDs,
		"hashes", i.Hashes,
		"dispatchCount", i.DispatchCount,
		"recipients", len(i.Recipients),
	}
}

type Count struct {
	Key   string
	Value int
}

// Top returns the limit most frequent keys, ties broken by key.
func Top(m map[string]int, limit int) []Count {
	pairs := make([]Count, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, Count{k, v})
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Value != pairs[j].Value {
			return pairs[i].Value > pairs[j].Value
		}
		return pairs[i].Key < pairs[j].Key
	})

	if limit >= 0 && limit < len(pairs) {
		pairs = pairs[:limit]
	}
	return pairs
}

// PrettyPrintTop prints the top N most frequent items in a map.
func PrettyPrintTop(w io.Writer, m map[string]int, limit int) {
	for i, p := range Top(m, limit) {
		fmt.Fprintf(w, "%d. %s (%d)\n", i+1, p.Key, p.Value)
	}
}
