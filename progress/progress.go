package progress

import (
	"strconv"
	"sync"
	"time"

	"github.com/pterm/pterm"

	"github.com/dhcgn/quickchat/model"
	"github.com/dhcgn/quickchat/stats"
)

// payloadPreview is the widest payload shown in a table cell.
const payloadPreview = 50

// Bar tracks batch progress. It implements stats.Sink.
type Bar struct {
	pb      *pterm.ProgressbarPrinter
	total   int
	mu      sync.Mutex
	enabled bool
}

// New creates a progress bar if logLevel is "info".
func New(total int, logLevel string) *Bar {
	bar := &Bar{
		total:   total,
		enabled: logLevel == "info" && total > 0,
	}

	if bar.enabled {
		pb, _ := pterm.DefaultProgressbar.
			WithTotal(total).
			WithTitle("Processing messages").
			Start()
		bar.pb = pb
	}

	return bar
}

// Emit advances the bar for each processed entry and prints errors above it.
func (b *Bar) Emit(evt stats.Event) {
	if !b.enabled || b.pb == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch evt.Type {
	case stats.EventTypeProcessed:
		b.pb.Increment()
	case stats.EventTypeSent:
		if evt.MessageID != "" {
			b.pb.UpdateTitle("Sent: " + evt.MessageID)
		}
	case stats.EventTypeError:
		if evt.Err != nil {
			pterm.Error.Printf("Error: %v\n", evt.Err)
		}
	}
}

// Stop finalizes the progress bar.
func (b *Bar) Stop() {
	if !b.enabled || b.pb == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pb.Current < b.total {
		b.pb.Current = b.total
	}
	_, _ = b.pb.Stop()
	pterm.Success.Println("Processing complete!")
}

// PrintSummary renders the counters of a finished run.
func PrintSummary(summary stats.Summary, duration time.Duration) {
	pterm.Println()
	pterm.DefaultSection.Println("Summary Statistics")
	pterm.Info.Printf("Duration: %v\n", duration)
	pterm.Info.Printf("Processed: %d\n", summary.Processed)
	pterm.Info.Printf("Sent: %d\n", summary.Sent)
	pterm.Info.Printf("Stored: %d\n", summary.Stored)
	pterm.Info.Printf("Disregarded: %d\n", summary.Disregarded)
	pterm.Info.Printf("Rejected: %d\n", summary.Rejected)
	pterm.Info.Printf("Skipped: %d\n", summary.Skipped)
	pterm.Info.Printf("Errors: %d\n", summary.Errors)
	if summary.LastError != nil {
		pterm.Error.Printf("Last error: %v\n", summary.LastError)
	}
}

// RecordsTable builds the rows shown by the list command, header first.
func RecordsTable(records []model.Record) pterm.TableData {
	data := pterm.TableData{{"ID", "Status", "Index", "Recipient", "Hash", "Message"}}
	for _, rec := range records {
		index := "-"
		if rec.Dispatched() {
			index = strconv.Itoa(rec.Index)
		}
		data = append(data, []string{rec.ID, string(rec.Status), index, rec.Recipient, rec.Hash, preview(rec.Payload)})
	}
	return data
}

// PrintRecords renders records as a table.
func PrintRecords(records []model.Record) error {
	if len(records) == 0 {
		pterm.Info.Println("No messages.")
		return nil
	}
	return pterm.DefaultTable.WithHasHeader().WithData(RecordsTable(records)).Render()
}

// InventoryTable builds the collection counters followed by the top recipients.
func InventoryTable(inv stats.Inventory, top int) pterm.TableData {
	data := pterm.TableData{
		{"Collection", "Count"},
		{"Sent", strconv.Itoa(inv.Sent)},
		{"Stored", strconv.Itoa(inv.Stored)},
		{"Disregarded", strconv.Itoa(inv.Disregarded)},
		{"Message IDs", strconv.Itoa(inv.IDs)},
		{"Hashes", strconv.Itoa(inv.Hashes)},
		{"Dispatch count", strconv.Itoa(inv.DispatchCount)},
	}
	for _, c := range stats.Top(inv.Recipients, top) {
		data = append(data, []string{"To " + c.Key, strconv.Itoa(c.Value)})
	}
	return data
}

// PrintInventory renders the engine inventory.
func PrintInventory(inv stats.Inventory, top int) error {
	pterm.DefaultSection.Println("QuickChat Statistics")
	return pterm.DefaultTable.WithHasHeader().WithData(InventoryTable(inv, top)).Render()
}

func preview(payload string) string {
	runes := []rune(payload)
	if len(runes) <= payloadPreview {
		return payload
	}
	return string(runes[:payloadPreview]) + "..."
}
