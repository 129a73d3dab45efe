package store

import (
	"fmt"
	"os"
	"testing"

	"github.com/dhcgn/quickchat/model"
)

func benchRecord(i int) model.Record {
	return model.Record{
		ID:        fmt.Sprintf("%010d", i),
		Recipient: "+27834557896",
		Payload:   fmt.Sprintf("benchmark message number %d", i),
		Index:     i + 1,
		Hash:      fmt.Sprintf("00:%d:BENCHMARK%d", i+1, i),
		Status:    model.StatusSent,
	}
}

// BenchmarkFileStore_Save benchmarks writing one record file plus the manifest
func BenchmarkFileStore_Save(b *testing.B) {
	tmpDir, err := os.MkdirTemp("", "store-bench-*")
	if err != nil {
		b.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	s, err := NewFileStore(tmpDir, true, nil)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := s.Save(benchRecord(i % 500)); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkFileStore_LoadAll benchmarks reloading through the manifest
func BenchmarkFileStore_LoadAll(b *testing.B) {
	tmpDir, err := os.MkdirTemp("", "store-bench-*")
	if err != nil {
		b.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	s, err := NewFileStore(tmpDir, true, nil)
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < 1000; i++ {
		if err := s.Save(benchRecord(i)); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		records, err := s.LoadAll()
		if err != nil {
			b.Fatal(err)
		}
		if len(records) != 1000 {
			b.Fatalf("expected 1000 records, got %d", len(records))
		}
	}
}

// BenchmarkFileStore_Scan benchmarks the directory scan used without a manifest
func BenchmarkFileStore_Scan(b *testing.B) {
	tmpDir, err := os.MkdirTemp("", "store-bench-*")
	if err != nil {
		b.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	s, err := NewFileStore(tmpDir, true, nil)
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < 1000; i++ {
		if err := s.Save(benchRecord(i)); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.scan(); err != nil {
			b.Fatal(err)
		}
	}
}
