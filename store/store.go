package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/dhcgn/quickchat/model"
)

// ManifestName is the file listing known record files in store order.
const ManifestName = "quickchat-manifest.json"

var (
	ErrEmptyDir  = errors.New("store directory is empty")
	errMalformed = errors.New("malformed record file")
)

// Store persists records one file per record.
type Store interface {
	Save(rec model.Record) error
	Remove(rec model.Record) error
	LoadAll() ([]model.Record, error)
	Purge() error
}

// FileStore keeps each record as a JSON file in dir and tracks the files in a
// manifest so reloads do not depend on directory scans.
type FileStore struct {
	dir     string
	persist bool
	logger  *slog.Logger
}

// fileRecord is the on-disk layout of a single record.
type fileRecord struct {
	ID        string `json:"MESSAGE_ID"`
	Recipient string `json:"MESSAGE_RECIPIENT"`
	Payload   string `json:"MESSAGE_PAYLOAD"`
	Index     int    `json:"MESSAGE_INDEX"`
	Hash      string `json:"MESSAGE_HASH"`
	Status    string `json:"MESSAGE_STATUS"`
}

// looseRecord decodes files written by older versions, which may lack fields.
type looseRecord struct {
	ID        *string `json:"MESSAGE_ID"`
	Recipient *string `json:"MESSAGE_RECIPIENT"`
	Payload   *string `json:"MESSAGE_PAYLOAD"`
	Index     *int    `json:"MESSAGE_INDEX"`
	Hash      *string `json:"MESSAGE_HASH"`
	Status    *string `json:"MESSAGE_STATUS"`
}

type manifest struct {
	Files []string `json:"files"`
}

// NewFileStore opens a store rooted at dir. When persist is false, reads
// still work but every write is skipped.
func NewFileStore(dir string, persist bool, logger *slog.Logger) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, ErrEmptyDir
	}

	if persist {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	return &FileStore{dir: dir, persist: persist, logger: logger}, nil
}

// Dir returns the directory holding the record files.
func (f *FileStore) Dir() string {
	return f.dir
}

// FileName returns the file a record is written to: drafts are keyed by id,
// dispatched records by their index.
func FileName(rec model.Record) string {
	if rec.Index == 0 {
		return "message_draft_" + rec.ID + ".json"
	}
	return "message_" + strconv.Itoa(rec.Index) + ".json"
}

func draftFileName(id string) string {
	return "message_draft_" + id + ".json"
}

// Save writes rec to its file and records it in the manifest. Saving a
// dispatched record drops the draft file it was stored as before it was sent.
func (f *FileStore) Save(rec model.Record) error {
	if !f.persist {
		return nil
	}

	data, err := json.Marshal(fileRecord{
		ID:        rec.ID,
		Recipient: rec.Recipient,
		Payload:   rec.Payload,
		Index:     rec.Index,
		Hash:      rec.Hash,
		Status:    string(rec.Status),
	})
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.ID, err)
	}

	name := FileName(rec)
	if err := os.WriteFile(filepath.Join(f.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("write record %s: %w", name, err)
	}

	files, err := f.knownFiles()
	if err != nil {
		return err
	}

	if rec.Index != 0 {
		files, err = f.dropDraftOf(rec, files)
		if err != nil {
			return fmt.Errorf("remove superseded draft: %w", err)
		}
	}

	if !slices.Contains(files, name) {
		files = append(files, name)
	}
	return f.writeManifest(files)
}

// Remove deletes the file of rec, and the draft file a dispatched record was
// stored as, and drops them from the manifest. A missing file is not an error.
func (f *FileStore) Remove(rec model.Record) error {
	if !f.persist {
		return nil
	}

	files, err := f.knownFiles()
	if err != nil {
		return err
	}
	before := len(files)

	name := FileName(rec)
	if err := removeIfExists(filepath.Join(f.dir, name)); err != nil {
		return fmt.Errorf("remove record %s: %w", name, err)
	}
	if i := slices.Index(files, name); i >= 0 {
		files = slices.Delete(files, i, i+1)
	}
	if rec.Index != 0 {
		if files, err = f.dropDraftOf(rec, files); err != nil {
			return fmt.Errorf("remove record %s: %w", draftFileName(rec.ID), err)
		}
	}

	if len(files) == before {
		return nil
	}
	return f.writeManifest(files)
}

// dropDraftOf deletes the draft file for rec's id when it holds the same
// message as rec. A draft of a different message that happens to share the
// id is left alone.
func (f *FileStore) dropDraftOf(rec model.Record, files []string) ([]string, error) {
	draft := draftFileName(rec.ID)
	prev, err := f.load(draft)
	if err != nil || !SameMessage(prev, rec) {
		return files, nil
	}
	if err := removeIfExists(filepath.Join(f.dir, draft)); err != nil {
		return files, err
	}
	if i := slices.Index(files, draft); i >= 0 {
		files = slices.Delete(files, i, i+1)
	}
	return files, nil
}

// SameMessage reports whether a and b are the same message at different
// points of its life: same id, recipient and payload.
func SameMessage(a, b model.Record) bool {
	return a.ID == b.ID && a.Recipient == b.Recipient && a.Payload == b.Payload
}

// LoadAll returns every readable record. Files listed in the manifest come
// first in manifest order, followed by any other record file in the
// directory in scan order. A draft whose message was later dispatched is
// dropped in favour of the dispatched file. Malformed files are skipped. The
// manifest is rewritten when it no longer matches what was loaded.
func (f *FileStore) LoadAll() ([]model.Record, error) {
	listed, err := f.readManifest()
	if err != nil && !errors.Is(err, os.ErrNotExist) && f.logger != nil {
		f.logger.Warn("manifest unreadable, scanning directory", "dir", f.dir, "err", err)
	}

	scanned, err := f.scan()
	if err != nil {
		return nil, err
	}

	files := slices.Clone(listed)
	for _, name := range scanned {
		if !slices.Contains(files, name) {
			files = append(files, name)
		}
	}

	records := make([]model.Record, 0, len(files))
	loaded := make([]string, 0, len(files))
	for _, name := range files {
		rec, err := f.load(name)
		if err != nil {
			if f.logger != nil {
				f.logger.Debug("skipping record file", "file", name, "err", err)
			}
			continue
		}
		records = append(records, rec)
		loaded = append(loaded, name)
	}

	records, loaded = f.dropSupersededDrafts(records, loaded)

	if f.persist && !slices.Equal(loaded, listed) {
		if err := f.writeManifest(loaded); err != nil && f.logger != nil {
			f.logger.Warn("manifest not updated", "dir", f.dir, "err", err)
		}
	}

	return records, nil
}

// dropSupersededDrafts removes drafts whose message also appears as a
// dispatched record, deleting their files when the store persists.
func (f *FileStore) dropSupersededDrafts(records []model.Record, names []string) ([]model.Record, []string) {
	var dispatched []model.Record
	for _, rec := range records {
		if rec.Index != 0 {
			dispatched = append(dispatched, rec)
		}
	}
	if len(dispatched) == 0 {
		return records, names
	}

	keptRecs := records[:0:0]
	keptNames := names[:0:0]
	for i, rec := range records {
		superseded := rec.Index == 0 && slices.ContainsFunc(dispatched, func(d model.Record) bool {
			return SameMessage(d, rec)
		})
		if !superseded {
			keptRecs = append(keptRecs, rec)
			keptNames = append(keptNames, names[i])
			continue
		}
		if f.logger != nil {
			f.logger.Debug("dropping superseded draft", "file", names[i], "id", rec.ID)
		}
		if f.persist {
			if err := removeIfExists(filepath.Join(f.dir, names[i])); err != nil && f.logger != nil {
				f.logger.Warn("remove superseded draft", "file", names[i], "err", err)
			}
		}
	}
	return keptRecs, keptNames
}

// Purge removes every record file and the manifest.
func (f *FileStore) Purge() error {
	if !f.persist {
		return nil
	}

	files, err := f.scan()
	if err != nil {
		return err
	}
	for _, name := range files {
		if err := removeIfExists(filepath.Join(f.dir, name)); err != nil {
			return fmt.Errorf("remove record %s: %w", name, err)
		}
	}
	if err := removeIfExists(filepath.Join(f.dir, ManifestName)); err != nil {
		return fmt.Errorf("remove manifest: %w", err)
	}
	return nil
}

func (f *FileStore) load(name string) (model.Record, error) {
	data, err := os.ReadFile(filepath.Join(f.dir, name))
	if err != nil {
		return model.Record{}, err
	}
	return decodeRecord(data)
}

func decodeRecord(data []byte) (model.Record, error) {
	var raw looseRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return model.Record{}, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if raw.ID == nil || raw.Recipient == nil || raw.Payload == nil {
		return model.Record{}, fmt.Errorf("%w: missing required field", errMalformed)
	}

	rec := model.Record{
		ID:        *raw.ID,
		Recipient: *raw.Recipient,
		Payload:   *raw.Payload,
	}
	if raw.Index != nil {
		rec.Index = *raw.Index
	}
	if rec.Index < 0 {
		return model.Record{}, fmt.Errorf("%w: negative index %d", errMalformed, rec.Index)
	}
	if raw.Hash != nil {
		rec.Hash = *raw.Hash
	}

	switch {
	case raw.Status != nil:
		rec.Status = model.Status(*raw.Status)
	case rec.Index == 0:
		rec.Status = model.StatusStored
	default:
		rec.Status = model.StatusSent
	}
	if !rec.Status.Valid() || rec.Status == model.StatusNew {
		return model.Record{}, fmt.Errorf("%w: unknown status %q", errMalformed, rec.Status)
	}

	return rec, nil
}

// scan lists record files in the directory: dispatched records by index,
// then drafts by name.
func (f *FileStore) scan() ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store directory: %w", err)
	}

	var dispatched, drafts []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "message_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		if strings.HasPrefix(name, "message_draft_") {
			drafts = append(drafts, name)
			continue
		}
		dispatched = append(dispatched, name)
	}

	sort.SliceStable(dispatched, func(i, j int) bool {
		return fileIndex(dispatched[i]) < fileIndex(dispatched[j])
	})
	sort.Strings(drafts)
	return append(dispatched, drafts...), nil
}

func fileIndex(name string) int {
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "message_"), ".json"))
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return n
}

// knownFiles returns the manifest entries, falling back to a directory scan
// when the manifest is missing or unreadable.
func (f *FileStore) knownFiles() ([]string, error) {
	files, err := f.readManifest()
	if err == nil {
		return files, nil
	}
	return f.scan()
}

func (f *FileStore) readManifest() ([]string, error) {
	data, err := os.ReadFile(filepath.Join(f.dir, ManifestName))
	if err != nil {
		return nil, err
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return m.Files, nil
}

// writeManifest replaces the manifest through a temp file and rename.
func (f *FileStore) writeManifest(files []string) error {
	if files == nil {
		files = []string{}
	}
	data, err := json.MarshalIndent(manifest{Files: files}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	tmp := filepath.Join(f.dir, ManifestName+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(f.dir, ManifestName)); err != nil {
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
