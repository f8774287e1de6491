// ABOUTME: Flat-file critique store keyed by activity id.
// ABOUTME: Preserves JSON object key order and normalizes legacy string entries.
package critic

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrMalformedStore marks a critiques file whose structural contract cannot
// be trusted: JSON that does not parse or a top level that is not an object.
var ErrMalformedStore = errors.New("点评文件格式不正确")

// Entry is one critique with its upload bookkeeping.
type Entry struct {
	Critique           string `json:"critique"`
	Uploaded           bool   `json:"uploaded"`
	UpdatedDescription string `json:"updated_description,omitempty"`
	UploadedAt         string `json:"uploaded_at,omitempty"`
}

// MarkUploaded flips the entry to uploaded and stamps the upload metadata.
// This is the only transition an entry ever makes.
func (e *Entry) MarkUploaded(description string, now time.Time) {
	e.Uploaded = true
	e.UpdatedDescription = description
	e.UploadedAt = now.UTC().Format(time.RFC3339)
}

// Store maps activity ids to critique entries, keeping insertion order so
// pending uploads replay in a stable sequence across runs.
type Store struct {
	order   []string
	entries map[string]*Entry
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{entries: make(map[string]*Entry)}
}

// Get looks up the entry for an activity id.
func (s *Store) Get(id string) (*Entry, bool) {
	e, ok := s.entries[id]
	return e, ok
}

// Set upserts an entry, appending new ids to the iteration order.
func (s *Store) Set(id string, e *Entry) {
	if _, exists := s.entries[id]; !exists {
		s.order = append(s.order, id)
	}
	s.entries[id] = e
}

// Len reports how many entries the store holds.
func (s *Store) Len() int {
	return len(s.order)
}

// IDs returns the activity ids in iteration order.
func (s *Store) IDs() []string {
	return append([]string(nil), s.order...)
}

// PendingItem pairs an activity id with its not-yet-uploaded entry.
type PendingItem struct {
	ID    string
	Entry *Entry
}

// Pending returns the entries still waiting for upload, in store order.
func (s *Store) Pending() []PendingItem {
	var items []PendingItem
	for _, id := range s.order {
		if e := s.entries[id]; !e.Uploaded {
			items = append(items, PendingItem{ID: id, Entry: e})
		}
	}
	return items
}

// UnmarshalJSON decodes the store from a JSON object, walking the token
// stream so key order survives. Legacy bare-string values become
// {critique, uploaded:false}; values of any other shape are dropped.
func (s *Store) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("顶层必须是以活动 id 为键的对象")
	}

	s.order = nil
	s.entries = make(map[string]*Entry)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		id := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var legacy string
		if err := json.Unmarshal(raw, &legacy); err == nil {
			s.Set(id, &Entry{Critique: legacy})
			continue
		}
		var entry Entry
		if err := json.Unmarshal(raw, &entry); err == nil {
			s.Set(id, &entry)
		}
	}
	_, err = dec.Token() // closing brace
	return err
}

// MarshalJSON writes the store as an object in iteration order.
func (s *Store) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range s.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(s.entries[id]); err != nil {
			return nil, err
		}
		// Encode appends a newline the object syntax does not want.
		buf.Truncate(buf.Len() - 1)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// LoadStore reads the critiques file. A missing file yields an empty store;
// anything structurally wrong is fatal.
func LoadStore(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewStore(), nil
		}
		return nil, err
	}
	store := NewStore()
	if err := json.Unmarshal(data, store); err != nil {
		return nil, fmt.Errorf("%w：%s（%v）", ErrMalformedStore, path, err)
	}
	return store, nil
}

// SaveStore rewrites the whole critiques file with stable formatting.
// json.Marshal would re-escape <, > and & in critique text, so the file goes
// through an encoder with HTML escaping off.
func SaveStore(path string, s *Store) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}
