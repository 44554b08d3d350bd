package types

import (
	"encoding/json"
	"net/url"
)

// Registry is the full set of tracked threads plus the id allocator.
type Registry struct {
	NextID  int
	Threads map[ThreadKey]ThreadRecord
}

// NewRegistry returns an empty registry whose first allocated id is 1.
func NewRegistry() Registry {
	return Registry{NextID: 1, Threads: make(map[ThreadKey]ThreadRecord)}
}

// Len returns the number of tracked threads.
func (r Registry) Len() int {
	return len(r.Threads)
}

// FindByID searches records by tracking id.
func (r Registry) FindByID(id int) (ThreadRecord, bool) {
	if id <= 0 {
		return ThreadRecord{}, false
	}
	for _, rec := range r.Threads {
		if rec.ID == id {
			return rec, true
		}
	}
	return ThreadRecord{}, false
}

// normalize restores the allocator invariant after decoding a document that
// may have been edited by hand.
func (r *Registry) normalize() {
	if r.Threads == nil {
		r.Threads = make(map[ThreadKey]ThreadRecord)
	}
	if r.NextID < 1 {
		r.NextID = 1
	}
	for _, rec := range r.Threads {
		if rec.ID >= r.NextID {
			r.NextID = rec.ID + 1
		}
	}
}

// documentKey encodes a ThreadKey for the on-disk mapping. Both parts are
// path-escaped so the encoding is injective.
func documentKey(k ThreadKey) string {
	return url.PathEscape(k.Board) + "/" + url.PathEscape(k.ThreadID)
}

type registryDocument struct {
	NextID  int                     `json:"next_id"`
	Threads map[string]ThreadRecord `json:"threads"`
}

// MarshalJSON writes the registry as {"next_id": n, "threads": {...}}.
func (r Registry) MarshalJSON() ([]byte, error) {
	doc := registryDocument{NextID: r.NextID, Threads: make(map[string]ThreadRecord, len(r.Threads))}
	for k, rec := range r.Threads {
		doc.Threads[documentKey(k)] = rec
	}
	return json.Marshal(doc)
}

// UnmarshalJSON reads the document form. Map keys are rebuilt from each
// record's own board and thread id; the document keys are not parsed.
func (r *Registry) UnmarshalJSON(data []byte) error {
	var doc registryDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	out := Registry{NextID: doc.NextID, Threads: make(map[ThreadKey]ThreadRecord, len(doc.Threads))}
	for _, rec := range doc.Threads {
		if rec.Board == "" || rec.ThreadID == "" || rec.ID <= 0 {
			continue
		}
		out.Threads[rec.Key()] = rec
	}
	out.normalize()
	*r = out
	return nil
}
