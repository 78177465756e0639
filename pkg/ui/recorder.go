package ui

import (
	"sync"
)

// Entry is a recorded Display call.
type Entry struct {
	Level Level
	Text  string
	Done  int
	Total int
	Clear bool
}

// IsProgress indicates the entry was recorded from Progress.
func (e Entry) IsProgress() bool {
	return e.Total > 0
}

// Recorder is a Display keeping every call.
type Recorder struct {
	lock    sync.Mutex
	entries []Entry
}

// Message implements Display.
func (r *Recorder) Message(level Level, text string) {
	r.add(Entry{Level: level, Text: text})
}

// Progress implements Display.
func (r *Recorder) Progress(done, total int) {
	r.add(Entry{Done: done, Total: total})
}

// Clear implements Display.
func (r *Recorder) Clear() {
	r.add(Entry{Clear: true})
}

func (r *Recorder) add(e Entry) {
	r.lock.Lock()
	r.entries = append(r.entries, e)
	r.lock.Unlock()
}

// Entries returns recorded entries.
func (r *Recorder) Entries() []Entry {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Messages returns the text of recorded messages at level or above.
func (r *Recorder) Messages(level Level) (texts []string) {
	for _, e := range r.Entries() {
		if !e.Clear && !e.IsProgress() && e.Level >= level {
			texts = append(texts, e.Text)
		}
	}
	return
}

// Reset discards recorded entries.
func (r *Recorder) Reset() {
	r.lock.Lock()
	r.entries = nil
	r.lock.Unlock()
}
