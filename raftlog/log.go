// Package raftlog holds a node's ordered history of entries together with the
// consistency check used by AppendEntries.
package raftlog

import "github.com/raftsim/model"

// Log is an index-ordered sequence of entries whose first element is always
// model.Root. It is owned by exactly one node and is not safe for concurrent use.
type Log struct {
	entries []model.Entry
}

func New() *Log {
	return &Log{entries: []model.Entry{model.Root}}
}

// From builds a log out of existing entries, prepending Root when the first
// entry is not already the sentinel.
func From(entries ...model.Entry) *Log {
	l := &Log{entries: make([]model.Entry, 0, len(entries)+1)}
	if len(entries) == 0 || !entries[0].Root {
		l.entries = append(l.entries, model.Root)
	}
	l.entries = append(l.entries, entries...)
	return l
}

// Len counts entries, Root included.
func (l *Log) Len() uint64 {
	return uint64(len(l.entries))
}

func (l *Log) LastIndex() uint64 {
	return l.Len() - 1
}

func (l *Log) Last() model.Entry {
	return l.entries[len(l.entries)-1]
}

func (l *Log) Get(index uint64) (model.Entry, bool) {
	if index >= l.Len() {
		return model.Entry{}, false
	}
	return l.entries[index], true
}

// TermAt reports the term of the entry at index; Root has term 0.
func (l *Log) TermAt(index uint64) (uint64, bool) {
	e, ok := l.Get(index)
	if !ok {
		return 0, false
	}
	if e.Root {
		return 0, true
	}
	return e.Term, true
}

// Entries returns a copy of the whole log.
func (l *Log) Entries() []model.Entry {
	return append([]model.Entry(nil), l.entries...)
}

// Since returns a copy of the entries starting at index, or nil past the end.
func (l *Log) Since(index uint64) []model.Entry {
	if index >= l.Len() {
		return nil
	}
	return append([]model.Entry(nil), l.entries[index:]...)
}

// Append adds a new entry right after the last one and returns it.
func (l *Log) Append(term uint64, payload string) model.Entry {
	e := model.NewEntry(term, l.Len(), payload)
	l.entries = append(l.entries, e)
	return e
}

// AppendEntries runs the consistency check and, when it passes, replaces
// everything after prevIndex with entries.
//
// A missing prevIndex slot fails without touching the log. An empty entries
// slice is a heartbeat and succeeds as long as the slot exists. Otherwise the
// entry at prevIndex must carry prevTerm (Root always matches) and the first
// new entry must sit at prevIndex+1; only that first index is checked. A
// successful append always truncates the existing suffix, even a matching one.
func (l *Log) AppendEntries(prevIndex, prevTerm uint64, entries []model.Entry) bool {
	prev, ok := l.Get(prevIndex)
	if !ok {
		return false
	}

	prevTermMatches := prev.Root || (prev.Term == prevTerm && prev.Index == prevIndex)

	if len(entries) == 0 {
		return true
	}

	first := entries[0]
	contiguous := !first.Root && first.Index == prevIndex+1

	if prevTermMatches && contiguous {
		l.entries = append(l.entries[:prevIndex+1], entries...)
	}
	return prevTermMatches && contiguous
}
