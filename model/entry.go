package model

import "fmt"

// Entry is one slot of a node's log. The slot at index 0 is always Root.
type Entry struct {
	Root    bool
	Term    uint64 // term in which the leader created the entry
	Index   uint64 // position in the log, Root is 0
	Payload string // command carried by the entry (e.g. "set x 42")
}

// Root is the sentinel occupying index 0 of every log. Its term is 0.
var Root = Entry{Root: true}

func NewEntry(term, index uint64, payload string) Entry {
	return Entry{Term: term, Index: index, Payload: payload}
}

func (e Entry) String() string {
	if e.Root {
		return "root"
	}
	return fmt.Sprintf("{term:%d index:%d %q}", e.Term, e.Index, e.Payload)
}
