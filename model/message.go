package model

import "fmt"

type Kind uint8

const (
	KindRequestVote Kind = iota + 1
	KindVoteGranted
	KindVoteRejected
	KindAppendEntries
	KindAppendEntriesResult
)

func (k Kind) String() string {
	switch k {
	case KindRequestVote:
		return "RequestVote"
	case KindVoteGranted:
		return "VoteGranted"
	case KindVoteRejected:
		return "VoteRejected"
	case KindAppendEntries:
		return "AppendEntries"
	case KindAppendEntriesResult:
		return "AppendEntriesResult"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Message is the envelope exchanged through mailboxes. Build it with one of the
// New* constructors and pass it by value afterwards.
//
// Every kind carries the sender's id, term and log length. The remaining
// fields are only meaningful for the replication kinds.
type Message struct {
	Kind      Kind
	SenderId  Id
	Term      uint64 // sender's current term
	LogLength uint64 // sender's log length, Root included

	// AppendEntries
	PrevIndex    uint64  // index of log entry immediately preceding new ones
	PrevTerm     uint64  // term of PrevIndex entry
	Entries      []Entry // log entries to store (empty for heartbeat)
	LeaderCommit uint64  // leader's commitIndex

	// AppendEntriesResult
	Success    bool   // true if receiver contained entry matching PrevIndex and PrevTerm
	MatchIndex uint64 // highest index known to match the leader after this append
}

// NewRequestVote is sent by a candidate to every peer.
func NewRequestVote(sender Id, term, logLength uint64) Message {
	return Message{Kind: KindRequestVote, SenderId: sender, Term: term, LogLength: logLength}
}

func NewVoteGranted(sender Id, term, logLength uint64) Message {
	return Message{Kind: KindVoteGranted, SenderId: sender, Term: term, LogLength: logLength}
}

func NewVoteRejected(sender Id, term, logLength uint64) Message {
	return Message{Kind: KindVoteRejected, SenderId: sender, Term: term, LogLength: logLength}
}

// NewAppendEntries copies entries so later changes to the caller's slice do not
// leak into a queued message.
func NewAppendEntries(sender Id, term, logLength, prevIndex, prevTerm uint64, entries []Entry, leaderCommit uint64) Message {
	var copied []Entry
	if len(entries) > 0 {
		copied = append(copied, entries...)
	}
	return Message{
		Kind:         KindAppendEntries,
		SenderId:     sender,
		Term:         term,
		LogLength:    logLength,
		PrevIndex:    prevIndex,
		PrevTerm:     prevTerm,
		Entries:      copied,
		LeaderCommit: leaderCommit,
	}
}

func NewAppendEntriesResult(sender Id, term, logLength uint64, success bool, matchIndex uint64) Message {
	return Message{
		Kind:       KindAppendEntriesResult,
		SenderId:   sender,
		Term:       term,
		LogLength:  logLength,
		Success:    success,
		MatchIndex: matchIndex,
	}
}

func (m Message) String() string {
	switch m.Kind {
	case KindAppendEntries:
		return fmt.Sprintf("%s{from:%s term:%d prev:%d/%d entries:%d commit:%d}",
			m.Kind, m.SenderId, m.Term, m.PrevIndex, m.PrevTerm, len(m.Entries), m.LeaderCommit)
	case KindAppendEntriesResult:
		return fmt.Sprintf("%s{from:%s term:%d success:%t match:%d}",
			m.Kind, m.SenderId, m.Term, m.Success, m.MatchIndex)
	default:
		return fmt.Sprintf("%s{from:%s term:%d len:%d}", m.Kind, m.SenderId, m.Term, m.LogLength)
	}
}
