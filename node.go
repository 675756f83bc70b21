// Package raft is a deterministic, tick-driven Raft core: nodes exchange
// messages through mailboxes and converge on a leader over repeated rounds.
package raft

import (
	"io"
	"log/slog"
	"slices"

	"github.com/raftsim/db"
	"github.com/raftsim/mailbox"
	"github.com/raftsim/model"
	"github.com/raftsim/raftlog"
	"github.com/raftsim/topology"
)

const (
	DefaultTimeout     = 100
	DefaultTimeoutStep = 10
	DefaultHeartbeat   = 20
)

// Node is one participant of the protocol. It is driven exclusively through
// Tick and is not safe for concurrent use; only its mailbox is shared.
type Node struct {
	id       model.Id
	role     Role
	term     uint64 // latest term the node has seen, never decreases
	log      *raftlog.Log
	timer    *Timer
	topology *topology.Topology

	// granted votes of the current candidacy, first vote per voter wins
	votes map[model.Id]model.Message

	// on leader
	nextIndex      map[model.Id]uint64   // for each peer, index of the next log entry to send
	matchIndex     map[model.Id]uint64   // for each peer, highest index known to be replicated
	behind         map[model.Id]struct{} // peers to resend to before the next heartbeat
	sinceHeartbeat uint64
	heartbeat      uint64
	broadcastNow   bool

	commitIndex uint64 // highest index known to be committed
	lastApplied uint64 // highest index applied to sm
	sm          db.StateMachine

	l *slog.Logger
}

type Option func(*Node)

func WithLogger(l *slog.Logger) Option {
	return func(n *Node) {
		n.l = l
	}
}

// WithStateMachine receives committed entries in log order.
func WithStateMachine(sm db.StateMachine) Option {
	return func(n *Node) {
		n.sm = sm
	}
}

// WithHeartbeat sets how many ticks a leader waits between AppendEntries rounds.
func WithHeartbeat(ticks uint64) Option {
	return func(n *Node) {
		if ticks > 0 {
			n.heartbeat = ticks
		}
	}
}

// WithLog starts the node from an existing log instead of an empty one.
func WithLog(l *raftlog.Log) Option {
	return func(n *Node) {
		n.log = l
	}
}

// WithTerm starts the node at term instead of 0.
func WithTerm(term uint64) Option {
	return func(n *Node) {
		n.term = term
	}
}

// NewNode creates a follower at term 0. id must be a member of topo.
func NewNode(id model.Id, topo *topology.Topology, timeout uint64, opts ...Option) *Node {
	if !topo.Contains(id) {
		panic("raft: node " + id.String() + " is not a member of topology " + topo.String())
	}
	n := &Node{
		id:        id,
		role:      Follower,
		log:       raftlog.New(),
		timer:     NewTimer(timeout),
		topology:  topo,
		votes:     make(map[model.Id]model.Message),
		heartbeat: DefaultHeartbeat,
		l:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.l = n.l.With(slog.Uint64("node", uint64(id)))
	return n
}

// NodesFromTopology creates one node per member, in ascending id order. The
// member at position i gets an election timeout of base + i*step.
func NodesFromTopology(topo *topology.Topology, base, step uint64, opts ...Option) []*Node {
	ids := topo.Ids()
	nodes := make([]*Node, 0, len(ids))
	for i, id := range ids {
		nodes = append(nodes, NewNode(id, topo, base+uint64(i)*step, opts...))
	}
	return nodes
}

// Tick advances the node by one logical step: the timer moves, every message
// queued in the inbox is processed and, when the timer fired, the node stands
// for election.
func (n *Node) Tick() {
	fired := n.timer.Tick()

	n.processInbox()

	if fired {
		n.becomeCandidate()
		n.solicitVotes()
	}

	if n.role == Leader {
		n.replicate()
	}
}

// processInbox drains only what was queued when the tick started.
func (n *Node) processInbox() {
	inbox := n.Inbox()
	pending := len(inbox.AllMessages())
	for i := 0; i < pending; i++ {
		m, ok := inbox.Pop()
		if !ok {
			return
		}
		n.handle(m)
	}
}

func (n *Node) handle(m model.Message) {
	n.l.Debug("handling message", slog.String("message", m.String()), slog.String("role", n.role.String()))
	switch m.Kind {
	case model.KindRequestVote:
		n.handleRequestVote(m)
	case model.KindVoteGranted:
		n.handleVoteGranted(m)
	case model.KindVoteRejected:
		n.handleVoteRejected(m)
	case model.KindAppendEntries:
		n.handleAppendEntries(m)
	case model.KindAppendEntriesResult:
		n.handleAppendEntriesResult(m)
	default:
		n.l.Warn("dropping message of unknown kind", slog.String("kind", m.Kind.String()), slog.Uint64("from", uint64(m.SenderId)))
	}
}

func (n *Node) send(to model.Id, m model.Message) {
	n.topology.Mailbox(to).Push(m)
}

func (n *Node) becomeFollower() {
	if n.role == Follower {
		return
	}
	n.l.Info("becoming follower", slog.Uint64("term", n.term), slog.String("from", n.role.String()))
	n.role = Follower
	n.nextIndex = nil
	n.matchIndex = nil
	n.behind = nil
}

// becomeCandidate keeps the current term and discards votes of any earlier candidacy.
func (n *Node) becomeCandidate() {
	n.l.Info("becoming candidate", slog.Uint64("term", n.term), slog.String("from", n.role.String()))
	n.role = Candidate
	n.nextIndex = nil
	n.matchIndex = nil
	n.behind = nil
	clear(n.votes)
}

func (n *Node) becomeLeader() {
	n.l.Info("becoming leader", slog.Uint64("term", n.term), slog.Int("votes", len(n.votes)))
	n.role = Leader
	n.nextIndex = make(map[model.Id]uint64, n.topology.Len())
	n.matchIndex = make(map[model.Id]uint64, n.topology.Len())
	n.behind = make(map[model.Id]struct{}, n.topology.Len())
	for _, peer := range n.topology.Peers(n.id) {
		n.nextIndex[peer] = n.log.Len()
		n.matchIndex[peer] = 0
	}
	n.broadcastNow = true
	n.sinceHeartbeat = 0
}

func (n *Node) solicitVotes() {
	m := model.NewRequestVote(n.id, n.term, n.log.Len())
	for _, peer := range n.topology.Peers(n.id) {
		n.send(peer, m)
	}
}

func (n *Node) receivedMajorityVotes() bool {
	granted := 0
	for _, vote := range n.votes {
		if vote.Kind == model.KindVoteGranted {
			granted++
		}
	}
	return granted >= n.topology.Quorum()
}

// Propose appends payload to the leader's log; it is replicated on the
// following ticks. It reports false when the node is not the leader.
func (n *Node) Propose(payload string) (uint64, bool) {
	if n.role != Leader {
		return 0, false
	}
	e := n.log.Append(n.term, payload)
	n.broadcastNow = true
	n.l.Debug("proposed entry", slog.Uint64("index", e.Index), slog.Uint64("term", e.Term))
	return e.Index, true
}

func (n *Node) Id() model.Id {
	return n.id
}

func (n *Node) Role() Role {
	return n.role
}

func (n *Node) Term() uint64 {
	return n.term
}

func (n *Node) Log() *raftlog.Log {
	return n.log
}

func (n *Node) LogLength() uint64 {
	return n.log.Len()
}

func (n *Node) CommitIndex() uint64 {
	return n.commitIndex
}

func (n *Node) LastApplied() uint64 {
	return n.lastApplied
}

func (n *Node) Timer() *Timer {
	return n.timer
}

func (n *Node) Topology() *topology.Topology {
	return n.topology
}

// Votes lists the voters granting the current candidacy in ascending order.
func (n *Node) Votes() []model.Id {
	ids := make([]model.Id, 0, len(n.votes))
	for id := range n.votes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Inbox is the node's own mailbox.
func (n *Node) Inbox() mailbox.Mailbox {
	return n.topology.Mailbox(n.id)
}

func (n *Node) State() NodeState {
	return NodeState{
		Id:          n.id,
		Role:        n.role,
		Term:        n.term,
		LogLength:   n.log.Len(),
		CommitIndex: n.commitIndex,
		LastApplied: n.lastApplied,
		TicksLeft:   n.timer.TicksLeft(),
		Votes:       n.Votes(),
		Log:         n.log.Entries(),
	}
}
