package raft

import (
	"log/slog"

	"github.com/raftsim/model"
)

// replicate sends AppendEntries to every peer when a broadcast is due (just
// elected, new entries, heartbeat interval elapsed) and otherwise only to the
// peers known to lag behind.
func (n *Node) replicate() {
	n.sinceHeartbeat++
	if n.broadcastNow || n.sinceHeartbeat >= n.heartbeat {
		n.broadcastNow = false
		n.sinceHeartbeat = 0
		for _, peer := range n.topology.Peers(n.id) {
			n.sendAppendEntries(peer)
		}
		return
	}
	for _, peer := range n.topology.Peers(n.id) {
		if _, ok := n.behind[peer]; ok {
			n.sendAppendEntries(peer)
		}
	}
}

func (n *Node) sendAppendEntries(peer model.Id) {
	next := min(max(n.nextIndex[peer], 1), n.log.Len())
	prevIndex := next - 1
	prevTerm, _ := n.log.TermAt(prevIndex)
	delete(n.behind, peer)
	n.send(peer, model.NewAppendEntries(n.id, n.term, n.log.Len(), prevIndex, prevTerm, n.log.Since(next), n.commitIndex))
}

// advanceCommitIndex commits the highest entry of the current term stored on
// a quorum, the leader included.
func (n *Node) advanceCommitIndex() {
	for idx := n.log.LastIndex(); idx > n.commitIndex; idx-- {
		term, _ := n.log.TermAt(idx)
		if term != n.term {
			continue
		}
		replicas := 1
		for _, match := range n.matchIndex {
			if match >= idx {
				replicas++
			}
		}
		if replicas >= n.topology.Quorum() {
			n.l.Debug("advancing commit index", slog.Uint64("from", n.commitIndex), slog.Uint64("to", idx))
			n.commitIndex = idx
			n.applyCommitted()
			return
		}
	}
}

func (n *Node) applyCommitted() {
	for n.lastApplied < n.commitIndex {
		e, ok := n.log.Get(n.lastApplied + 1)
		if !ok {
			n.l.Error("committed entry missing from log", slog.Uint64("index", n.lastApplied+1))
			return
		}
		n.lastApplied++
		if n.sm == nil {
			continue
		}
		if _, err := n.sm.Apply([]byte(e.Payload)); err != nil {
			n.l.Warn("cannot apply entry", slog.Uint64("index", e.Index), slog.Any("error", err))
		}
	}
}
