package raft

import (
	"cmp"
	"log/slog"

	"github.com/raftsim/model"
)

// handleRequestVote compares (term, log length) of both sides, term first. A
// requester that is ahead of this node is rejected, anything else is granted.
// Requests are answered whatever the receiver's role.
func (n *Node) handleRequestVote(req model.Message) {
	order := cmp.Or(cmp.Compare(n.term, req.Term), cmp.Compare(n.log.Len(), req.LogLength))
	if order < 0 {
		n.l.Debug("rejecting candidate", slog.Uint64("candidate", uint64(req.SenderId)), slog.Uint64("term", req.Term))
		n.send(req.SenderId, model.NewVoteRejected(n.id, n.term, n.log.Len()))
		return
	}
	n.l.Debug("granting vote", slog.Uint64("candidate", uint64(req.SenderId)), slog.Uint64("term", req.Term))
	n.send(req.SenderId, model.NewVoteGranted(n.id, n.term, n.log.Len()))
}

func (n *Node) handleVoteGranted(vote model.Message) {
	if n.role != Candidate {
		return
	}
	if _, ok := n.votes[vote.SenderId]; !ok {
		n.votes[vote.SenderId] = vote
	}
	if n.receivedMajorityVotes() {
		n.becomeLeader()
	}
}

// handleVoteRejected steps down when the rejection reveals a newer term.
func (n *Node) handleVoteRejected(rej model.Message) {
	if rej.Term <= n.term {
		return
	}
	n.l.Info("vote rejected by node with newer term",
		slog.Uint64("voter", uint64(rej.SenderId)), slog.Uint64("term", rej.Term))
	n.term = rej.Term
	n.becomeFollower()
}

func (n *Node) handleAppendEntries(req model.Message) {
	if req.Term < n.term {
		n.replyAppendEntries(req.SenderId, false, 0)
		return
	}
	if n.role == Leader && req.Term == n.term && n.id < req.SenderId {
		// two leaders in one term: the lower id keeps leading
		n.l.Warn("ignoring rival leader", slog.Uint64("rival", uint64(req.SenderId)), slog.Uint64("term", req.Term))
		n.replyAppendEntries(req.SenderId, false, 0)
		return
	}

	n.term = req.Term
	n.becomeFollower()
	n.timer.Reset()

	if !n.heartbeatMatches(req) || !n.log.AppendEntries(req.PrevIndex, req.PrevTerm, req.Entries) {
		n.l.Debug("log consistency check failed",
			slog.Uint64("leader", uint64(req.SenderId)),
			slog.Uint64("prevIndex", req.PrevIndex),
			slog.Uint64("prevTerm", req.PrevTerm),
			slog.Uint64("logLength", n.log.Len()))
		n.replyAppendEntries(req.SenderId, false, 0)
		return
	}

	lastNew := req.PrevIndex + uint64(len(req.Entries))
	if commit := min(req.LeaderCommit, lastNew); commit > n.commitIndex {
		n.commitIndex = commit
		n.applyCommitted()
	}
	n.replyAppendEntries(req.SenderId, true, lastNew)
}

// heartbeatMatches checks prevTerm for an empty AppendEntries. The log accepts
// any heartbeat whose prevIndex exists, but a follower must not commit or
// report a match on an entry from another term.
func (n *Node) heartbeatMatches(req model.Message) bool {
	if len(req.Entries) > 0 {
		return true
	}
	prev, ok := n.log.Get(req.PrevIndex)
	return !ok || prev.Root || prev.Term == req.PrevTerm
}

func (n *Node) replyAppendEntries(leader model.Id, success bool, matchIndex uint64) {
	n.send(leader, model.NewAppendEntriesResult(n.id, n.term, n.log.Len(), success, matchIndex))
}

func (n *Node) handleAppendEntriesResult(res model.Message) {
	if res.Term > n.term {
		n.l.Info("replication result carries newer term", slog.Uint64("peer", uint64(res.SenderId)), slog.Uint64("term", res.Term))
		n.term = res.Term
		n.becomeFollower()
		return
	}
	if n.role != Leader {
		return
	}
	peer := res.SenderId
	if _, ok := n.nextIndex[peer]; !ok {
		n.l.Warn("replication result from non-peer", slog.Uint64("peer", uint64(peer)))
		return
	}

	if res.Success {
		n.matchIndex[peer] = max(n.matchIndex[peer], res.MatchIndex)
		n.nextIndex[peer] = n.matchIndex[peer] + 1
		if n.nextIndex[peer] < n.log.Len() {
			n.behind[peer] = struct{}{}
		} else {
			delete(n.behind, peer)
		}
		n.advanceCommitIndex()
		return
	}

	// retry with an earlier prevIndex, jumping straight to the follower's log end when shorter
	next := n.nextIndex[peer]
	if next > 1 {
		next--
	}
	if res.LogLength < next {
		next = res.LogLength
	}
	n.nextIndex[peer] = max(next, n.matchIndex[peer]+1, 1)
	n.behind[peer] = struct{}{}
}
