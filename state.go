package raft

import (
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/raftsim/model"
)

type Role uint8

const (
	Follower Role = iota
	Candidate
	Leader
)

func (r Role) String() string {
	switch r {
	case Follower:
		return "Follower"
	case Candidate:
		return "Candidate"
	case Leader:
		return "Leader"
	default:
		return "Unknown"
	}
}

// NodeState is a point-in-time view of a node, used for inspection and dumps.
type NodeState struct {
	Id          model.Id
	Role        Role
	Term        uint64
	LogLength   uint64
	CommitIndex uint64
	LastApplied uint64
	TicksLeft   uint64
	Votes       []model.Id
	Log         []model.Entry
}

// WriteStates writes states to w as one msgpack array.
func WriteStates(w io.Writer, states []NodeState) error {
	return msgpack.NewEncoder(w).Encode(states)
}

func ReadStates(r io.Reader) ([]NodeState, error) {
	var states []NodeState
	if err := msgpack.NewDecoder(r).Decode(&states); err != nil {
		return nil, err
	}
	return states, nil
}
