package raft

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raftsim/db"
	"github.com/raftsim/model"
	"github.com/raftsim/raftlog"
)

func Test_ProposeRequiresLeadership(t *testing.T) {
	_, nodes := defaultNodes(t)

	_, ok := nodes[0].Propose("set x 1")

	assert.False(t, ok)
	assert.Equal(t, uint64(1), nodes[0].LogLength())
}

func Test_LeaderReplicatesProposedEntries(t *testing.T) {
	topo := defaultTopology(t)
	sms := make([]*db.KV, topo.Len())
	nodes := make([]*Node, 0, topo.Len())
	for i, id := range topo.Ids() {
		sms[i] = db.NewStateMachine()
		nodes = append(nodes, NewNode(id, topo, DefaultTimeout+uint64(i)*DefaultTimeoutStep, WithStateMachine(sms[i])))
	}
	leader := elect(t, nodes, 0)

	index, ok := leader.Propose("set x 42")
	require.True(t, ok)
	assert.Equal(t, uint64(1), index)

	tickAll(nodes)
	for _, n := range nodes {
		assert.Equal(t, uint64(2), n.LogLength(), "node %s", n.Id())
	}

	tickAll(nodes)
	assert.Equal(t, uint64(1), leader.CommitIndex())
	v, ok := sms[0].Get("x")
	assert.True(t, ok)
	assert.Equal(t, "42", v)

	for i := 0; i < DefaultHeartbeat+1; i++ {
		tickAll(nodes)
	}
	for i, n := range nodes {
		assert.Equal(t, Leader == n.Role(), i == 0)
		assert.Equal(t, uint64(1), n.CommitIndex(), "node %s", n.Id())
		assert.Equal(t, uint64(1), n.LastApplied(), "node %s", n.Id())
		v, ok := sms[i].Get("x")
		assert.True(t, ok)
		assert.Equal(t, "42", v)
	}
}

func Test_LeaderBacksUpToLaggingFollower(t *testing.T) {
	topo := defaultTopology(t)
	entry := model.NewEntry(0, 1, "set x 1")
	var nodes []*Node
	for i, id := range topo.Ids() {
		opts := []Option{}
		if id != 4 {
			opts = append(opts, WithLog(raftlog.From(entry)))
		}
		nodes = append(nodes, NewNode(id, topo, DefaultTimeout+uint64(i)*DefaultTimeoutStep, opts...))
	}
	lagging := nodes[4]
	nodes[0].Timer().Set(1)

	tickAll(nodes)
	require.Equal(t, Candidate, nodes[0].Role())
	tickAll(nodes)
	require.Equal(t, Leader, nodes[0].Role())
	assert.Equal(t, uint64(1), lagging.LogLength())

	for i := 0; i < 3; i++ {
		tickAll(nodes)
	}

	assert.Equal(t, nodes[0].Log().Entries(), lagging.Log().Entries())
	assert.Equal(t, uint64(1), nodes[0].CommitIndex())
}

func Test_FollowerLearnsCommitIndexFromHeartbeat(t *testing.T) {
	_, nodes := defaultNodes(t, WithHeartbeat(2))
	leader := elect(t, nodes, 0)
	_, ok := leader.Propose("set a 1")
	require.True(t, ok)
	_, ok = leader.Propose("set b 2")
	require.True(t, ok)

	for i := 0; i < 5; i++ {
		tickAll(nodes)
	}

	for _, n := range nodes {
		assert.Equal(t, uint64(3), n.LogLength(), "node %s", n.Id())
		assert.Equal(t, uint64(2), n.CommitIndex(), "node %s", n.Id())
	}
}

func Test_CommitNeedsQuorum(t *testing.T) {
	_, nodes := defaultNodes(t)
	leader := elect(t, nodes, 0)
	_, ok := leader.Propose("set x 1")
	require.True(t, ok)

	leader.Tick()
	nodes[1].Tick()
	leader.Tick()
	assert.Equal(t, uint64(0), leader.CommitIndex())

	nodes[2].Tick()
	leader.Tick()
	assert.Equal(t, uint64(1), leader.CommitIndex())
}
