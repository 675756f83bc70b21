package raft

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raftsim/config"
	"github.com/raftsim/db"
	"github.com/raftsim/model"
)

func hasLeader(c *Cluster) bool {
	return len(c.Leaders()) > 0
}

func Test_NewCluster(t *testing.T) {
	conf, err := config.ReadConfig("./testdata/config.yaml")
	require.NoError(t, err)
	c, err := NewCluster(conf)
	require.NoError(t, err)
	defer c.Close()

	assert.Len(t, c.Nodes(), 5)
	assert.Equal(t, 5, c.Topology().Len())

	rounds := c.RunUntil(conf.Rounds, hasLeader)

	assert.Equal(t, 101, rounds)
	assert.Equal(t, []model.Id{0}, c.Leaders())
	for _, n := range c.Nodes()[1:] {
		assert.Equal(t, Follower, n.Role())
	}
}

func Test_ClusterKeepsSingleLeader(t *testing.T) {
	c, err := NewCluster(config.Default(5))
	require.NoError(t, err)
	defer c.Close()

	c.Run(150)

	assert.Equal(t, uint64(150), c.Rounds())
	assert.Equal(t, []model.Id{0}, c.Leaders())
}

func Test_ClusterLeaderRecampaigns(t *testing.T) {
	c, err := NewCluster(config.Default(5))
	require.NoError(t, err)
	defer c.Close()

	c.Run(201)
	leader, ok := c.Node(0)
	require.True(t, ok)
	assert.Equal(t, Candidate, leader.Role())
	assert.Empty(t, c.Leaders())

	c.Round()
	assert.Equal(t, []model.Id{0}, c.Leaders())
}

func Test_ClusterWithFIFOMailboxes(t *testing.T) {
	conf := config.Default(5)
	conf.Mailbox = config.MailboxFIFO
	c, err := NewCluster(conf)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, 101, c.RunUntil(conf.Rounds, hasLeader))
	assert.Equal(t, []model.Id{0}, c.Leaders())
}

func Test_ClusterReplicatesToStateMachines(t *testing.T) {
	sms := map[model.Id]*db.KV{}
	c, err := NewCluster(config.Default(3), WithStateMachines(func(id model.Id) db.StateMachine {
		sms[id] = db.NewStateMachine()
		return sms[id]
	}))
	require.NoError(t, err)
	defer c.Close()

	c.RunUntil(200, hasLeader)
	leader, ok := c.Node(c.Leaders()[0])
	require.True(t, ok)
	_, ok = leader.Propose("set color blue")
	require.True(t, ok)

	c.Run(config.DefaultHeartbeatInterval + 2)

	require.Len(t, sms, 3)
	for id, sm := range sms {
		v, ok := sm.Get("color")
		assert.True(t, ok, "node %s", id)
		assert.Equal(t, "blue", v, "node %s", id)
	}
}

func Test_ClusterOverRPCX(t *testing.T) {
	if testing.Short() {
		t.Skip("opens tcp listeners")
	}
	conf, err := config.ReadConfig("./testdata/rpcx.yaml")
	require.NoError(t, err)
	c, err := NewCluster(conf)
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, c.Close())
	}()

	rounds := c.RunUntil(conf.Rounds, hasLeader)

	assert.Equal(t, 7, rounds)
	assert.Equal(t, []model.Id{0}, c.Leaders())
}

func Test_NewClusterRejectsInvalidConfig(t *testing.T) {
	_, err := NewCluster(&config.Config{})
	assert.Error(t, err)

	conf := config.Default(3)
	conf.Mailbox = "pigeon"
	_, err = NewCluster(conf)
	assert.Error(t, err)
}

func Test_WriteReadStates(t *testing.T) {
	c, err := NewCluster(config.Default(3))
	require.NoError(t, err)
	defer c.Close()
	c.Run(110)

	var buf bytes.Buffer
	require.NoError(t, WriteStates(&buf, c.States()))
	states, err := ReadStates(&buf)
	require.NoError(t, err)

	require.Len(t, states, 3)
	for i, st := range c.States() {
		assert.Equal(t, st.Id, states[i].Id)
		assert.Equal(t, st.Role, states[i].Role)
		assert.Equal(t, st.Term, states[i].Term)
		assert.Equal(t, st.TicksLeft, states[i].TicksLeft)
		assert.Equal(t, st.Log, states[i].Log)
	}
	assert.Equal(t, Leader, states[0].Role)
	assert.Equal(t, []model.Id{1, 2}, states[0].Votes)
}
