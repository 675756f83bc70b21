package raft

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/raftsim/config"
	"github.com/raftsim/db"
	"github.com/raftsim/mailbox"
	"github.com/raftsim/model"
	"github.com/raftsim/topology"
)

// Cluster wires a topology and its nodes together from a configuration and
// drives them round by round. Within a round nodes tick in ascending id order.
type Cluster struct {
	conf     *config.Config
	topology *topology.Topology
	nodes    []*Node
	round    uint64

	servers []*mailbox.Server
	remotes []*mailbox.Remote

	l *slog.Logger
}

type ClusterOption func(*clusterOptions)

type clusterOptions struct {
	l  *slog.Logger
	sm func(model.Id) db.StateMachine
}

func WithClusterLogger(l *slog.Logger) ClusterOption {
	return func(o *clusterOptions) {
		o.l = l
	}
}

// WithStateMachines gives every node its own state machine built by newSM.
func WithStateMachines(newSM func(model.Id) db.StateMachine) ClusterOption {
	return func(o *clusterOptions) {
		o.sm = newSM
	}
}

func NewCluster(conf *config.Config, opts ...ClusterOption) (*Cluster, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	o := clusterOptions{l: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Cluster{conf: conf, l: o.l}
	topo, err := c.buildTopology()
	if err != nil {
		return nil, errors.Join(err, c.Close())
	}
	c.topology = topo

	for i, id := range topo.Ids() {
		nodeOpts := []Option{WithLogger(c.l), WithHeartbeat(conf.HeartbeatInterval)}
		if o.sm != nil {
			nodeOpts = append(nodeOpts, WithStateMachine(o.sm(id)))
		}
		c.nodes = append(c.nodes, NewNode(id, topo, conf.Timeout(i), nodeOpts...))
	}
	c.l.Info("cluster ready", slog.String("members", topo.String()), slog.String("mailbox", conf.Mailbox))
	return c, nil
}

func (c *Cluster) buildTopology() (*topology.Topology, error) {
	switch c.conf.Mailbox {
	case config.MailboxStack:
		return topology.New(c.conf.Ids(), mailbox.StackFactory)
	case config.MailboxFIFO:
		return topology.New(c.conf.Ids(), mailbox.QueueFactory)
	case config.MailboxRPCX:
		return c.buildRemoteTopology()
	default:
		return nil, fmt.Errorf("unknown mailbox %q", c.conf.Mailbox)
	}
}

// buildRemoteTopology serves a stack mailbox per member and reaches every
// mailbox, the node's own included, through an rpcx client.
func (c *Cluster) buildRemoteTopology() (*topology.Topology, error) {
	addrs := make(map[model.Id]string, len(c.conf.Nodes))
	for _, n := range c.conf.Nodes {
		srv, err := mailbox.Serve(n.GetAddress(), mailbox.NewStack(), c.l)
		if err != nil {
			return nil, fmt.Errorf("serving mailbox of %s: %w", n.Id, err)
		}
		c.servers = append(c.servers, srv)
		addrs[n.Id] = srv.Addr()
	}
	return topology.New(c.conf.Ids(), func(id model.Id) (mailbox.Mailbox, error) {
		r, err := mailbox.Dial(addrs[id], c.l)
		if err != nil {
			return nil, err
		}
		c.remotes = append(c.remotes, r)
		return r, nil
	})
}

// Round ticks every node once.
func (c *Cluster) Round() {
	c.round++
	before := c.roles()
	for _, n := range c.nodes {
		n.Tick()
	}
	for i, n := range c.nodes {
		if before[i] != n.Role() {
			c.l.Info("role changed",
				slog.Uint64("round", c.round),
				slog.Uint64("node", uint64(n.Id())),
				slog.String("from", before[i].String()),
				slog.String("to", n.Role().String()))
		}
	}
}

func (c *Cluster) Run(rounds int) {
	for i := 0; i < rounds; i++ {
		c.Round()
	}
}

// RunUntil runs at most limit rounds and stops early once done reports true.
// It returns the number of rounds executed.
func (c *Cluster) RunUntil(limit int, done func(*Cluster) bool) int {
	for i := 0; i < limit; i++ {
		if done(c) {
			return i
		}
		c.Round()
	}
	return limit
}

func (c *Cluster) roles() []Role {
	roles := make([]Role, len(c.nodes))
	for i, n := range c.nodes {
		roles[i] = n.Role()
	}
	return roles
}

func (c *Cluster) Leaders() []model.Id {
	var ids []model.Id
	for _, n := range c.nodes {
		if n.Role() == Leader {
			ids = append(ids, n.Id())
		}
	}
	return ids
}

func (c *Cluster) Node(id model.Id) (*Node, bool) {
	for _, n := range c.nodes {
		if n.Id() == id {
			return n, true
		}
	}
	return nil, false
}

func (c *Cluster) Nodes() []*Node {
	return c.nodes
}

func (c *Cluster) Topology() *topology.Topology {
	return c.topology
}

func (c *Cluster) Rounds() uint64 {
	return c.round
}

func (c *Cluster) States() []NodeState {
	states := make([]NodeState, 0, len(c.nodes))
	for _, n := range c.nodes {
		states = append(states, n.State())
	}
	return states
}

func (c *Cluster) Close() error {
	var errs []error
	for _, r := range c.remotes {
		errs = append(errs, r.Close())
	}
	for _, s := range c.servers {
		errs = append(errs, s.Close())
	}
	c.remotes, c.servers = nil, nil
	return errors.Join(errs...)
}
