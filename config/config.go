package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/raftsim/model"
)

var ErrNodeNotFound = errors.New("node not found in config")

const (
	MailboxStack = "stack"
	MailboxFIFO  = "fifo"
	MailboxRPCX  = "rpcx"
)

const (
	DefaultElectionTimeout   = 100
	DefaultTimeoutStep       = 10
	DefaultHeartbeatInterval = 20
	DefaultRounds            = 300
)

type Node struct {
	Id      model.Id `yaml:"id"`
	Address string   `yaml:"address"`
	Port    string   `yaml:"port"`
}

func (n *Node) GetAddress() string {
	return net.JoinHostPort(n.Address, n.Port)
}

type Config struct {
	LogLevel          string `yaml:"log_level"`
	ElectionTimeout   uint64 `yaml:"election_timeout"`
	TimeoutStep       uint64 `yaml:"timeout_step"`
	HeartbeatInterval uint64 `yaml:"heartbeat_interval"`
	Mailbox           string `yaml:"mailbox"`
	Rounds            int    `yaml:"rounds"`
	Nodes             []Node `yaml:"nodes"`
}

func (c *Config) GetNode(id model.Id) (Node, error) {
	for _, n := range c.Nodes {
		if n.Id == id {
			return n, nil
		}
	}
	return Node{}, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
}

// Ids lists member ids in file order.
func (c *Config) Ids() []model.Id {
	ids := make([]model.Id, 0, len(c.Nodes))
	for _, n := range c.Nodes {
		ids = append(ids, n.Id)
	}
	return ids
}

// Timeout is the election timeout of the member at position index in
// ascending id order.
func (c *Config) Timeout(index int) uint64 {
	return c.ElectionTimeout + uint64(index)*c.TimeoutStep
}

func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) setDefaults() {
	if c.ElectionTimeout == 0 {
		c.ElectionTimeout = DefaultElectionTimeout
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.Mailbox == "" {
		c.Mailbox = MailboxStack
	}
	if c.Rounds == 0 {
		c.Rounds = DefaultRounds
	}
	for i := range c.Nodes {
		if c.Nodes[i].Address == "" {
			c.Nodes[i].Address = "127.0.0.1"
		}
		if c.Nodes[i].Port == "" {
			c.Nodes[i].Port = "0"
		}
	}
}

func (c *Config) Validate() error {
	if len(c.Nodes) == 0 {
		return errors.New("config has no nodes")
	}
	seen := make(map[model.Id]struct{}, len(c.Nodes))
	for _, n := range c.Nodes {
		if _, ok := seen[n.Id]; ok {
			return fmt.Errorf("duplicate node id %s", n.Id)
		}
		seen[n.Id] = struct{}{}
	}
	if c.ElectionTimeout == 0 {
		return errors.New("election_timeout must be positive")
	}
	if c.HeartbeatInterval == 0 {
		return errors.New("heartbeat_interval must be positive")
	}
	if c.Rounds < 0 {
		return errors.New("rounds must not be negative")
	}
	switch c.Mailbox {
	case MailboxStack, MailboxFIFO, MailboxRPCX:
	default:
		return fmt.Errorf("unknown mailbox %q", c.Mailbox)
	}
	return nil
}

// Default builds a configuration for members 0..size-1 with default timings.
func Default(size int) *Config {
	c := &Config{TimeoutStep: DefaultTimeoutStep}
	for i := 0; i < size; i++ {
		c.Nodes = append(c.Nodes, Node{Id: model.Id(i)})
	}
	c.setDefaults()
	return c
}

func Parse(raw []byte) (*Config, error) {
	c := Config{TimeoutStep: DefaultTimeoutStep}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	c.setDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func ReadConfig(file string) (*Config, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return c, nil
}
