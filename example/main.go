package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	raft "github.com/raftsim"
	"github.com/raftsim/config"
	"github.com/raftsim/db"
	"github.com/raftsim/model"
)

func main() {
	var (
		confPath = flag.String("config", "../testdata/config.yaml", "path to the cluster configuration")
		rounds   = flag.Int("rounds", 0, "rounds to run, overrides the configuration when positive")
		propose  = flag.String("propose", "", "command proposed to the leader once elected (e.g. \"set x 42\")")
		dump     = flag.String("dump", "", "write the final node states to this file as msgpack")
	)
	flag.Parse()

	if err := run(*confPath, *rounds, *propose, *dump); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(confPath string, rounds int, propose, dump string) error {
	conf, err := config.ReadConfig(confPath)
	if err != nil {
		return err
	}
	if rounds > 0 {
		conf.Rounds = rounds
	}

	l := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: conf.Level()})).
		With(slog.String("run", uuid.NewString()))

	c, err := raft.NewCluster(conf,
		raft.WithClusterLogger(l),
		raft.WithStateMachines(func(model.Id) db.StateMachine { return db.NewStateMachine() }))
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			l.Error("cannot close cluster", slog.Any("error", err))
		}
	}()

	proposed := propose == ""
	for i := 0; i < conf.Rounds; i++ {
		c.Round()
		if proposed {
			continue
		}
		for _, id := range c.Leaders() {
			n, _ := c.Node(id)
			if index, ok := n.Propose(propose); ok {
				l.Info("proposed command", slog.Uint64("leader", uint64(id)), slog.Uint64("index", index))
				proposed = true
			}
		}
	}

	for _, st := range c.States() {
		l.Info("final state",
			slog.Uint64("node", uint64(st.Id)),
			slog.String("role", st.Role.String()),
			slog.Uint64("term", st.Term),
			slog.Uint64("logLength", st.LogLength),
			slog.Uint64("commitIndex", st.CommitIndex))
	}
	l.Info("simulation finished", slog.Uint64("rounds", c.Rounds()), slog.Any("leaders", c.Leaders()))

	if dump == "" {
		return nil
	}
	f, err := os.Create(dump)
	if err != nil {
		return err
	}
	if err := raft.WriteStates(f, c.States()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
