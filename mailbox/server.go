package mailbox

import (
	"context"
	"errors"
	"log/slog"
	"net"

	rpcx "github.com/smallnest/rpcx/server"

	"github.com/raftsim/model"
)

const serviceName = "Mailbox"

type PushArgs struct {
	Payload []byte
}

type PushReply struct{}

type PopArgs struct{}

type PopReply struct {
	Payload []byte
	Ok      bool
}

type AllArgs struct{}

type AllReply struct {
	Payloads [][]byte
}

// Service exposes one local mailbox over rpcx.
type Service struct {
	box Mailbox
}

func (s *Service) Push(ctx context.Context, args *PushArgs, reply *PushReply) error {
	m, err := model.Decode(args.Payload)
	if err != nil {
		return err
	}
	s.box.Push(m)
	return nil
}

func (s *Service) Pop(ctx context.Context, args *PopArgs, reply *PopReply) error {
	m, ok := s.box.Pop()
	if !ok {
		reply.Ok = false
		return nil
	}
	raw, err := model.Encode(m)
	if err != nil {
		return err
	}
	reply.Payload = raw
	reply.Ok = true
	return nil
}

func (s *Service) All(ctx context.Context, args *AllArgs, reply *AllReply) error {
	msgs := s.box.AllMessages()
	reply.Payloads = make([][]byte, 0, len(msgs))
	for _, m := range msgs {
		raw, err := model.Encode(m)
		if err != nil {
			return err
		}
		reply.Payloads = append(reply.Payloads, raw)
	}
	return nil
}

// Server hosts a node's mailbox so that peers in other processes can reach it
// through Remote.
type Server struct {
	rpc *rpcx.Server
	ln  net.Listener
	l   *slog.Logger
}

// Serve starts listening on addr and serves box in the background. The
// listener is bound before Serve returns, so Addr is usable right away.
func Serve(addr string, box Mailbox, l *slog.Logger) (*Server, error) {
	if l == nil {
		l = slog.Default()
	}
	rpcServer := rpcx.NewServer()
	if err := rpcServer.RegisterName(serviceName, &Service{box: box}, ""); err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &Server{rpc: rpcServer, ln: ln, l: l}
	go func() {
		if err := rpcServer.ServeListener("tcp", ln); err != nil && !errors.Is(err, rpcx.ErrServerClosed) {
			s.l.Error("mailbox server stopped", slog.String("addr", ln.Addr().String()), slog.Any("error", err))
		}
	}()
	return s, nil
}

func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Close stops the rpcx server and the listener, which rpcx may not have
// picked up yet.
func (s *Server) Close() error {
	err := s.rpc.Close()
	if lerr := s.ln.Close(); lerr != nil && !errors.Is(lerr, net.ErrClosed) {
		return errors.Join(err, lerr)
	}
	return err
}
