package mailbox

import (
	"context"
	"log/slog"
	"sync"
	"time"

	rpcx "github.com/smallnest/rpcx/client"

	"github.com/raftsim/model"
)

const defaultCallTimeout = 2 * time.Second

// Remote is a Mailbox living behind a Server, possibly in another process.
// Messages travel msgpack-encoded. The Mailbox contract has no error path, so
// transport failures are logged and Pop/AllMessages report an empty mailbox.
type Remote struct {
	mu     sync.Mutex
	addr   string
	conn   rpcx.XClient
	closed bool

	timeout time.Duration
	l       *slog.Logger
}

func Dial(addr string, l *slog.Logger) (*Remote, error) {
	if l == nil {
		l = slog.Default()
	}
	d, err := rpcx.NewPeer2PeerDiscovery("tcp@"+addr, "")
	if err != nil {
		return nil, err
	}
	return &Remote{
		addr:    addr,
		conn:    rpcx.NewXClient(serviceName, rpcx.Failover, rpcx.RandomSelect, d, rpcx.DefaultOption),
		timeout: defaultCallTimeout,
		l:       l,
	}, nil
}

func (r *Remote) call(method string, args, reply any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	return r.conn.Call(ctx, method, args, reply)
}

func (r *Remote) Push(m model.Message) {
	raw, err := model.Encode(m)
	if err != nil {
		r.l.Error("cannot encode message", slog.String("addr", r.addr), slog.Any("error", err))
		return
	}
	if err := r.call("Push", &PushArgs{Payload: raw}, &PushReply{}); err != nil {
		r.l.Warn("push failed", slog.String("addr", r.addr), slog.Any("error", err))
	}
}

func (r *Remote) Pop() (model.Message, bool) {
	var reply PopReply
	if err := r.call("Pop", &PopArgs{}, &reply); err != nil {
		r.l.Warn("pop failed", slog.String("addr", r.addr), slog.Any("error", err))
		return model.Message{}, false
	}
	if !reply.Ok {
		return model.Message{}, false
	}
	m, err := model.Decode(reply.Payload)
	if err != nil {
		r.l.Error("cannot decode message", slog.String("addr", r.addr), slog.Any("error", err))
		return model.Message{}, false
	}
	return m, true
}

func (r *Remote) AllMessages() []model.Message {
	var reply AllReply
	if err := r.call("All", &AllArgs{}, &reply); err != nil {
		r.l.Warn("snapshot failed", slog.String("addr", r.addr), slog.Any("error", err))
		return []model.Message{}
	}
	msgs := make([]model.Message, 0, len(reply.Payloads))
	for _, raw := range reply.Payloads {
		m, err := model.Decode(raw)
		if err != nil {
			r.l.Error("cannot decode message", slog.String("addr", r.addr), slog.Any("error", err))
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs
}

func (r *Remote) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.conn.Close()
}
