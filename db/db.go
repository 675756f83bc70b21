package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/VictoriaMetrics/fastcache"
)

const cacheSize = 32 << 20

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrNotFound       = errors.New("key not found")
)

// StateMachine receives committed log payloads in log order.
type StateMachine interface {
	Apply([]byte) ([]byte, error)
}

// KV is a StateMachine understanding "set <key> <value>" and "get <key>".
type KV struct {
	c *fastcache.Cache
}

func (d *KV) set(key []byte, value []byte) {
	d.c.Set(key, value)
}

func (d *KV) get(key []byte) ([]byte, bool) {
	return d.c.HasGet(nil, key)
}

// Get reads a key directly, bypassing the log.
func (d *KV) Get(key string) (string, bool) {
	v, ok := d.get([]byte(key))
	return string(v), ok
}

func (d *KV) Apply(cmd []byte) ([]byte, error) {
	fields := strings.Fields(string(cmd))
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrUnknownCommand)
	}
	switch {
	case fields[0] == "set" && len(fields) == 3:
		d.set([]byte(fields[1]), []byte(fields[2]))
		return nil, nil
	case fields[0] == "get" && len(fields) == 2:
		v, ok := d.get([]byte(fields[1]))
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, fields[1])
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}
}

func (d *KV) Reset() {
	d.c.Reset()
}

func NewStateMachine() *KV {
	return &KV{c: fastcache.New(cacheSize)}
}
