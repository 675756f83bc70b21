// Package mailbox provides the per-node inbound queues through which all
// inter-node communication happens.
package mailbox

import (
	"errors"
	"sync"

	"github.com/raftsim/model"
)

var ErrClosed = errors.New("mailbox closed")

// Mailbox is the capability set every transport must provide. Implementations
// must tolerate many concurrent writers and a single reader.
type Mailbox interface {
	// Push enqueues a message.
	Push(model.Message)
	// Pop removes one pending message. The ok result is false when empty.
	// Ordering depends on the implementation.
	Pop() (model.Message, bool)
	// AllMessages returns the pending messages in push order without removing them.
	AllMessages() []model.Message
}

// Factory creates the mailbox for one member of a topology.
type Factory func(id model.Id) (Mailbox, error)

// Stack pops the most recently pushed message first.
type Stack struct {
	mu    sync.Mutex
	queue []model.Message
}

func NewStack() *Stack {
	return &Stack{}
}

func (s *Stack) Push(m model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, m)
}

func (s *Stack) Pop() (model.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return model.Message{}, false
	}
	last := len(s.queue) - 1
	m := s.queue[last]
	s.queue[last] = model.Message{}
	s.queue = s.queue[:last]
	return m, true
}

func (s *Stack) AllMessages() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Message{}, s.queue...)
}

// Queue pops messages in the order they were pushed.
type Queue struct {
	mu    sync.Mutex
	queue []model.Message
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Push(m model.Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queue = append(q.queue, m)
}

func (q *Queue) Pop() (model.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.queue) == 0 {
		return model.Message{}, false
	}
	m := q.queue[0]
	q.queue[0] = model.Message{}
	q.queue = q.queue[1:]
	return m, true
}

func (q *Queue) AllMessages() []model.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]model.Message{}, q.queue...)
}

func StackFactory(model.Id) (Mailbox, error) {
	return NewStack(), nil
}

func QueueFactory(model.Id) (Mailbox, error) {
	return NewQueue(), nil
}
