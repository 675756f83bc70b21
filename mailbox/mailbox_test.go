package mailbox

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/raftsim/model"
)

func Test_StackPopsMostRecentFirst(t *testing.T) {
	s := NewStack()
	s.Push(model.NewRequestVote(1, 0, 1))
	s.Push(model.NewRequestVote(2, 0, 1))

	m, ok := s.Pop()
	assert.True(t, ok)
	assert.Equal(t, model.Id(2), m.SenderId)
	m, ok = s.Pop()
	assert.True(t, ok)
	assert.Equal(t, model.Id(1), m.SenderId)
	_, ok = s.Pop()
	assert.False(t, ok)
}

func Test_QueuePopsOldestFirst(t *testing.T) {
	q := NewQueue()
	q.Push(model.NewRequestVote(1, 0, 1))
	q.Push(model.NewRequestVote(2, 0, 1))

	m, ok := q.Pop()
	assert.True(t, ok)
	assert.Equal(t, model.Id(1), m.SenderId)
	m, ok = q.Pop()
	assert.True(t, ok)
	assert.Equal(t, model.Id(2), m.SenderId)
	_, ok = q.Pop()
	assert.False(t, ok)
}

func Test_AllMessagesIsNonDestructive(t *testing.T) {
	for name, box := range map[string]Mailbox{"stack": NewStack(), "queue": NewQueue()} {
		t.Run(name, func(t *testing.T) {
			assert.Empty(t, box.AllMessages())
			box.Push(model.NewVoteGranted(1, 0, 1))
			box.Push(model.NewVoteGranted(2, 0, 1))

			snapshot := box.AllMessages()
			assert.Equal(t, []model.Message{model.NewVoteGranted(1, 0, 1), model.NewVoteGranted(2, 0, 1)}, snapshot)
			assert.Len(t, box.AllMessages(), 2)

			snapshot[0] = model.Message{}
			assert.Equal(t, model.NewVoteGranted(1, 0, 1), box.AllMessages()[0])
		})
	}
}

func Test_ConcurrentWriters(t *testing.T) {
	for name, box := range map[string]Mailbox{"stack": NewStack(), "queue": NewQueue()} {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func(id model.Id) {
					defer wg.Done()
					for j := 0; j < 100; j++ {
						box.Push(model.NewVoteGranted(id, 0, 1))
					}
				}(model.Id(i))
			}
			wg.Wait()

			assert.Len(t, box.AllMessages(), 800)
			perSender := map[model.Id]int{}
			for {
				m, ok := box.Pop()
				if !ok {
					break
				}
				perSender[m.SenderId]++
			}
			assert.Len(t, perSender, 8)
			for id, n := range perSender {
				assert.Equal(t, 100, n, "sender %s", id)
			}
		})
	}
}

func Test_Factories(t *testing.T) {
	box, err := StackFactory(1)
	assert.NoError(t, err)
	assert.IsType(t, &Stack{}, box)

	box, err = QueueFactory(1)
	assert.NoError(t, err)
	assert.IsType(t, &Queue{}, box)
}
