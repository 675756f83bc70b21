package topology

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raftsim/mailbox"
	"github.com/raftsim/model"
)

func Test_NewSortsMembers(t *testing.T) {
	topo, err := New([]model.Id{3, 0, 4, 1, 2}, mailbox.StackFactory)
	require.NoError(t, err)

	assert.Equal(t, []model.Id{0, 1, 2, 3, 4}, topo.Ids())
	assert.Equal(t, 5, topo.Len())
	assert.Equal(t, 3, topo.Quorum())
	assert.Equal(t, []model.Id{0, 1, 3, 4}, topo.Peers(2))
	assert.Equal(t, "[0 1 2 3 4]", topo.String())

	idx, ok := topo.Index(3)
	assert.True(t, ok)
	assert.Equal(t, 3, idx)
}

func Test_NewRejectsBadMembership(t *testing.T) {
	_, err := New(nil, mailbox.StackFactory)
	assert.ErrorIs(t, err, ErrEmptyMembership)

	_, err = New([]model.Id{1, 2, 1}, mailbox.StackFactory)
	assert.ErrorIs(t, err, ErrDuplicateMember)

	boom := errors.New("boom")
	_, err = New([]model.Id{1}, func(model.Id) (mailbox.Mailbox, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

func Test_MailboxLookup(t *testing.T) {
	topo, err := New([]model.Id{0, 1}, mailbox.QueueFactory)
	require.NoError(t, err)

	box, ok := topo.Lookup(1)
	assert.True(t, ok)
	assert.Same(t, box, topo.Mailbox(1))

	_, ok = topo.Lookup(7)
	assert.False(t, ok)
	assert.False(t, topo.Contains(7))
	assert.Panics(t, func() { topo.Mailbox(7) })
}

func Test_IdsReturnsCopy(t *testing.T) {
	topo, err := New([]model.Id{0, 1}, mailbox.StackFactory)
	require.NoError(t, err)

	ids := topo.Ids()
	ids[0] = 9
	assert.Equal(t, []model.Id{0, 1}, topo.Ids())
}

func Test_QuorumSizes(t *testing.T) {
	for size, quorum := range map[int]int{1: 1, 2: 2, 3: 2, 4: 3, 5: 3, 6: 4} {
		ids := make([]model.Id, size)
		for i := range ids {
			ids[i] = model.Id(i)
		}
		topo, err := New(ids, mailbox.StackFactory)
		require.NoError(t, err)
		assert.Equal(t, quorum, topo.Quorum(), "size %d", size)
	}
}
