// Package topology maps node ids to their mailboxes for one simulation run.
package topology

import (
	"errors"
	"fmt"
	"slices"

	"github.com/raftsim/mailbox"
	"github.com/raftsim/model"
)

var (
	ErrEmptyMembership = errors.New("topology needs at least one member")
	ErrDuplicateMember = errors.New("duplicate member id")
)

// Topology is the fixed membership table shared by every node. It is built
// once and never modified, so concurrent readers need no locking.
type Topology struct {
	ids   []model.Id
	boxes map[model.Id]mailbox.Mailbox
}

// New creates one mailbox per member through factory.
func New(ids []model.Id, factory mailbox.Factory) (*Topology, error) {
	if len(ids) == 0 {
		return nil, ErrEmptyMembership
	}
	boxes := make(map[model.Id]mailbox.Mailbox, len(ids))
	for _, id := range ids {
		if _, ok := boxes[id]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMember, id)
		}
		box, err := factory(id)
		if err != nil {
			return nil, fmt.Errorf("mailbox for %s: %w", id, err)
		}
		boxes[id] = box
	}
	return FromMailboxes(boxes)
}

// FromMailboxes wraps mailboxes that were created elsewhere.
func FromMailboxes(boxes map[model.Id]mailbox.Mailbox) (*Topology, error) {
	if len(boxes) == 0 {
		return nil, ErrEmptyMembership
	}
	t := &Topology{
		ids:   make([]model.Id, 0, len(boxes)),
		boxes: make(map[model.Id]mailbox.Mailbox, len(boxes)),
	}
	for id, box := range boxes {
		t.ids = append(t.ids, id)
		t.boxes[id] = box
	}
	slices.Sort(t.ids)
	return t, nil
}

// Ids lists the members in ascending order.
func (t *Topology) Ids() []model.Id {
	return slices.Clone(t.ids)
}

func (t *Topology) Len() int {
	return len(t.ids)
}

// Quorum is the number of distinct members forming a majority.
func (t *Topology) Quorum() int {
	return len(t.ids)/2 + 1
}

func (t *Topology) Contains(id model.Id) bool {
	_, ok := t.boxes[id]
	return ok
}

// Index is the position of id in ascending member order.
func (t *Topology) Index(id model.Id) (int, bool) {
	return slices.BinarySearch(t.ids, id)
}

func (t *Topology) Lookup(id model.Id) (mailbox.Mailbox, bool) {
	box, ok := t.boxes[id]
	return box, ok
}

// Mailbox returns the mailbox of id. Membership is fixed at construction, so
// an unknown id is a programming error and panics.
func (t *Topology) Mailbox(id model.Id) mailbox.Mailbox {
	box, ok := t.boxes[id]
	if !ok {
		panic(fmt.Sprintf("topology: node %s is not a member of %v", id, t.ids))
	}
	return box
}

// Peers lists every member except self, in ascending order.
func (t *Topology) Peers(self model.Id) []model.Id {
	peers := make([]model.Id, 0, len(t.ids))
	for _, id := range t.ids {
		if id != self {
			peers = append(peers, id)
		}
	}
	return peers
}

func (t *Topology) String() string {
	return fmt.Sprint(t.ids)
}
