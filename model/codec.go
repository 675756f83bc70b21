package model

import (
	"errors"

	"github.com/vmihailenco/msgpack/v5"
)

var ErrUnknownKind = errors.New("unknown message kind")

// Encode serializes a message for transports that leave the process.
func Encode(m Message) ([]byte, error) {
	return msgpack.Marshal(&m)
}

func Decode(raw []byte) (Message, error) {
	var m Message
	if err := msgpack.Unmarshal(raw, &m); err != nil {
		return Message{}, err
	}
	if m.Kind < KindRequestVote || m.Kind > KindAppendEntriesResult {
		return Message{}, ErrUnknownKind
	}
	return m, nil
}
