package model

import "strconv"

// Id addresses a node. Ids compare by their numeric value.
type Id uint64

func (id Id) Less(other Id) bool {
	return id < other
}

func (id Id) String() string {
	return strconv.FormatUint(uint64(id), 10)
}
