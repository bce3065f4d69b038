package replication

import (
	"context"
	"fmt"
)

// Op is the kind of change carried by a Notification
type Op uint8

const (
	OpSet    Op = 1
	OpDelete Op = 2
)

func (o Op) String() string {
	switch o {
	case OpSet:
		return "SET"
	case OpDelete:
		return "DELETE"
	default:
		return fmt.Sprintf("Op(%d)", uint8(o))
	}
}

// ParseOp converts the textual form used on the wire ("SET", "DELETE") into an Op
func ParseOp(s string) (Op, error) {
	switch s {
	case "SET", "set":
		return OpSet, nil
	case "DELETE", "delete", "DEL", "del":
		return OpDelete, nil
	default:
		return 0, fmt.Errorf("unknown sync command %q", s)
	}
}

// Notification describes one applied mutation that peers should mirror.
// ExpireAt is absolute (unix milliseconds, 0 = never), so a delayed delivery
// does not extend the lifetime of a record on the receiving node.
type Notification struct {
	Op       Op
	Key      string
	Value    []byte
	ExpireAt uint64
}

// Sink delivers a notification to one peer
type Sink interface {
	Deliver(ctx context.Context, peer string, n Notification) error
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(ctx context.Context, peer string, n Notification) error

func (f SinkFunc) Deliver(ctx context.Context, peer string, n Notification) error {
	return f(ctx, peer, n)
}
