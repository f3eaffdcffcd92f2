package events

import "time"

// Kind identifies a stage event variant. Kind values match the wire `type`
// field verbatim so both transports parse into the same vocabulary.
type Kind string

type StageEvent interface {
	Kind() Kind
	Timestamp() time.Time
}

type Base struct {
	kind      Kind
	timestamp time.Time
}

func NewBase(kind Kind) Base {
	return Base{kind: kind, timestamp: time.Now()}
}

func (b Base) Kind() Kind {
	return b.kind
}

func (b Base) Timestamp() time.Time {
	return b.timestamp
}
