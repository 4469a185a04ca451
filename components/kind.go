// Package components defines the small value types shared by the engine,
// the driver and the persistence layer.
package components

import (
	"errors"
	"fmt"
)

// ErrUnknownKind is returned for a type tag that names no species kind.
var ErrUnknownKind = errors.New("unknown species type")

// Kind identifies which trophic role a species plays.
type Kind uint8

const (
	KindProducer   Kind = iota // Converts light into energy for the pool
	KindConsumer               // Hunts other species
	KindDecomposer             // Recycles matter back into the pool
)

// String returns the display name for a Kind.
func (k Kind) String() string {
	names := KindNames()
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// KindNames returns the display names for all kinds.
// The order matches the Kind constants.
func KindNames() []string {
	return []string{"Producer", "Consumer", "Decomposer"}
}

// Tag returns the type tag used in persisted documents.
func (k Kind) Tag() string {
	tags := KindTags()
	if int(k) < len(tags) {
		return tags[k]
	}
	return ""
}

// KindTags returns the persisted type tags for all kinds.
// The order matches the Kind constants.
func KindTags() []string {
	return []string{"Plant", "Animal", "Microorganism"}
}

// ParseKind resolves a persisted type tag or a display name into a Kind.
func ParseKind(s string) (Kind, error) {
	for i, tag := range KindTags() {
		if s == tag {
			return Kind(i), nil
		}
	}
	for i, name := range KindNames() {
		if s == name {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownKind, s)
}
