// Package snapshot is the persistence port. The core decides what a blob
// logically contains; the store owns nothing about its byte layout beyond
// the version stamp used for forward migration.
package snapshot

import (
	"context"
)

// Kind names the aggregate type a blob belongs to.
type Kind string

const (
	KindReligion     Kind = "religion"
	KindCivilization Kind = "civilization"
	KindDiplomacy    Kind = "diplomacy"
	KindMilestone    Kind = "milestone"
)

// Blob is a versioned opaque aggregate snapshot keyed by aggregate ID.
type Blob struct {
	Kind    Kind
	ID      string
	Version int
	Data    []byte
}

// Store persists aggregate snapshots at defined save points. Calls are
// synchronous and never interleaved with per-event mutation.
type Store interface {
	Save(ctx context.Context, blob Blob) error
	Load(ctx context.Context, kind Kind, id string) (Blob, error)
	// LoadAll returns every stored blob of a kind, for startup hydration.
	LoadAll(ctx context.Context, kind Kind) ([]Blob, error)
	Delete(ctx context.Context, kind Kind, id string) error
}
