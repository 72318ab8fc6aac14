// Package domain defines the typed identifiers shared by every module.
//
// Aggregate IDs are distinct UUID types so a religion ID can never be passed
// where a civilization ID is expected; the compiler enforces it. Player IDs
// stay opaque strings because players are an external identity this core
// only references.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "pantheon/pkg/domain-errors"
)

// PlayerID is the opaque identifier of an external player identity.
type PlayerID string

// SystemActor is the synthetic acting player used by automated flows
// (invite acceptance, milestone payouts). It bypasses permission checks.
const SystemActor PlayerID = "@system"

// IsSystem reports whether the actor is the synthetic system actor.
func (p PlayerID) IsSystem() bool { return p == SystemActor }

type (
	// ReligionID identifies a religion aggregate.
	ReligionID uuid.UUID
	// CivilizationID identifies a civilization aggregate.
	CivilizationID uuid.UUID
	// RelationshipID identifies a diplomatic relationship record.
	RelationshipID uuid.UUID
	// ProposalID identifies a diplomatic proposal.
	ProposalID uuid.UUID
	// InviteID identifies a civilization invite.
	InviteID uuid.UUID
)

// NewReligionID generates a fresh religion ID.
func NewReligionID() ReligionID { return ReligionID(uuid.New()) }

// NewCivilizationID generates a fresh civilization ID.
func NewCivilizationID() CivilizationID { return CivilizationID(uuid.New()) }

// NewRelationshipID generates a fresh relationship ID.
func NewRelationshipID() RelationshipID { return RelationshipID(uuid.New()) }

// NewProposalID generates a fresh proposal ID.
func NewProposalID() ProposalID { return ProposalID(uuid.New()) }

// NewInviteID generates a fresh invite ID.
func NewInviteID() InviteID { return InviteID(uuid.New()) }

func (id ReligionID) String() string     { return uuid.UUID(id).String() }
func (id CivilizationID) String() string { return uuid.UUID(id).String() }
func (id RelationshipID) String() string { return uuid.UUID(id).String() }
func (id ProposalID) String() string     { return uuid.UUID(id).String() }
func (id InviteID) String() string       { return uuid.UUID(id).String() }

// The ID types round-trip through JSON in canonical UUID form, both on the
// HTTP surface and in persisted snapshots.

func (id ReligionID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id CivilizationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id RelationshipID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id ProposalID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id InviteID) MarshalText() ([]byte, error)       { return []byte(id.String()), nil }

func (id *ReligionID) UnmarshalText(b []byte) error {
	parsed, err := uuid.ParseBytes(b)
	*id = ReligionID(parsed)
	return err
}

func (id *CivilizationID) UnmarshalText(b []byte) error {
	parsed, err := uuid.ParseBytes(b)
	*id = CivilizationID(parsed)
	return err
}

func (id *RelationshipID) UnmarshalText(b []byte) error {
	parsed, err := uuid.ParseBytes(b)
	*id = RelationshipID(parsed)
	return err
}

func (id *ProposalID) UnmarshalText(b []byte) error {
	parsed, err := uuid.ParseBytes(b)
	*id = ProposalID(parsed)
	return err
}

func (id *InviteID) UnmarshalText(b []byte) error {
	parsed, err := uuid.ParseBytes(b)
	*id = InviteID(parsed)
	return err
}

func (id ReligionID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id CivilizationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id RelationshipID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ProposalID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id InviteID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }

// parseUUID enforces the trust-boundary invariant: IDs must be valid,
// non-nil UUIDs. Reject everything else before it reaches a store.
func parseUUID(raw string, kind string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s id is required", kind)
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s id is not a valid uuid", kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s id must not be nil", kind)
	}
	return parsed, nil
}

// ParseReligionID parses and validates a religion ID from its string form.
func ParseReligionID(raw string) (ReligionID, error) {
	parsed, err := parseUUID(raw, "religion")
	return ReligionID(parsed), err
}

// ParseCivilizationID parses and validates a civilization ID.
func ParseCivilizationID(raw string) (CivilizationID, error) {
	parsed, err := parseUUID(raw, "civilization")
	return CivilizationID(parsed), err
}

// ParseRelationshipID parses and validates a relationship ID.
func ParseRelationshipID(raw string) (RelationshipID, error) {
	parsed, err := parseUUID(raw, "relationship")
	return RelationshipID(parsed), err
}

// ParseProposalID parses and validates a proposal ID.
func ParseProposalID(raw string) (ProposalID, error) {
	parsed, err := parseUUID(raw, "proposal")
	return ProposalID(parsed), err
}

// ParseInviteID parses and validates an invite ID.
func ParseInviteID(raw string) (InviteID, error) {
	parsed, err := parseUUID(raw, "invite")
	return InviteID(parsed), err
}

// ParsePlayerID trims and validates an opaque player ID.
func ParsePlayerID(raw string) (PlayerID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "player id is required")
	}
	if len(raw) > 64 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "player id is too long")
	}
	return PlayerID(raw), nil
}
