package models

import (
	"strings"
	"time"

	id "pantheon/pkg/domain"
	dErrors "pantheon/pkg/domain-errors"
)

const (
	// MinReligions is the member count below which a civilization is provisional.
	MinReligions = 2
	// MaxReligions caps civilization membership.
	MaxReligions = 4
)

// Civilization is an alliance of religions negotiating diplomacy as one unit.
type Civilization struct {
	ID                id.CivilizationID `json:"id"`
	Name              string            `json:"name"`
	FounderID         id.PlayerID       `json:"founder_id"`
	FounderReligionID id.ReligionID     `json:"founder_religion_id"`

	// Religions is ordered: the founding religion first, then acceptance order.
	Religions []id.ReligionID `json:"religions"`

	Icon        string `json:"icon,omitempty"`
	Description string `json:"description,omitempty"`

	// TotalMembers caches the summed member count across member religions.
	TotalMembers int `json:"total_members"`

	CreatedAt   time.Time  `json:"created_at"`
	DisbandedAt *time.Time `json:"disbanded_at,omitempty"`
}

// NewCivilization creates a civilization with the founding religion as sole member.
func NewCivilization(civID id.CivilizationID, name string, founder id.PlayerID, founderReligion id.ReligionID, now time.Time) (*Civilization, error) {
	name = strings.TrimSpace(name)
	if len(name) < 3 || len(name) > 50 {
		return nil, dErrors.New(dErrors.CodeValidation, "civilization name must be 3-50 characters")
	}
	return &Civilization{
		ID:                civID,
		Name:              name,
		FounderID:         founder,
		FounderReligionID: founderReligion,
		Religions:         []id.ReligionID{founderReligion},
		CreatedAt:         now,
	}, nil
}

// IsEstablished reports whether the civilization has reached the minimum
// membership for full benefits. Below the minimum it is provisional, not
// disbanded.
func (c *Civilization) IsEstablished() bool {
	return len(c.Religions) >= MinReligions
}

// HasReligion reports whether the religion is a member.
func (c *Civilization) HasReligion(religionID id.ReligionID) bool {
	for _, r := range c.Religions {
		if r == religionID {
			return true
		}
	}
	return false
}

// AddReligion appends a religion, enforcing the membership bound. Duplicates
// and additions beyond the cap fail without mutation.
func (c *Civilization) AddReligion(religionID id.ReligionID) error {
	if c.HasReligion(religionID) {
		return dErrors.New(dErrors.CodeConflict, "religion is already a member of this civilization")
	}
	if len(c.Religions) >= MaxReligions {
		return dErrors.New(dErrors.CodeInvariantViolation, "civilization is at maximum size")
	}
	c.Religions = append(c.Religions, religionID)
	return nil
}

// RemoveReligion drops a religion from the member list. Dropping below the
// minimum leaves the civilization provisional; it never auto-disbands.
func (c *Civilization) RemoveReligion(religionID id.ReligionID) error {
	for i, r := range c.Religions {
		if r == religionID {
			c.Religions = append(c.Religions[:i], c.Religions[i+1:]...)
			return nil
		}
	}
	return dErrors.New(dErrors.CodeNotFound, "religion is not a member of this civilization")
}

// Clone returns a deep copy safe to hand outside the store lock.
func (c *Civilization) Clone() *Civilization {
	cp := *c
	cp.Religions = append([]id.ReligionID(nil), c.Religions...)
	if c.DisbandedAt != nil {
		t := *c.DisbandedAt
		cp.DisbandedAt = &t
	}
	return &cp
}

// Invite is a time-limited offer for a religion to join a civilization.
type Invite struct {
	ID             id.InviteID       `json:"id"`
	CivilizationID id.CivilizationID `json:"civilization_id"`
	ReligionID     id.ReligionID     `json:"religion_id"`
	InvitedBy      id.PlayerID       `json:"invited_by"`
	SentAt         time.Time         `json:"sent_at"`
	ExpiresAt      time.Time         `json:"expires_at"`
}

// Valid reports whether the invite has not yet expired.
func (i *Invite) Valid(now time.Time) bool {
	return now.Before(i.ExpiresAt)
}
