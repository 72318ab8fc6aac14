package models

import (
	"strings"

	"github.com/google/uuid"

	dErrors "pantheon/pkg/domain-errors"
)

// Permission is a bit flag granted through a member's assigned role.
type Permission uint32

const (
	PermInviteMembers Permission = 1 << iota
	PermKickMembers
	PermBanMembers
	PermManageRoles
	PermEditInfo
	PermSpendPrestige
	PermManageBlessings
)

// PermAll is the founder's permission set.
const PermAll = PermInviteMembers | PermKickMembers | PermBanMembers |
	PermManageRoles | PermEditInfo | PermSpendPrestige | PermManageBlessings

// Has reports whether p contains every bit of required.
func (p Permission) Has(required Permission) bool {
	return p&required == required
}

// RoleID identifies a role within one religion. Fixed roles use well-known
// IDs; custom roles get generated ones.
type RoleID string

const (
	// RoleFounder is the fixed founder role. It cannot be deleted and can
	// only change hands through TransferFounder.
	RoleFounder RoleID = "founder"
	// RoleOfficer is the fixed officer role.
	RoleOfficer RoleID = "officer"
	// RoleMember is the fixed default role for new members.
	RoleMember RoleID = "member"
)

// NewRoleID generates an ID for a custom role.
func NewRoleID() RoleID { return RoleID(uuid.NewString()) }

// Role defines a named permission set within a religion.
type Role struct {
	ID           RoleID     `json:"id"`
	Name         string     `json:"name"`
	Default      bool       `json:"default"`
	Protected    bool       `json:"protected"`
	DisplayOrder int        `json:"display_order"`
	Permissions  Permission `json:"permissions"`
}

// FixedRoles returns the three roles every religion always has.
func FixedRoles() map[RoleID]*Role {
	return map[RoleID]*Role{
		RoleFounder: {
			ID:           RoleFounder,
			Name:         "Founder",
			Protected:    true,
			DisplayOrder: 0,
			Permissions:  PermAll,
		},
		RoleOfficer: {
			ID:           RoleOfficer,
			Name:         "Officer",
			Protected:    true,
			DisplayOrder: 1,
			Permissions:  PermInviteMembers | PermKickMembers | PermBanMembers | PermEditInfo | PermSpendPrestige,
		},
		RoleMember: {
			ID:           RoleMember,
			Name:         "Member",
			Default:      true,
			Protected:    true,
			DisplayOrder: 2,
			Permissions:  0,
		},
	}
}

// reservedRoleNames may not be taken by custom roles, case-insensitively.
var reservedRoleNames = map[string]struct{}{
	"founder": {},
	"officer": {},
	"member":  {},
}

// ValidateRoleName enforces the custom role naming rules: 3-30 characters,
// alphanumeric and spaces only, not a reserved name.
func ValidateRoleName(name string) error {
	trimmed := strings.TrimSpace(name)
	if len(trimmed) < 3 {
		return dErrors.New(dErrors.CodeValidation, "role name must be at least 3 characters")
	}
	if len(trimmed) > 30 {
		return dErrors.New(dErrors.CodeValidation, "role name must be at most 30 characters")
	}
	for _, r := range trimmed {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == ' ':
		default:
			return dErrors.New(dErrors.CodeValidation, "role name may only contain letters, digits, and spaces")
		}
	}
	if _, reserved := reservedRoleNames[strings.ToLower(trimmed)]; reserved {
		return dErrors.Newf(dErrors.CodeValidation, "%q is a reserved role name", trimmed)
	}
	return nil
}
