package service

import (
	"context"
	"strings"

	"pantheon/internal/religion/models"
	id "pantheon/pkg/domain"
	dErrors "pantheon/pkg/domain-errors"
	"pantheon/pkg/requestcontext"
)

// roleNameTaken reports a case-insensitive collision with any existing role.
func roleNameTaken(r *models.Religion, name string) bool {
	lowered := strings.ToLower(strings.TrimSpace(name))
	for _, role := range r.Roles {
		if strings.ToLower(role.Name) == lowered {
			return true
		}
	}
	return false
}

// CreateCustomRole adds a role with a validated name. Requires the
// manage-roles permission.
func (s *Service) CreateCustomRole(ctx context.Context, actor id.PlayerID, religionID id.ReligionID, name string, permissions models.Permission) (*models.Role, error) {
	if err := models.ValidateRoleName(name); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	now := requestcontext.Now(ctx)

	var created *models.Role
	_, err := s.religions.Execute(ctx, religionID,
		func(r *models.Religion) error {
			if !r.HasPermission(actor, models.PermManageRoles) {
				return dErrors.New(dErrors.CodeForbidden, "you lack permission to manage roles")
			}
			if roleNameTaken(r, name) {
				return dErrors.Newf(dErrors.CodeConflict, "a role named %q already exists", name)
			}
			return nil
		},
		func(r *models.Religion) {
			role := &models.Role{
				ID:           models.NewRoleID(),
				Name:         name,
				DisplayOrder: len(r.Roles),
				Permissions:  permissions,
			}
			r.Roles[role.ID] = role
			created = role
			r.AppendActivity(models.ActivityEntry{
				ActorID: actor, Action: "role created", Detail: name, At: now,
			}, s.activityCap)
		},
	)
	if err != nil {
		return nil, wrapReligionErr(err)
	}
	return created, nil
}

// RenameRole renames a custom role. Protected roles keep their names.
func (s *Service) RenameRole(ctx context.Context, actor id.PlayerID, religionID id.ReligionID, roleID models.RoleID, newName string) error {
	if err := models.ValidateRoleName(newName); err != nil {
		return err
	}
	newName = strings.TrimSpace(newName)
	now := requestcontext.Now(ctx)

	_, err := s.religions.Execute(ctx, religionID,
		func(r *models.Religion) error {
			if !r.HasPermission(actor, models.PermManageRoles) {
				return dErrors.New(dErrors.CodeForbidden, "you lack permission to manage roles")
			}
			role, ok := r.Roles[roleID]
			if !ok {
				return dErrors.New(dErrors.CodeNotFound, "role not found")
			}
			if role.Protected {
				return dErrors.New(dErrors.CodeConflict, "protected roles cannot be renamed")
			}
			if !strings.EqualFold(role.Name, newName) && roleNameTaken(r, newName) {
				return dErrors.Newf(dErrors.CodeConflict, "a role named %q already exists", newName)
			}
			return nil
		},
		func(r *models.Religion) {
			r.Roles[roleID].Name = newName
			r.AppendActivity(models.ActivityEntry{
				ActorID: actor, Action: "role renamed", Detail: newName, At: now,
			}, s.activityCap)
		},
	)
	if err != nil {
		return wrapReligionErr(err)
	}
	return nil
}

// ModifyRolePermissions replaces a custom role's permission set.
func (s *Service) ModifyRolePermissions(ctx context.Context, actor id.PlayerID, religionID id.ReligionID, roleID models.RoleID, permissions models.Permission) error {
	now := requestcontext.Now(ctx)
	_, err := s.religions.Execute(ctx, religionID,
		func(r *models.Religion) error {
			if !r.HasPermission(actor, models.PermManageRoles) {
				return dErrors.New(dErrors.CodeForbidden, "you lack permission to manage roles")
			}
			role, ok := r.Roles[roleID]
			if !ok {
				return dErrors.New(dErrors.CodeNotFound, "role not found")
			}
			if role.Protected {
				return dErrors.New(dErrors.CodeConflict, "protected roles cannot be modified")
			}
			return nil
		},
		func(r *models.Religion) {
			r.Roles[roleID].Permissions = permissions
			r.AppendActivity(models.ActivityEntry{
				ActorID: actor, Action: "role permissions changed", Detail: string(roleID), At: now,
			}, s.activityCap)
		},
	)
	if err != nil {
		return wrapReligionErr(err)
	}
	return nil
}

// DeleteRole removes a custom role and re-parents its holders to the
// default member role, so every assignment keeps referencing an existing
// role.
func (s *Service) DeleteRole(ctx context.Context, actor id.PlayerID, religionID id.ReligionID, roleID models.RoleID) error {
	now := requestcontext.Now(ctx)
	_, err := s.religions.Execute(ctx, religionID,
		func(r *models.Religion) error {
			if !r.HasPermission(actor, models.PermManageRoles) {
				return dErrors.New(dErrors.CodeForbidden, "you lack permission to manage roles")
			}
			role, ok := r.Roles[roleID]
			if !ok {
				return dErrors.New(dErrors.CodeNotFound, "role not found")
			}
			if role.Protected {
				return dErrors.New(dErrors.CodeConflict, "protected roles cannot be deleted")
			}
			return nil
		},
		func(r *models.Religion) {
			for member, assigned := range r.MemberRoles {
				if assigned == roleID {
					r.MemberRoles[member] = models.RoleMember
				}
			}
			delete(r.Roles, roleID)
			r.AppendActivity(models.ActivityEntry{
				ActorID: actor, Action: "role deleted", Detail: string(roleID), At: now,
			}, s.activityCap)
		},
	)
	if err != nil {
		return wrapReligionErr(err)
	}
	return nil
}

// AssignRole assigns a role to a member. The synthetic system actor
// bypasses the permission check for automated join flows. The founder role
// is never directly assignable; use TransferFounder.
func (s *Service) AssignRole(ctx context.Context, actor id.PlayerID, religionID id.ReligionID, target id.PlayerID, roleID models.RoleID) error {
	if roleID == models.RoleFounder {
		return dErrors.New(dErrors.CodeConflict, "the founder role can only change hands via transfer")
	}
	now := requestcontext.Now(ctx)

	_, err := s.religions.Execute(ctx, religionID,
		func(r *models.Religion) error {
			if !r.HasPermission(actor, models.PermManageRoles) {
				return dErrors.New(dErrors.CodeForbidden, "you lack permission to assign roles")
			}
			if _, ok := r.Roles[roleID]; !ok {
				return dErrors.New(dErrors.CodeNotFound, "role not found")
			}
			if !r.IsMember(target) {
				return dErrors.New(dErrors.CodeNotFound, "target is not a member")
			}
			if target == r.FounderID {
				return dErrors.New(dErrors.CodeConflict, "the founder's role cannot be reassigned")
			}
			return nil
		},
		func(r *models.Religion) {
			r.MemberRoles[target] = roleID
			r.AppendActivity(models.ActivityEntry{
				ActorID: actor, Action: "role assigned", Detail: string(target), At: now,
			}, s.activityCap)
		},
	)
	if err != nil {
		return wrapReligionErr(err)
	}
	return nil
}

// TransferFounder atomically hands the founder role to another member and
// demotes the previous founder to officer. No intermediate state is ever
// visible: the swap happens inside one Execute call under the aggregate
// lock.
func (s *Service) TransferFounder(ctx context.Context, actor id.PlayerID, religionID id.ReligionID, newFounder id.PlayerID) error {
	now := requestcontext.Now(ctx)
	_, err := s.religions.Execute(ctx, religionID,
		func(r *models.Religion) error {
			if actor != r.FounderID && !actor.IsSystem() {
				return dErrors.New(dErrors.CodeForbidden, "only the founder may transfer the founder role")
			}
			if !r.IsMember(newFounder) {
				return dErrors.New(dErrors.CodeNotFound, "new founder must be a member")
			}
			if newFounder == r.FounderID {
				return dErrors.New(dErrors.CodeConflict, "target is already the founder")
			}
			return nil
		},
		func(r *models.Religion) {
			previous := r.FounderID
			r.FounderID = newFounder
			r.MemberRoles[newFounder] = models.RoleFounder
			r.MemberRoles[previous] = models.RoleOfficer
			r.UpdatedAt = now
			r.AppendActivity(models.ActivityEntry{
				ActorID: actor, Action: "founder transferred", Detail: string(newFounder), At: now,
			}, s.activityCap)
		},
	)
	if err != nil {
		return wrapReligionErr(err)
	}
	s.logger.InfoContext(ctx, "founder transferred", "religion_id", religionID, "new_founder", newFounder)
	return nil
}
