package models

import (
	"strings"
	"time"

	id "pantheon/pkg/domain"
	dErrors "pantheon/pkg/domain-errors"
)

// Domain is a religion's immutable deity affiliation.
type Domain string

const (
	DomainWar     Domain = "war"
	DomainHarvest Domain = "harvest"
	DomainSea     Domain = "sea"
	DomainCraft   Domain = "craft"
	DomainMoon    Domain = "moon"
	DomainSun     Domain = "sun"
	DomainDeath   Domain = "death"
	DomainWisdom  Domain = "wisdom"
)

var validDomains = map[Domain]struct{}{
	DomainWar: {}, DomainHarvest: {}, DomainSea: {}, DomainCraft: {},
	DomainMoon: {}, DomainSun: {}, DomainDeath: {}, DomainWisdom: {},
}

// ParseDomain validates a deity affiliation label.
func ParseDomain(raw string) (Domain, error) {
	d := Domain(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := validDomains[d]; !ok {
		return "", dErrors.Newf(dErrors.CodeValidation, "%q is not a known domain", raw)
	}
	return d, nil
}

// DefaultActivityCap bounds the activity log unless a caller overrides it.
const DefaultActivityCap = 100

// Ban records an exclusion from a religion. A nil expiry is permanent.
type Ban struct {
	PlayerID  id.PlayerID `json:"player_id"`
	Reason    string      `json:"reason"`
	BannedAt  time.Time   `json:"banned_at"`
	ExpiresAt *time.Time  `json:"expires_at,omitempty"`
}

// Expired reports whether the ban has lapsed at the given instant.
func (b Ban) Expired(now time.Time) bool {
	return b.ExpiresAt != nil && !now.Before(*b.ExpiresAt)
}

// ActivityEntry is one line of a religion's newest-first activity log.
type ActivityEntry struct {
	ActorID   id.PlayerID `json:"actor_id"`
	ActorName string      `json:"actor_name"`
	Action    string      `json:"action"`
	Detail    string      `json:"detail,omitempty"`
	At        time.Time   `json:"at"`
}

// Religion is the aggregate root for one player-founded religious order.
//
// Invariants:
//   - the founder is always present in MemberIDs and always holds the
//     founder role
//   - every assigned role ID references an existing role
//   - rank is derived from LifetimePrestige and never decreases
//   - MemberIDs keeps insertion order with the founder first
//
// Methods are lock-free; the store serializes access and hands out clones
// for reads.
type Religion struct {
	ID         id.ReligionID `json:"id"`
	Name       string        `json:"name"`
	Domain     Domain        `json:"domain"`
	FounderID  id.PlayerID   `json:"founder_id"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`

	MemberIDs   []id.PlayerID          `json:"member_ids"`
	MemberNames map[id.PlayerID]string `json:"member_names"`
	Roles       map[RoleID]*Role       `json:"roles"`
	MemberRoles map[id.PlayerID]RoleID `json:"member_roles"`
	Bans        map[id.PlayerID]Ban    `json:"bans"`
	Activity    []ActivityEntry        `json:"activity"`

	Prestige          int64   `json:"prestige"`
	LifetimePrestige  int64   `json:"lifetime_prestige"`
	// PrestigeRemainder accumulates fractional awards until a whole unit
	// can be paid out, so many small grants conserve their sum.
	PrestigeRemainder float64 `json:"prestige_remainder"`

	Blessings map[string]time.Time `json:"blessings"`
}

// NewReligion creates a religion with the founder as sole member.
func NewReligion(religionID id.ReligionID, name string, domain Domain, founder id.PlayerID, founderName string, now time.Time) (*Religion, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "religion name is required")
	}
	if len(name) > 64 {
		return nil, dErrors.New(dErrors.CodeValidation, "religion name must be at most 64 characters")
	}
	if founder == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "founder is required")
	}
	if _, ok := validDomains[domain]; !ok {
		return nil, dErrors.New(dErrors.CodeValidation, "domain is required")
	}

	r := &Religion{
		ID:          religionID,
		Name:        name,
		Domain:      domain,
		FounderID:   founder,
		CreatedAt:   now,
		UpdatedAt:   now,
		MemberIDs:   []id.PlayerID{founder},
		MemberNames: map[id.PlayerID]string{founder: founderName},
		Roles:       FixedRoles(),
		MemberRoles: map[id.PlayerID]RoleID{founder: RoleFounder},
		Bans:        make(map[id.PlayerID]Ban),
		Blessings:   make(map[string]time.Time),
	}
	return r, nil
}

// EnsureCollections lazily reinitializes any nil backing collection so a
// partially persisted aggregate never fails a call.
func (r *Religion) EnsureCollections() {
	if r.MemberNames == nil {
		r.MemberNames = make(map[id.PlayerID]string)
	}
	if r.Roles == nil {
		r.Roles = FixedRoles()
	}
	if r.MemberRoles == nil {
		r.MemberRoles = make(map[id.PlayerID]RoleID)
	}
	if r.Bans == nil {
		r.Bans = make(map[id.PlayerID]Ban)
	}
	if r.Blessings == nil {
		r.Blessings = make(map[string]time.Time)
	}
}

// IsMember reports membership.
func (r *Religion) IsMember(player id.PlayerID) bool {
	_, ok := r.MemberRoles[player]
	return ok
}

// MemberCount returns the number of members.
func (r *Religion) MemberCount() int { return len(r.MemberIDs) }

// IsBanned reports whether the player holds an unexpired ban. Expired bans
// are transparently treated as absent; SweepExpiredBans purges them.
func (r *Religion) IsBanned(player id.PlayerID, now time.Time) bool {
	ban, ok := r.Bans[player]
	return ok && !ban.Expired(now)
}

// AddMember appends a player with the default role. Fails on duplicates and
// on active bans.
func (r *Religion) AddMember(player id.PlayerID, displayName string, now time.Time) error {
	r.EnsureCollections()
	if r.IsMember(player) {
		return dErrors.New(dErrors.CodeConflict, "player is already a member")
	}
	if r.IsBanned(player, now) {
		return dErrors.New(dErrors.CodeConflict, "player is banned from this religion")
	}
	r.MemberIDs = append(r.MemberIDs, player)
	r.MemberNames[player] = displayName
	r.MemberRoles[player] = RoleMember
	r.UpdatedAt = now
	return nil
}

// RemoveMember drops a player. The founder cannot be removed; the founder
// role changes hands only through TransferFounder.
func (r *Religion) RemoveMember(player id.PlayerID, now time.Time) error {
	if player == r.FounderID {
		return dErrors.New(dErrors.CodeConflict, "the founder cannot be removed; transfer the founder role first")
	}
	if !r.IsMember(player) {
		return dErrors.New(dErrors.CodeNotFound, "player is not a member")
	}
	for i, member := range r.MemberIDs {
		if member == player {
			r.MemberIDs = append(r.MemberIDs[:i], r.MemberIDs[i+1:]...)
			break
		}
	}
	delete(r.MemberNames, player)
	delete(r.MemberRoles, player)
	r.UpdatedAt = now
	return nil
}

// Ban records an exclusion. The player is removed first if currently a
// member; banning the founder is rejected.
func (r *Religion) Ban(player id.PlayerID, reason string, expiresAt *time.Time, now time.Time) error {
	r.EnsureCollections()
	if player == r.FounderID {
		return dErrors.New(dErrors.CodeConflict, "the founder cannot be banned")
	}
	if r.IsBanned(player, now) {
		return dErrors.New(dErrors.CodeConflict, "player is already banned")
	}
	if r.IsMember(player) {
		if err := r.RemoveMember(player, now); err != nil {
			return err
		}
	}
	r.Bans[player] = Ban{PlayerID: player, Reason: reason, BannedAt: now, ExpiresAt: expiresAt}
	r.UpdatedAt = now
	return nil
}

// Unban lifts a ban, expired or not.
func (r *Religion) Unban(player id.PlayerID, now time.Time) error {
	if _, ok := r.Bans[player]; !ok {
		return dErrors.New(dErrors.CodeNotFound, "player is not banned")
	}
	delete(r.Bans, player)
	r.UpdatedAt = now
	return nil
}

// SweepExpiredBans purges lapsed bans and returns how many were removed.
func (r *Religion) SweepExpiredBans(now time.Time) int {
	removed := 0
	for player, ban := range r.Bans {
		if ban.Expired(now) {
			delete(r.Bans, player)
			removed++
		}
	}
	return removed
}

// AppendActivity inserts an entry at the head and truncates the tail beyond
// maxEntries. A non-positive cap falls back to DefaultActivityCap.
func (r *Religion) AppendActivity(entry ActivityEntry, maxEntries int) {
	if maxEntries <= 0 {
		maxEntries = DefaultActivityCap
	}
	r.Activity = append([]ActivityEntry{entry}, r.Activity...)
	if len(r.Activity) > maxEntries {
		r.Activity = r.Activity[:maxEntries]
	}
}

// AddPrestige credits both the spendable and lifetime totals. Amounts <= 0
// are no-ops. Returns true when the religion's rank rose.
func (r *Religion) AddPrestige(amount int64, now time.Time) bool {
	if amount <= 0 {
		return false
	}
	before := RankFor(r.LifetimePrestige)
	r.Prestige += amount
	r.LifetimePrestige += amount
	r.UpdatedAt = now
	return RankFor(r.LifetimePrestige) > before
}

// RemovePrestige debits the spendable balance. Fails without mutation when
// the balance is insufficient; the lifetime total and rank are untouched.
func (r *Religion) RemovePrestige(amount int64, now time.Time) bool {
	if amount <= 0 || amount > r.Prestige {
		return false
	}
	r.Prestige -= amount
	r.UpdatedAt = now
	return true
}

// AddFractionalPrestige accumulates a floating remainder and pays out whole
// units through the integer path, conserving the sum across many small
// grants. Returns the whole units awarded and whether rank rose.
func (r *Religion) AddFractionalPrestige(amount float64, now time.Time) (int64, bool) {
	if amount <= 0 {
		return 0, false
	}
	r.PrestigeRemainder += amount
	whole := int64(r.PrestigeRemainder)
	if whole < 1 {
		return 0, false
	}
	r.PrestigeRemainder -= float64(whole)
	return whole, r.AddPrestige(whole, now)
}

// Rank derives the religion's rank from its lifetime prestige.
func (r *Religion) Rank() Rank { return RankFor(r.LifetimePrestige) }

// UnlockBlessing records a blessing. Returns false if already unlocked.
func (r *Religion) UnlockBlessing(blessingID string, now time.Time) bool {
	r.EnsureCollections()
	if _, ok := r.Blessings[blessingID]; ok {
		return false
	}
	r.Blessings[blessingID] = now
	r.UpdatedAt = now
	return true
}

// RoleFor resolves a member's role. The founder always resolves to the
// founder role even if the assignment map was corrupted.
func (r *Religion) RoleFor(player id.PlayerID) (*Role, bool) {
	r.EnsureCollections()
	if player == r.FounderID {
		return r.Roles[RoleFounder], true
	}
	roleID, ok := r.MemberRoles[player]
	if !ok {
		return nil, false
	}
	role, ok := r.Roles[roleID]
	return role, ok
}

// HasPermission reports whether the player's role grants the permission.
// The synthetic system actor always passes.
func (r *Religion) HasPermission(player id.PlayerID, required Permission) bool {
	if player.IsSystem() {
		return true
	}
	role, ok := r.RoleFor(player)
	if !ok {
		return false
	}
	return role.Permissions.Has(required)
}

// Clone returns a deep copy so readers never hold a reference into live
// aggregate state.
func (r *Religion) Clone() *Religion {
	out := *r
	out.MemberIDs = append([]id.PlayerID(nil), r.MemberIDs...)
	out.MemberNames = make(map[id.PlayerID]string, len(r.MemberNames))
	for k, v := range r.MemberNames {
		out.MemberNames[k] = v
	}
	out.Roles = make(map[RoleID]*Role, len(r.Roles))
	for k, v := range r.Roles {
		role := *v
		out.Roles[k] = &role
	}
	out.MemberRoles = make(map[id.PlayerID]RoleID, len(r.MemberRoles))
	for k, v := range r.MemberRoles {
		out.MemberRoles[k] = v
	}
	out.Bans = make(map[id.PlayerID]Ban, len(r.Bans))
	for k, v := range r.Bans {
		out.Bans[k] = v
	}
	out.Activity = append([]ActivityEntry(nil), r.Activity...)
	out.Blessings = make(map[string]time.Time, len(r.Blessings))
	for k, v := range r.Blessings {
		out.Blessings[k] = v
	}
	return &out
}
