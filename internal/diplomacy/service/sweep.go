package service

import (
	"context"
	"errors"

	"pantheon/pkg/platform/sentinel"
	"pantheon/pkg/requestcontext"
)

// Sweep finalizes elapsed treaty breaks and purges expired relationships and
// proposals. It snapshots the ID lists first, then takes the table lock per
// item, so a long table never stalls concurrent operations.
func (s *Service) Sweep(ctx context.Context) (removedRelationships, removedProposals int) {
	now := requestcontext.Now(ctx)

	for _, pair := range s.store.RelationshipPairs(ctx) {
		rel, err := s.store.FindRelationship(ctx, pair[0], pair[1])
		if err != nil {
			continue
		}
		if !rel.BreakElapsed(now) && !rel.Expired(now) {
			continue
		}
		removed, err := s.store.DeleteRelationship(ctx, pair[0], pair[1])
		if err != nil {
			if !errors.Is(err, sentinel.ErrNotFound) {
				s.logger.ErrorContext(ctx, "sweep failed to remove relationship",
					"civ_a", pair[0], "civ_b", pair[1], "error", err.Error())
			}
			continue
		}
		removedRelationships++
		reason := "expired"
		if removed.BreakScheduledAt != nil {
			reason = "break elapsed"
		}
		s.logger.InfoContext(ctx, "relationship removed by sweep",
			"civ_a", removed.CivA, "civ_b", removed.CivB, "status", removed.Status, "reason", reason)
		s.publishEnded(ctx, removed)
	}

	for _, proposalID := range s.store.ProposalIDs(ctx) {
		proposal, err := s.store.FindProposal(ctx, proposalID)
		if err != nil || !proposal.Expired(now) {
			continue
		}
		if _, err := s.store.DeleteProposal(ctx, proposalID); err == nil {
			removedProposals++
		}
	}

	if removedRelationships > 0 || removedProposals > 0 {
		s.logger.InfoContext(ctx, "diplomacy sweep completed",
			"relationships_removed", removedRelationships,
			"proposals_removed", removedProposals)
	}
	return removedRelationships, removedProposals
}
