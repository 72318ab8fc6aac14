package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"pantheon/internal/civilization"
	civmodels "pantheon/internal/civilization/models"
	"pantheon/internal/diplomacy"
	dipmodels "pantheon/internal/diplomacy/models"
	"pantheon/internal/milestone"
	milemodels "pantheon/internal/milestone/models"
	"pantheon/internal/religion"
	religionmodels "pantheon/internal/religion/models"
	"pantheon/internal/snapshot"
	id "pantheon/pkg/domain"
)

// snapshotVersion stamps every blob written by this build. Bump it when a
// persisted shape changes so hydration can migrate old blobs.
const snapshotVersion = 1

// diplomacyLedgerID keys the single world-scoped diplomacy blob. The
// diplomacy table is one ledger of pairwise records, not per-aggregate
// state, so it is flushed and hydrated wholesale.
const diplomacyLedgerID = "ledger"

// civilizationBlob bundles a civilization with its outstanding invites so
// both survive a restart together.
type civilizationBlob struct {
	Civilization *civmodels.Civilization `json:"civilization"`
	Invites      []*civmodels.Invite     `json:"invites"`
}

type diplomacyLedger struct {
	Relationships []*dipmodels.Relationship `json:"relationships"`
	Proposals     []*dipmodels.Proposal     `json:"proposals"`
}

// persister flushes the in-memory aggregate stores to the snapshot store at
// save points and hydrates them back at startup. Flushes run while no
// request traffic mutates the stores (startup and shutdown), so each store
// dump is internally consistent.
type persister struct {
	blobs      snapshot.Store
	religions  *religion.Store
	civs       *civilization.Store
	diplomacy  *diplomacy.Store
	milestones *milestone.Store
	logger     *slog.Logger
}

func (p *persister) restore(ctx context.Context) error {
	religionBlobs, err := p.blobs.LoadAll(ctx, snapshot.KindReligion)
	if err != nil {
		return fmt.Errorf("load religion snapshots: %w", err)
	}
	for _, blob := range religionBlobs {
		var rel religionmodels.Religion
		if err := json.Unmarshal(blob.Data, &rel); err != nil {
			return fmt.Errorf("decode religion snapshot %s: %w", blob.ID, err)
		}
		p.religions.Hydrate(ctx, &rel)
	}

	civBlobs, err := p.blobs.LoadAll(ctx, snapshot.KindCivilization)
	if err != nil {
		return fmt.Errorf("load civilization snapshots: %w", err)
	}
	for _, blob := range civBlobs {
		var bundle civilizationBlob
		if err := json.Unmarshal(blob.Data, &bundle); err != nil {
			return fmt.Errorf("decode civilization snapshot %s: %w", blob.ID, err)
		}
		p.civs.Hydrate(ctx, bundle.Civilization)
		for _, invite := range bundle.Invites {
			p.civs.HydrateInvite(ctx, invite)
		}
	}

	ledgerBlobs, err := p.blobs.LoadAll(ctx, snapshot.KindDiplomacy)
	if err != nil {
		return fmt.Errorf("load diplomacy snapshot: %w", err)
	}
	for _, blob := range ledgerBlobs {
		var ledger diplomacyLedger
		if err := json.Unmarshal(blob.Data, &ledger); err != nil {
			return fmt.Errorf("decode diplomacy snapshot: %w", err)
		}
		p.diplomacy.Hydrate(ctx, ledger.Relationships, ledger.Proposals)
	}

	mileBlobs, err := p.blobs.LoadAll(ctx, snapshot.KindMilestone)
	if err != nil {
		return fmt.Errorf("load milestone snapshots: %w", err)
	}
	for _, blob := range mileBlobs {
		var state milemodels.CivState
		if err := json.Unmarshal(blob.Data, &state); err != nil {
			return fmt.Errorf("decode milestone snapshot %s: %w", blob.ID, err)
		}
		p.milestones.Hydrate(ctx, &state)
	}

	p.logger.InfoContext(ctx, "state hydrated from snapshots",
		"religions", len(religionBlobs),
		"civilizations", len(civBlobs),
		"milestone_states", len(mileBlobs))
	return nil
}

func (p *persister) flush(ctx context.Context) error {
	religions, err := p.religions.List(ctx)
	if err != nil {
		return fmt.Errorf("list religions: %w", err)
	}
	live := make(map[string]struct{}, len(religions))
	for _, rel := range religions {
		if err := p.save(ctx, snapshot.KindReligion, rel.ID.String(), rel); err != nil {
			return err
		}
		live[rel.ID.String()] = struct{}{}
	}
	if err := p.dropStale(ctx, snapshot.KindReligion, live); err != nil {
		return err
	}

	civs, err := p.civs.List(ctx)
	if err != nil {
		return fmt.Errorf("list civilizations: %w", err)
	}
	invitesByCiv := make(map[id.CivilizationID][]*civmodels.Invite)
	for _, invite := range p.civs.Invites(ctx) {
		invitesByCiv[invite.CivilizationID] = append(invitesByCiv[invite.CivilizationID], invite)
	}
	live = make(map[string]struct{}, len(civs))
	for _, civ := range civs {
		bundle := civilizationBlob{Civilization: civ, Invites: invitesByCiv[civ.ID]}
		if err := p.save(ctx, snapshot.KindCivilization, civ.ID.String(), bundle); err != nil {
			return err
		}
		live[civ.ID.String()] = struct{}{}
	}
	if err := p.dropStale(ctx, snapshot.KindCivilization, live); err != nil {
		return err
	}

	rels, proposals := p.diplomacy.Dump(ctx)
	ledger := diplomacyLedger{Relationships: rels, Proposals: proposals}
	if err := p.save(ctx, snapshot.KindDiplomacy, diplomacyLedgerID, ledger); err != nil {
		return err
	}

	states := p.milestones.List(ctx)
	live = make(map[string]struct{}, len(states))
	for _, state := range states {
		if err := p.save(ctx, snapshot.KindMilestone, state.CivilizationID.String(), state); err != nil {
			return err
		}
		live[state.CivilizationID.String()] = struct{}{}
	}
	if err := p.dropStale(ctx, snapshot.KindMilestone, live); err != nil {
		return err
	}

	p.logger.InfoContext(ctx, "state flushed to snapshots",
		"religions", len(religions),
		"civilizations", len(civs),
		"relationships", len(rels),
		"milestone_states", len(states))
	return nil
}

func (p *persister) save(ctx context.Context, kind snapshot.Kind, blobID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s snapshot %s: %w", kind, blobID, err)
	}
	blob := snapshot.Blob{Kind: kind, ID: blobID, Version: snapshotVersion, Data: data}
	if err := p.blobs.Save(ctx, blob); err != nil {
		return fmt.Errorf("save %s snapshot %s: %w", kind, blobID, err)
	}
	return nil
}

// dropStale deletes blobs for aggregates that no longer exist, so deleted
// religions and disbanded civilizations do not resurrect on restart.
func (p *persister) dropStale(ctx context.Context, kind snapshot.Kind, live map[string]struct{}) error {
	stored, err := p.blobs.LoadAll(ctx, kind)
	if err != nil {
		return fmt.Errorf("list %s snapshots: %w", kind, err)
	}
	for _, blob := range stored {
		if _, ok := live[blob.ID]; ok {
			continue
		}
		if err := p.blobs.Delete(ctx, kind, blob.ID); err != nil {
			return fmt.Errorf("delete stale %s snapshot %s: %w", kind, blob.ID, err)
		}
	}
	return nil
}
