// internal/service/relation_service.go
package service

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/kplanner/kplanner-backend/internal/config"
	appErrors "github.com/kplanner/kplanner-backend/internal/errors"
	"github.com/kplanner/kplanner-backend/internal/model"
	"github.com/kplanner/kplanner-backend/internal/queue"
	"github.com/kplanner/kplanner-backend/internal/repository"
)

// CleanupTopic carries owner ids whose relation tables should be swept for
// rows with every match field unset.
const CleanupTopic = "relation.cleanup"

// TargetSet is the disjoint lists of entity ids a relation operation acts on.
type TargetSet struct {
	CompanyIDs    []int `json:"company_ids"`
	AdCampaignIDs []int `json:"ad_campaign_ids"`
	AdGroupIDs    []int `json:"ad_group_ids"`
}

func (t TargetSet) ids(kind model.EntityKind) []int {
	switch kind {
	case model.KindCompany:
		return t.CompanyIDs
	case model.KindAdCampaign:
		return t.AdCampaignIDs
	default:
		return t.AdGroupIDs
	}
}

// RelationService owns the reconciliation engine: every bulk relation
// mutation funnels through reconcilePair.
type RelationService struct {
	Relations repository.RelationRepositoryInterface
	Keywords  repository.KeywordRepositoryInterface
	Cfg       *config.Config
	Queue     queue.Queue
	Log       *zap.Logger
}

// ReconcileResult aggregates one bulk relation call.
type ReconcileResult struct {
	Processed        int                      `json:"processed"`
	Requested        int                      `json:"requested"`
	Created          int                      `json:"created"`
	Updated          int                      `json:"updated"`
	Deleted          int                      `json:"deleted"`
	Relations        []*model.KeywordRelation `json:"relations"`
	BatchesProcessed int                      `json:"batches_processed"`
	BatchSize        int                      `json:"batch_size"`
	Message          string                   `json:"message"`
}

// applyPatch rewrites one stored field. A set field is only touched when the
// caller opted in via its override flag; an unset field always takes the
// requested value. Reports whether the stored value actually changed.
func applyPatch(stored **bool, requested *bool, override bool) bool {
	if *stored != nil && !override {
		return false
	}
	if boolPtrEqual(*stored, requested) {
		return false
	}
	*stored = requested
	return true
}

func boolPtrEqual(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// reconcilePair applies the patch to one (keyword, entity) pair and returns
// the resulting relation (or its tombstone) plus what happened. A missing
// pair is created verbatim from the patch, overrides ignored; an all-nil
// patch creates nothing. An existing pair whose fields all end up unset is
// deleted and reported as a tombstone.
func (s *RelationService) reconcilePair(kind model.EntityKind, entityID, keywordID int, owner string, patch model.MatchTypes, overrides model.OverrideFlags) (rel *model.KeywordRelation, created, updated, deleted bool, err error) {
	existing, err := s.Relations.Get(kind, entityID, keywordID, owner)
	if err != nil {
		return nil, false, false, false, err
	}

	if existing == nil {
		if patch.IsEmpty() {
			return nil, false, false, false, nil
		}
		rel = &model.KeywordRelation{
			Kind:       kind,
			EntityID:   entityID,
			KeywordID:  keywordID,
			Owner:      owner,
			MatchTypes: patch,
		}
		if err := s.Relations.Insert(rel); err != nil {
			return nil, false, false, false, err
		}
		return rel, true, false, false, nil
	}

	changed := applyPatch(&existing.Broad, patch.Broad, overrides.Broad)
	changed = applyPatch(&existing.Phrase, patch.Phrase, overrides.Phrase) || changed
	changed = applyPatch(&existing.Exact, patch.Exact, overrides.Exact) || changed
	changed = applyPatch(&existing.Pause, patch.Pause, overrides.Pause) || changed

	if existing.IsEmpty() {
		if err := s.Relations.Delete(kind, existing.ID); err != nil {
			return nil, false, false, false, err
		}
		return existing.Tombstone(), false, false, true, nil
	}
	if changed {
		if err := s.Relations.Update(existing); err != nil {
			return nil, false, false, false, err
		}
	}
	return existing, false, changed, false, nil
}

// BulkCreateRelations reconciles every (keyword, target entity) pair in the
// request. Keywords not owned by the caller are silently skipped.
func (s *RelationService) BulkCreateRelations(owner string, keywordIDs []int, targets TargetSet, patch model.MatchTypes, overrides model.OverrideFlags, batchSize int) (*ReconcileResult, error) {
	batchSize = s.clampBatch(batchSize)
	keywords, err := s.Keywords.GetByIDs(keywordIDs, owner)
	if err != nil {
		return nil, err
	}

	res := &ReconcileResult{
		Processed: len(keywords),
		Requested: len(keywordIDs),
		Relations: []*model.KeywordRelation{},
		BatchSize: batchSize,
	}

	for start := 0; start < len(keywords); start += batchSize {
		end := start + batchSize
		if end > len(keywords) {
			end = len(keywords)
		}
		for _, kw := range keywords[start:end] {
			for _, kind := range model.Kinds() {
				for _, entityID := range targets.ids(kind) {
					rel, created, updated, deleted, err := s.reconcilePair(kind, entityID, kw.ID, owner, patch, overrides)
					if err != nil {
						return res, err
					}
					if rel == nil {
						continue
					}
					res.Relations = append(res.Relations, rel)
					if created {
						res.Created++
					}
					if updated {
						res.Updated++
					}
					if deleted {
						res.Deleted++
					}
				}
			}
		}
		res.BatchesProcessed++
	}

	res.Message = fmt.Sprintf("Processed %d keywords", len(keywords))
	s.publishCleanup(owner)
	return res, nil
}

// BulkUpdateRelations applies the patch to every existing relation of the
// given keywords across all three levels. No relations are created here;
// rows whose fields all end up unset are deleted.
func (s *RelationService) BulkUpdateRelations(owner string, keywordIDs []int, patch model.MatchTypes, overrides model.OverrideFlags, batchSize int) (*ReconcileResult, error) {
	if len(keywordIDs) > s.Cfg.MaxKeywordsPerRequest {
		return nil, appErrors.NewValidation("Maximum %d keywords allowed per request", s.Cfg.MaxKeywordsPerRequest)
	}
	batchSize = s.clampBatch(batchSize)
	keywords, err := s.Keywords.GetByIDs(keywordIDs, owner)
	if err != nil {
		return nil, err
	}

	res := &ReconcileResult{
		Processed: len(keywords),
		Requested: len(keywordIDs),
		Relations: []*model.KeywordRelation{},
		BatchSize: batchSize,
	}

	for start := 0; start < len(keywords); start += batchSize {
		end := start + batchSize
		if end > len(keywords) {
			end = len(keywords)
		}
		for _, kw := range keywords[start:end] {
			for _, kind := range model.Kinds() {
				relations, err := s.Relations.ListByKeyword(kind, kw.ID, owner)
				if err != nil {
					return res, err
				}
				for _, existing := range relations {
					rel, _, updated, deleted, err := s.reconcilePair(kind, existing.EntityID, kw.ID, owner, patch, overrides)
					if err != nil {
						return res, err
					}
					if rel == nil {
						continue
					}
					res.Relations = append(res.Relations, rel)
					if updated {
						res.Updated++
					}
					if deleted {
						res.Deleted++
					}
				}
			}
		}
		res.BatchesProcessed++
	}

	res.Message = fmt.Sprintf("Updated %d relations for %d keywords", res.Updated, len(keywords))
	s.publishCleanup(owner)
	return res, nil
}

// BulkDeleteRelations removes relation rows by id at one hierarchy level.
func (s *RelationService) BulkDeleteRelations(kind model.EntityKind, owner string, ids []int) (*BulkDeleteResult, error) {
	if len(ids) == 0 {
		return nil, appErrors.NewValidation("ids is required and must not be empty")
	}
	deleted, batches, err := s.Relations.BulkDelete(kind, ids, owner, s.Cfg.BatchSize)
	if err != nil {
		return nil, err
	}
	return &BulkDeleteResult{
		Message:          fmt.Sprintf("Deleted %d %s relations", deleted, kind.Name()),
		Processed:        deleted,
		Requested:        len(ids),
		Deleted:          deleted,
		BatchesProcessed: batches,
		BatchSize:        s.Cfg.BatchSize,
	}, nil
}

// SweepEmpty is the worker-side handler for cleanup events.
func (s *RelationService) SweepEmpty(owner string) (int, error) {
	n, err := s.Relations.SweepEmpty(owner)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.Log.Info("swept empty relation rows", zap.String("owner", owner), zap.Int("deleted", n))
	}
	return n, nil
}

func (s *RelationService) clampBatch(batchSize int) int {
	if batchSize < 1 {
		return s.Cfg.BatchSize
	}
	return batchSize
}

// publishCleanup is fire-and-forget; a dead queue never fails the request.
func (s *RelationService) publishCleanup(owner string) {
	if s.Queue == nil {
		return
	}
	if err := s.Queue.Publish(CleanupTopic, owner); err != nil {
		s.Log.Warn("cleanup publish failed", zap.Error(err))
	}
}
