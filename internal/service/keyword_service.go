// internal/service/keyword_service.go
package service

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kplanner/kplanner-backend/internal/config"
	appErrors "github.com/kplanner/kplanner-backend/internal/errors"
	"github.com/kplanner/kplanner-backend/internal/model"
	"github.com/kplanner/kplanner-backend/internal/repository"
)

// KeywordService covers keyword CRUD, bulk creation with relation fan-out,
// and the matrix listing.
type KeywordService struct {
	Keywords     repository.KeywordRepositoryInterface
	Entities     repository.EntityRepositoryInterface
	Projects     repository.ProjectRepositoryInterface
	RelationRepo repository.RelationRepositoryInterface
	Relations    *RelationService
	Cfg          *config.Config
	Log          *zap.Logger
}

// BulkKeywordResult reports a bulk keyword creation call.
type BulkKeywordResult struct {
	Message          string           `json:"message"`
	Objects          []*model.Keyword `json:"objects"`
	Created          int              `json:"created"`
	Existing         int              `json:"existing"`
	Processed        int              `json:"processed"`
	Requested        int              `json:"requested"`
	RelationsCreated int              `json:"relations_created"`
	RelationsUpdated int              `json:"relations_updated"`
	BatchesProcessed int              `json:"batches_processed"`
	BatchSize        int              `json:"batch_size"`
}

// BulkCreate inserts keywords by text (trimmed; blanks skipped; existing
// rows reused) and reconciles each one against the target entities.
func (s *KeywordService) BulkCreate(owner string, texts []string, targets TargetSet, patch model.MatchTypes, overrides model.OverrideFlags, batchSize int) (*BulkKeywordResult, error) {
	if len(texts) > s.Cfg.MaxKeywordsPerRequest {
		return nil, appErrors.NewValidation("Maximum %d keywords allowed per request", s.Cfg.MaxKeywordsPerRequest)
	}
	if batchSize < 1 {
		batchSize = s.Cfg.BatchSize
	}

	res := &BulkKeywordResult{
		Objects:   []*model.Keyword{},
		Requested: len(texts),
		BatchSize: batchSize,
	}

	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		for _, text := range texts[start:end] {
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}
			kw, created, err := s.Keywords.GetOrCreate(text, owner)
			if err != nil {
				return res, err
			}
			if created {
				res.Created++
			} else {
				res.Existing++
			}
			res.Objects = append(res.Objects, kw)

			for _, kind := range model.Kinds() {
				for _, entityID := range targets.ids(kind) {
					_, relCreated, relUpdated, _, err := s.Relations.reconcilePair(kind, entityID, kw.ID, owner, patch, overrides)
					if err != nil {
						return res, err
					}
					if relCreated {
						res.RelationsCreated++
					}
					if relUpdated {
						res.RelationsUpdated++
					}
				}
			}
		}
		res.BatchesProcessed++
	}

	res.Processed = len(res.Objects)
	res.Message = fmt.Sprintf("Created %d new keywords, found %d existing", res.Created, res.Existing)
	s.Log.Info("bulk keyword create",
		zap.Int("created", res.Created), zap.Int("existing", res.Existing),
		zap.Int("relations_created", res.RelationsCreated))
	return res, nil
}

// MatrixListQuery is the controller-parsed form of the keyword listing.
type MatrixListQuery struct {
	Page      int
	PageSize  int
	ProjectID *int

	Search        string
	OnlyAttached  bool
	Trash         *bool
	HasBroad      *bool
	HasPhrase     *bool
	HasExact      *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	UpdatedAfter  *time.Time
	UpdatedBefore *time.Time

	Sorts []repository.SortKey
}

// MatrixListResult is one page of matrix keywords.
type MatrixListResult struct {
	Message    string
	Objects    []*model.MatrixKeyword
	Pagination Pagination
}

// scopeIDs resolves which entities the listing spans: a project's attachment
// sets when a project id is given, otherwise the owner's active entities.
func (s *KeywordService) scopeIDs(owner string, projectID *int) (companies, campaigns, adGroups []int, err error) {
	if projectID != nil {
		if _, err = s.Projects.GetByID(*projectID, owner); err != nil {
			return nil, nil, nil, err
		}
		if companies, err = s.Projects.AttachedIDs(model.KindCompany, *projectID, owner); err != nil {
			return nil, nil, nil, err
		}
		if campaigns, err = s.Projects.AttachedIDs(model.KindAdCampaign, *projectID, owner); err != nil {
			return nil, nil, nil, err
		}
		adGroups, err = s.Projects.AttachedIDs(model.KindAdGroup, *projectID, owner)
		return companies, campaigns, adGroups, err
	}

	if companies, err = s.Entities.ActiveIDs(model.KindCompany, owner); err != nil {
		return nil, nil, nil, err
	}
	if campaigns, err = s.Entities.ActiveIDs(model.KindAdCampaign, owner); err != nil {
		return nil, nil, nil, err
	}
	adGroups, err = s.Entities.ActiveIDs(model.KindAdGroup, owner)
	return companies, campaigns, adGroups, err
}

// ListMatrix pages through the owner's keywords and assembles the relation
// matrix with exactly three bulk relation queries, one per hierarchy level.
func (s *KeywordService) ListMatrix(owner string, q MatrixListQuery) (*MatrixListResult, error) {
	companyIDs, campaignIDs, adGroupIDs, err := s.scopeIDs(owner, q.ProjectID)
	if err != nil {
		return nil, err
	}

	page, pageSize := clampPage(q.Page, q.PageSize, s.Cfg.PageSize, s.Cfg.MaxPageSize)
	mq := repository.MatrixQuery{
		Owner:         owner,
		Offset:        (page - 1) * pageSize,
		Limit:         pageSize,
		Search:        q.Search,
		CreatedAfter:  q.CreatedAfter,
		CreatedBefore: q.CreatedBefore,
		UpdatedAfter:  q.UpdatedAfter,
		UpdatedBefore: q.UpdatedBefore,
		HasBroad:      q.HasBroad,
		HasPhrase:     q.HasPhrase,
		HasExact:      q.HasExact,
		OnlyAttached:  q.OnlyAttached,
		Trash:         q.Trash,
		CompanyIDs:    companyIDs,
		AdCampaignIDs: campaignIDs,
		AdGroupIDs:    adGroupIDs,
		Sorts:         q.Sorts,
	}

	keywords, total, err := s.Keywords.ListMatrix(mq)
	if err != nil {
		return nil, err
	}

	keywordIDs := make([]int, len(keywords))
	for i, k := range keywords {
		keywordIDs[i] = k.ID
	}

	companyRels, err := s.RelationRepo.FetchMatrix(model.KindCompany, keywordIDs, companyIDs, owner)
	if err != nil {
		return nil, err
	}
	campaignRels, err := s.RelationRepo.FetchMatrix(model.KindAdCampaign, keywordIDs, campaignIDs, owner)
	if err != nil {
		return nil, err
	}
	adGroupRels, err := s.RelationRepo.FetchMatrix(model.KindAdGroup, keywordIDs, adGroupIDs, owner)
	if err != nil {
		return nil, err
	}

	objects := make([]*model.MatrixKeyword, 0, len(keywords))
	for _, k := range keywords {
		mk := &model.MatrixKeyword{
			ID:      k.ID,
			Keyword: k.Keyword,
			Trash:   k.Trash,
			Created: k.Created,
			Updated: k.Updated,
			Relations: model.MatrixRelations{
				Companies:   map[int]model.MatchTypes{},
				AdCampaigns: map[int]model.MatchTypes{},
				AdGroups:    map[int]model.MatchTypes{},
			},
		}
		for entityID, byKeyword := range companyRels {
			if mt, ok := byKeyword[k.ID]; ok {
				mk.Relations.Companies[entityID] = mt
			}
		}
		for entityID, byKeyword := range campaignRels {
			if mt, ok := byKeyword[k.ID]; ok {
				mk.Relations.AdCampaigns[entityID] = mt
			}
		}
		for entityID, byKeyword := range adGroupRels {
			if mt, ok := byKeyword[k.ID]; ok {
				mk.Relations.AdGroups[entityID] = mt
			}
		}
		objects = append(objects, mk)
	}

	return &MatrixListResult{
		Message:    fmt.Sprintf("Retrieved %d keywords", total),
		Objects:    objects,
		Pagination: paginate(page, pageSize, total),
	}, nil
}

func (s *KeywordService) Get(owner string, id int) (*model.Keyword, string, error) {
	kw, err := s.Keywords.GetByID(id, owner)
	if err != nil {
		return nil, "", err
	}
	return kw, "Keyword retrieved successfully", nil
}

// Update rewrites the keyword text (trimmed) and trash flag.
func (s *KeywordService) Update(owner string, id int, text string, trash *bool) (*model.Keyword, string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, "", appErrors.NewValidation("keyword is required")
	}
	kw, err := s.Keywords.GetByID(id, owner)
	if err != nil {
		return nil, "", err
	}
	kw.Keyword = text
	if trash != nil {
		kw.Trash = trash
	}
	if err := s.Keywords.Update(kw); err != nil {
		return nil, "", err
	}
	return kw, "Keyword updated successfully", nil
}

// BulkTrash flips the trash flag on the given keywords in batches.
func (s *KeywordService) BulkTrash(owner string, ids []int, trash bool) (*BulkDeleteResult, error) {
	if len(ids) == 0 {
		return nil, appErrors.NewValidation("ids is required and must not be empty")
	}
	updated, batches, err := s.Keywords.SetTrash(ids, owner, trash, s.Cfg.BatchSize)
	if err != nil {
		return nil, err
	}
	verb := "Restored"
	if trash {
		verb = "Trashed"
	}
	return &BulkDeleteResult{
		Message:          fmt.Sprintf("%s %d keywords", verb, updated),
		Processed:        updated,
		Requested:        len(ids),
		Deleted:          0,
		BatchesProcessed: batches,
		BatchSize:        s.Cfg.BatchSize,
	}, nil
}

// BulkDelete removes keywords outright; their relation rows cascade away.
func (s *KeywordService) BulkDelete(owner string, ids []int) (*BulkDeleteResult, error) {
	if len(ids) == 0 {
		return nil, appErrors.NewValidation("ids is required and must not be empty")
	}
	deleted, batches, err := s.Keywords.BulkDelete(ids, owner, s.Cfg.BatchSize)
	if err != nil {
		return nil, err
	}
	return &BulkDeleteResult{
		Message:          fmt.Sprintf("Deleted %d keywords", deleted),
		Processed:        deleted,
		Requested:        len(ids),
		Deleted:          deleted,
		BatchesProcessed: batches,
		BatchSize:        s.Cfg.BatchSize,
	}, nil
}
