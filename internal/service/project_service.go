// internal/service/project_service.go
package service

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kplanner/kplanner-backend/internal/config"
	appErrors "github.com/kplanner/kplanner-backend/internal/errors"
	"github.com/kplanner/kplanner-backend/internal/model"
	"github.com/kplanner/kplanner-backend/internal/repository"
)

type ProjectService struct {
	Projects repository.ProjectRepositoryInterface
	Entities repository.EntityRepositoryInterface
	Cfg      *config.Config
	Log      *zap.Logger
}

func (s *ProjectService) Create(owner, title string) (*model.Project, string, error) {
	if strings.TrimSpace(title) == "" {
		return nil, "", appErrors.NewValidation("title is required")
	}
	p := &model.Project{Title: title, Owner: owner}
	if err := s.Projects.Create(p); err != nil {
		return nil, "", err
	}
	return p, "Project created successfully", nil
}

func (s *ProjectService) List(owner string, page, pageSize int, search string) ([]*model.Project, Pagination, string, error) {
	page, pageSize = clampPage(page, pageSize, s.Cfg.PageSize, s.Cfg.MaxPageSize)
	projects, total, err := s.Projects.List(owner, (page-1)*pageSize, pageSize, search)
	if err != nil {
		return nil, Pagination{}, "", err
	}
	return projects, paginate(page, pageSize, total), fmt.Sprintf("Retrieved %d projects", total), nil
}

// Get returns the project with its attachment sets.
func (s *ProjectService) Get(owner string, id int) (*model.ProjectWithEntities, string, error) {
	p, err := s.Projects.GetByID(id, owner)
	if err != nil {
		return nil, "", err
	}
	entities, err := s.attachments(id, owner)
	if err != nil {
		return nil, "", err
	}
	return &model.ProjectWithEntities{Project: *p, Entities: *entities}, "Project retrieved successfully", nil
}

func (s *ProjectService) attachments(projectID int, owner string) (*model.ProjectEntities, error) {
	companies, err := s.Projects.AttachedIDs(model.KindCompany, projectID, owner)
	if err != nil {
		return nil, err
	}
	campaigns, err := s.Projects.AttachedIDs(model.KindAdCampaign, projectID, owner)
	if err != nil {
		return nil, err
	}
	adGroups, err := s.Projects.AttachedIDs(model.KindAdGroup, projectID, owner)
	if err != nil {
		return nil, err
	}
	return &model.ProjectEntities{
		CompanyIDs:    companies,
		AdCampaignIDs: campaigns,
		AdGroupIDs:    adGroups,
	}, nil
}

func (s *ProjectService) Update(owner string, id int, title string) (*model.Project, string, error) {
	if strings.TrimSpace(title) == "" {
		return nil, "", appErrors.NewValidation("title is required")
	}
	p, err := s.Projects.GetByID(id, owner)
	if err != nil {
		return nil, "", err
	}
	p.Title = title
	if err := s.Projects.Update(p); err != nil {
		return nil, "", err
	}
	return p, "Project updated successfully", nil
}

// UpdateEntities replaces the attachment sets named in the request. A nil
// set leaves that level untouched. Every id must belong to the owner.
func (s *ProjectService) UpdateEntities(owner string, id int, companyIDs, campaignIDs, adGroupIDs *[]int) (*model.ProjectWithEntities, string, error) {
	if _, err := s.Projects.GetByID(id, owner); err != nil {
		return nil, "", err
	}

	sets := map[model.EntityKind][]int{}
	requested := map[model.EntityKind]*[]int{
		model.KindCompany:    companyIDs,
		model.KindAdCampaign: campaignIDs,
		model.KindAdGroup:    adGroupIDs,
	}
	for _, kind := range model.Kinds() {
		ids := requested[kind]
		if ids == nil {
			continue
		}
		owned, err := s.Entities.CountOwned(kind, *ids, owner)
		if err != nil {
			return nil, "", err
		}
		if owned != len(uniqueInts(*ids)) {
			return nil, "", appErrors.NewNotFound(kind.Name())
		}
		sets[kind] = *ids
	}

	if err := s.Projects.ReplaceEntities(id, owner, sets); err != nil {
		return nil, "", err
	}
	s.Log.Info("project entities updated", zap.Int("project_id", id))

	result, _, err := s.Get(owner, id)
	if err != nil {
		return nil, "", err
	}
	return result, "Project entities updated successfully", nil
}

func (s *ProjectService) Delete(owner string, id int) (string, error) {
	if _, err := s.Projects.GetByID(id, owner); err != nil {
		return "", err
	}
	if err := s.Projects.Delete(id, owner); err != nil {
		return "", err
	}
	return "Project deleted successfully", nil
}

// BulkDelete removes projects. Unlike the other bulk deletes, any unknown or
// foreign id fails the whole request.
func (s *ProjectService) BulkDelete(owner string, ids []int) (*BulkDeleteResult, error) {
	if len(ids) == 0 {
		return nil, appErrors.NewValidation("ids is required and must not be empty")
	}
	owned, err := s.Projects.CountOwned(ids, owner)
	if err != nil {
		return nil, err
	}
	if owned != len(uniqueInts(ids)) {
		return nil, appErrors.NewNotFound("project")
	}
	deleted, batches, err := s.Projects.BulkDelete(ids, owner, s.Cfg.BatchSize)
	if err != nil {
		return nil, err
	}
	return &BulkDeleteResult{
		Message:          fmt.Sprintf("Deleted %d projects", deleted),
		Processed:        deleted,
		Requested:        len(ids),
		Deleted:          deleted,
		BatchesProcessed: batches,
		BatchSize:        s.Cfg.BatchSize,
	}, nil
}

func uniqueInts(ids []int) []int {
	seen := map[int]bool{}
	out := []int{}
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
