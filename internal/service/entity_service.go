// internal/service/entity_service.go
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

// EntityService implements CRUD plus the active-limit policy for all three
// hierarchy levels.
type EntityService struct {
	Repo repository.EntityRepositoryInterface
	Cfg  *config.Config
	Log  *zap.Logger
}

// EntityResult pairs an entity with the human-readable message the API
// returns alongside it. Limit refusals travel here, not as errors.
type EntityResult struct {
	Message string
	Entity  *model.AdEntity
}

// EntityListQuery carries the listing filters after controller parsing.
type EntityListQuery struct {
	Page      int
	PageSize  int
	Search    string
	IsActive  *bool
	ParentID  *int
	SortBy    string
	SortOrder string
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (s *EntityService) activeLimit(kind model.EntityKind) int {
	limits := s.Cfg.ActiveLimits()
	return limits[int(kind)]
}

// CanActivate reports whether one more row of this kind may go active for
// the owner. excludeID removes the row being updated or toggled from the
// count so staying active never trips the limit.
func (s *EntityService) CanActivate(kind model.EntityKind, owner string, excludeID int) (bool, string, error) {
	limit := s.activeLimit(kind)
	count, err := s.Repo.CountActive(kind, owner, excludeID)
	if err != nil {
		return false, "", err
	}
	if count >= limit {
		msg := fmt.Sprintf("Maximum %d active %ss allowed. Please deactivate another %s first.",
			limit, kind.Name(), kind.Name())
		return false, msg, nil
	}
	return true, "", nil
}

// validateParent checks the parent row exists and belongs to the owner.
// A foreign or missing parent surfaces as not found.
func (s *EntityService) validateParent(kind model.EntityKind, parentID int, owner string) error {
	if kind.ParentColumn() == "" {
		return nil
	}
	_, err := s.Repo.GetByID(kind.ParentKind(), parentID, owner)
	return err
}

// Create inserts a new entity. If the caller asked for active and the limit
// is reached, the row is still created but forced inactive, and the message
// says why.
func (s *EntityService) Create(kind model.EntityKind, owner, title string, isActive bool, parentID int) (*EntityResult, error) {
	if strings.TrimSpace(title) == "" {
		return nil, appErrors.NewValidation("title is required")
	}
	if err := s.validateParent(kind, parentID, owner); err != nil {
		return nil, err
	}

	limitMsg := ""
	if isActive {
		ok, msg, err := s.CanActivate(kind, owner, 0)
		if err != nil {
			return nil, err
		}
		if !ok {
			isActive = false
			limitMsg = msg
		}
	}

	e := &model.AdEntity{
		Kind:     kind,
		Title:    title,
		IsActive: isActive,
		Owner:    owner,
		ParentID: parentID,
	}
	if err := s.Repo.Create(e); err != nil {
		return nil, err
	}
	s.Log.Info("entity created",
		zap.String("kind", kind.Name()), zap.Int("id", e.ID), zap.Bool("is_active", e.IsActive))

	msg := fmt.Sprintf("%s created successfully", capitalize(kind.Name()))
	if limitMsg != "" {
		msg = fmt.Sprintf("%s created as inactive. %s", capitalize(kind.Name()), limitMsg)
	}
	return &EntityResult{Message: msg, Entity: e}, nil
}

// Update rewrites title, parent and active flag. The limit check fires only
// on an inactive-to-active transition; staying active or deactivating is
// always allowed.
func (s *EntityService) Update(kind model.EntityKind, owner string, id int, title string, isActive bool, parentID int) (*EntityResult, error) {
	if strings.TrimSpace(title) == "" {
		return nil, appErrors.NewValidation("title is required")
	}
	e, err := s.Repo.GetByID(kind, id, owner)
	if err != nil {
		return nil, err
	}
	if err := s.validateParent(kind, parentID, owner); err != nil {
		return nil, err
	}

	limitMsg := ""
	if isActive && !e.IsActive {
		ok, msg, err := s.CanActivate(kind, owner, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			isActive = false
			limitMsg = msg
		}
	}

	e.Title = title
	e.IsActive = isActive
	if kind.ParentColumn() != "" {
		e.ParentID = parentID
	}
	if err := s.Repo.Update(e); err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("%s updated successfully", capitalize(kind.Name()))
	if limitMsg != "" {
		msg = fmt.Sprintf("%s updated but kept inactive. %s", capitalize(kind.Name()), limitMsg)
	}
	return &EntityResult{Message: msg, Entity: e}, nil
}

// Toggle flips the active flag. An inactive-to-active flip past the limit is
// refused: the entity is returned unchanged with the limit message.
func (s *EntityService) Toggle(kind model.EntityKind, owner string, id int) (*EntityResult, error) {
	e, err := s.Repo.GetByID(kind, id, owner)
	if err != nil {
		return nil, err
	}

	if !e.IsActive {
		ok, msg, err := s.CanActivate(kind, owner, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return &EntityResult{Message: msg, Entity: e}, nil
		}
	}

	e.IsActive = !e.IsActive
	if err := s.Repo.Update(e); err != nil {
		return nil, err
	}

	verb := "deactivated"
	if e.IsActive {
		verb = "activated"
	}
	msg := fmt.Sprintf("%s %s successfully", capitalize(kind.Name()), verb)
	return &EntityResult{Message: msg, Entity: e}, nil
}

func (s *EntityService) Get(kind model.EntityKind, owner string, id int) (*EntityResult, error) {
	e, err := s.Repo.GetByID(kind, id, owner)
	if err != nil {
		return nil, err
	}
	msg := fmt.Sprintf("%s retrieved successfully", capitalize(kind.Name()))
	return &EntityResult{Message: msg, Entity: e}, nil
}

// List returns one page of entities plus pagination metadata.
func (s *EntityService) List(kind model.EntityKind, owner string, q EntityListQuery) ([]*model.AdEntity, Pagination, string, error) {
	page, pageSize := clampPage(q.Page, q.PageSize, s.Cfg.PageSize, s.Cfg.MaxPageSize)
	offset := (page - 1) * pageSize

	entities, total, err := s.Repo.List(kind, owner, offset, pageSize, q.Search, q.IsActive, q.ParentID, q.SortBy, q.SortOrder)
	if err != nil {
		return nil, Pagination{}, "", err
	}
	msg := fmt.Sprintf("Retrieved %d %s", total, kind.Plural())
	return entities, paginate(page, pageSize, total), msg, nil
}

// BulkDeleteResult reports what a batched delete actually did.
type BulkDeleteResult struct {
	Message          string `json:"message"`
	Processed        int    `json:"processed"`
	Requested        int    `json:"requested"`
	Deleted          int    `json:"deleted"`
	BatchesProcessed int    `json:"batches_processed"`
	BatchSize        int    `json:"batch_size"`
}

// BulkDelete removes the owner's rows in batches. Each batch commits on its
// own, so a mid-way failure keeps earlier deletions.
func (s *EntityService) BulkDelete(kind model.EntityKind, owner string, ids []int) (*BulkDeleteResult, error) {
	if len(ids) == 0 {
		return nil, appErrors.NewValidation("ids is required and must not be empty")
	}
	deleted, batches, err := s.Repo.BulkDelete(kind, ids, owner, s.Cfg.BatchSize)
	if err != nil {
		return nil, err
	}
	s.Log.Info("bulk delete",
		zap.String("kind", kind.Name()), zap.Int("requested", len(ids)), zap.Int("deleted", deleted))
	return &BulkDeleteResult{
		Message:          fmt.Sprintf("Deleted %d %s", deleted, kind.Plural()),
		Processed:        deleted,
		Requested:        len(ids),
		Deleted:          deleted,
		BatchesProcessed: batches,
		BatchSize:        s.Cfg.BatchSize,
	}, nil
}
