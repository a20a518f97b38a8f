// internal/service/mapping_service.go
package service

import (
	"fmt"

	appErrors "github.com/kplanner/kplanner-backend/internal/errors"
	"github.com/kplanner/kplanner-backend/internal/model"
	"github.com/kplanner/kplanner-backend/internal/repository"
)

// MappingService stores column mappings for export tooling. Mappings are
// toggled: the same request either creates or removes the exact mapping.
type MappingService struct {
	Mappings repository.MappingRepositoryInterface
	Entities repository.EntityRepositoryInterface
}

// ToggleAction is the verb carried in a toggle request.
const (
	ToggleCreate = "create"
	ToggleRemove = "remove"
)

// ToggleResult reports what a toggle call did: created, removed,
// already_exists or not_found.
type ToggleResult struct {
	Action    string `json:"action"`
	MappingID int    `json:"mapping_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

func validMatchType(t string) bool {
	for _, v := range model.ValidMatchTypes {
		if t == v {
			return true
		}
	}
	return false
}

// validateSide checks that exactly one entity reference is set, that it
// belongs to the owner, and that the match type is known. side is "source"
// or "target", used only for messages.
func (s *MappingService) validateSide(owner, side, matchType string, companyID, campaignID, adGroupID *int) error {
	if countRefs(companyID, campaignID, adGroupID) != 1 {
		return appErrors.NewValidation("exactly one %s entity must be set", side)
	}
	if !validMatchType(matchType) {
		return appErrors.NewValidation("invalid %s match type: %s", side, matchType)
	}

	check := func(kind model.EntityKind, id *int) error {
		if id == nil {
			return nil
		}
		if _, err := s.Entities.GetByID(kind, *id, owner); err != nil {
			if appErrors.IsNotFound(err) {
				return appErrors.NewNotFound(fmt.Sprintf("%s %s", side, kind.Name()))
			}
			return err
		}
		return nil
	}
	if err := check(model.KindCompany, companyID); err != nil {
		return err
	}
	if err := check(model.KindAdCampaign, campaignID); err != nil {
		return err
	}
	return check(model.KindAdGroup, adGroupID)
}

func countRefs(ids ...*int) int {
	n := 0
	for _, id := range ids {
		if id != nil {
			n++
		}
	}
	return n
}

// Toggle creates or removes the mapping matching the request exactly.
func (s *MappingService) Toggle(owner, action string, m *model.ColumnMapping) (*ToggleResult, error) {
	if action != ToggleCreate && action != ToggleRemove {
		return nil, appErrors.NewValidation("action must be 'create' or 'remove'")
	}
	m.Owner = owner

	if err := s.validateSide(owner, "source", m.SourceMatchType,
		m.SourceCompanyID, m.SourceAdCampaignID, m.SourceAdGroupID); err != nil {
		return nil, err
	}
	if err := s.validateSide(owner, "target", m.TargetMatchType,
		m.TargetCompanyID, m.TargetAdCampaignID, m.TargetAdGroupID); err != nil {
		return nil, err
	}

	existing, err := s.Mappings.Find(m)
	if err != nil {
		return nil, err
	}

	if action == ToggleCreate {
		if existing != nil {
			return &ToggleResult{Action: "already_exists", MappingID: existing.ID}, nil
		}
		if err := s.Mappings.Create(m); err != nil {
			return nil, err
		}
		return &ToggleResult{Action: "created", MappingID: m.ID}, nil
	}

	if existing == nil {
		return &ToggleResult{Action: "not_found", Message: "Mapping not found"}, nil
	}
	if err := s.Mappings.Delete(existing.ID, owner); err != nil {
		return nil, err
	}
	return &ToggleResult{Action: "removed", MappingID: existing.ID}, nil
}

func (s *MappingService) List(owner string) ([]*model.ColumnMapping, string, error) {
	mappings, err := s.Mappings.List(owner)
	if err != nil {
		return nil, "", err
	}
	return mappings, fmt.Sprintf("Retrieved %d column mappings", len(mappings)), nil
}

// ListActive returns mappings whose source and target entities are both
// active right now.
func (s *MappingService) ListActive(owner string) ([]*model.ColumnMapping, string, error) {
	mappings, err := s.Mappings.ListActive(owner)
	if err != nil {
		return nil, "", err
	}
	return mappings, fmt.Sprintf("Retrieved %d active column mappings", len(mappings)), nil
}
