// internal/service/setting_service.go
package service

import (
	"fmt"
	"strings"

	"github.com/kplanner/kplanner-backend/internal/config"
	appErrors "github.com/kplanner/kplanner-backend/internal/errors"
	"github.com/kplanner/kplanner-backend/internal/model"
	"github.com/kplanner/kplanner-backend/internal/repository"
)

type SettingService struct {
	Settings repository.SettingRepositoryInterface
	Cfg      *config.Config
}

// Set creates or overwrites the owner's setting for key. The message tells
// the caller which one happened.
func (s *SettingService) Set(owner, key string, value *string) (*model.Setting, string, error) {
	if strings.TrimSpace(key) == "" {
		return nil, "", appErrors.NewValidation("key is required")
	}

	existing, err := s.Settings.GetByKey(owner, key)
	if err != nil && !appErrors.IsNotFound(err) {
		return nil, "", err
	}
	if existing != nil {
		existing.Value = value
		if err := s.Settings.Update(existing); err != nil {
			return nil, "", err
		}
		return existing, "Setting updated successfully", nil
	}

	setting := &model.Setting{Owner: owner, Key: key, Value: value}
	if err := s.Settings.Insert(setting); err != nil {
		return nil, "", err
	}
	return setting, "Setting created successfully", nil
}

func (s *SettingService) List(owner string, page, pageSize int, keyFilter string) ([]*model.Setting, Pagination, string, error) {
	page, pageSize = clampPage(page, pageSize, s.Cfg.PageSize, s.Cfg.MaxPageSize)
	settings, total, err := s.Settings.List(owner, keyFilter, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, Pagination{}, "", err
	}
	return settings, paginate(page, pageSize, total), fmt.Sprintf("Retrieved %d settings", total), nil
}

func (s *SettingService) Get(owner string, id int) (*model.Setting, string, error) {
	setting, err := s.Settings.GetByID(id, owner)
	if err != nil {
		return nil, "", err
	}
	return setting, "Setting retrieved successfully", nil
}

func (s *SettingService) GetByKey(owner, key string) (*model.Setting, string, error) {
	setting, err := s.Settings.GetByKey(owner, key)
	if err != nil {
		return nil, "", err
	}
	return setting, "Setting retrieved successfully", nil
}

// Update rewrites one setting by id. Renaming onto an existing key of the
// same owner is rejected.
func (s *SettingService) Update(owner string, id int, key string, value *string) (*model.Setting, string, error) {
	if strings.TrimSpace(key) == "" {
		return nil, "", appErrors.NewValidation("key is required")
	}
	setting, err := s.Settings.GetByID(id, owner)
	if err != nil {
		return nil, "", err
	}
	if key != setting.Key {
		taken, err := s.Settings.KeyTaken(owner, key, id)
		if err != nil {
			return nil, "", err
		}
		if taken {
			return nil, "", appErrors.NewValidation("Setting with this key already exists")
		}
	}
	setting.Key = key
	setting.Value = value
	if err := s.Settings.Update(setting); err != nil {
		return nil, "", err
	}
	return setting, "Setting updated successfully", nil
}

func (s *SettingService) BulkDelete(owner string, ids []int) (*BulkDeleteResult, error) {
	if len(ids) == 0 {
		return nil, appErrors.NewValidation("ids is required and must not be empty")
	}
	deleted, batches, err := s.Settings.BulkDelete(ids, owner, s.Cfg.BatchSize)
	if err != nil {
		return nil, err
	}
	return &BulkDeleteResult{
		Message:          fmt.Sprintf("Deleted %d settings", deleted),
		Processed:        deleted,
		Requested:        len(ids),
		Deleted:          deleted,
		BatchesProcessed: batches,
		BatchSize:        s.Cfg.BatchSize,
	}, nil
}
