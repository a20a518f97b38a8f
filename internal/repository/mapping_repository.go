package repository

import (
	"database/sql"
	"fmt"

	"github.com/kplanner/kplanner-backend/internal/model"
)

type MappingRepositoryInterface interface {
	Find(m *model.ColumnMapping) (*model.ColumnMapping, error)
	Create(m *model.ColumnMapping) error
	Delete(id int, owner string) error
	List(owner string) ([]*model.ColumnMapping, error)
	ListActive(owner string) ([]*model.ColumnMapping, error)
}

type MappingRepository struct {
	DB *sql.DB
}

const mappingColumns = `id, user_id,
	source_company_id, source_ad_campaign_id, source_ad_group_id, source_match_type,
	target_company_id, target_ad_campaign_id, target_ad_group_id, target_match_type,
	created, updated`

func scanMapping(row interface{ Scan(...any) error }) (*model.ColumnMapping, error) {
	m := &model.ColumnMapping{}
	err := row.Scan(
		&m.ID, &m.Owner,
		&m.SourceCompanyID, &m.SourceAdCampaignID, &m.SourceAdGroupID, &m.SourceMatchType,
		&m.TargetCompanyID, &m.TargetAdCampaignID, &m.TargetAdGroupID, &m.TargetMatchType,
		&m.Created, &m.Updated,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Find looks up a mapping with exactly the same source and target as m.
// Returns (nil, nil) when no such mapping exists, so callers can toggle.
func (r *MappingRepository) Find(m *model.ColumnMapping) (*model.ColumnMapping, error) {
	query := `
		SELECT ` + mappingColumns + ` FROM column_mappings
		WHERE user_id=$1
			AND source_company_id IS NOT DISTINCT FROM $2
			AND source_ad_campaign_id IS NOT DISTINCT FROM $3
			AND source_ad_group_id IS NOT DISTINCT FROM $4
			AND source_match_type=$5
			AND target_company_id IS NOT DISTINCT FROM $6
			AND target_ad_campaign_id IS NOT DISTINCT FROM $7
			AND target_ad_group_id IS NOT DISTINCT FROM $8
			AND target_match_type=$9
	`
	found, err := scanMapping(r.DB.QueryRow(query,
		m.Owner,
		m.SourceCompanyID, m.SourceAdCampaignID, m.SourceAdGroupID, m.SourceMatchType,
		m.TargetCompanyID, m.TargetAdCampaignID, m.TargetAdGroupID, m.TargetMatchType,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return found, nil
}

func (r *MappingRepository) Create(m *model.ColumnMapping) error {
	query := `
		INSERT INTO column_mappings (
			user_id,
			source_company_id, source_ad_campaign_id, source_ad_group_id, source_match_type,
			target_company_id, target_ad_campaign_id, target_ad_group_id, target_match_type,
			created, updated
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING id, created, updated
	`
	return r.DB.QueryRow(query,
		m.Owner,
		m.SourceCompanyID, m.SourceAdCampaignID, m.SourceAdGroupID, m.SourceMatchType,
		m.TargetCompanyID, m.TargetAdCampaignID, m.TargetAdGroupID, m.TargetMatchType,
	).Scan(&m.ID, &m.Created, &m.Updated)
}

func (r *MappingRepository) Delete(id int, owner string) error {
	_, err := r.DB.Exec(`DELETE FROM column_mappings WHERE id=$1 AND user_id=$2`, id, owner)
	return err
}

func (r *MappingRepository) List(owner string) ([]*model.ColumnMapping, error) {
	rows, err := r.DB.Query(`SELECT `+mappingColumns+` FROM column_mappings WHERE user_id=$1 ORDER BY id`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mappings := []*model.ColumnMapping{}
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

// sideActiveCondition requires the mapping's entity reference on one side
// (source or target) to point at a currently active row.
func sideActiveCondition(side string) string {
	return fmt.Sprintf(`(
		(m.%[1]s_company_id IS NOT NULL AND EXISTS (
			SELECT 1 FROM companies c WHERE c.id = m.%[1]s_company_id AND c.user_id = $1 AND c.is_active = TRUE))
		OR (m.%[1]s_ad_campaign_id IS NOT NULL AND EXISTS (
			SELECT 1 FROM ad_campaigns ac WHERE ac.id = m.%[1]s_ad_campaign_id AND ac.user_id = $1 AND ac.is_active = TRUE))
		OR (m.%[1]s_ad_group_id IS NOT NULL AND EXISTS (
			SELECT 1 FROM ad_groups ag WHERE ag.id = m.%[1]s_ad_group_id AND ag.user_id = $1 AND ag.is_active = TRUE))
	)`, side)
}

// ListActive returns mappings whose source and target entities are both
// currently active.
func (r *MappingRepository) ListActive(owner string) ([]*model.ColumnMapping, error) {
	query := fmt.Sprintf(`
		SELECT m.id, m.user_id,
			m.source_company_id, m.source_ad_campaign_id, m.source_ad_group_id, m.source_match_type,
			m.target_company_id, m.target_ad_campaign_id, m.target_ad_group_id, m.target_match_type,
			m.created, m.updated
		FROM column_mappings m
		WHERE m.user_id = $1 AND %s AND %s
		ORDER BY m.id
	`, sideActiveCondition("source"), sideActiveCondition("target"))

	rows, err := r.DB.Query(query, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mappings := []*model.ColumnMapping{}
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

var _ MappingRepositoryInterface = (*MappingRepository)(nil)
