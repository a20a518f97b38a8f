// internal/model/column_mapping.go
package model

import "time"

// Valid match type names for column mapping rules.
var ValidMatchTypes = []string{"broad", "phrase", "exact"}

// ColumnMapping links one (entity, match type) column to another for external
// export tooling. Exactly one source entity FK and one target entity FK must
// be set; the mapping itself is never evaluated by this service.
type ColumnMapping struct {
	ID                  int       `json:"id"`
	Owner               string    `json:"-"`
	SourceCompanyID     *int      `json:"source_company_id"`
	SourceAdCampaignID  *int      `json:"source_ad_campaign_id"`
	SourceAdGroupID     *int      `json:"source_ad_group_id"`
	SourceMatchType     string    `json:"source_match_type"`
	TargetCompanyID     *int      `json:"target_company_id"`
	TargetAdCampaignID  *int      `json:"target_ad_campaign_id"`
	TargetAdGroupID     *int      `json:"target_ad_group_id"`
	TargetMatchType     string    `json:"target_match_type"`
	Created             time.Time `json:"created"`
	Updated             time.Time `json:"updated"`
}

func countSet(ids ...*int) int {
	n := 0
	for _, id := range ids {
		if id != nil {
			n++
		}
	}
	return n
}

// SourceValid reports whether exactly one source entity is set.
func (m *ColumnMapping) SourceValid() bool {
	return countSet(m.SourceCompanyID, m.SourceAdCampaignID, m.SourceAdGroupID) == 1
}

// TargetValid reports whether exactly one target entity is set.
func (m *ColumnMapping) TargetValid() bool {
	return countSet(m.TargetCompanyID, m.TargetAdCampaignID, m.TargetAdGroupID) == 1
}
