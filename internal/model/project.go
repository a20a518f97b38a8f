// internal/model/project.go
package model

import "time"

// Project groups an arbitrary subset of the hierarchy (via join tables) so
// keyword listings can be scoped to it instead of the active entities.
type Project struct {
	ID      int       `json:"id"`
	Title   string    `json:"title"`
	Owner   string    `json:"-"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// ProjectEntities are the attachment sets of a project.
type ProjectEntities struct {
	CompanyIDs    []int `json:"company_ids"`
	AdCampaignIDs []int `json:"ad_campaign_ids"`
	AdGroupIDs    []int `json:"ad_group_ids"`
}

// ProjectWithEntities is the detail shape returned for a single project.
type ProjectWithEntities struct {
	Project
	Entities ProjectEntities `json:"entities"`
}
