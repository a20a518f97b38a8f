// internal/model/entity.go
package model

import (
	"encoding/json"
	"time"
)

// EntityKind identifies one of the three levels of the advertising hierarchy.
// Each kind knows its own table, parent column and display names, so callers
// never need reflection to work with the hierarchy generically.
type EntityKind int

const (
	KindCompany EntityKind = iota
	KindAdCampaign
	KindAdGroup
)

func (k EntityKind) Name() string {
	switch k {
	case KindCompany:
		return "company"
	case KindAdCampaign:
		return "campaign"
	default:
		return "ad group"
	}
}

func (k EntityKind) Plural() string {
	switch k {
	case KindCompany:
		return "companies"
	case KindAdCampaign:
		return "campaigns"
	default:
		return "ad groups"
	}
}

// Table returns the entity table backing this kind.
func (k EntityKind) Table() string {
	switch k {
	case KindCompany:
		return "companies"
	case KindAdCampaign:
		return "ad_campaigns"
	default:
		return "ad_groups"
	}
}

// RelationTable returns the keyword association table for this kind.
func (k EntityKind) RelationTable() string {
	switch k {
	case KindCompany:
		return "company_keyword"
	case KindAdCampaign:
		return "ad_campaign_keyword"
	default:
		return "ad_group_keyword"
	}
}

// EntityColumn returns the FK column pointing at this kind inside its
// association tables (company_id, ad_campaign_id, ad_group_id).
func (k EntityKind) EntityColumn() string {
	switch k {
	case KindCompany:
		return "company_id"
	case KindAdCampaign:
		return "ad_campaign_id"
	default:
		return "ad_group_id"
	}
}

// ParentColumn returns the FK column on the entity table pointing at the
// parent level, or "" for companies which sit at the root.
func (k EntityKind) ParentColumn() string {
	switch k {
	case KindCompany:
		return ""
	case KindAdCampaign:
		return "company_id"
	default:
		return "ad_campaign_id"
	}
}

// ParentKind returns the kind one level up. Only valid for kinds with a parent.
func (k EntityKind) ParentKind() EntityKind {
	if k == KindAdGroup {
		return KindAdCampaign
	}
	return KindCompany
}

// Kinds lists all entity kinds in hierarchy order.
func Kinds() []EntityKind {
	return []EntityKind{KindCompany, KindAdCampaign, KindAdGroup}
}

// AdEntity is one row of companies/ad_campaigns/ad_groups. ParentID is zero
// for companies.
type AdEntity struct {
	Kind     EntityKind
	ID       int
	Title    string
	IsActive bool
	Owner    string
	ParentID int
	Created  time.Time
	Updated  time.Time
}

// MarshalJSON emits the parent FK under its real column name (company_id for
// campaigns, ad_campaign_id for ad groups) so the wire shape matches the
// schema.
func (e *AdEntity) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"id":        e.ID,
		"title":     e.Title,
		"is_active": e.IsActive,
		"created":   e.Created,
		"updated":   e.Updated,
	}
	if col := e.Kind.ParentColumn(); col != "" {
		out[col] = e.ParentID
	}
	return json.Marshal(out)
}
