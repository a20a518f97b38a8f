// internal/model/relation.go
package model

import "encoding/json"

// KeywordRelation is one row of company_keyword / ad_campaign_keyword /
// ad_group_keyword, uniquely keyed by (entity, keyword) and owner-stamped.
type KeywordRelation struct {
	Kind      EntityKind
	ID        int
	EntityID  int
	KeywordID int
	Owner     string
	MatchTypes
}

// Tombstone returns the caller-visible stand-in for a relation that was
// deleted because all of its match fields went unset. It carries the same
// identifying fields with every flag nil, signalling "no relation at all".
func (r *KeywordRelation) Tombstone() *KeywordRelation {
	return &KeywordRelation{
		Kind:      r.Kind,
		EntityID:  r.EntityID,
		KeywordID: r.KeywordID,
		Owner:     r.Owner,
	}
}

// MarshalJSON emits the entity FK under its real column name so company
// relations carry company_id, campaign relations ad_campaign_id, and so on.
// Deleted relations marshal with id omitted and all flags null.
func (r *KeywordRelation) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		r.Kind.EntityColumn(): r.EntityID,
		"keyword_id":          r.KeywordID,
		"broad":               r.Broad,
		"phrase":              r.Phrase,
		"exact":               r.Exact,
		"pause":               r.Pause,
	}
	if r.ID != 0 {
		out["id"] = r.ID
	}
	return json.Marshal(out)
}
