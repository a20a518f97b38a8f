// internal/model/keyword.go
package model

import "time"

// Keyword is unique per (keyword text, owner). Trash is tri-state: nil means
// the keyword was never trashed or restored.
type Keyword struct {
	ID      int        `json:"id"`
	Keyword string     `json:"keyword"`
	Owner   string     `json:"-"`
	Trash   *bool      `json:"trash"`
	Created time.Time  `json:"created"`
	Updated time.Time  `json:"updated"`
}

// MatchTypes is the tri-state flag set carried by every keyword relation:
// nil = no opinion, true = positive match, false = negative/excluded match.
// Pause follows the same convention (nil = not paused).
type MatchTypes struct {
	Broad  *bool `json:"broad"`
	Phrase *bool `json:"phrase"`
	Exact  *bool `json:"exact"`
	Pause  *bool `json:"pause"`
}

// IsEmpty reports whether all four flags are unset. A relation row in this
// state must not persist.
func (m MatchTypes) IsEmpty() bool {
	return m.Broad == nil && m.Phrase == nil && m.Exact == nil && m.Pause == nil
}

// OverrideFlags controls which already-set fields a reconciliation call may
// overwrite. An unset field is always writable regardless of these flags.
type OverrideFlags struct {
	Broad  bool
	Phrase bool
	Exact  bool
	Pause  bool
}

// MatrixKeyword is the keyword listing shape: the keyword plus its relation
// matrix against the currently scoped companies/campaigns/ad groups.
type MatrixKeyword struct {
	ID        int             `json:"id"`
	Keyword   string          `json:"keyword"`
	Trash     *bool           `json:"trash"`
	Created   time.Time       `json:"created"`
	Updated   time.Time       `json:"updated"`
	Relations MatrixRelations `json:"relations"`
}

type MatrixRelations struct {
	Companies   map[int]MatchTypes `json:"companies"`
	AdCampaigns map[int]MatchTypes `json:"ad_campaigns"`
	AdGroups    map[int]MatchTypes `json:"ad_groups"`
}
