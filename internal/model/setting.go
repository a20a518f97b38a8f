// internal/model/setting.go
package model

import "time"

// Setting is a per-owner key/value pair, unique per (owner, key). Value may
// hold a JSON string for structured settings.
type Setting struct {
	ID      int       `json:"id"`
	Owner   string    `json:"-"`
	Key     string    `json:"key"`
	Value   *string   `json:"value"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}
