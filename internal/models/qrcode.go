package models

import "time"

// QRCode is an admin-created, time-boxed, togglable grant of exactly one
// block definition. StartsAt/EndsAt bound the scan window inclusively; nil
// means unbounded on that side.
type QRCode struct {
	ID        string     `json:"id"`
	Label     string     `json:"label"`
	BlockID   string     `json:"blockId"`
	IsActive  bool       `json:"isActive"`
	StartsAt  *time.Time `json:"startsAt,omitempty"`
	EndsAt    *time.Time `json:"endsAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}
