package models

import "time"

// BlockDefinition is a capability the editor can expose. Default blocks are
// available to everyone; the rest must be collected by scanning.
type BlockDefinition struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Icon      string `json:"icon,omitempty"`
	IsDefault bool   `json:"isDefaultBlock"`
}

// OwnedBlock is one entry in a user's collection. ViaQRID records which code
// granted it, when known.
type OwnedBlock struct {
	UserID    string    `json:"-"`
	BlockID   string    `json:"blockId"`
	ViaQRID   *string   `json:"viaQrId,omitempty"`
	GrantedAt time.Time `json:"grantedAt"`
}
