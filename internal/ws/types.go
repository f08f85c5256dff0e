package ws

// Operation codes for WebSocket messages
type OpCode int

const (
	// DISPATCH - events with a type field
	OpDispatch OpCode = 0

	// Lifecycle ops (Server -> Client)
	OpHello OpCode = 1
)

// Event types (Server -> Client via DISPATCH)
const (
	EventBlockUnlocked  = "BLOCK_UNLOCKED"
	EventOverlayState   = "OVERLAY_STATE"
	EventCatalogUpdated = "CATALOG_UPDATED"
)

type WSMessage struct {
	Op   OpCode `json:"op"`
	Type string `json:"t,omitempty"` // Event type (only for DISPATCH)
	Data any    `json:"d,omitempty"`
}

// Server -> Client payloads

type HelloPayload struct {
	SessionID string `json:"sessionId"`
}

type BlockUnlockedPayload struct {
	BlockID    string `json:"blockId"`
	BlockName  string `json:"blockName"`
	IsNew      bool   `json:"isNew"`
	TotalOwned int    `json:"totalOwned"`
}

// CatalogUpdatedPayload tells every connected editor to refetch its toolbox
// after an instructor changes a block's starter status.
type CatalogUpdatedPayload struct {
	BlockID        string `json:"blockId"`
	IsDefaultBlock bool   `json:"isDefaultBlock"`
}

type OverlayStatePayload struct {
	State   string `json:"state"`
	BlockID string `json:"blockId,omitempty"`
}
