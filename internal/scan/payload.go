package scan

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PayloadType is the tag identifying the payload family. Anything else is
// rejected before storage is touched.
const PayloadType = "blockhunt_blocks"

// MaxPayloadLength bounds decoded text; QR codes cap out well below this.
const MaxPayloadLength = 4096

// Payload is the structured message embedded in a QR code's visual encoding,
// reconstructed from decoded text or manual entry. Name and Timestamp are
// informational only; Timestamp is never used for expiry checks.
type Payload struct {
	Type      string `json:"type"`
	QRID      string `json:"qrId"`
	Block     string `json:"block"`
	Name      string `json:"name,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// InvalidPayloadError reports scan text that does not match the expected
// schema. It is user-correctable: the UI offers manual entry on it.
type InvalidPayloadError struct {
	Reason string
}

func (e *InvalidPayloadError) Error() string {
	return fmt.Sprintf("invalid scan payload: %s", e.Reason)
}

func invalidPayload(reason string) error {
	return &InvalidPayloadError{Reason: reason}
}

// rawPayload captures the legacy multi-block field alongside the current
// schema so it can be rejected with a distinct message.
type rawPayload struct {
	Type      string          `json:"type"`
	QRID      string          `json:"qrId"`
	Block     string          `json:"block"`
	Blocks    json.RawMessage `json:"blocks"`
	Name      string          `json:"name"`
	Timestamp string          `json:"timestamp"`
}

// ParsePayload validates decoded scan text against the payload schema. It has
// no side effects and performs no storage access.
func ParsePayload(raw string) (*Payload, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, invalidPayload("empty payload")
	}
	if len(raw) > MaxPayloadLength {
		return nil, invalidPayload("payload too long")
	}

	var p rawPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, invalidPayload("malformed JSON")
	}

	if p.Type != PayloadType {
		return nil, invalidPayload(fmt.Sprintf("unrecognized payload type %q", p.Type))
	}
	if len(p.Blocks) > 0 {
		// Legacy producers emitted a "blocks" array. Each code grants exactly
		// one block, so multi-block payloads are rejected rather than
		// silently honored.
		return nil, invalidPayload("multi-block payloads are not supported")
	}
	if strings.TrimSpace(p.QRID) == "" {
		return nil, invalidPayload("missing qrId field")
	}
	if strings.TrimSpace(p.Block) == "" {
		return nil, invalidPayload("missing block field")
	}

	return &Payload{
		Type:      p.Type,
		QRID:      strings.TrimSpace(p.QRID),
		Block:     strings.TrimSpace(p.Block),
		Name:      p.Name,
		Timestamp: p.Timestamp,
	}, nil
}

// Encode renders the payload JSON that gets embedded into a physical QR code.
func Encode(qrID, blockID, name, timestamp string) (string, error) {
	data, err := json.Marshal(Payload{
		Type:      PayloadType,
		QRID:      qrID,
		Block:     blockID,
		Name:      name,
		Timestamp: timestamp,
	})
	if err != nil {
		return "", fmt.Errorf("encoding payload: %w", err)
	}
	return string(data), nil
}
