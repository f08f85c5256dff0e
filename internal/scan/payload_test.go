package scan

import (
	"errors"
	"strings"
	"testing"
)

func TestParsePayloadAcceptsWellFormedScan(t *testing.T) {
	raw := `{"type":"blockhunt_blocks","qrId":"qr_1","block":"controls_if","name":"If / Else","timestamp":"2025-03-01T10:00:00Z"}`

	p, err := ParsePayload(raw)
	if err != nil {
		t.Fatalf("ParsePayload() error = %v", err)
	}
	if p.QRID != "qr_1" {
		t.Errorf("QRID = %q, want %q", p.QRID, "qr_1")
	}
	if p.Block != "controls_if" {
		t.Errorf("Block = %q, want %q", p.Block, "controls_if")
	}
	if p.Name != "If / Else" {
		t.Errorf("Name = %q, want %q", p.Name, "If / Else")
	}
}

func TestParsePayloadTrimsWhitespace(t *testing.T) {
	raw := "  {\"type\":\"blockhunt_blocks\",\"qrId\":\" qr_1 \",\"block\":\" controls_if \"}\n"

	p, err := ParsePayload(raw)
	if err != nil {
		t.Fatalf("ParsePayload() error = %v", err)
	}
	if p.QRID != "qr_1" || p.Block != "controls_if" {
		t.Fatalf("got qrId=%q block=%q, want trimmed values", p.QRID, p.Block)
	}
}

func TestParsePayloadRejections(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "whitespace_only", raw: "   "},
		{name: "not_json", raw: "hello world"},
		{name: "truncated_json", raw: `{"type":"blockhunt_blocks","qrId":`},
		{name: "wrong_type_tag", raw: `{"type":"other_app","qrId":"qr_1","block":"controls_if"}`},
		{name: "missing_type", raw: `{"qrId":"qr_1","block":"controls_if"}`},
		{name: "missing_qr_id", raw: `{"type":"blockhunt_blocks","block":"controls_if"}`},
		{name: "blank_qr_id", raw: `{"type":"blockhunt_blocks","qrId":"  ","block":"controls_if"}`},
		{name: "missing_block", raw: `{"type":"blockhunt_blocks","qrId":"qr_1"}`},
		{name: "legacy_blocks_array", raw: `{"type":"blockhunt_blocks","qrId":"qr_1","block":"controls_if","blocks":["controls_if","text_print"]}`},
		{name: "too_long", raw: `{"type":"blockhunt_blocks","qrId":"` + strings.Repeat("x", MaxPayloadLength) + `","block":"controls_if"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePayload(tt.raw)
			if err == nil {
				t.Fatal("ParsePayload() error = nil, want invalid payload error")
			}
			var invalid *InvalidPayloadError
			if !errors.As(err, &invalid) {
				t.Fatalf("error type = %T, want *InvalidPayloadError", err)
			}
		})
	}
}

func TestParsePayloadToleratesUnknownFields(t *testing.T) {
	raw := `{"type":"blockhunt_blocks","qrId":"qr_1","block":"controls_if","extra":"ignored"}`

	if _, err := ParsePayload(raw); err != nil {
		t.Fatalf("ParsePayload() error = %v, want nil", err)
	}
}

func TestEncodeRoundTripsThroughParse(t *testing.T) {
	raw, err := Encode("qr_7", "text_print", "Print", "2025-03-01T10:00:00Z")
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	p, err := ParsePayload(raw)
	if err != nil {
		t.Fatalf("ParsePayload() error = %v", err)
	}
	if p.QRID != "qr_7" || p.Block != "text_print" {
		t.Fatalf("got qrId=%q block=%q after round trip", p.QRID, p.Block)
	}
}
