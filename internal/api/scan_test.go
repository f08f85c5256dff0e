package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"blockhunt/internal/db"
	"blockhunt/internal/models"
	"blockhunt/internal/overlay"
	"blockhunt/internal/unlock"
	"blockhunt/internal/ws"
)

type scanFixture struct {
	handler    *ScanHandler
	users      *db.UserRepository
	codes      *db.QRCodeRepository
	collection *db.CollectionRepository
	overlaySvc *overlay.Service
}

func newScanFixture(t *testing.T) *scanFixture {
	t.Helper()

	database := openTestDB(t)
	codes := db.NewQRCodeRepository(database)
	collection := db.NewCollectionRepository(database)
	overlaySvc := overlay.NewService(nil)
	t.Cleanup(overlaySvc.Shutdown)

	return &scanFixture{
		handler: NewScanHandler(
			unlock.NewResolver(codes, collection),
			db.NewBlockRepository(database),
			overlaySvc,
			ws.NewHub(),
		),
		users:      db.NewUserRepository(database),
		codes:      codes,
		collection: collection,
		overlaySvc: overlaySvc,
	}
}

func (f *scanFixture) scan(t *testing.T, userID, payload string) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(ScanRequest{Payload: payload})
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	req := authedRequest(http.MethodPost, "/api/v1/scan", strings.NewReader(string(body)), userID)
	rr := httptest.NewRecorder()
	f.handler.Scan(rr, req)
	return rr
}

func payloadFor(qrID, blockID string) string {
	return fmt.Sprintf(`{"type":"blockhunt_blocks","qrId":%q,"block":%q}`, qrID, blockID)
}

func TestScanGrantsThenDeduplicates(t *testing.T) {
	f := newScanFixture(t)

	user, err := f.users.Create("alice@example.com", "Alice", "hash", models.RoleUser)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	code, err := f.codes.Create("Station 1", "controls_for", nil, nil)
	if err != nil {
		t.Fatalf("Create() QR code error = %v", err)
	}

	rr := f.scan(t, user.ID, payloadFor(code.ID, "controls_for"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%q", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp ScanResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if !resp.IsNew {
		t.Error("first scan: isNew = false, want true")
	}
	if resp.BlockID != "controls_for" {
		t.Errorf("blockId = %q, want %q", resp.BlockID, "controls_for")
	}
	if resp.BlockName != "Count With" {
		t.Errorf("blockName = %q, want catalog name", resp.BlockName)
	}
	if resp.TotalOwned != 1 {
		t.Errorf("totalOwned = %d, want 1", resp.TotalOwned)
	}

	// The celebration was triggered for exactly this user.
	if state, blockID := f.overlaySvc.Current(user.ID); state != overlay.StateCelebrating || blockID != "controls_for" {
		t.Errorf("overlay = %v %q, want celebrating controls_for", state, blockID)
	}

	rr = f.scan(t, user.ID, payloadFor(code.ID, "controls_for"))
	if rr.Code != http.StatusOK {
		t.Fatalf("re-scan status = %d, body=%q", rr.Code, rr.Body.String())
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal() re-scan error = %v", err)
	}
	if resp.IsNew {
		t.Error("re-scan: isNew = true, want false")
	}
	if resp.TotalOwned != 1 {
		t.Errorf("totalOwned after re-scan = %d, want 1", resp.TotalOwned)
	}
}

func TestScanMalformedPayloadIsUnprocessable(t *testing.T) {
	f := newScanFixture(t)

	user, err := f.users.Create("bob@example.com", "Bob", "hash", models.RoleUser)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	rr := f.scan(t, user.ID, `{"type":"blockhunt_blocks","block":"controls_if"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d, body=%q", rr.Code, http.StatusUnprocessableEntity, rr.Body.String())
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if resp.Error.Code != ErrCodeInvalidPayload {
		t.Fatalf("error.code = %q, want %q", resp.Error.Code, ErrCodeInvalidPayload)
	}

	count, err := f.collection.CountForUser(user.ID)
	if err != nil {
		t.Fatalf("CountForUser() error = %v", err)
	}
	if count != 0 {
		t.Fatalf("owned count after rejected scan = %d, want 0", count)
	}
}

func TestScanErrorMapping(t *testing.T) {
	f := newScanFixture(t)

	user, err := f.users.Create("carol@example.com", "Carol", "hash", models.RoleUser)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	disabled, err := f.codes.Create("Disabled", "text_print", nil, nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := f.codes.SetActive(disabled.ID, false); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}

	tests := []struct {
		name       string
		payload    string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "unknown_code",
			payload:    payloadFor("qr_missing", "controls_if"),
			wantStatus: http.StatusNotFound,
			wantCode:   ErrCodeUnknownCode,
		},
		{
			name:       "disabled_code",
			payload:    payloadFor(disabled.ID, "text_print"),
			wantStatus: http.StatusConflict,
			wantCode:   ErrCodeInactiveCode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.scan(t, user.ID, tt.payload)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body=%q", rr.Code, tt.wantStatus, rr.Body.String())
			}

			var resp ErrorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("json.Unmarshal() error = %v", err)
			}
			if resp.Error.Code != tt.wantCode {
				t.Fatalf("error.code = %q, want %q", resp.Error.Code, tt.wantCode)
			}
		})
	}

	count, err := f.collection.CountForUser(user.ID)
	if err != nil {
		t.Fatalf("CountForUser() error = %v", err)
	}
	if count != 0 {
		t.Fatalf("owned count after rejected scans = %d, want 0", count)
	}
}
