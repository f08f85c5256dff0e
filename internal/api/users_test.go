package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"blockhunt/internal/db"
	"blockhunt/internal/models"
)

func TestUpdateMeSanitizesDisplayName(t *testing.T) {
	database := openTestDB(t)
	users := db.NewUserRepository(database)

	user, err := users.Create("alice@example.com", "Alice", "hash", models.RoleUser)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	handler := NewUserHandler(users, db.NewCollectionRepository(database))
	req := authedRequest(http.MethodPatch, "/api/v1/users/me", strings.NewReader(`{"displayName":"<b>Alice A.</b>"}`), user.ID)
	rr := httptest.NewRecorder()

	handler.UpdateMe(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%q", rr.Code, http.StatusOK, rr.Body.String())
	}

	var updated models.User
	if err := json.Unmarshal(rr.Body.Bytes(), &updated); err != nil {
		t.Fatalf("json.Unmarshal() error = %v, body=%q", err, rr.Body.String())
	}
	if updated.DisplayName != "Alice A." {
		t.Fatalf("displayName = %q, want %q", updated.DisplayName, "Alice A.")
	}
}

func TestUpdateMeRejectsNameThatSanitizesAway(t *testing.T) {
	database := openTestDB(t)
	users := db.NewUserRepository(database)

	user, err := users.Create("bob@example.com", "Bob", "hash", models.RoleUser)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	handler := NewUserHandler(users, db.NewCollectionRepository(database))

	// Passes the length validator raw but sanitizes to nothing.
	req := authedRequest(http.MethodPatch, "/api/v1/users/me", strings.NewReader(`{"displayName":"<b></b><i></i>"}`), user.ID)
	rr := httptest.NewRecorder()

	handler.UpdateMe(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d, body=%q", rr.Code, http.StatusBadRequest, rr.Body.String())
	}

	unchanged, err := users.FindByID(user.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if unchanged.DisplayName != "Bob" {
		t.Fatalf("displayName = %q, want unchanged %q", unchanged.DisplayName, "Bob")
	}
}

func TestGetMyBlocksEmptyCollection(t *testing.T) {
	database := openTestDB(t)
	users := db.NewUserRepository(database)

	user, err := users.Create("carol@example.com", "Carol", "hash", models.RoleUser)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	handler := NewUserHandler(users, db.NewCollectionRepository(database))
	req := authedRequest(http.MethodGet, "/api/v1/users/me/blocks", nil, user.ID)
	rr := httptest.NewRecorder()

	handler.GetMyBlocks(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%q", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp struct {
		Blocks []models.OwnedBlock `json:"blocks"`
		Total  int                 `json:"total"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal() error = %v, body=%q", err, rr.Body.String())
	}
	if resp.Total != 0 || len(resp.Blocks) != 0 {
		t.Fatalf("resp = %+v, want empty collection", resp)
	}
}

func TestRemoveMyBlockShrinksCollection(t *testing.T) {
	database := openTestDB(t)
	users := db.NewUserRepository(database)
	collection := db.NewCollectionRepository(database)

	user, err := users.Create("dave@example.com", "Dave", "hash", models.RoleUser)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := collection.AddBlock(user.ID, "controls_for", nil); err != nil {
		t.Fatalf("AddBlock() error = %v", err)
	}

	handler := NewUserHandler(users, collection)
	req := authedRequest(http.MethodDelete, "/api/v1/users/me/blocks/controls_for", nil, user.ID)
	rr := httptest.NewRecorder()

	routeWithParam(handler.RemoveMyBlock, "blockID", "controls_for").ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%q", rr.Code, http.StatusOK, rr.Body.String())
	}

	count, err := collection.CountForUser(user.ID)
	if err != nil {
		t.Fatalf("CountForUser() error = %v", err)
	}
	if count != 0 {
		t.Fatalf("count after removal = %d, want 0", count)
	}
}

func authedRequest(method, target string, body *strings.Reader, userID string) *http.Request {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, body)
	}
	ctx := context.WithValue(req.Context(), userIDKey, userID)
	return req.WithContext(ctx)
}

func TestUpdateRolePromotesUser(t *testing.T) {
	database := openTestDB(t)
	users := db.NewUserRepository(database)

	admin, err := users.Create("teach@example.com", "Teacher", "hash", models.RoleAdmin)
	if err != nil {
		t.Fatalf("Create() admin error = %v", err)
	}
	student, err := users.Create("kid@example.com", "Student", "hash", models.RoleUser)
	if err != nil {
		t.Fatalf("Create() student error = %v", err)
	}

	handler := NewUserHandler(users, db.NewCollectionRepository(database))
	req := authedRequest(http.MethodPatch, "/api/v1/users/"+student.ID+"/role", strings.NewReader(`{"role":"admin"}`), admin.ID)
	rr := httptest.NewRecorder()

	routeWithParam(handler.UpdateRole, "userID", student.ID).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%q", rr.Code, http.StatusOK, rr.Body.String())
	}

	var updated models.User
	if err := json.Unmarshal(rr.Body.Bytes(), &updated); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if updated.Role != models.RoleAdmin {
		t.Fatalf("role = %q, want %q", updated.Role, models.RoleAdmin)
	}
}

func TestUpdateRoleRejectsSelfDemotion(t *testing.T) {
	database := openTestDB(t)
	users := db.NewUserRepository(database)

	admin, err := users.Create("teach@example.com", "Teacher", "hash", models.RoleAdmin)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	handler := NewUserHandler(users, db.NewCollectionRepository(database))
	req := authedRequest(http.MethodPatch, "/api/v1/users/"+admin.ID+"/role", strings.NewReader(`{"role":"user"}`), admin.ID)
	rr := httptest.NewRecorder()

	routeWithParam(handler.UpdateRole, "userID", admin.ID).ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d, body=%q", rr.Code, http.StatusConflict, rr.Body.String())
	}

	unchanged, err := users.FindByID(admin.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if unchanged.Role != models.RoleAdmin {
		t.Fatalf("role = %q, want unchanged admin", unchanged.Role)
	}
}

// routeWithParam invokes a handler with a chi URL parameter populated, the
// way the router would.
func routeWithParam(handler http.HandlerFunc, key, value string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add(key, value)
		handler(w, r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx)))
	})
}

func openTestDB(t *testing.T) *db.DB {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}
