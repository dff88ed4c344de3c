package ipc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/gymgate/engine/internal/access"
	"github.com/gymgate/engine/internal/domain"
	"github.com/gymgate/engine/internal/session"
	"github.com/gymgate/engine/internal/store"
	"github.com/gymgate/engine/internal/usagesync"
	"github.com/gymgate/engine/internal/wallet"
)

func testCatalog() map[domain.ExerciseType]domain.ExerciseSpec {
	return map[domain.ExerciseType]domain.ExerciseSpec{
		domain.ExercisePushup: {
			Type: domain.ExercisePushup,
			Kind: domain.KindRep,
			Rep: &domain.RepSpec{
				DownAngle:  100,
				UpAngle:    150,
				LeftJoint:  [3]domain.Landmark{domain.LeftShoulder, domain.LeftElbow, domain.LeftWrist},
				RightJoint: [3]domain.Landmark{domain.RightShoulder, domain.RightElbow, domain.RightWrist},
			},
			Reward: domain.RewardSpec{RatePerUnit: 0.5, MinimumUnits: 3},
		},
	}
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	db, err := store.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	w := wallet.New(db)
	engine := access.NewEngine(db)

	return &Handler{
		Sessions:    session.NewManager(testCatalog(), w),
		Wallet:      w,
		Access:      engine,
		Coordinator: usagesync.NewCoordinator(db, w, engine, nil, nil),
	}
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()

	h.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestStartSession_Success(t *testing.T) {
	h := newTestHandler(t)
	body := `{"exercise":"pushup"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/session", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	h.StartSession(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var info session.Info
	json.NewDecoder(rec.Body).Decode(&info)
	if info.Type != domain.ExercisePushup || info.ID == "" {
		t.Errorf("unexpected session info: %+v", info)
	}
}

func TestStartSession_UnknownExercise(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/session", bytes.NewBufferString(`{"exercise":"yoga"}`))
	rec := httptest.NewRecorder()

	h.StartSession(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestStartSession_Conflict(t *testing.T) {
	h := newTestHandler(t)
	if _, err := h.Sessions.Start(domain.ExercisePushup); err != nil {
		t.Fatalf("start: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/session", bytes.NewBufferString(`{"exercise":"pushup"}`))
	rec := httptest.NewRecorder()

	h.StartSession(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestFrame_NoSession(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/session/frame", bytes.NewBufferString(`{"frame":{"points":{}},"delta_ms":33}`))
	rec := httptest.NewRecorder()

	h.Frame(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetWallet(t *testing.T) {
	h := newTestHandler(t)
	if _, err := h.Wallet.CommitEarn(context.Background(), 7.5, "session:test"); err != nil {
		t.Fatalf("earn: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil)
	rec := httptest.NewRecorder()

	h.GetWallet(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var snap domain.WalletSnapshot
	json.NewDecoder(rec.Body).Decode(&snap)
	if snap.AvailableMinutes != 7.5 {
		t.Errorf("expected 7.5 minutes, got %v", snap.AvailableMinutes)
	}
}

func TestListEntries_EmptyIsArray(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet/entries", nil)
	rec := httptest.NewRecorder()

	h.ListEntries(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "[]\n" {
		t.Errorf("expected empty JSON array, got %q", got)
	}
}

func TestGetBlocked_RequiresApp(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/blocked", nil)
	rec := httptest.NewRecorder()

	h.GetBlocked(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetBlocked_Unblocked(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/blocked?app=games", nil)
	rec := httptest.NewRecorder()

	h.GetBlocked(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var decision domain.BlockDecision
	json.NewDecoder(rec.Body).Decode(&decision)
	if decision.Blocked {
		t.Error("expected unblocked with no rules configured")
	}
}

func TestGrantOverride_InsufficientFunds(t *testing.T) {
	h := newTestHandler(t)
	body := `{"app":"games","minutes":5,"duration_minutes":10}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/override", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	h.GrantOverride(rec, req)

	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d: %s", rec.Code, rec.Body.String())
	}

	// The refusal must not have spent anything.
	entries, err := h.Wallet.Entries(context.Background(), 0)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no ledger entries, got %d", len(entries))
	}
}

func TestGrantOverride_DebitsWallet(t *testing.T) {
	h := newTestHandler(t)
	ctx := context.Background()
	if _, err := h.Wallet.CommitEarn(ctx, 10, "session:test"); err != nil {
		t.Fatalf("earn: %v", err)
	}

	body := `{"app":"games","minutes":5,"duration_minutes":10}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/override", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	h.GrantOverride(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	snap, err := h.Wallet.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.AvailableMinutes != 5 {
		t.Errorf("expected balance 5 after override, got %v", snap.AvailableMinutes)
	}
}

func TestSetLimit_ThenList(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/limits", bytes.NewBufferString(`{"app":"video","limit_minutes":30}`))
	rec := httptest.NewRecorder()

	h.SetLimit(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/limits", nil)
	rec = httptest.NewRecorder()
	h.ListLimits(rec, req)

	var limits []domain.DailyLimit
	json.NewDecoder(rec.Body).Decode(&limits)
	if len(limits) != 1 || limits[0].AppID != "video" || limits[0].LimitMinutes != 30 {
		t.Errorf("unexpected limits: %+v", limits)
	}
}

func TestPutSchedule_WrappingWindowRejected(t *testing.T) {
	h := newTestHandler(t)
	body := `{"id":"night","active":true,"days":[0],"start":"22:00","end":"06:00","apps":["games"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedules", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	h.PutSchedule(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestPutSchedule_Success(t *testing.T) {
	h := newTestHandler(t)
	body := `{"id":"focus","active":true,"days":[1,3,5],"start":"09:00","end":"17:00","apps":["games"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedules", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	h.PutSchedule(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDeleteSchedule_NotFound(t *testing.T) {
	h := newTestHandler(t)

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("scheduleID", "missing")
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/schedules/missing", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()

	h.DeleteSchedule(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSyncTick_NoSource(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/tick", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()

	h.SyncTick(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSyncTick_PushedReport(t *testing.T) {
	h := newTestHandler(t)
	body := `{"batch_id":"b1","reported_at_unix":100,"day_key":"2024-01-03","used_minutes":{"games":4}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/tick", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	h.SyncTick(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp SyncResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if !resp.Applied {
		t.Error("expected the pushed batch to apply")
	}
}
