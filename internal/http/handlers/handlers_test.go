package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"parkgate/internal/models"
	"parkgate/internal/parking"
	"parkgate/internal/payment"
)

type fakeParking struct {
	pending   map[int64]parking.PendingExit
	exitErr   error
	finalized []string
}

func newFakeParking() *fakeParking {
	return &fakeParking{pending: make(map[int64]parking.PendingExit)}
}

func (f *fakeParking) ProcessEntry(_ context.Context, cardID string) (*models.Session, error) {
	if f.exitErr != nil {
		return nil, f.exitErr
	}
	return &models.Session{ID: 1, CardID: cardID, SlotNumber: 3}, nil
}

func (f *fakeParking) ProcessExit(_ context.Context, cardID string) (*parking.ExitResult, error) {
	if f.exitErr != nil {
		return nil, f.exitErr
	}
	p := parking.PendingExit{SessionID: 9, CardID: cardID, Fee: 10000}
	f.pending[p.SessionID] = p
	return &parking.ExitResult{Pending: p}, nil
}

func (f *fakeParking) FinalizeExit(_ context.Context, sessionID, amount int64, method string) error {
	if _, ok := f.pending[sessionID]; !ok {
		return parking.ErrAlreadyResolved
	}
	delete(f.pending, sessionID)
	f.finalized = append(f.finalized, method)
	return nil
}

func (f *fakeParking) CancelExit(sessionID int64) error {
	if _, ok := f.pending[sessionID]; !ok {
		return parking.ErrAlreadyResolved
	}
	delete(f.pending, sessionID)
	return nil
}

func (f *fakeParking) PendingExitBySession(sessionID int64) (parking.PendingExit, bool) {
	p, ok := f.pending[sessionID]
	return p, ok
}

func (f *fakeParking) Stats(context.Context) (models.SlotStats, error) {
	return models.SlotStats{Total: 10, Occupied: 4, Available: 6}, nil
}

func (f *fakeParking) Recent(context.Context, int) ([]models.Session, error) { return nil, nil }

func (f *fakeParking) ActiveSessions(context.Context, int) ([]models.Session, error) {
	return nil, nil
}

func (f *fakeParking) RevenueToday(context.Context) (int64, error) { return 45000, nil }

type fakePayments struct {
	parking *fakeParking
	begun   []int64
	stopped []int64
}

func (f *fakePayments) Begin(_ context.Context, sessionID, amount int64) (*payment.Code, error) {
	f.begun = append(f.begun, sessionID)
	return &payment.Code{OrderID: "P1", Amount: amount, QRPayload: "payload"}, nil
}

func (f *fakePayments) Cancel(sessionID int64) error {
	return f.parking.CancelExit(sessionID)
}

func (f *fakePayments) Stop(sessionID int64) {
	f.stopped = append(f.stopped, sessionID)
}

func (f *fakePayments) Status(sessionID int64) (payment.Status, bool) {
	for _, id := range f.begun {
		if id == sessionID {
			return payment.Status{SessionID: sessionID, State: payment.StatePolling}, true
		}
	}
	return payment.Status{}, false
}

func postJSON(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestExitScanReturnsPendingFee(t *testing.T) {
	svc := newFakeParking()
	rec := postJSON(t, NewExitScanHandler(svc), `{"card_id":"CARD-1"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		Pending  parking.PendingExit `json:"pending"`
		Repeated bool                `json:"repeated"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Pending.Fee != 10000 || resp.Repeated {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestExitScanMapsBusinessErrors(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{parking.ErrUnknownCard, http.StatusNotFound},
		{parking.ErrNotParked, http.StatusConflict},
	}
	for _, tc := range cases {
		svc := newFakeParking()
		svc.exitErr = tc.err
		rec := postJSON(t, NewExitScanHandler(svc), `{"card_id":"CARD-1"}`)
		if rec.Code != tc.code {
			t.Fatalf("error %v: expected %d, got %d", tc.err, tc.code, rec.Code)
		}
	}
}

func TestExitCashDefaultsToComputedFee(t *testing.T) {
	svc := newFakeParking()
	payments := &fakePayments{parking: svc}
	if _, err := svc.ProcessExit(context.Background(), "CARD-1"); err != nil {
		t.Fatalf("seed exit: %v", err)
	}

	rec := postJSON(t, NewExitCashHandler(svc, payments), `{"session_id":9}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		Amount int64  `json:"amount"`
		Method string `json:"method"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Amount != 10000 || resp.Method != parking.MethodCash {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(payments.stopped) != 1 || payments.stopped[0] != 9 {
		t.Fatalf("cash settlement must halt the QR watch: %v", payments.stopped)
	}
}

func TestExitCashOnResolvedSessionConflicts(t *testing.T) {
	svc := newFakeParking()
	payments := &fakePayments{parking: svc}

	rec := postJSON(t, NewExitCashHandler(svc, payments), `{"session_id":9}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestExitCancelKeepsVehicleParked(t *testing.T) {
	svc := newFakeParking()
	payments := &fakePayments{parking: svc}
	if _, err := svc.ProcessExit(context.Background(), "CARD-1"); err != nil {
		t.Fatalf("seed exit: %v", err)
	}

	rec := postJSON(t, NewExitCancelHandler(payments), `{"session_id":9}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if len(svc.finalized) != 0 {
		t.Fatalf("cancel must not finalize: %v", svc.finalized)
	}

	rec = postJSON(t, NewExitCancelHandler(payments), `{"session_id":9}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second cancel: expected 409, got %d", rec.Code)
	}
}

func TestExitQRStartsWorkflowWithPendingFee(t *testing.T) {
	svc := newFakeParking()
	payments := &fakePayments{parking: svc}
	if _, err := svc.ProcessExit(context.Background(), "CARD-1"); err != nil {
		t.Fatalf("seed exit: %v", err)
	}

	rec := postJSON(t, NewExitQRHandler(svc, payments), `{"session_id":9}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var code payment.Code
	if err := json.NewDecoder(rec.Body).Decode(&code); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if code.Amount != 10000 {
		t.Fatalf("workflow must use the computed fee, got %d", code.Amount)
	}

	req := httptest.NewRequest(http.MethodGet, "/?session_id=9", nil)
	statusRec := httptest.NewRecorder()
	NewExitStatusHandler(payments)(statusRec, req)
	if statusRec.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d", statusRec.Code)
	}
}

func TestExitQRWithoutPendingExitConflicts(t *testing.T) {
	svc := newFakeParking()
	payments := &fakePayments{parking: svc}

	rec := postJSON(t, NewExitQRHandler(svc, payments), `{"session_id":9}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestStatsHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewStatsHandler(newFakeParking())(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Slots        models.SlotStats `json:"slots"`
		RevenueToday int64            `json:"revenue_today"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Slots.Available != 6 || resp.RevenueToday != 45000 {
		t.Fatalf("unexpected stats: %+v", resp)
	}
}
