package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	apperrors "github.com/ttiimmothy/expense-splitter/errors"
	"github.com/ttiimmothy/expense-splitter/middleware"
	"github.com/ttiimmothy/expense-splitter/models"
	"github.com/ttiimmothy/expense-splitter/repository/memory"
)

const (
	testUserID  = "6f1c3a0e-8f1b-4c55-9a33-2f4b7d0c1e01"
	testGroupID = "0b7c9e2a-2d4f-4e6a-8b1c-3d5e7f9a1b02"
)

type testServer struct {
	groups      *mockGroupService
	expenses    *mockExpenseService
	settlements *mockSettlementService
	balances    *mockBalanceService
	users       *mockUserService
	explainer   *mockExplanationService
	events      *mockEventStream
	router      chi.Router
}

func newTestServer(authenticated bool) *testServer {
	ts := &testServer{
		groups:      &mockGroupService{group: &models.Group{ID: testGroupID, Name: "Trip", Currency: "USD"}},
		expenses:    &mockExpenseService{},
		settlements: &mockSettlementService{},
		balances:    &mockBalanceService{},
		users:       &mockUserService{},
		explainer:   &mockExplanationService{},
		events:      &mockEventStream{},
	}
	h := NewHandlers(ts.groups, ts.expenses, ts.settlements, ts.balances, ts.users, ts.explainer, ts.events)

	r := chi.NewRouter()
	if authenticated {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctx := middleware.WithUser(r.Context(), testUserID, "alice@example.com", "Alice")
				next.ServeHTTP(w, r.WithContext(ctx))
			})
		})
	}
	h.RegisterRoutes(r)
	ts.router = r
	return ts
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	return resp
}

func groupPath(suffix string) string {
	return "/groups/" + testGroupID + suffix
}

func TestGetBalances(t *testing.T) {
	ts := newTestServer(true)
	ts.balances.resp = &models.GroupBalancesResponse{
		GroupID:  testGroupID,
		Currency: "USD",
		Balances: []models.Balance{
			{UserID: "a", UserName: "Alice", NetBalance: decimal.RequireFromString("60"), IsCurrentMember: true},
			{UserID: "b", UserName: "Bob", NetBalance: decimal.RequireFromString("-60"), IsCurrentMember: false},
		},
		Suggestions: []models.SettlementSuggestion{
			{FromUserID: "b", FromUserName: "Bob", ToUserID: "a", ToUserName: "Alice", Amount: decimal.RequireFromString("60")},
		},
	}

	rec := ts.do(http.MethodGet, groupPath("/balances"), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ts.balances.groupID != testGroupID || ts.balances.userID != testUserID {
		t.Errorf("service called with %s/%s", ts.balances.groupID, ts.balances.userID)
	}

	var got models.GroupBalancesResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got.Balances) != 2 || !got.Balances[1].NetBalance.Equal(decimal.RequireFromString("-60")) || got.Balances[1].IsCurrentMember {
		t.Errorf("unexpected balances %+v", got.Balances)
	}
	if len(got.Suggestions) != 1 || got.Suggestions[0].FromUserID != "b" {
		t.Errorf("unexpected suggestions %+v", got.Suggestions)
	}
}

func TestGetBalancesErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		status     int
		code       apperrors.ErrorCode
		hasDetails bool
	}{
		{"not a member", apperrors.NotGroupMember(), http.StatusForbidden, apperrors.CodeNotGroupMember, false},
		{"bad id", apperrors.InvalidUUID("group_id"), http.StatusBadRequest, apperrors.CodeInvalidUUID, true},
		{"integrity fault", apperrors.DataIntegrityFault("expense e1 references unknown participant u9", errors.New("boom")), http.StatusInternalServerError, apperrors.CodeDataIntegrity, false},
		{"plain error", errors.New("bug"), http.StatusInternalServerError, apperrors.CodeInternalError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(true)
			ts.balances.err = tt.err

			rec := ts.do(http.MethodGet, groupPath("/balances"), "")
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			resp := decodeError(t, rec)
			if resp.Code != string(tt.code) {
				t.Errorf("expected code %s, got %s", tt.code, resp.Code)
			}
			if (resp.Details != "") != tt.hasDetails {
				t.Errorf("unexpected details %q", resp.Details)
			}
		})
	}
}

func TestGetSuggestionsEmpty(t *testing.T) {
	ts := newTestServer(true)
	ts.settlements.suggestions = []models.SettlementSuggestion{}

	rec := ts.do(http.MethodGet, groupPath("/suggestions"), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("expected an empty JSON list, got %s", body)
	}
}

func TestRecordSettlement(t *testing.T) {
	ts := newTestServer(true)
	ts.settlements.settlement = &models.Settlement{ID: "s1", GroupID: testGroupID}

	rec := ts.do(http.MethodPost, groupPath("/settlements"), `{"from_user_id":"b","to_user_id":"a","amount":"12.50","note":"cash"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	in := ts.settlements.input
	if in.FromUserID != "b" || in.ToUserID != "a" || !in.Amount.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("unexpected input %+v", in)
	}
	if in.Note == nil || *in.Note != "cash" {
		t.Errorf("expected note, got %v", in.Note)
	}

	// Numeric amounts decode exactly too.
	rec = ts.do(http.MethodPost, groupPath("/settlements"), `{"from_user_id":"b","to_user_id":"a","amount":0.1}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if !ts.settlements.input.Amount.Equal(decimal.RequireFromString("0.1")) {
		t.Errorf("expected 0.1, got %s", ts.settlements.input.Amount)
	}
}

func TestRecordSettlementBadBody(t *testing.T) {
	ts := newTestServer(true)

	for _, body := range []string{`{`, `{"amount":"12","unexpected":true}`, `{"amount":"twelve"}`} {
		rec := ts.do(http.MethodPost, groupPath("/settlements"), body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, rec.Code)
		}
		if resp := decodeError(t, rec); resp.Code != string(apperrors.CodeInvalidRequest) {
			t.Errorf("%s: expected %s, got %s", body, apperrors.CodeInvalidRequest, resp.Code)
		}
	}
}

func TestCreateExpense(t *testing.T) {
	ts := newTestServer(true)
	ts.expenses.expense = &models.Expense{ID: "e1"}

	rec := ts.do(http.MethodPost, groupPath("/expenses"), `{
		"description": "Dinner",
		"amount": "90.00",
		"split": "custom",
		"payers": [{"user_id": "a", "amount": "90"}],
		"shares": [{"user_id": "a", "amount": "45"}, {"user_id": "b", "amount": "45"}]
	}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	in := ts.expenses.input
	if in.Split != models.SplitModeCustom {
		t.Errorf("expected split to be normalised, got %q", in.Split)
	}
	if len(in.Payers) != 1 || len(in.Shares) != 2 || !in.Amount.Equal(decimal.RequireFromString("90")) {
		t.Errorf("unexpected input %+v", in)
	}

	rec = ts.do(http.MethodPost, groupPath("/expenses"), `{"description": " ", "amount": "1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for blank description, got %d", rec.Code)
	}
}

func TestListRoutes(t *testing.T) {
	ts := newTestServer(true)

	for _, path := range []string{"/expenses", "/settlements", ""} {
		rec := ts.do(http.MethodGet, groupPath(path), "")
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestGroupMembership(t *testing.T) {
	ts := newTestServer(true)
	ts.groups.added = &models.User{ID: "u2", Email: "bob@example.com"}

	rec := ts.do(http.MethodPost, groupPath("/members"), `{"email":"bob@example.com"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	rec = ts.do(http.MethodDelete, groupPath("/members/u2"), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ts.groups.removed != "u2" {
		t.Errorf("expected u2 removed, got %q", ts.groups.removed)
	}

	ts.groups.err = apperrors.AlreadyMember()
	rec = ts.do(http.MethodPost, groupPath("/members"), `{"email":"bob@example.com"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
}

func TestCreateGroup(t *testing.T) {
	ts := newTestServer(true)

	rec := ts.do(http.MethodPost, "/groups", `{"name":"Trip","currency":"eur"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if ts.groups.createReq != [2]string{"Trip", "eur"} {
		t.Errorf("unexpected create request %v", ts.groups.createReq)
	}

	rec = ts.do(http.MethodPost, "/groups", `{"currency":"EUR"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without a name, got %d", rec.Code)
	}
}

func TestGetGroups(t *testing.T) {
	ts := newTestServer(true)
	ts.groups.groups = []models.Group{
		{ID: testGroupID, Name: "Trip", Currency: "USD"},
	}

	rec := ts.do(http.MethodGet, "/groups", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ts.groups.listedFor != testUserID {
		t.Errorf("expected groups listed for %s, got %q", testUserID, ts.groups.listedFor)
	}
	var got []models.Group
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(got) != 1 || got[0].ID != testGroupID {
		t.Errorf("unexpected groups %+v", got)
	}

	ts.groups.err = apperrors.DatabaseError("getting groups", errors.New("boom"))
	rec = ts.do(http.MethodGet, "/groups", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestExplainBalances(t *testing.T) {
	ts := newTestServer(true)
	ts.explainer.explanation = &models.BalanceExplanation{GroupID: testGroupID, Explanation: "Bob owes Alice 60."}

	rec := ts.do(http.MethodPost, groupPath("/balances/explain"), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	ts.explainer.err = apperrors.AIServiceError(errors.New("disabled"))
	rec = ts.do(http.MethodPost, groupPath("/balances/explain"), "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestStreamEvents(t *testing.T) {
	ts := newTestServer(true)

	rec := ts.do(http.MethodGet, groupPath("/events"), "")
	if rec.Code != http.StatusSwitchingProtocols {
		t.Fatalf("expected the stream to be served, got %d", rec.Code)
	}
	if len(ts.events.served) != 1 || ts.events.served[0] != testGroupID {
		t.Errorf("unexpected streams %v", ts.events.served)
	}

	ts.groups.err = apperrors.NotGroupMember()
	rec = ts.do(http.MethodGet, groupPath("/events"), "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
	if len(ts.events.served) != 1 {
		t.Error("non-members must not be subscribed")
	}
}

func TestEnsureUser(t *testing.T) {
	ts := newTestServer(true)
	ts.balances.resp = &models.GroupBalancesResponse{}
	ts.do(http.MethodGet, groupPath("/balances"), "")
	if ts.users.ensured != 1 {
		t.Errorf("expected the user record to be ensured once, got %d", ts.users.ensured)
	}

	ts.users.err = apperrors.DatabaseError("creating user record", errors.New("down"))
	rec := ts.do(http.MethodGet, groupPath("/balances"), "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}

	anon := newTestServer(false)
	rec = anon.do(http.MethodGet, groupPath("/balances"), "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without identity, got %d", rec.Code)
	}
}

func TestGetCurrencies(t *testing.T) {
	r := chi.NewRouter()
	NewCurrencyHandlers(memory.NewStore().Currencies()).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/currencies", nil).WithContext(context.Background())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var got []models.Currency
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, c := range got {
		if c.Code == "JPY" {
			found = c.MinorUnits == 0
		}
	}
	if !found {
		t.Errorf("expected JPY with no minor units in %+v", got)
	}
}
