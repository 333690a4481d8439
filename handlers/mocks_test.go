package handlers

import (
	"context"
	"net/http"

	"github.com/ttiimmothy/expense-splitter/models"
	"github.com/ttiimmothy/expense-splitter/services"
)

type mockGroupService struct {
	group     *models.Group
	groups    []models.Group
	listedFor string
	err       error
	added     *models.User
	removed   string
	createReq [2]string
}

func (m *mockGroupService) GetByID(ctx context.Context, groupID, userID string) (*models.Group, error) {
	return m.group, m.err
}
func (m *mockGroupService) GetByUserID(ctx context.Context, userID string) ([]models.Group, error) {
	m.listedFor = userID
	return m.groups, m.err
}
func (m *mockGroupService) Create(ctx context.Context, userID, name, currency string) (*models.Group, error) {
	m.createReq = [2]string{name, currency}
	return m.group, m.err
}
func (m *mockGroupService) AddMember(ctx context.Context, groupID, userID, newMemberEmail string) (*models.User, error) {
	return m.added, m.err
}
func (m *mockGroupService) RemoveMember(ctx context.Context, groupID, userID, memberToRemoveID string) error {
	m.removed = memberToRemoveID
	return m.err
}

type mockExpenseService struct {
	input    services.CreateExpenseInput
	expense  *models.Expense
	expenses []models.Expense
	err      error
}

func (m *mockExpenseService) Create(ctx context.Context, groupID, requesterID string, input services.CreateExpenseInput) (*models.Expense, error) {
	m.input = input
	return m.expense, m.err
}
func (m *mockExpenseService) ListByGroup(ctx context.Context, groupID, requesterID string) ([]models.Expense, error) {
	return m.expenses, m.err
}

type mockSettlementService struct {
	input       services.RecordSettlementInput
	suggestions []models.SettlementSuggestion
	settlement  *models.Settlement
	settlements []models.Settlement
	err         error
}

func (m *mockSettlementService) SuggestSettlements(ctx context.Context, groupID, requesterID string) ([]models.SettlementSuggestion, error) {
	return m.suggestions, m.err
}
func (m *mockSettlementService) RecordSettlement(ctx context.Context, groupID, requesterID string, input services.RecordSettlementInput) (*models.Settlement, error) {
	m.input = input
	return m.settlement, m.err
}
func (m *mockSettlementService) ListSettlements(ctx context.Context, groupID, requesterID string) ([]models.Settlement, error) {
	return m.settlements, m.err
}

type mockBalanceService struct {
	resp    *models.GroupBalancesResponse
	err     error
	groupID string
	userID  string
}

func (m *mockBalanceService) ComputeBalances(ctx context.Context, groupID, requesterID string) ([]models.Balance, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.resp.Balances, nil
}
func (m *mockBalanceService) GetGroupBalances(ctx context.Context, groupID, requesterID string) (*models.GroupBalancesResponse, error) {
	m.groupID, m.userID = groupID, requesterID
	return m.resp, m.err
}

type mockUserService struct {
	ensured int
	err     error
}

func (m *mockUserService) EnsureUser(ctx context.Context, userID, email, name string) (*models.User, error) {
	m.ensured++
	if m.err != nil {
		return nil, m.err
	}
	return &models.User{ID: userID, Email: email, Name: name}, nil
}
func (m *mockUserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return &models.User{ID: userID}, m.err
}

type mockExplanationService struct {
	explanation *models.BalanceExplanation
	err         error
}

func (m *mockExplanationService) ExplainBalances(ctx context.Context, groupID, userID string) (*models.BalanceExplanation, error) {
	return m.explanation, m.err
}

type mockEventStream struct {
	served []string
}

func (m *mockEventStream) ServeWS(w http.ResponseWriter, r *http.Request, groupID string) error {
	m.served = append(m.served, groupID)
	w.WriteHeader(http.StatusSwitchingProtocols)
	return nil
}
