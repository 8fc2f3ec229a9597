package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cardforge/cardforge-backend/internal/apperrors"
	"github.com/cardforge/cardforge-backend/internal/core/domain"
	portsrepo "github.com/cardforge/cardforge-backend/internal/core/ports/repositories"
	"github.com/cardforge/cardforge-backend/internal/core/services"
	"github.com/cardforge/cardforge-backend/internal/utils/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock CreditsRepository ---
type MockCreditsRepository struct {
	mock.Mock
}

var _ portsrepo.CreditsRepositoryFacade = (*MockCreditsRepository)(nil)

func (m *MockCreditsRepository) InsertLedgerEntry(ctx context.Context, entry domain.LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockCreditsRepository) FindEntriesByAccount(ctx context.Context, accountID string, limit int, createdBefore *time.Time) ([]domain.LedgerEntry, error) {
	args := m.Called(ctx, accountID, limit, createdBefore)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LedgerEntry), args.Error(1)
}

func (m *MockCreditsRepository) SumLedgerBalances(ctx context.Context) (map[string]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

func (m *MockCreditsRepository) GetBalance(ctx context.Context, accountID string) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCreditsRepository) AddToBalance(ctx context.Context, accountID string, credits int64) error {
	args := m.Called(ctx, accountID, credits)
	return args.Error(0)
}

func (m *MockCreditsRepository) DeductFromBalance(ctx context.Context, accountID string, credits int64) error {
	args := m.Called(ctx, accountID, credits)
	return args.Error(0)
}

func (m *MockCreditsRepository) OverwriteBalance(ctx context.Context, accountID string, credits int64, now time.Time) error {
	args := m.Called(ctx, accountID, credits, now)
	return args.Error(0)
}

// --- Test Suite ---

type CreditsServiceTestSuite struct {
	suite.Suite
	mockRepo *MockCreditsRepository
	service  *services.CreditsService
	ctx      context.Context
}

func (suite *CreditsServiceTestSuite) SetupTest() {
	suite.mockRepo = new(MockCreditsRepository)
	suite.service = services.NewCreditsService(suite.mockRepo)
	suite.ctx = context.Background()
}

func purchaseFacts() domain.PurchaseFacts {
	return domain.PurchaseFacts{
		Kind:           domain.CheckoutKindCreditsPurchase,
		AccountID:      "user-1",
		Credits:        4000,
		ReferenceID:    "pi_123",
		AmountUSDCents: 2500,
		EventType:      "checkout.session.completed",
	}
}

func (suite *CreditsServiceTestSuite) TestApplyPurchaseGrant_Success() {
	facts := purchaseFacts()

	suite.mockRepo.On("InsertLedgerEntry", suite.ctx, mock.MatchedBy(func(e domain.LedgerEntry) bool {
		return e.ReferenceID == "pi_123" &&
			e.AccountID == "user-1" &&
			e.EntryType == domain.EntryGrant &&
			e.Amount == 4000 &&
			e.Reason == domain.ReasonPurchase
	})).Return(nil).Once()
	suite.mockRepo.On("AddToBalance", suite.ctx, "user-1", int64(4000)).Return(nil).Once()

	err := suite.service.ApplyPurchaseGrant(suite.ctx, facts)

	assert.NoError(suite.T(), err)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *CreditsServiceTestSuite) TestApplyPurchaseGrant_DuplicateIsNoOp() {
	facts := purchaseFacts()

	dupErr := fmt.Errorf("%w: ledger entry with reference pi_123 already exists", apperrors.ErrDuplicate)
	suite.mockRepo.On("InsertLedgerEntry", suite.ctx, mock.Anything).Return(dupErr).Once()

	err := suite.service.ApplyPurchaseGrant(suite.ctx, facts)

	assert.NoError(suite.T(), err)
	suite.mockRepo.AssertNotCalled(suite.T(), "AddToBalance", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *CreditsServiceTestSuite) TestApplyPurchaseGrant_IrrelevantKindIgnored() {
	facts := purchaseFacts()
	facts.Kind = "subscription"

	err := suite.service.ApplyPurchaseGrant(suite.ctx, facts)

	assert.NoError(suite.T(), err)
	suite.mockRepo.AssertNotCalled(suite.T(), "InsertLedgerEntry", mock.Anything, mock.Anything)
	suite.mockRepo.AssertNotCalled(suite.T(), "AddToBalance", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *CreditsServiceTestSuite) TestApplyPurchaseGrant_MissingFieldsIgnored() {
	cases := []func(*domain.PurchaseFacts){
		func(f *domain.PurchaseFacts) { f.AccountID = "" },
		func(f *domain.PurchaseFacts) { f.ReferenceID = "" },
		func(f *domain.PurchaseFacts) { f.Credits = 0 },
		func(f *domain.PurchaseFacts) { f.Credits = -10 },
	}

	for _, mutate := range cases {
		facts := purchaseFacts()
		mutate(&facts)

		err := suite.service.ApplyPurchaseGrant(suite.ctx, facts)
		assert.NoError(suite.T(), err)
	}
	suite.mockRepo.AssertNotCalled(suite.T(), "InsertLedgerEntry", mock.Anything, mock.Anything)
}

func (suite *CreditsServiceTestSuite) TestApplyPurchaseGrant_InsertFailurePropagates() {
	facts := purchaseFacts()

	suite.mockRepo.On("InsertLedgerEntry", suite.ctx, mock.Anything).Return(assert.AnError).Once()

	err := suite.service.ApplyPurchaseGrant(suite.ctx, facts)

	assert.Error(suite.T(), err)
	assert.NotErrorIs(suite.T(), err, apperrors.ErrBalanceOutOfSync)
	suite.mockRepo.AssertNotCalled(suite.T(), "AddToBalance", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *CreditsServiceTestSuite) TestApplyPurchaseGrant_BalanceFailureIsOutOfSync() {
	facts := purchaseFacts()

	suite.mockRepo.On("InsertLedgerEntry", suite.ctx, mock.Anything).Return(nil).Once()
	suite.mockRepo.On("AddToBalance", suite.ctx, "user-1", int64(4000)).Return(assert.AnError).Once()

	err := suite.service.ApplyPurchaseGrant(suite.ctx, facts)

	assert.Error(suite.T(), err)
	assert.ErrorIs(suite.T(), err, apperrors.ErrBalanceOutOfSync)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *CreditsServiceTestSuite) TestGetBalance() {
	suite.mockRepo.On("GetBalance", suite.ctx, "user-1").Return(int64(1600), nil).Once()

	credits, err := suite.service.GetBalance(suite.ctx, "user-1")

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1600), credits)
}

func (suite *CreditsServiceTestSuite) TestListLedgerEntries_PaginatesWithToken() {
	now := time.Now()
	entries := make([]domain.LedgerEntry, 2)
	for i := range entries {
		entries[i] = domain.LedgerEntry{
			EntryID:   fmt.Sprintf("entry-%d", i),
			AccountID: "user-1",
			EntryType: domain.EntryGrant,
			Amount:    100,
			Reason:    domain.ReasonPurchase,
			CreatedAt: now.Add(-time.Duration(i) * time.Minute),
		}
	}

	suite.mockRepo.On("FindEntriesByAccount", suite.ctx, "user-1", 2, (*time.Time)(nil)).Return(entries, nil).Once()

	got, nextToken, err := suite.service.ListLedgerEntries(suite.ctx, "user-1", 2, "")

	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), got, 2)
	// Full page, so a cursor pointing at the oldest returned entry.
	assert.NotEmpty(suite.T(), nextToken)
	decoded, err := pagination.DecodeDateBasedToken(nextToken)
	assert.NoError(suite.T(), err)
	assert.WithinDuration(suite.T(), entries[1].CreatedAt, decoded, time.Second)
}

func (suite *CreditsServiceTestSuite) TestListLedgerEntries_InvalidToken() {
	_, _, err := suite.service.ListLedgerEntries(suite.ctx, "user-1", 10, "not-base64!!")

	assert.ErrorIs(suite.T(), err, apperrors.ErrValidation)
	suite.mockRepo.AssertNotCalled(suite.T(), "FindEntriesByAccount", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *CreditsServiceTestSuite) TestAdminAdjust_Success() {
	suite.mockRepo.On("InsertLedgerEntry", suite.ctx, mock.MatchedBy(func(e domain.LedgerEntry) bool {
		return e.AccountID == "user-2" &&
			e.EntryType == domain.EntryGrant &&
			e.Amount == 500 &&
			e.Reason == domain.ReasonAdminAdjustment &&
			e.ReferenceID != ""
	})).Return(nil).Once()
	suite.mockRepo.On("AddToBalance", suite.ctx, "user-2", int64(500)).Return(nil).Once()

	err := suite.service.AdminAdjust(suite.ctx, "user-2", 500, "support credit", "admin-1")

	assert.NoError(suite.T(), err)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *CreditsServiceTestSuite) TestAdminAdjust_RejectsNonPositive() {
	err := suite.service.AdminAdjust(suite.ctx, "user-2", 0, "", "admin-1")

	assert.ErrorIs(suite.T(), err, apperrors.ErrValidation)
	suite.mockRepo.AssertNotCalled(suite.T(), "InsertLedgerEntry", mock.Anything, mock.Anything)
}

func (suite *CreditsServiceTestSuite) TestReconcileBalances_RewritesDriftedOnly() {
	sums := map[string]int64{
		"user-1": 1600, // matches stored balance
		"user-2": 85,   // drifted: 10 + 25 + 50 credited, balance row stale
	}

	suite.mockRepo.On("SumLedgerBalances", suite.ctx).Return(sums, nil).Once()
	suite.mockRepo.On("GetBalance", suite.ctx, "user-1").Return(int64(1600), nil).Once()
	suite.mockRepo.On("GetBalance", suite.ctx, "user-2").Return(int64(0), nil).Once()
	suite.mockRepo.On("OverwriteBalance", suite.ctx, "user-2", int64(85), mock.AnythingOfType("time.Time")).Return(nil).Once()

	result, err := suite.service.ReconcileBalances(suite.ctx)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 2, result.AccountsChecked)
	assert.Equal(suite.T(), 1, result.BalancesRewritten)
	suite.mockRepo.AssertExpectations(suite.T())
	suite.mockRepo.AssertNotCalled(suite.T(), "OverwriteBalance", suite.ctx, "user-1", mock.Anything, mock.Anything)
}

func (suite *CreditsServiceTestSuite) TestReconcileBalances_SumFailure() {
	suite.mockRepo.On("SumLedgerBalances", suite.ctx).Return(nil, assert.AnError).Once()

	result, err := suite.service.ReconcileBalances(suite.ctx)

	assert.Error(suite.T(), err)
	assert.Nil(suite.T(), result)
}

func TestCreditsService(t *testing.T) {
	suite.Run(t, new(CreditsServiceTestSuite))
}
