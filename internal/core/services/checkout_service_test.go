package services_test

import (
	"context"
	"testing"

	"github.com/cardforge/cardforge-backend/internal/apperrors"
	"github.com/cardforge/cardforge-backend/internal/core/domain"
	"github.com/cardforge/cardforge-backend/internal/core/ports/gateways"
	"github.com/cardforge/cardforge-backend/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock PaymentGateway ---
type MockPaymentGateway struct {
	mock.Mock
}

var _ gateways.PaymentGateway = (*MockPaymentGateway)(nil)

func (m *MockPaymentGateway) CreateCheckoutSession(ctx context.Context, params gateways.CheckoutSessionParams) (*gateways.CheckoutSession, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateways.CheckoutSession), args.Error(1)
}

func (m *MockPaymentGateway) GetPaymentIntentMetadata(ctx context.Context, paymentIntentID string) (map[string]string, error) {
	args := m.Called(ctx, paymentIntentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

// --- Test Suite ---

type CheckoutServiceTestSuite struct {
	suite.Suite
	mockGateway *MockPaymentGateway
	service     *services.CheckoutService
	ctx         context.Context
}

func (suite *CheckoutServiceTestSuite) SetupTest() {
	suite.mockGateway = new(MockPaymentGateway)
	suite.service = services.NewCheckoutService(suite.mockGateway, services.CheckoutConfig{
		CreditsPerUSD: 160,
		PacksUSD:      []int64{10, 25, 50},
		Currency:      "usd",
		SuccessURL:    "https://example.com/success",
		CancelURL:     "https://example.com/cancel",
	})
	suite.ctx = context.Background()
}

func (suite *CheckoutServiceTestSuite) TestCreateCreditsCheckout_Success() {
	suite.mockGateway.On("CreateCheckoutSession", suite.ctx, mock.MatchedBy(func(p gateways.CheckoutSessionParams) bool {
		return p.AmountCents == 2500 &&
			p.Currency == "usd" &&
			p.Metadata[domain.MetaKeyKind] == domain.CheckoutKindCreditsPurchase &&
			p.Metadata[domain.MetaKeyUserID] == "user-1" &&
			p.Metadata[domain.MetaKeyCredits] == "4000" &&
			p.Metadata[domain.MetaKeyUSD] == "25"
	})).Return(&gateways.CheckoutSession{ID: "cs_1", URL: "https://pay.example.com/cs_1"}, nil).Once()

	url, err := suite.service.CreateCreditsCheckout(suite.ctx, "user-1", 25)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "https://pay.example.com/cs_1", url)
	suite.mockGateway.AssertExpectations(suite.T())
}

func (suite *CheckoutServiceTestSuite) TestCreateCreditsCheckout_RejectsUnknownPack() {
	_, err := suite.service.CreateCreditsCheckout(suite.ctx, "user-1", 13)

	assert.ErrorIs(suite.T(), err, apperrors.ErrValidation)
	suite.mockGateway.AssertNotCalled(suite.T(), "CreateCheckoutSession", mock.Anything, mock.Anything)
}

func (suite *CheckoutServiceTestSuite) TestCreateCreditsCheckout_GatewayFailure() {
	suite.mockGateway.On("CreateCheckoutSession", suite.ctx, mock.Anything).Return(nil, assert.AnError).Once()

	_, err := suite.service.CreateCreditsCheckout(suite.ctx, "user-1", 10)

	assert.Error(suite.T(), err)
	assert.NotErrorIs(suite.T(), err, apperrors.ErrValidation)
}

func (suite *CheckoutServiceTestSuite) TestAllowedPacksIsACopy() {
	packs := suite.service.AllowedPacks()
	assert.Equal(suite.T(), []int64{10, 25, 50}, packs)

	packs[0] = 999
	assert.Equal(suite.T(), []int64{10, 25, 50}, suite.service.AllowedPacks())
}

func TestCheckoutService(t *testing.T) {
	suite.Run(t, new(CheckoutServiceTestSuite))
}
