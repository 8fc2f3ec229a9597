package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/cardforge/cardforge-backend/internal/apperrors"
	"github.com/cardforge/cardforge-backend/internal/core/domain"
	portsrepo "github.com/cardforge/cardforge-backend/internal/core/ports/repositories"
	"github.com/cardforge/cardforge-backend/internal/core/services"
	"github.com/cardforge/cardforge-backend/internal/dto"
	"github.com/cardforge/cardforge-backend/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock ListingRepository ---
type MockListingRepository struct {
	mock.Mock
}

var _ portsrepo.ListingRepositoryFacade = (*MockListingRepository)(nil)

func (m *MockListingRepository) FindListingByID(ctx context.Context, listingID string) (*domain.Listing, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Listing), args.Error(1)
}

func (m *MockListingRepository) FindOpenListings(ctx context.Context, limit int, createdBefore *time.Time) ([]domain.Listing, error) {
	args := m.Called(ctx, limit, createdBefore)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Listing), args.Error(1)
}

func (m *MockListingRepository) SaveListing(ctx context.Context, listing domain.Listing) error {
	args := m.Called(ctx, listing)
	return args.Error(0)
}

func (m *MockListingRepository) CancelListing(ctx context.Context, listingID string, sellerID string, now time.Time) error {
	args := m.Called(ctx, listingID, sellerID, now)
	return args.Error(0)
}

func (m *MockListingRepository) CompleteSale(ctx context.Context, sale domain.SaleTransfer) error {
	args := m.Called(ctx, sale)
	return args.Error(0)
}

// --- Mock CardRepository ---
type MockCardRepository struct {
	mock.Mock
}

var _ portsrepo.CardRepositoryFacade = (*MockCardRepository)(nil)

func (m *MockCardRepository) FindCardByID(ctx context.Context, cardID string) (*domain.Card, error) {
	args := m.Called(ctx, cardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Card), args.Error(1)
}

func (m *MockCardRepository) FindCards(ctx context.Context, limit int, createdBefore *time.Time, featuredOnly bool) ([]domain.Card, error) {
	args := m.Called(ctx, limit, createdBefore, featuredOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Card), args.Error(1)
}

func (m *MockCardRepository) FindCardsByOwner(ctx context.Context, ownerID string) ([]domain.Card, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Card), args.Error(1)
}

func (m *MockCardRepository) SaveCard(ctx context.Context, card domain.Card) error {
	args := m.Called(ctx, card)
	return args.Error(0)
}

func (m *MockCardRepository) UpdateCard(ctx context.Context, card domain.Card) error {
	args := m.Called(ctx, card)
	return args.Error(0)
}

func (m *MockCardRepository) IncrementViews(ctx context.Context, cardID string) error {
	args := m.Called(ctx, cardID)
	return args.Error(0)
}

func (m *MockCardRepository) SetFeatured(ctx context.Context, cardID string, featured bool, updatedBy string, now time.Time) error {
	args := m.Called(ctx, cardID, featured, updatedBy, now)
	return args.Error(0)
}

// --- Test Suite ---

type ListingServiceTestSuite struct {
	suite.Suite
	mockListingRepo *MockListingRepository
	mockCardRepo    *MockCardRepository
	service         *services.ListingService
	ctx             context.Context
}

func (suite *ListingServiceTestSuite) SetupTest() {
	suite.mockListingRepo = new(MockListingRepository)
	suite.mockCardRepo = new(MockCardRepository)
	suite.service = services.NewListingService(suite.mockListingRepo, suite.mockCardRepo, &utils.PosthogClientWrapper{})
	suite.ctx = context.Background()
}

func openListing() *domain.Listing {
	return &domain.Listing{
		ListingID:    "listing-1",
		CardID:       "card-1",
		SellerID:     "seller-1",
		PriceCredits: 300,
		Status:       domain.ListingOpen,
	}
}

func (suite *ListingServiceTestSuite) TestCreateListing_Success() {
	suite.mockCardRepo.On("FindCardByID", suite.ctx, "card-1").Return(&domain.Card{
		CardID:  "card-1",
		OwnerID: "seller-1",
	}, nil).Once()
	suite.mockListingRepo.On("SaveListing", suite.ctx, mock.MatchedBy(func(l domain.Listing) bool {
		return l.CardID == "card-1" &&
			l.SellerID == "seller-1" &&
			l.PriceCredits == 300 &&
			l.Status == domain.ListingOpen
	})).Return(nil).Once()

	listing, err := suite.service.CreateListing(suite.ctx, dto.CreateListingRequest{CardID: "card-1", PriceCredits: 300}, "seller-1")

	assert.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), listing.ListingID)
	suite.mockListingRepo.AssertExpectations(suite.T())
}

func (suite *ListingServiceTestSuite) TestCreateListing_NotOwnerForbidden() {
	suite.mockCardRepo.On("FindCardByID", suite.ctx, "card-1").Return(&domain.Card{
		CardID:  "card-1",
		OwnerID: "someone-else",
	}, nil).Once()

	_, err := suite.service.CreateListing(suite.ctx, dto.CreateListingRequest{CardID: "card-1", PriceCredits: 300}, "seller-1")

	assert.ErrorIs(suite.T(), err, apperrors.ErrForbidden)
	suite.mockListingRepo.AssertNotCalled(suite.T(), "SaveListing", mock.Anything, mock.Anything)
}

func (suite *ListingServiceTestSuite) TestPurchaseListing_Success() {
	suite.mockListingRepo.On("FindListingByID", suite.ctx, "listing-1").Return(openListing(), nil).Once()
	suite.mockListingRepo.On("CompleteSale", suite.ctx, mock.MatchedBy(func(s domain.SaleTransfer) bool {
		return s.ListingID == "listing-1" &&
			s.CardID == "card-1" &&
			s.SellerID == "seller-1" &&
			s.BuyerID == "buyer-1" &&
			s.PriceCredits == 300 &&
			s.DebitReferenceID != "" &&
			s.GrantReferenceID != "" &&
			s.DebitReferenceID != s.GrantReferenceID
	})).Return(nil).Once()

	listing, err := suite.service.PurchaseListing(suite.ctx, "listing-1", "buyer-1")

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), domain.ListingSold, listing.Status)
	assert.Equal(suite.T(), "buyer-1", listing.BuyerID)
	assert.NotNil(suite.T(), listing.SoldAt)
	suite.mockListingRepo.AssertExpectations(suite.T())
}

func (suite *ListingServiceTestSuite) TestPurchaseListing_InsufficientCredits() {
	suite.mockListingRepo.On("FindListingByID", suite.ctx, "listing-1").Return(openListing(), nil).Once()
	suite.mockListingRepo.On("CompleteSale", suite.ctx, mock.Anything).Return(apperrors.ErrInsufficientCredits).Once()

	_, err := suite.service.PurchaseListing(suite.ctx, "listing-1", "buyer-1")

	assert.ErrorIs(suite.T(), err, apperrors.ErrInsufficientCredits)
}

func (suite *ListingServiceTestSuite) TestPurchaseListing_OwnListingRejected() {
	suite.mockListingRepo.On("FindListingByID", suite.ctx, "listing-1").Return(openListing(), nil).Once()

	_, err := suite.service.PurchaseListing(suite.ctx, "listing-1", "seller-1")

	assert.ErrorIs(suite.T(), err, apperrors.ErrValidation)
	suite.mockListingRepo.AssertNotCalled(suite.T(), "CompleteSale", mock.Anything, mock.Anything)
}

func (suite *ListingServiceTestSuite) TestPurchaseListing_ClosedListing() {
	closed := openListing()
	closed.Status = domain.ListingSold
	suite.mockListingRepo.On("FindListingByID", suite.ctx, "listing-1").Return(closed, nil).Once()

	_, err := suite.service.PurchaseListing(suite.ctx, "listing-1", "buyer-1")

	assert.ErrorIs(suite.T(), err, apperrors.ErrNotFound)
	suite.mockListingRepo.AssertNotCalled(suite.T(), "CompleteSale", mock.Anything, mock.Anything)
}

func (suite *ListingServiceTestSuite) TestPurchaseListing_LostRace() {
	suite.mockListingRepo.On("FindListingByID", suite.ctx, "listing-1").Return(openListing(), nil).Once()
	suite.mockListingRepo.On("CompleteSale", suite.ctx, mock.Anything).Return(apperrors.ErrNotFound).Once()

	_, err := suite.service.PurchaseListing(suite.ctx, "listing-1", "buyer-1")

	assert.ErrorIs(suite.T(), err, apperrors.ErrNotFound)
}

func (suite *ListingServiceTestSuite) TestCancelListing_OnlySeller() {
	suite.mockListingRepo.On("FindListingByID", suite.ctx, "listing-1").Return(openListing(), nil).Once()

	err := suite.service.CancelListing(suite.ctx, "listing-1", "someone-else")

	assert.ErrorIs(suite.T(), err, apperrors.ErrForbidden)
	suite.mockListingRepo.AssertNotCalled(suite.T(), "CancelListing", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestListingService(t *testing.T) {
	suite.Run(t, new(ListingServiceTestSuite))
}
