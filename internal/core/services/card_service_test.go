package services_test

import (
	"context"
	"testing"

	"github.com/cardforge/cardforge-backend/internal/apperrors"
	"github.com/cardforge/cardforge-backend/internal/core/domain"
	"github.com/cardforge/cardforge-backend/internal/core/ports/gateways"
	"github.com/cardforge/cardforge-backend/internal/core/services"
	"github.com/cardforge/cardforge-backend/internal/dto"
	"github.com/cardforge/cardforge-backend/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock ArtworkPinner ---
type MockArtworkPinner struct {
	mock.Mock
}

func (m *MockArtworkPinner) PinURL(ctx context.Context, url string, name string) (string, error) {
	args := m.Called(ctx, url, name)
	return args.String(0), args.Error(1)
}

// --- Test Suite ---

type CardServiceTestSuite struct {
	suite.Suite
	mockCardRepo *MockCardRepository
	mockPinner   *MockArtworkPinner
	service      *services.CardService
	ctx          context.Context
}

func (suite *CardServiceTestSuite) SetupTest() {
	suite.mockCardRepo = new(MockCardRepository)
	suite.mockPinner = new(MockArtworkPinner)
	suite.service = services.NewCardService(suite.mockCardRepo, suite.mockPinner, &utils.PosthogClientWrapper{})
	suite.ctx = context.Background()
}

func createCardReq() dto.CreateCardRequest {
	return dto.CreateCardRequest{
		Title:    "Obsidian Wyrm",
		Prompt:   "a dragon carved from volcanic glass",
		ImageURL: "https://cdn.example.com/wyrm.png",
		Rarity:   string(domain.RarityEpic),
	}
}

func (suite *CardServiceTestSuite) TestCreateCard_PinsArtwork() {
	suite.mockPinner.On("PinURL", suite.ctx, "https://cdn.example.com/wyrm.png", mock.AnythingOfType("string")).Return("bafybeigdyr", nil).Once()
	suite.mockCardRepo.On("SaveCard", suite.ctx, mock.MatchedBy(func(c domain.Card) bool {
		return c.OwnerID == "creator-1" &&
			c.CreatorID == "creator-1" &&
			c.Rarity == domain.RarityEpic &&
			c.ImageCID == "bafybeigdyr"
	})).Return(nil).Once()

	card, err := suite.service.CreateCard(suite.ctx, createCardReq(), "creator-1")

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "bafybeigdyr", card.ImageCID)
	suite.mockCardRepo.AssertExpectations(suite.T())
}

func (suite *CardServiceTestSuite) TestCreateCard_PinFailureIsNotFatal() {
	suite.mockPinner.On("PinURL", suite.ctx, mock.Anything, mock.Anything).Return("", assert.AnError).Once()
	suite.mockCardRepo.On("SaveCard", suite.ctx, mock.MatchedBy(func(c domain.Card) bool {
		return c.ImageCID == "" && c.ImageURL == "https://cdn.example.com/wyrm.png"
	})).Return(nil).Once()

	card, err := suite.service.CreateCard(suite.ctx, createCardReq(), "creator-1")

	assert.NoError(suite.T(), err)
	assert.Empty(suite.T(), card.ImageCID)
}

func (suite *CardServiceTestSuite) TestListCards_FullPageReturnsToken() {
	cards := []domain.Card{
		{CardID: "card-1"},
		{CardID: "card-2"},
	}
	suite.mockCardRepo.On("FindCards", suite.ctx, 2, mock.Anything, false).Return(cards, nil).Once()

	got, nextToken, err := suite.service.ListCards(suite.ctx, 2, "", false)

	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), got, 2)
	assert.NotEmpty(suite.T(), nextToken)
}

func (suite *CardServiceTestSuite) TestListCards_PartialPageNoToken() {
	suite.mockCardRepo.On("FindCards", suite.ctx, 20, mock.Anything, true).Return([]domain.Card{{CardID: "card-1"}}, nil).Once()

	got, nextToken, err := suite.service.ListCards(suite.ctx, 20, "", true)

	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), got, 1)
	assert.Empty(suite.T(), nextToken)
}

func (suite *CardServiceTestSuite) TestTrackView() {
	suite.mockCardRepo.On("IncrementViews", suite.ctx, "card-1").Return(nil).Once()

	err := suite.service.TrackView(suite.ctx, "card-1")

	assert.NoError(suite.T(), err)
	suite.mockCardRepo.AssertExpectations(suite.T())
}

func (suite *CardServiceTestSuite) TestTrackView_NotFound() {
	suite.mockCardRepo.On("IncrementViews", suite.ctx, "missing").Return(apperrors.ErrNotFound).Once()

	err := suite.service.TrackView(suite.ctx, "missing")

	assert.ErrorIs(suite.T(), err, apperrors.ErrNotFound)
}

func (suite *CardServiceTestSuite) TestSetFeatured() {
	suite.mockCardRepo.On("SetFeatured", suite.ctx, "card-1", true, "admin-1", mock.AnythingOfType("time.Time")).Return(nil).Once()

	err := suite.service.SetFeatured(suite.ctx, "card-1", true, "admin-1")

	assert.NoError(suite.T(), err)
	suite.mockCardRepo.AssertExpectations(suite.T())
}

var _ gateways.ArtworkPinner = (*MockArtworkPinner)(nil)

func TestCardService(t *testing.T) {
	suite.Run(t, new(CardServiceTestSuite))
}
