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

// --- Mock UserRepository ---
type MockUserRepository struct {
	mock.Mock
}

var _ portsrepo.UserRepositoryFacade = (*MockUserRepository)(nil)

func (m *MockUserRepository) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) SaveUser(ctx context.Context, user domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateUser(ctx context.Context, user domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateRefreshToken(ctx context.Context, userID string, refreshTokenHash string, expiryTime time.Time) error {
	args := m.Called(ctx, userID, refreshTokenHash, expiryTime)
	return args.Error(0)
}

func (m *MockUserRepository) ClearRefreshToken(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockUserRepository) MarkUserDeleted(ctx context.Context, userID string, deletedAt time.Time, deletedBy string) error {
	args := m.Called(ctx, userID, deletedAt, deletedBy)
	return args.Error(0)
}

// --- Test Suite ---

type UserServiceTestSuite struct {
	suite.Suite
	mockRepo *MockUserRepository
	service  *services.UserService
	ctx      context.Context
}

func (suite *UserServiceTestSuite) SetupTest() {
	suite.mockRepo = new(MockUserRepository)
	suite.service = services.NewUserService(suite.mockRepo)
	suite.ctx = context.Background()
}

func (suite *UserServiceTestSuite) TestRegisterUser_HashesPassword() {
	suite.mockRepo.On("SaveUser", suite.ctx, mock.MatchedBy(func(u domain.User) bool {
		return u.Username == "collector" &&
			u.Email == "collector@example.com" &&
			u.PasswordHash != "" &&
			u.PasswordHash != "hunter2secret" &&
			utils.CheckPasswordHash("hunter2secret", u.PasswordHash)
	})).Return(nil).Once()

	user, err := suite.service.RegisterUser(suite.ctx, dto.RegisterUserRequest{
		Username: "collector",
		Email:    "Collector@Example.com",
		Name:     "Card Collector",
		Password: "hunter2secret",
	})

	assert.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), user.UserID)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *UserServiceTestSuite) TestRegisterUser_DuplicateUsername() {
	suite.mockRepo.On("SaveUser", suite.ctx, mock.Anything).Return(apperrors.ErrDuplicate).Once()

	_, err := suite.service.RegisterUser(suite.ctx, dto.RegisterUserRequest{
		Username: "collector",
		Email:    "collector@example.com",
		Name:     "Card Collector",
		Password: "hunter2secret",
	})

	assert.ErrorIs(suite.T(), err, apperrors.ErrDuplicate)
}

func (suite *UserServiceTestSuite) TestAuthenticateUser_Success() {
	hash, err := utils.HashPassword("hunter2secret")
	assert.NoError(suite.T(), err)

	suite.mockRepo.On("FindUserByUsername", suite.ctx, "collector").Return(&domain.User{
		UserID:       "user-1",
		Username:     "collector",
		PasswordHash: hash,
	}, nil).Once()

	user, err := suite.service.AuthenticateUser(suite.ctx, "collector", "hunter2secret")

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "user-1", user.UserID)
}

func (suite *UserServiceTestSuite) TestAuthenticateUser_WrongPassword() {
	hash, err := utils.HashPassword("hunter2secret")
	assert.NoError(suite.T(), err)

	suite.mockRepo.On("FindUserByUsername", suite.ctx, "collector").Return(&domain.User{
		UserID:       "user-1",
		PasswordHash: hash,
	}, nil).Once()

	_, err = suite.service.AuthenticateUser(suite.ctx, "collector", "wrong")

	assert.ErrorIs(suite.T(), err, apperrors.ErrUnauthorized)
}

func (suite *UserServiceTestSuite) TestAuthenticateUser_UnknownUserSameError() {
	suite.mockRepo.On("FindUserByUsername", suite.ctx, "ghost").Return(nil, apperrors.ErrNotFound).Once()

	_, err := suite.service.AuthenticateUser(suite.ctx, "ghost", "whatever")

	assert.ErrorIs(suite.T(), err, apperrors.ErrUnauthorized)
}

func (suite *UserServiceTestSuite) TestIsAdmin() {
	suite.mockRepo.On("FindUserByID", suite.ctx, "admin-1").Return(&domain.User{UserID: "admin-1", IsAdmin: true}, nil).Once()
	suite.mockRepo.On("FindUserByID", suite.ctx, "user-1").Return(&domain.User{UserID: "user-1"}, nil).Once()

	isAdmin, err := suite.service.IsAdmin(suite.ctx, "admin-1")
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), isAdmin)

	isAdmin, err = suite.service.IsAdmin(suite.ctx, "user-1")
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), isAdmin)
}

func (suite *UserServiceTestSuite) TestUpdateUser_OnlySelf() {
	_, err := suite.service.UpdateUser(suite.ctx, "user-1", dto.UpdateUserRequest{}, "user-2")

	assert.ErrorIs(suite.T(), err, apperrors.ErrForbidden)
	suite.mockRepo.AssertNotCalled(suite.T(), "UpdateUser", mock.Anything, mock.Anything)
}

func (suite *UserServiceTestSuite) TestFindOrCreateFromGoogle_ExistingUser() {
	suite.mockRepo.On("FindUserByEmail", suite.ctx, "collector@example.com").Return(&domain.User{
		UserID: "user-1",
		Email:  "collector@example.com",
	}, nil).Once()

	user, err := suite.service.FindOrCreateFromGoogle(suite.ctx, domain.GoogleUserInfo{
		Subject: "google-sub",
		Email:   "Collector@Example.com",
		Name:    "Card Collector",
	})

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "user-1", user.UserID)
	suite.mockRepo.AssertNotCalled(suite.T(), "SaveUser", mock.Anything, mock.Anything)
}

func (suite *UserServiceTestSuite) TestFindOrCreateFromGoogle_ProvisionsNewUser() {
	suite.mockRepo.On("FindUserByEmail", suite.ctx, "new@example.com").Return(nil, apperrors.ErrNotFound).Once()
	suite.mockRepo.On("SaveUser", suite.ctx, mock.MatchedBy(func(u domain.User) bool {
		return u.Email == "new@example.com" &&
			u.PasswordHash == "" &&
			u.Username != "" &&
			u.Username != "new@example.com"
	})).Return(nil).Once()

	user, err := suite.service.FindOrCreateFromGoogle(suite.ctx, domain.GoogleUserInfo{
		Subject: "google-sub",
		Email:   "new@example.com",
		Name:    "Newcomer",
	})

	assert.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), user.UserID)
	suite.mockRepo.AssertExpectations(suite.T())
}

func TestUserService(t *testing.T) {
	suite.Run(t, new(UserServiceTestSuite))
}
