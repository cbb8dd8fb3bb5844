package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"teamhub/internal/domain"
	"teamhub/internal/security"
	"teamhub/internal/service"
)

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	if args.Error(0) == nil {
		u.ID = 1
	}
	return args.Error(0)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) List(ctx context.Context, offset, limit int) ([]*domain.User, error) {
	return nil, nil
}

func (m *MockUserRepo) SetDeactivated(ctx context.Context, id int64, at *time.Time) error {
	return nil
}

func (m *MockUserRepo) TouchLogin(ctx context.Context, id int64, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockUserRepo) Delete(ctx context.Context, id int64) error {
	return nil
}

func TestRegister(t *testing.T) {
	mockRepo := new(MockUserRepo)
	tokenSvc := security.NewTokenService("secret", time.Hour)
	hasher := security.NewPasswordHasher(4)

	svc := service.NewAuthService(mockRepo, tokenSvc, hasher, nil)

	t.Run("Success", func(t *testing.T) {
		mockRepo.On("GetByEmail", mock.Anything, "new@example.com").Return(nil, domain.ErrNotFound).Once()
		mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			return u.Email == "new@example.com" && u.Role == "user" && u.HashedPassword != "Password1!"
		})).Return(nil).Once()

		user, err := svc.Register(context.Background(), service.RegisterInput{
			Email:       "  New@Example.com ",
			DisplayName: "Nowy",
			Password:    "Password1!",
		})
		require.NoError(t, err)
		assert.Equal(t, "new@example.com", user.Email)
		assert.Equal(t, "Nowy", user.DisplayName)
	})

	t.Run("EmailTaken", func(t *testing.T) {
		existing := &domain.User{ID: 7, Email: "existing@example.com"}
		mockRepo.On("GetByEmail", mock.Anything, "existing@example.com").Return(existing, nil).Once()

		user, err := svc.Register(context.Background(), service.RegisterInput{
			Email:       "existing@example.com",
			DisplayName: "Ktoś",
			Password:    "Password1!",
		})
		assert.Nil(t, user)
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.True(t, domain.IsCode(err, domain.CodeEmailTaken))
	})

	t.Run("Invalid", func(t *testing.T) {
		_, err := svc.Register(context.Background(), service.RegisterInput{
			Email:    "not-an-email",
			Password: "short",
		})
		de, ok := domain.AsError(err)
		require.True(t, ok)
		assert.Equal(t, domain.KindValidation, de.Kind)
		fields := []string{}
		for _, is := range de.Issues {
			fields = append(fields, is.Field)
		}
		assert.ElementsMatch(t, []string{"email", "display_name", "password"}, fields)
	})

	mockRepo.AssertExpectations(t)
}

func TestLogin(t *testing.T) {
	mockRepo := new(MockUserRepo)
	tokenSvc := security.NewTokenService("secret", time.Hour)
	hasher := security.NewPasswordHasher(4)
	svc := service.NewAuthService(mockRepo, tokenSvc, hasher, nil)

	hashed, err := hasher.Hash("Password1!")
	require.NoError(t, err)
	deactivated := time.Now().Add(-time.Hour)
	user := &domain.User{ID: 5, Email: "a@example.com", HashedPassword: hashed, Role: "user", DeactivatedAt: &deactivated}

	t.Run("Success reactivates", func(t *testing.T) {
		mockRepo.On("GetByEmail", mock.Anything, "a@example.com").Return(user, nil).Once()
		mockRepo.On("TouchLogin", mock.Anything, int64(5), mock.AnythingOfType("time.Time")).Return(nil).Once()

		res, err := svc.Login(context.Background(), service.LoginInput{Email: "A@example.com", Password: "Password1!"})
		require.NoError(t, err)
		assert.Equal(t, "bearer", res.TokenType)
		assert.Nil(t, res.User.DeactivatedAt)
		assert.NotNil(t, res.User.LastLoginAt)

		id, err := tokenSvc.UserID(res.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, int64(5), id)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		mockRepo.On("GetByEmail", mock.Anything, "a@example.com").Return(user, nil).Once()

		_, err := svc.Login(context.Background(), service.LoginInput{Email: "a@example.com", Password: "nope-nope"})
		assert.True(t, domain.IsCode(err, domain.CodeInvalidCredentials))
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		mockRepo.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, domain.ErrNotFound).Once()

		_, err := svc.Login(context.Background(), service.LoginInput{Email: "ghost@example.com", Password: "Password1!"})
		assert.True(t, domain.IsCode(err, domain.CodeInvalidCredentials))
	})

	mockRepo.AssertExpectations(t)
}
