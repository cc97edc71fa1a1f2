package usecase

import (
	"context"
	"testing"
	"time"

	"cleaning-booking/internal/data/entity"
	"cleaning-booking/internal/dto/request"
	"cleaning-booking/pkg/apperror"
	"cleaning-booking/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestUpdateStatus_DeactivatingCleanerCancelsUpcomingBookings(t *testing.T) {
	f := newFixture()
	upcoming := f.addBooking(f.customer, f.twoHour, at(1, 10, 0), entity.BookingStatusConfirmed, &f.cleaner)

	resp, err := f.user.UpdateStatus(context.Background(), f.cleaner.ID.String(), &request.UpdateUserStatusRequest{IsActive: ptr(false)})
	require.NoError(t, err)

	assert.False(t, resp.IsActive)
	assert.Equal(t, int64(1), resp.CanceledBookings)
	assert.False(t, f.store.users[f.cleaner.ID].IsActive)
	assert.Equal(t, entity.BookingStatusCanceled, f.store.booking(upcoming).Status)
}

func TestUpdateStatus_CustomerHasNoCascade(t *testing.T) {
	f := newFixture()
	id := f.addBooking(f.customer, f.twoHour, at(1, 10, 0), entity.BookingStatusPending, nil)

	resp, err := f.user.UpdateStatus(context.Background(), f.customer.ID.String(), &request.UpdateUserStatusRequest{IsActive: ptr(false)})
	require.NoError(t, err)

	assert.Zero(t, resp.CanceledBookings)
	assert.Equal(t, entity.BookingStatusPending, f.store.booking(id).Status)
}

func TestUpdateStatus_Validation(t *testing.T) {
	f := newFixture()

	_, err := f.user.UpdateStatus(context.Background(), f.cleaner.ID.String(), &request.UpdateUserStatusRequest{})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.user.UpdateStatus(context.Background(), "8e4b1a62-9f0c-4b7e-a3d2-5c6f7e8d9a10", &request.UpdateUserStatusRequest{IsActive: ptr(true)})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestAuth_RegisterAndLogin(t *testing.T) {
	store := newMemStore()
	auth := NewAuthService(store.repository().User, utils.JWTConfig{Secret: "test-secret", ExpiryHours: 1}, zap.NewNop())

	registered, err := auth.Register(context.Background(), &request.RegisterRequest{
		Name:     "Amina Tazi",
		Email:    "Amina@Example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleCustomer, registered.User.Role)
	assert.Equal(t, "amina@example.com", registered.User.Email)
	assert.NotEmpty(t, registered.Token)

	claims, err := utils.ParseAccessToken("test-secret", registered.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, claims.Sub)

	_, err = auth.Register(context.Background(), &request.RegisterRequest{Name: "Again", Email: "amina@example.com", Password: "another pass"})
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	loggedIn, err := auth.Login(context.Background(), &request.LoginRequest{Email: "amina@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.True(t, loggedIn.ExpiresAt.After(time.Now()))

	_, err = auth.Login(context.Background(), &request.LoginRequest{Email: "amina@example.com", Password: "wrong password"})
	assert.True(t, apperror.Is(err, apperror.KindAuthentication))
}

func TestAuth_LoginDeactivated(t *testing.T) {
	store := newMemStore()
	auth := NewAuthService(store.repository().User, utils.JWTConfig{Secret: "test-secret", ExpiryHours: 1}, zap.NewNop())

	resp, err := auth.Register(context.Background(), &request.RegisterRequest{Name: "Omar", Email: "omar@example.com", Password: "password123"})
	require.NoError(t, err)

	for id, u := range store.users {
		if id.String() == resp.User.ID {
			u.IsActive = false
			store.users[id] = u
		}
	}

	_, err = auth.Login(context.Background(), &request.LoginRequest{Email: "omar@example.com", Password: "password123"})
	assert.True(t, apperror.Is(err, apperror.KindAuthorization))
}
