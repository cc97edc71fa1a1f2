package utils

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskCardNumber(t *testing.T) {
	assert.Equal(t, "**** **** **** 4242", MaskCardNumber("4242 4242 4242 4242"))
	assert.Equal(t, "**** **** **** 0005", MaskCardNumber("3782-822463-10005"))
	assert.Equal(t, "****", MaskCardNumber("12"))
}

func TestParseInt(t *testing.T) {
	assert.Equal(t, 3, ParseInt("3", 1))
	assert.Equal(t, 1, ParseInt("", 1))
	assert.Equal(t, 10, ParseInt("abc", 10))
	assert.Equal(t, 10, ParseInt("-2", 10))
}

func TestCurrencyConverter(t *testing.T) {
	c := CurrencyConverter{Local: "MAD", Settlement: "USD", Rate: 0.1}

	assert.Equal(t, 15.0, c.ToSettlement(150))
	assert.Equal(t, 12.34, c.ToSettlement(123.4))
}

func TestAccessTokenRoundTrip(t *testing.T) {
	userID := uuid.New()
	token, expiresAt, err := CreateAccessToken("secret", userID, "cleaner", time.Hour)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := ParseAccessToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.Sub)
	assert.Equal(t, "cleaner", claims.Role)

	_, err = ParseAccessToken("other-secret", token)
	assert.Error(t, err)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)

	assert.True(t, CheckPasswordHash("s3cret-pass", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}

func TestValidateStruct(t *testing.T) {
	type payload struct {
		Email string `json:"email" validate:"required,email"`
		Kind  string `json:"kind" validate:"oneof=a b"`
	}

	errs := ValidateStruct(payload{Email: "nope", Kind: "c"})
	assert.Equal(t, "Invalid email format", errs["email"])
	assert.Equal(t, "Must be one of: a, b", errs["kind"])
	assert.Equal(t, "email: Invalid email format; kind: Must be one of: a, b", FormatValidationErrors(errs))

	assert.Nil(t, ValidateStruct(payload{Email: "a@b.co", Kind: "a"}))
}
