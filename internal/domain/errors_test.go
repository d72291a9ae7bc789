package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockError_MatchesSentinel(t *testing.T) {
	t.Parallel()

	var err error = &StockError{ProductID: 3, Requested: 4, Available: 1}
	wrapped := &ProductError{ProductID: 3, Name: "Apples", Err: err}

	assert.ErrorIs(t, wrapped, ErrInsufficientStock)

	var se *StockError
	require.True(t, errors.As(wrapped, &se))
	assert.Equal(t, 1, se.Available)
	assert.Contains(t, wrapped.Error(), "Apples")
}

func TestSentinelHierarchy(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, ErrEmptyCart, ErrValidation)
	assert.ErrorIs(t, ErrNoCheckoutHistory, ErrNotFound)
	assert.ErrorIs(t, ProductNotFound(9), ErrNotFound)
	assert.NotErrorIs(t, ProductNotFound(9), ErrValidation)
}

func TestPersistence_KeepsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("disk full")
	err := Persistence("save cart", cause)

	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "save cart")
}

func TestShopper_CartKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "user-1", Shopper{UserID: 1, SessionID: "abc"}.CartKey())
	assert.Equal(t, Shopper{UserID: 1, SessionID: "abc"}.CartKey(), Shopper{UserID: 1, SessionID: "def"}.CartKey())
	assert.Equal(t, "user-12", Shopper{UserID: 12}.CartKey())
	assert.True(t, Shopper{Role: RoleAdmin}.IsAdmin())
}

func TestInvalid_ShowsMessage(t *testing.T) {
	t.Parallel()

	err := Invalid("Select a payment method.")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Select a payment method.", err.Error())

	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.ErrorIs(t, ErrCartAlreadyEmpty, ErrValidation)
	assert.ErrorIs(t, ErrNotInCart, ErrNotFound)
}
