package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestOrderNumberUniquePerOrder(t *testing.T) {
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	a := NewOrderNumber(now, uuid.New().String())
	b := NewOrderNumber(now, uuid.New().String())

	assert.NotEqual(t, a, b, "orders created in the same instant get distinct numbers")
	assert.True(t, strings.HasPrefix(a, "PM-20260901-"))
	assert.Len(t, a, len("PM-20260901-")+12)
}

func TestOrderNumberDeterministicForOrder(t *testing.T) {
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	id := "3f2c1d64-9a50-4a1e-8f0f-2b7f9f1a6c21"

	assert.Equal(t, "PM-20260901-3F2C1D649A50", NewOrderNumber(now, id))
}
