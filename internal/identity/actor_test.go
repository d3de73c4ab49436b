package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Rockthor1106/restaurant-management-api/internal/entity"
)

func TestActorOrderScope(t *testing.T) {
	order := &entity.Order{ID: 1, CreatedByID: 7}

	owner := Actor{ID: 7, Username: "waiter"}
	other := Actor{ID: 8, Username: "other"}
	admin := Actor{ID: 1, Username: "boss", Admin: true}

	assert.True(t, owner.Created(order))
	assert.True(t, owner.CanAccessOrder(order))
	assert.False(t, other.CanAccessOrder(order))
	assert.True(t, admin.CanAccessOrder(order))
	assert.False(t, admin.Created(order))
	assert.False(t, Actor{}.Created(&entity.Order{}))
}

func TestActorRef(t *testing.T) {
	assert.Nil(t, Actor{}.Ref())
	ref := Actor{ID: 3}.Ref()
	if assert.NotNil(t, ref) {
		assert.Equal(t, int64(3), *ref)
	}
}
