package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/coursestore/internal/common"
	"github.com/dmitrijs2005/coursestore/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartService_AddRequiresLogin(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.Cart.Add(context.Background(), 1)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestCartService_AddRemove(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.register(t, "Ana", "ana@example.com")

	added, err := e.svc.Cart.Add(ctx, 1)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = e.svc.Cart.Add(ctx, 1)
	require.NoError(t, err)
	assert.False(t, added)

	_, err = e.svc.Cart.Add(ctx, 999)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	added, err = e.svc.Cart.Add(ctx, 3)
	require.NoError(t, err)
	assert.True(t, added)

	items, err := e.svc.Cart.Items(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.CartItem{
		{CourseID: 1, Title: "JavaScript Completo", Price: 199.90},
		{CourseID: 3, Title: "UI/UX Design", Price: 179.90},
	}, items)

	total, err := e.svc.Cart.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, 379.80, total)

	require.NoError(t, e.svc.Cart.Remove(ctx, 1))
	assert.ErrorIs(t, e.svc.Cart.Remove(ctx, 1), common.ErrorNotFound)

	require.NoError(t, e.svc.Cart.Clear(ctx))
	items, err = e.svc.Cart.Items(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSumPrices(t *testing.T) {
	items := []models.CartItem{{Price: 0.1}, {Price: 0.2}, {Price: 199.9}}
	assert.Equal(t, 200.2, sumPrices(items))
	assert.Equal(t, 0.0, sumPrices(nil))
}
