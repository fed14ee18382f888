package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/budgetledger/internal/domain"
)

func TestCategoryUseCase_Catalog(t *testing.T) {
	f := newFixture(t)

	food, err := f.categories.CreateCategory(f.ctx, "u1", " Food ")
	require.NoError(t, err)
	assert.Equal(t, "Food", food.Name)

	_, err = f.categories.CreateCategory(f.ctx, "u1", "food")
	assert.ErrorIs(t, err, domain.ErrDuplicateCategory)

	_, err = f.categories.CreateCategory(f.ctx, "u2", "Food")
	require.NoError(t, err)

	fruit, err := f.categories.CreateSubcategory(f.ctx, "u1", food.ID, "Fruit")
	require.NoError(t, err)

	_, err = f.categories.CreateSubcategory(f.ctx, "u1", food.ID, "FRUIT")
	assert.ErrorIs(t, err, domain.ErrDuplicateSubcategory)

	_, err = f.categories.CreateSubcategory(f.ctx, "u2", food.ID, "Veg")
	assert.ErrorIs(t, err, domain.ErrCategoryAccessDenied)

	renamed, err := f.categories.RenameCategory(f.ctx, "u1", food.ID, "FOOD")
	require.NoError(t, err)
	assert.Equal(t, "FOOD", renamed.Name)

	_, err = f.categories.RenameSubcategory(f.ctx, "u1", fruit.ID, "Fresh fruit")
	require.NoError(t, err)

	subs, err := f.categories.ListSubcategories(f.ctx, "u1", food.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "Fresh fruit", subs[0].Name)

	require.NoError(t, f.categories.DeleteCategory(f.ctx, "u1", food.ID))

	list, err := f.categories.ListCategories(f.ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = f.categories.CreateCategory(f.ctx, "u1", "Food")
	require.NoError(t, err)
}

func TestPreferenceUseCase_PrincipalCurrency(t *testing.T) {
	f := newFixture(t)

	pref, err := f.preferences.GetPreference(f.ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "EUR", pref.PrincipalCurrency)

	_, err = f.preferences.SetPrincipalCurrency(f.ctx, "u1", "ars")
	require.NoError(t, err)

	currency, err := f.preferences.PrincipalCurrency(f.ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "ARS", currency)

	_, err = f.preferences.SetPrincipalCurrency(f.ctx, "u1", "doubloons")
	assert.ErrorIs(t, err, domain.ErrInvalidCurrency)
}
