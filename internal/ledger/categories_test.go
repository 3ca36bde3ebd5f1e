package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilancio/internal/core"
)

func TestCreateCategory(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	category, err := svc.CreateCategory(ctx, "groceries", "weekly shopping")
	require.NoError(t, err)
	assert.Equal(t, "groceries", category.Title)
	assert.Equal(t, "weekly shopping", category.Description)
	assert.True(t, category.AssignedAmount.IsZero())
	assert.False(t, category.IsStage)
}

func TestCreateCategoryDuplicateTitle(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, "groceries", "")
	require.NoError(t, err)

	_, err = svc.CreateCategory(ctx, "groceries", "")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestCreateCategoryRejectsShortTitle(t *testing.T) {
	svc := setupService(t)
	_, err := svc.CreateCategory(context.Background(), "x", "")
	assert.ErrorIs(t, err, core.ErrTitleLength)
}

func TestUpdateCategoryRename(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	category, err := svc.CreateCategory(ctx, "groceries", "")
	require.NoError(t, err)

	title := "food"
	updated, err := svc.UpdateCategory(ctx, category.ID, CategoryPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "food", updated.Title)

	// Renaming onto an existing title is refused.
	other, err := svc.CreateCategory(ctx, "dining", "")
	require.NoError(t, err)
	_, err = svc.UpdateCategory(ctx, other.ID, CategoryPatch{Title: &title})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestMoveCategoryAmount(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	checking := checkingAccount(t, svc)
	stage := stageCategory(t, svc)

	groceries, err := svc.CreateCategory(ctx, "groceries", "")
	require.NoError(t, err)
	seedInflow(t, svc, checking.ID, "300.00")

	from, to, err := svc.MoveCategoryAmount(ctx, stage.ID, groceries.ID, amt("120.00"))
	require.NoError(t, err)
	assertAmount(t, "180.00", from.AssignedAmount)
	assertAmount(t, "120.00", to.AssignedAmount)
}

func TestMoveCategoryAmountInsufficientSource(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	checking := checkingAccount(t, svc)
	groceries := fundedCategory(t, svc, checking.ID, "groceries", "50.00")

	dining, err := svc.CreateCategory(ctx, "dining", "")
	require.NoError(t, err)

	_, _, err = svc.MoveCategoryAmount(ctx, groceries.ID, dining.ID, amt("80.00"))
	assert.ErrorIs(t, err, core.ErrForbidden)

	// Nothing moved.
	category, err := svc.GetCategory(ctx, groceries.ID)
	require.NoError(t, err)
	assertAmount(t, "50.00", category.AssignedAmount)
}

func TestMoveCategoryAmountStageMayGoNegative(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	stage := stageCategory(t, svc)

	groceries, err := svc.CreateCategory(ctx, "groceries", "")
	require.NoError(t, err)

	// Assigning beyond what is staged is a budgeting decision, not an error.
	from, to, err := svc.MoveCategoryAmount(ctx, stage.ID, groceries.ID, amt("40.00"))
	require.NoError(t, err)
	assertAmount(t, "-40.00", from.AssignedAmount)
	assertAmount(t, "40.00", to.AssignedAmount)
}

func TestMoveCategoryAmountRejectsBadInput(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	stage := stageCategory(t, svc)

	groceries, err := svc.CreateCategory(ctx, "groceries", "")
	require.NoError(t, err)

	_, _, err = svc.MoveCategoryAmount(ctx, stage.ID, groceries.ID, amt("-10.00"))
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, _, err = svc.MoveCategoryAmount(ctx, stage.ID, stage.ID, amt("10.00"))
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, _, err = svc.MoveCategoryAmount(ctx, stage.ID, 9999, amt("10.00"))
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDeleteCategoryProtections(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	checking := checkingAccount(t, svc)
	stage := stageCategory(t, svc)

	err := svc.DeleteCategory(ctx, stage.ID)
	assert.ErrorIs(t, err, core.ErrForbidden, "stage category is protected")

	funded := fundedCategory(t, svc, checking.ID, "groceries", "50.00")
	err = svc.DeleteCategory(ctx, funded.ID)
	assert.ErrorIs(t, err, core.ErrForbidden, "funded category is protected")
}

func TestDeleteCategoryClearsTransactionReferences(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	checking := checkingAccount(t, svc)
	groceries := fundedCategory(t, svc, checking.ID, "groceries", "100.00")

	tx, err := svc.CreateTransaction(ctx, NewTransaction{
		Payee:      "Market",
		Date:       testDay,
		Amount:     amt("-100.00"),
		CategoryID: &groceries.ID,
		AccountID:  checking.ID,
	})
	require.NoError(t, err)

	// Spent down to zero, the envelope can go.
	require.NoError(t, svc.DeleteCategory(ctx, groceries.ID))

	_, err = svc.GetCategory(ctx, groceries.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	kept, err := svc.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Nil(t, kept.CategoryID, "transaction survives with the reference cleared")

	// The stage category is untouched by the deletion.
	assertAmount(t, "0.00", stageCategory(t, svc).AssignedAmount)
}

func TestListCategories(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, "groceries", "")
	require.NoError(t, err)
	_, err = svc.CreateCategory(ctx, "dining", "")
	require.NoError(t, err)

	categories, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 3, "stage plus the two created")
}
