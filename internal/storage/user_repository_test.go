package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"im-social/internal/models"
	"im-social/internal/storage"
	"im-social/internal/testutil"
)

func TestUserRepository(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := storage.NewGormUserRepository(db)
	ctx := context.Background()

	u := &models.User{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", PasswordHash: "h"}
	require.NoError(t, repo.Create(ctx, u))

	dup := &models.User{FirstName: "Ada", LastName: "L", Email: "ada@example.com", PasswordHash: "h"}
	assert.ErrorIs(t, repo.Create(ctx, dup), gorm.ErrDuplicatedKey)

	got, err := repo.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "Ada Lovelace", got.DisplayName())

	require.NoError(t, repo.UpdateEmail(ctx, u.ID, "ada@analytical.engine"))
	require.NoError(t, repo.UpdatePassword(ctx, u.ID, "h2"))
	got, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@analytical.engine", got.Email)
	assert.Equal(t, "h2", got.PasswordHash)

	assert.ErrorIs(t, repo.UpdateEmail(ctx, 999, "x@example.com"), gorm.ErrRecordNotFound)

	list, err := repo.ListByIDs(ctx, []uint{u.ID, 999})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.Delete(ctx, u.ID))
	assert.ErrorIs(t, repo.Delete(ctx, u.ID), gorm.ErrRecordNotFound)
	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestParseID(t *testing.T) {
	id, err := storage.ParseID("42")
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	_, err = storage.ParseID("0")
	assert.Error(t, err)
	_, err = storage.ParseID("abc")
	assert.Error(t, err)
}
