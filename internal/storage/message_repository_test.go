package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"im-social/internal/models"
	"im-social/internal/storage"
	"im-social/internal/testutil"
)

func TestMessageRepository_ListDirect(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := storage.NewGormMessageRepository(db)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	send := func(from, to uint, content string, offset time.Duration) {
		require.NoError(t, repo.Create(ctx, &models.Message{
			Kind: models.DirectMessageKind, SenderID: from, TargetID: to, Content: content, SentAt: base.Add(offset),
		}))
	}
	send(1, 2, "first", 0)
	send(2, 1, "second", time.Minute)
	send(1, 3, "other chat", 2*time.Minute)
	send(1, 2, "third", 3*time.Minute)

	msgs, err := repo.ListDirect(ctx, 2, 1, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "third", msgs[2].Content)

	// limit 取最近的消息
	msgs, err = repo.ListDirect(ctx, 1, 2, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "second", msgs[0].Content)
	assert.Equal(t, "third", msgs[1].Content)

	n, err := repo.DeleteByUser(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
