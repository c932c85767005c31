package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"im-social/internal/apperrors"
	"im-social/internal/auth"
	"im-social/internal/models"
	"im-social/internal/services"
)

func newUserService(f *fixture) services.UserService {
	return services.NewUserService(f.users, f.relations, f.messages, f.groups, zap.NewNop())
}

func TestUserService_UpdateEmail(t *testing.T) {
	f := newFixture(t, 2)
	svc := newUserService(f)
	ctx := context.Background()

	u, err := svc.UpdateEmail(ctx, 1, "New@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", u.Email)

	_, err = svc.UpdateEmail(ctx, 2, "new@example.com")
	assert.ErrorIs(t, err, services.ErrEmailInUse)

	_, err = svc.UpdateEmail(ctx, 1, "broken")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	// 改成自己当前的邮箱不算冲突
	_, err = svc.UpdateEmail(ctx, 1, "new@example.com")
	require.NoError(t, err)
}

func TestUserService_UpdatePassword(t *testing.T) {
	f := newFixture(t, 1)
	svc := newUserService(f)
	ctx := context.Background()

	hash, err := auth.HashPassword("Old#pass1")
	require.NoError(t, err)
	require.NoError(t, f.users.UpdatePassword(ctx, 1, hash))

	assert.ErrorIs(t, svc.UpdatePassword(ctx, 1, "wrong", strongPassword), services.ErrInvalidCredentials)
	assert.ErrorIs(t, svc.UpdatePassword(ctx, 1, "Old#pass1", "weak"), apperrors.ErrValidation)
	require.NoError(t, svc.UpdatePassword(ctx, 1, "Old#pass1", strongPassword))

	u, err := svc.GetUserProfile(ctx, 1)
	require.NoError(t, err)
	assert.True(t, auth.CheckPasswordHash(strongPassword, u.PasswordHash))
}

func TestUserService_DeleteAccount(t *testing.T) {
	f := newFixture(t, 3)
	svc := newUserService(f)
	ctx := context.Background()

	_, err := f.friends.SendRequest(ctx, 1, 2)
	require.NoError(t, err)
	require.NoError(t, f.friends.AcceptRequest(ctx, 2, 1))
	solo, err := f.groups.CreateGroup(ctx, 1, "solo")
	require.NoError(t, err)
	shared, err := f.groups.CreateGroup(ctx, 3, "shared")
	require.NoError(t, err)
	require.NoError(t, f.groups.InviteUser(ctx, 3, 1, shared.ID))
	require.NoError(t, f.messages.Create(ctx, &models.Message{
		Kind: models.DirectMessageKind, SenderID: 1, TargetID: 2, Content: "bye", SentAt: time.Now(),
	}))

	require.NoError(t, svc.DeleteAccount(ctx, 1))

	_, err = svc.GetUserProfile(ctx, 1)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = f.groups.GetGroup(ctx, solo.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = f.groups.GetGroup(ctx, shared.ID)
	require.NoError(t, err)

	v, err := f.friends.Reconcile(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, v.Friends)
	assert.Equal(t, []uint{3}, ids(v.Unrelated))

	msgs, err := f.messages.ListDirect(ctx, 1, 2, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	assert.ErrorIs(t, svc.DeleteAccount(ctx, 1), apperrors.ErrNotFound)

	dir, err := svc.ListDirectory(ctx)
	require.NoError(t, err)
	assert.Len(t, dir, 2)
}
