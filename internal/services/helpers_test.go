package services_test

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"im-social/internal/imtypes"
	"im-social/internal/services"
	"im-social/internal/storage"
	"im-social/internal/testutil"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []imtypes.RelationEvent
}

func (p *recordingPublisher) PublishRelationEvent(_ context.Context, event imtypes.RelationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []imtypes.RelationEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]imtypes.RelationEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	db        *gorm.DB
	users     storage.UserRepository
	relations storage.FriendRelationRepository
	groupRepo storage.GroupRepository
	messages  storage.MessageRepository
	pub       *recordingPublisher

	friends services.FriendService
	groups  services.GroupService
}

// newFixture 创建 n 个用户 (ID 1..n) 和基于 SQLite 的服务。
func newFixture(t *testing.T, n int) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	testutil.CreateUsers(t, db, n)

	f := &fixture{
		db:        db,
		users:     storage.NewGormUserRepository(db),
		relations: storage.NewGormFriendRelationRepository(db),
		groupRepo: storage.NewGormGroupRepository(db),
		messages:  storage.NewGormMessageRepository(db),
		pub:       &recordingPublisher{},
	}
	log := zap.NewNop()
	f.friends = services.NewFriendService(f.users, f.relations, f.pub, log)
	f.groups = services.NewGroupService(db, f.groupRepo, f.users, f.pub, log)
	return f
}
