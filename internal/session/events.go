package session

// Event 是会话可以处理的输入：用户操作或定时刷新。
// 只有本包中的类型实现了 Event。
type Event interface {
	isEvent()
}

type SendFriendRequest struct{ Target uint }

type AcceptFriendRequest struct{ From uint }

type DeclineFriendRequest struct{ From uint }

type RemoveFriend struct{ Friend uint }

// RetractFriendRequest 撤回自己发出的请求。
type RetractFriendRequest struct{ Target uint }

type CreateGroup struct{ Name string }

type InviteToGroup struct {
	GroupID uint
	Target  uint
}

type AcceptGroupInvite struct{ GroupID uint }

type DeclineGroupInvite struct{ GroupID uint }

type LeaveGroup struct{ GroupID uint }

// Tick 重新读取存储并整体替换视图。
type Tick struct{}

func (SendFriendRequest) isEvent()    {}
func (AcceptFriendRequest) isEvent()  {}
func (DeclineFriendRequest) isEvent() {}
func (RemoveFriend) isEvent()         {}
func (RetractFriendRequest) isEvent() {}
func (CreateGroup) isEvent()          {}
func (InviteToGroup) isEvent()        {}
func (AcceptGroupInvite) isEvent()    {}
func (DeclineGroupInvite) isEvent()   {}
func (LeaveGroup) isEvent()           {}
func (Tick) isEvent()                 {}
