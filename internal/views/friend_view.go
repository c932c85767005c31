// Package views 将原始关系记录分类为界面可直接使用的分区。
// 分类是纯函数，每次刷新整体重建，不跨刷新逐字段修改。
package views

import (
	"im-social/internal/models"
)

// FriendView is one user's partition of the directory.
// Every user other than the viewer appears in at most one list.
type FriendView struct {
	Friends   []models.UserBasicInfo `json:"friends"`
	Incoming  []models.UserBasicInfo `json:"incomingRequests"`
	Outgoing  []models.UserBasicInfo `json:"outgoingRequests"`
	Unrelated []models.UserBasicInfo `json:"unrelated"`
}

// ClassifyFriends partitions users by their relation to self.
//
// relations may contain records not involving self; they are ignored.
// A counterpart absent from users is left out of the view. If a counterpart
// appears in several records, the last record in listing order wins.
// Records with neither side accepted are reported and their counterpart is
// left out of every partition.
func ClassifyFriends(self uint, users []models.User, relations []models.FriendRelation) (FriendView, []error) {
	directory := make(map[uint]models.UserBasicInfo, len(users))
	order := make([]uint, 0, len(users))
	for i := range users {
		u := &users[i]
		if u.ID == self {
			continue
		}
		if _, seen := directory[u.ID]; !seen {
			order = append(order, u.ID)
		}
		directory[u.ID] = u.BasicInfo()
	}

	// counterpart -> status；用 map 实现“后者覆盖前者”
	placed := make(map[uint]models.RelationStatus)
	invalid := make(map[uint]bool)
	var violations []error

	for i := range relations {
		rel := &relations[i]
		p, err := rel.Perspective(self)
		if err != nil {
			continue
		}
		status, err := p.Status()
		if err != nil {
			violations = append(violations, err)
			invalid[p.Counterpart] = true
			delete(placed, p.Counterpart)
			continue
		}
		delete(invalid, p.Counterpart)
		placed[p.Counterpart] = status
	}

	var view FriendView
	for _, id := range order {
		info := directory[id]
		if invalid[id] {
			continue
		}
		status, related := placed[id]
		if !related {
			view.Unrelated = append(view.Unrelated, info)
			continue
		}
		switch status {
		case models.StatusFriends:
			view.Friends = append(view.Friends, info)
		case models.StatusIncoming:
			view.Incoming = append(view.Incoming, info)
		case models.StatusOutgoing:
			view.Outgoing = append(view.Outgoing, info)
		}
	}
	return view, violations
}

// Clone returns a deep copy.
func (v FriendView) Clone() FriendView {
	return FriendView{
		Friends:   cloneUsers(v.Friends),
		Incoming:  cloneUsers(v.Incoming),
		Outgoing:  cloneUsers(v.Outgoing),
		Unrelated: cloneUsers(v.Unrelated),
	}
}

// Find reports which partition holds userID.
func (v FriendView) Find(userID uint) (models.UserBasicInfo, Partition, bool) {
	for _, part := range []Partition{PartitionFriends, PartitionIncoming, PartitionOutgoing, PartitionUnrelated} {
		if info, ok := findUser(*v.list(part), userID); ok {
			return info, part, true
		}
	}
	return models.UserBasicInfo{}, "", false
}

// Move relocates userID into dst. It returns false when userID is not in the view.
// 用于乐观更新；下一次刷新会以存储为准覆盖结果。
func (v *FriendView) Move(userID uint, dst Partition) bool {
	info, src, ok := v.Find(userID)
	if !ok {
		return false
	}
	if src == dst {
		return true
	}
	from := v.list(src)
	*from = removeUser(*from, userID)
	to := v.list(dst)
	*to = append(*to, info)
	return true
}

// Partition names one of the four friend lists.
type Partition string

const (
	PartitionFriends   Partition = "friends"
	PartitionIncoming  Partition = "incoming"
	PartitionOutgoing  Partition = "outgoing"
	PartitionUnrelated Partition = "unrelated"
)

func (v *FriendView) list(p Partition) *[]models.UserBasicInfo {
	switch p {
	case PartitionFriends:
		return &v.Friends
	case PartitionIncoming:
		return &v.Incoming
	case PartitionOutgoing:
		return &v.Outgoing
	default:
		return &v.Unrelated
	}
}

func cloneUsers(in []models.UserBasicInfo) []models.UserBasicInfo {
	if in == nil {
		return nil
	}
	out := make([]models.UserBasicInfo, len(in))
	copy(out, in)
	return out
}

func findUser(list []models.UserBasicInfo, id uint) (models.UserBasicInfo, bool) {
	for _, u := range list {
		if u.ID == id {
			return u, true
		}
	}
	return models.UserBasicInfo{}, false
}

func removeUser(list []models.UserBasicInfo, id uint) []models.UserBasicInfo {
	out := list[:0:0]
	for _, u := range list {
		if u.ID != id {
			out = append(out, u)
		}
	}
	return out
}
