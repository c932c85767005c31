package views

import (
	"im-social/internal/models"
)

// GroupView splits a user's memberships into accepted groups and pending invitations.
type GroupView struct {
	Member  []models.Group `json:"member"`
	Invited []models.Group `json:"invited"`
}

// ClassifyGroups partitions memberships by AcceptedInvite and resolves them
// against groups. Memberships whose group is missing are dropped.
func ClassifyGroups(memberships []models.GroupMembership, groups []models.Group) GroupView {
	byID := make(map[uint]models.Group, len(groups))
	for _, g := range groups {
		byID[g.ID] = g
	}

	var view GroupView
	seen := make(map[uint]bool, len(memberships))
	for _, m := range memberships {
		g, ok := byID[m.GroupID]
		if !ok || seen[m.GroupID] {
			continue
		}
		seen[m.GroupID] = true
		if m.AcceptedInvite {
			view.Member = append(view.Member, g)
		} else {
			view.Invited = append(view.Invited, g)
		}
	}
	return view
}

// GroupIDs returns the distinct group ids referenced by memberships, in order.
func GroupIDs(memberships []models.GroupMembership) []uint {
	ids := make([]uint, 0, len(memberships))
	seen := make(map[uint]bool, len(memberships))
	for _, m := range memberships {
		if !seen[m.GroupID] {
			seen[m.GroupID] = true
			ids = append(ids, m.GroupID)
		}
	}
	return ids
}

// Clone returns a deep copy.
func (v GroupView) Clone() GroupView {
	return GroupView{Member: cloneGroups(v.Member), Invited: cloneGroups(v.Invited)}
}

// AddMember appends g to Member unless it is already listed there.
func (v *GroupView) AddMember(g models.Group) {
	v.Invited = removeGroup(v.Invited, g.ID)
	if !containsGroup(v.Member, g.ID) {
		v.Member = append(v.Member, g)
	}
}

// Accept moves groupID from Invited to Member.
func (v *GroupView) Accept(groupID uint) bool {
	for _, g := range v.Invited {
		if g.ID == groupID {
			v.AddMember(g)
			return true
		}
	}
	return false
}

// Remove drops groupID from both partitions.
func (v *GroupView) Remove(groupID uint) {
	v.Member = removeGroup(v.Member, groupID)
	v.Invited = removeGroup(v.Invited, groupID)
}

func cloneGroups(in []models.Group) []models.Group {
	if in == nil {
		return nil
	}
	out := make([]models.Group, len(in))
	copy(out, in)
	return out
}

func containsGroup(list []models.Group, id uint) bool {
	for _, g := range list {
		if g.ID == id {
			return true
		}
	}
	return false
}

func removeGroup(list []models.Group, id uint) []models.Group {
	out := list[:0:0]
	for _, g := range list {
		if g.ID != id {
			out = append(out, g)
		}
	}
	return out
}
