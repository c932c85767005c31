package models

import (
	"time"

	"im-social/internal/apperrors"
)

// FriendRelation 是一对用户之间唯一的好友记录。
// LoUserID 总是小于 HiUserID，复合主键保证每个无序对最多一条记录。
type FriendRelation struct {
	LoUserID     uint      `gorm:"primaryKey;autoIncrement:false" json:"loUserId"`
	HiUserID     uint      `gorm:"primaryKey;autoIncrement:false;index" json:"hiUserId"`
	AcceptedByLo bool      `gorm:"not null" json:"acceptedByLo"`
	AcceptedByHi bool      `gorm:"not null" json:"acceptedByHi"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName 指定 FriendRelation 模型的表名。
func (FriendRelation) TableName() string {
	return "friend_relations"
}

// CanonicalPair orders two user ids so a symmetric relation has exactly one key.
func CanonicalPair(a, b uint) (lo, hi uint, err error) {
	if a == b {
		return 0, 0, apperrors.ErrInvalidRelation
	}
	if a < b {
		return a, b, nil
	}
	return b, a, nil
}

// NewFriendRequest builds the record for requester asking target.
// Only the requester's side starts accepted.
func NewFriendRequest(requester, target uint) (*FriendRelation, error) {
	lo, hi, err := CanonicalPair(requester, target)
	if err != nil {
		return nil, err
	}
	return &FriendRelation{
		LoUserID:     lo,
		HiUserID:     hi,
		AcceptedByLo: requester == lo,
		AcceptedByHi: requester == hi,
	}, nil
}

// Involves reports whether userID is one side of the pair.
func (r *FriendRelation) Involves(userID uint) bool {
	return r.LoUserID == userID || r.HiUserID == userID
}

// RelationStatus is a relation as seen by one of its participants.
type RelationStatus string

const (
	StatusFriends  RelationStatus = "friends"
	StatusIncoming RelationStatus = "incoming"
	StatusOutgoing RelationStatus = "outgoing"
)

// Perspective is a FriendRelation resolved relative to one participant.
type Perspective struct {
	Self          uint
	Counterpart   uint
	SelfAccepted  bool
	OtherAccepted bool
	lo, hi        uint
}

// Perspective resolves which flag belongs to self and which to the counterpart.
// self must be one side of the pair.
func (r *FriendRelation) Perspective(self uint) (Perspective, error) {
	p := Perspective{Self: self, lo: r.LoUserID, hi: r.HiUserID}
	switch self {
	case r.LoUserID:
		p.Counterpart = r.HiUserID
		p.SelfAccepted = r.AcceptedByLo
		p.OtherAccepted = r.AcceptedByHi
	case r.HiUserID:
		p.Counterpart = r.LoUserID
		p.SelfAccepted = r.AcceptedByHi
		p.OtherAccepted = r.AcceptedByLo
	default:
		return Perspective{}, apperrors.ErrNotFound
	}
	return p, nil
}

// Status classifies the relation for p.Self. A record with neither side
// accepted has no valid status.
func (p Perspective) Status() (RelationStatus, error) {
	switch {
	case p.SelfAccepted && p.OtherAccepted:
		return StatusFriends, nil
	case p.OtherAccepted:
		return StatusIncoming, nil
	case p.SelfAccepted:
		return StatusOutgoing, nil
	default:
		return "", &apperrors.DataInvariantViolation{LoUserID: p.lo, HiUserID: p.hi}
	}
}
