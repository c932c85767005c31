package models

import "strings"

// User 代表系统中的用户。身份信息由账户服务维护，关系引擎只读取。
type User struct {
	BaseModel
	FirstName    string `gorm:"type:varchar(100);not null" json:"firstName"`
	LastName     string `gorm:"type:varchar(100);not null" json:"lastName"`
	Email        string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null" json:"-"` // 不暴露密码哈希
}

// TableName 指定 User 模型的表名。
func (User) TableName() string {
	return "users"
}

// DisplayName joins the two name parts.
func (u *User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// BasicInfo strips the account fields.
func (u *User) BasicInfo() UserBasicInfo {
	return UserBasicInfo{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName}
}

// UserBasicInfo holds minimal public information about a user.
// 分类视图中的每一项都是 UserBasicInfo。
type UserBasicInfo struct {
	ID        uint   `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// DisplayName joins the two name parts.
func (u UserBasicInfo) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
