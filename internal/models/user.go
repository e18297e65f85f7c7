package models

import (
	"time"
)

// 维护者角色
const (
	// RoleAdmin 管理用户、删除数据集
	RoleAdmin = "admin"
	// RoleEditor 导入目录和记录
	RoleEditor = "editor"
)

// User 目录维护者账号
type User struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:50;not null" json:"username"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"size:20;not null;default:editor" json:"role"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

