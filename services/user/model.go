package user

import (
	"time"

	"salesdesk/pkg/access"

	"github.com/bwmarrin/snowflake"
)

type User struct {
	ID           snowflake.ID  `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	Name         string        `gorm:"column:name;size:255;not null" json:"name"`
	Email        string        `gorm:"column:email;size:255;not null;uniqueIndex:idx_users_email" json:"email"`
	PasswordHash string        `gorm:"column:password_hash;not null" json:"-"`
	Role         access.Role   `gorm:"column:role;size:32;not null;default:agent;index" json:"role"`
	IsActive     bool          `gorm:"column:is_active;not null;default:true" json:"isActive"`
	CreatedBy    *snowflake.ID `gorm:"column:created_by;index" json:"createdBy"`
	LastLoginAt  *time.Time    `gorm:"column:last_login_at" json:"lastLoginAt"`
	CreatedAt    time.Time     `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt    time.Time     `gorm:"column:updated_at" json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) Principal() *access.Principal {
	return &access.Principal{UserID: u.ID, Role: u.Role, Name: u.Name, Email: u.Email}
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateUserRequest struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     access.Role `json:"role"`
}

type UpdateUserRequest struct {
	Name     *string      `json:"name"`
	Role     *access.Role `json:"role"`
	Password *string      `json:"password"`
	IsActive *bool        `json:"isActive"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}

type Stats struct {
	TotalUsers  int64 `json:"totalUsers"`
	ActiveUsers int64 `json:"activeUsers"`
	Admins      int64 `json:"admins"`
}
