package model

import (
	"time"

	"gorm.io/gorm"
)

// User statuses
const (
	UserStatusActive   = "active"
	UserStatusInvited  = "invited"
	UserStatusDisabled = "disabled"
)

// User is a staff member of a tenant, or a platform super admin (TenantID nil)
type User struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	TenantID    *uint          `json:"tenant_id,omitempty" gorm:"index"`
	Email       string         `json:"email" gorm:"type:varchar(100);uniqueIndex;not null"`
	Password    string         `json:"-" gorm:"type:varchar(255);not null"`
	FirstName   string         `json:"first_name" gorm:"type:varchar(100)"`
	LastName    string         `json:"last_name" gorm:"type:varchar(100)"`
	Phone       string         `json:"phone" gorm:"type:varchar(30)"`
	Role        string         `json:"role" gorm:"type:varchar(30);index;not null"`
	Status      string         `json:"status" gorm:"type:varchar(20);not null"`
	LastLoginAt *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	Tenant *Tenant `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
}

// FullName joins first and last name
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
