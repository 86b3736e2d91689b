package model

import (
	"time"

	"gorm.io/gorm"
)

// Client is a customer of a shop; optionally allowed into the client portal
type Client struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	TenantID       uint           `json:"tenant_id" gorm:"index;not null"`
	FirstName      string         `json:"first_name" gorm:"type:varchar(100);not null"`
	LastName       string         `json:"last_name" gorm:"type:varchar(100)"`
	CompanyName    string         `json:"company_name" gorm:"type:varchar(150)"`
	Email          string         `json:"email" gorm:"type:varchar(100);index"`
	Phone          string         `json:"phone" gorm:"type:varchar(30)"`
	Address        string         `json:"address" gorm:"type:text"`
	PortalAccess   bool           `json:"portal_access"`
	PortalPassword string         `json:"-" gorm:"type:varchar(255)"`
	IsActive       bool           `json:"is_active"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`

	Vehicles []Vehicle `json:"vehicles,omitempty" gorm:"foreignKey:ClientID"`
}

// Vehicle belongs to a client
type Vehicle struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	TenantID     uint           `json:"tenant_id" gorm:"index;not null"`
	ClientID     uint           `json:"client_id" gorm:"index;not null"`
	Make         string         `json:"make" gorm:"type:varchar(50);not null"`
	Model        string         `json:"model" gorm:"type:varchar(50);not null"`
	Year         int            `json:"year"`
	Registration string         `json:"registration" gorm:"type:varchar(20);index"`
	VIN          string         `json:"vin" gorm:"type:varchar(30)"`
	Mileage      int            `json:"mileage"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

// DisplayName prefers the company name over the person's name
func (c *Client) DisplayName() string {
	if c.CompanyName != "" {
		return c.CompanyName
	}
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}
