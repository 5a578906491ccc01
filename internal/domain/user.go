package domain

import (
	"time"
)

type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleManager  Role = "MANAGER"
	RoleEmployee Role = "EMPLOYEE"
)

type User struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organizationID"`
	Username       string    `json:"username"`
	PasswordHash   string    `json:"-"`
	FullName       string    `json:"fullName"`
	Email          string    `json:"email"`
	Role           Role      `json:"role"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
	Version        int32     `json:"-"`
}
