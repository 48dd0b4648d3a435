package entity

import (
	"groombook-api/core/entity"
)

// Admin is a back-office account. Role gates connection management;
// staff can read sync state but not change it.
type Admin struct {
	Email        string `db:"email" json:"email"`
	PasswordHash string `db:"password_hash" json:"-"`
	FullName     string `db:"full_name" json:"full_name"`
	Role         string `db:"role" json:"role"`
	IsActive     bool   `db:"is_active" json:"is_active"`
	entity.BaseEntity
}

func (Admin) TableName() string {
	return "admins"
}
