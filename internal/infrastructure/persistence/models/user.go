package models

import (
	"github.com/scaregistry/backend/internal/domain/identity"
)

// UserModel is the persistence model for staff profiles
type UserModel struct {
	AggregateModel
	PrincipalID string        `gorm:"type:varchar(255);not null;uniqueIndex"`
	Email       string        `gorm:"type:varchar(200);index"`
	DisplayName string        `gorm:"type:varchar(200)"`
	Role        identity.Role `gorm:"type:varchar(32);not null;index"`
	IsActive    bool          `gorm:"not null"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User
func (m *UserModel) ToDomain() *identity.User {
	u := &identity.User{
		PrincipalID: m.PrincipalID,
		Email:       m.Email,
		DisplayName: m.DisplayName,
		Role:        m.Role,
		IsActive:    m.IsActive,
	}
	m.PopulateAggregateRoot(&u.BaseAggregateRoot)
	return u
}

// FromDomain populates the persistence model from a domain User
func (m *UserModel) FromDomain(u *identity.User) {
	m.FromDomainAggregateRoot(u.BaseAggregateRoot)
	m.PrincipalID = u.PrincipalID
	m.Email = u.Email
	m.DisplayName = u.DisplayName
	m.Role = u.Role
	m.IsActive = u.IsActive
}

// UserModelFromDomain creates a new persistence model from a domain User
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{}
	m.FromDomain(u)
	return m
}
