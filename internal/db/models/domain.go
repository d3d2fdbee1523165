package models

import "time"

// Domain is a classified protein domain. ID is the surrogate key embedded
// in structure library target ids; DomainID is the canonical identifier
// used by the sequence library.
type Domain struct {
	ID         uint      `json:"id" gorm:"primarykey"`
	DomainID   string    `json:"domain_id" gorm:"not null;uniqueIndex;size:32"`
	FamilyID   string    `json:"family_id" gorm:"index;size:64"`
	FamilyName string    `json:"family_name"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName returns the table name of the domain model
func (Domain) TableName() string {
	return "domains"
}
