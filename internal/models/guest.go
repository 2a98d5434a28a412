package models

import (
	"net/mail"
	"strings"
	"time"
)

// Guest represents a tenant. Email is the natural key.
type Guest struct {
	ID             string    `json:"id" db:"id"`
	FullName       string    `json:"full_name" db:"full_name"`
	Email          string    `json:"email" db:"email"`
	Phone          string    `json:"phone" db:"phone"`
	DocumentType   string    `json:"document_type" db:"document_type"`
	DocumentNumber string    `json:"document_number" db:"document_number"`
	Nationality    string    `json:"nationality" db:"nationality"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// GuestInfo is the guest contact data submitted with a checkout
type GuestInfo struct {
	FullName       string `json:"full_name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	DocumentType   string `json:"document_type"`
	DocumentNumber string `json:"document_number"`
	Nationality    string `json:"nationality"`
}

// Validate checks the contact fields required to create a guest
func (g *GuestInfo) Validate() error {
	if strings.TrimSpace(g.FullName) == "" || strings.TrimSpace(g.Email) == "" || strings.TrimSpace(g.Phone) == "" {
		return ErrMissingFields
	}
	if _, err := mail.ParseAddress(g.Email); err != nil {
		return ErrMissingFields
	}
	return nil
}

// NormalizeEmail returns the canonical form used for the unique guest key
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
