package models

import "time"

// RegistrationForm - анкета, которую приглашенный заполняет по ссылке.
type RegistrationForm struct {
	FirstName string `json:"firstName" validate:"required,max=100,no_xss"`
	LastName  string `json:"lastName" validate:"required,max=100,no_xss"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required,phone"`
	Address   string `json:"address,omitempty" validate:"max=300,no_xss"`
	Note      string `json:"note,omitempty" validate:"max=1000,no_xss"`
}

// Invitation - приглашение администратора (коллекция admin_invitations).
type Invitation struct {
	ID           string            `json:"id"`
	Token        string            `json:"token"`
	Role         Role              `json:"role"`
	BusinessID   string            `json:"businessId,omitempty"`
	BusinessName string            `json:"businessName,omitempty"`
	Phone        string            `json:"phone,omitempty"`
	Email        string            `json:"email,omitempty"`
	Link         string            `json:"link"`
	QRCodeURL    string            `json:"qrCodeUrl,omitempty"`
	Status       InvitationStatus  `json:"status"`
	InvitedBy    string            `json:"invitedBy"`
	Registration *RegistrationForm `json:"registration,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	ExpiresAt    time.Time         `json:"expiresAt"`
	RegisteredAt *time.Time        `json:"registeredAt,omitempty"`
	DecidedAt    *time.Time        `json:"decidedAt,omitempty"`
	DecidedBy    string            `json:"decidedBy,omitempty"`
}

// Expired - истек ли срок приглашения на момент now.
func (i Invitation) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}
