package models

import "time"

// User - профиль пользователя (коллекция users).
type User struct {
	ID         string    `json:"id"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	PostalCode string    `json:"postalCode,omitempty"`
	City       string    `json:"city,omitempty"`
	Role       Role      `json:"role"`
	BusinessID string    `json:"businessId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// DisplayName - имя для списков и уведомлений.
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.Email != "":
		return u.Email
	}
	return u.Phone
}

// AdminRecord - назначение роли администратора (коллекция admins, id = id учетной записи).
type AdminRecord struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Role         Role      `json:"role"`
	BusinessID   string    `json:"businessId,omitempty"`
	BusinessName string    `json:"businessName,omitempty"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Identity - учетная запись провайдера идентификации (коллекция identities).
type Identity struct {
	ID           string    `json:"id"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	PasswordHash string    `json:"passwordHash"`
	Disabled     bool      `json:"disabled"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Business - продавец: ресторан, мясная лавка, магазин или палатка кермеса.
type Business struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Type           string    `json:"type,omitempty"`
	SectorID       string    `json:"sectorId,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	Email          string    `json:"email,omitempty"`
	Address        string    `json:"address,omitempty"`
	PostalCode     string    `json:"postalCode,omitempty"`
	City           string    `json:"city,omitempty"`
	CommissionRate *float64  `json:"commissionRate,omitempty"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
}
