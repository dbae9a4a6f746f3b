package models

import "time"

// Sector - вертикаль маркетплейса (рестораны, мясные лавки, магазины...).
type Sector struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name" validate:"required"`
	Icon        string    `json:"icon" yaml:"icon"`
	Color       string    `json:"color" yaml:"color" validate:"omitempty,hexcolor"`
	Category    string    `json:"category" yaml:"category" validate:"required"`
	Description string    `json:"description,omitempty" yaml:"description"`
	SortOrder   int       `json:"sortOrder" yaml:"sortOrder"`
	IsActive    bool      `json:"isActive" yaml:"isActive"`
	CreatedAt   time.Time `json:"createdAt" yaml:"-"`
	UpdatedAt   time.Time `json:"updatedAt" yaml:"-"`
}
