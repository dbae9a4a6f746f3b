package models

import "time"

// GeoPoint - координаты действия, если консоль их передала.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ActivityLog - запись журнала действий. Только добавляется.
type ActivityLog struct {
	ID         string           `json:"id"`
	ActorID    string           `json:"actorId"`
	ActorName  string           `json:"actorName,omitempty"`
	ActorPhone string           `json:"actorPhone,omitempty"`
	ActorRole  Role             `json:"actorRole,omitempty"`
	Action     string           `json:"action"`
	TargetType string           `json:"targetType,omitempty"`
	TargetID   string           `json:"targetId,omitempty"`
	OrderID    string           `json:"orderId,omitempty"`
	Category   ActivityCategory `json:"category"`
	Location   *GeoPoint        `json:"location,omitempty"`
	Details    map[string]any   `json:"details,omitempty"`
	CreatedAt  time.Time        `json:"createdAt"`
}
