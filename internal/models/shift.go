package models

import "time"

// ShiftRecord - одна смена сотрудника (вход/выход).
type ShiftRecord struct {
	ID              string      `json:"id"`
	BusinessID      string      `json:"businessId"`
	StaffID         string      `json:"staffId"`
	StaffName       string      `json:"staffName"`
	Date            string      `json:"date"` // YYYY-MM-DD
	Status          ShiftStatus `json:"status"`
	StartedAt       time.Time   `json:"startedAt"`
	EndedAt         *time.Time  `json:"endedAt,omitempty"`
	TotalMinutes    int         `json:"totalMinutes"`
	PauseMinutes    int         `json:"pauseMinutes"`
	Tables          []int       `json:"tables,omitempty"`
	IsDeliveryShift bool        `json:"isDeliveryShift"`
	IsOtherRole     bool        `json:"isOtherRole"`
}

// NetMinutes - чистое рабочее время смены.
func (s ShiftRecord) NetMinutes() int {
	return s.TotalMinutes - s.PauseMinutes
}

// StaffSummary - свод смен одного сотрудника за месяц.
type StaffSummary struct {
	StaffID        string `json:"staffId"`
	StaffName      string `json:"staffName"`
	ShiftCount     int    `json:"shiftCount"`
	TotalMinutes   int    `json:"totalMinutes"`
	PauseMinutes   int    `json:"pauseMinutes"`
	NetMinutes     int    `json:"netMinutes"`
	DeliveryShifts int    `json:"deliveryShifts"`
}
