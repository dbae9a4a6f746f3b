// Package shifts сводит смены сотрудников за месяц и выгружает отчет
// в CSV, печатный HTML и XLSX.
package shifts

import (
	"fmt"
	"sort"
	"strings"

	"marketadmin/internal/models"
	"marketadmin/internal/utils"
)

// FormatMinutes - "{часы}s {минуты}dk", например 840 -> "14s 0dk".
func FormatMinutes(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%ds %ddk", minutes/60, minutes%60)
}

// clamp приводит минуты смены к 0 <= pause <= total.
func clamp(s models.ShiftRecord) models.ShiftRecord {
	if s.TotalMinutes < 0 {
		s.TotalMinutes = 0
	}
	if s.PauseMinutes < 0 {
		s.PauseMinutes = 0
	}
	if s.PauseMinutes > s.TotalMinutes {
		s.PauseMinutes = s.TotalMinutes
	}
	return s
}

// Rollup группирует смены по сотруднику. Сотрудники без смен в отчет не попадают.
// Порядок: по имени без учета регистра и диакритики, затем по id.
func Rollup(shifts []models.ShiftRecord) []models.StaffSummary {
	byStaff := map[string]*models.StaffSummary{}
	for _, raw := range shifts {
		s := clamp(raw)
		sum, ok := byStaff[s.StaffID]
		if !ok {
			sum = &models.StaffSummary{StaffID: s.StaffID, StaffName: s.StaffName}
			byStaff[s.StaffID] = sum
		}
		if sum.StaffName == "" {
			sum.StaffName = s.StaffName
		}
		sum.ShiftCount++
		sum.TotalMinutes += s.TotalMinutes
		sum.PauseMinutes += s.PauseMinutes
		if s.IsDeliveryShift {
			sum.DeliveryShifts++
		}
	}

	out := make([]models.StaffSummary, 0, len(byStaff))
	for _, sum := range byStaff {
		sum.NetMinutes = sum.TotalMinutes - sum.PauseMinutes
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := utils.FoldDiacritics(out[i].StaffName), utils.FoldDiacritics(out[j].StaffName)
		if a != b {
			return a < b
		}
		return out[i].StaffID < out[j].StaffID
	})
	return out
}

func yesNo(v bool) string {
	if v {
		return "Evet"
	}
	return "Hayır"
}

func statusLabel(s models.ShiftStatus) string {
	if s == models.ShiftActive {
		return "Aktif"
	}
	return "Bitti"
}

func tablesLabel(tables []int) string {
	if len(tables) == 0 {
		return "-"
	}
	parts := make([]string, len(tables))
	for i, t := range tables {
		parts[i] = fmt.Sprint(t)
	}
	return strings.Join(parts, ",")
}
