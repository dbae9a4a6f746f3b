package shifts

import (
	"time"

	"marketadmin/internal/apperr"
	"marketadmin/internal/constants"
	"marketadmin/internal/models"
	"marketadmin/internal/utils"
)

// Report - данные выгрузки смен за месяц.
type Report struct {
	Period       string
	BusinessName string
	Shifts       []models.ShiftRecord
	Summaries    []models.StaffSummary
	Location     *time.Location
}

// NewReport готовит выгрузку. Без смен выгрузка недоступна.
func NewReport(period, businessName string, shifts []models.ShiftRecord, loc *time.Location) (*Report, error) {
	const op = "shifts.Export"
	if _, _, err := utils.ParsePeriod(period); err != nil {
		return nil, apperr.ValidationFields(op, map[string]string{"period": err.Error()})
	}
	summaries := Rollup(shifts)
	if len(shifts) == 0 || len(summaries) == 0 {
		return nil, apperr.Validation(op, "нет смен за выбранный месяц, выгрузка недоступна")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Report{
		Period:       period,
		BusinessName: businessName,
		Shifts:       shifts,
		Summaries:    summaries,
		Location:     loc,
	}, nil
}

// Filename - имя файла с нужным расширением: vardiya_raporu_2024-05.csv.
func Filename(period, ext string) string {
	return constants.SHIFT_REPORT_FILE_PREFIX + period + "." + ext
}

var detailHeader = []string{"Tarih", "Personel", "Başlangıç", "Bitiş", "Toplam", "Mola", "Net", "Masalar", "Kurye", "Diğer Görev", "Durum"}

var summaryHeader = []string{"Personel", "Vardiya Sayısı", "Toplam Süre", "Mola", "Net Çalışma", "Kurye Vardiyası"}

// detailRow - строка смены в общем для всех форматов виде.
func (r *Report) detailRow(raw models.ShiftRecord) []string {
	s := clamp(raw)
	date, err := utils.FormatDateForDisplay(s.Date)
	if err != nil {
		date = s.Date
	}
	start := "-"
	if !s.StartedAt.IsZero() {
		start = s.StartedAt.In(r.Location).Format("15:04")
	}
	end := "-"
	if s.Status != models.ShiftActive && s.EndedAt != nil {
		end = s.EndedAt.In(r.Location).Format("15:04")
	}
	return []string{
		date,
		s.StaffName,
		start,
		end,
		FormatMinutes(s.TotalMinutes),
		FormatMinutes(s.PauseMinutes),
		FormatMinutes(s.NetMinutes()),
		tablesLabel(s.Tables),
		yesNo(s.IsDeliveryShift),
		yesNo(s.IsOtherRole),
		statusLabel(s.Status),
	}
}

func summaryRow(s models.StaffSummary) []string {
	return []string{
		s.StaffName,
		itoa(s.ShiftCount),
		FormatMinutes(s.TotalMinutes),
		FormatMinutes(s.PauseMinutes),
		FormatMinutes(s.NetMinutes),
		itoa(s.DeliveryShifts),
	}
}
