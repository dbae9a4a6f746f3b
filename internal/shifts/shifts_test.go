package shifts

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"marketadmin/internal/apperr"
	"marketadmin/internal/docstore"
	"marketadmin/internal/logger"
	"marketadmin/internal/models"
	"marketadmin/internal/session"
)

func shift(id, staffID, name, date string, total, pause int, delivery bool) models.ShiftRecord {
	start, _ := time.Parse("2006-01-02", date)
	start = start.Add(9 * time.Hour)
	end := start.Add(time.Duration(total) * time.Minute)
	return models.ShiftRecord{
		ID:              id,
		StaffID:         staffID,
		StaffName:       name,
		Date:            date,
		Status:          models.ShiftEnded,
		StartedAt:       start,
		EndedAt:         &end,
		TotalMinutes:    total,
		PauseMinutes:    pause,
		IsDeliveryShift: delivery,
	}
}

func scenarioShifts() []models.ShiftRecord {
	return []models.ShiftRecord{
		shift("s1", "st1", "Ahmet", "2024-05-02", 480, 30, false),
		shift("s2", "st1", "Ahmet", "2024-05-03", 420, 30, true),
		shift("s3", "st2", "Çiğdem", "2024-05-03", 300, 15, false),
	}
}

func TestFormatMinutes(t *testing.T) {
	assert.Equal(t, "14s 0dk", FormatMinutes(840))
	assert.Equal(t, "0s 45dk", FormatMinutes(45))
	assert.Equal(t, "1s 5dk", FormatMinutes(65))
	assert.Equal(t, "0s 0dk", FormatMinutes(-3))
}

func TestRollupScenario(t *testing.T) {
	summaries := Rollup(scenarioShifts())
	require.Len(t, summaries, 2)

	ahmet := summaries[0]
	assert.Equal(t, "Ahmet", ahmet.StaffName)
	assert.Equal(t, 2, ahmet.ShiftCount)
	assert.Equal(t, 900, ahmet.TotalMinutes)
	assert.Equal(t, 60, ahmet.PauseMinutes)
	assert.Equal(t, 840, ahmet.NetMinutes)
	assert.Equal(t, 1, ahmet.DeliveryShifts)
	assert.Equal(t, "14s 0dk", FormatMinutes(ahmet.NetMinutes))

	assert.Equal(t, "Çiğdem", summaries[1].StaffName)
	assert.Empty(t, Rollup(nil))
}

func TestRollupClampsPause(t *testing.T) {
	broken := shift("s1", "st1", "Ahmet", "2024-05-02", 60, 90, false)
	summaries := Rollup([]models.ShiftRecord{broken})
	require.Len(t, summaries, 1)
	assert.Equal(t, 0, summaries[0].NetMinutes)
	assert.Equal(t, 60, summaries[0].PauseMinutes)
}

func TestCSVExport(t *testing.T) {
	report, err := NewReport("2024-05", "Öz Kasap", scenarioShifts(), time.UTC)
	require.NoError(t, err)

	data, err := report.CSV()
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("\xEF\xBB\xBF")))

	text := string(data[3:])
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	assert.Equal(t, "Tarih;Personel;Başlangıç;Bitiş;Toplam;Mola;Net;Masalar;Kurye;Diğer Görev;Durum", lines[0])
	assert.Equal(t, "", lines[4])
	assert.Equal(t, "Personel;Vardiya Sayısı;Toplam Süre;Mola;Net Çalışma;Kurye Vardiyası", lines[5])
	assert.Equal(t, "Ahmet;2;15s 0dk;1s 0dk;14s 0dk;1", lines[6])
	assert.Equal(t, "02.05.2024;Ahmet;09:00;17:00;8s 0dk;0s 30dk;7s 30dk;-;Hayır;Hayır;Bitti", lines[1])

	r := csv.NewReader(bytes.NewReader(data[3:]))
	r.Comma = ';'
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)
	// Шапка + смены + шапка сводки + строки сводки; пустая строка пропускается.
	assert.Len(t, records, 1+len(report.Shifts)+1+len(report.Summaries))
}

func TestExportRefusedWithoutShifts(t *testing.T) {
	_, err := NewReport("2024-05", "", nil, time.UTC)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = NewReport("mayıs", "", scenarioShifts(), time.UTC)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestHTMLExport(t *testing.T) {
	shifts := scenarioShifts()
	shifts[0].StaffName = "Ahmet <script>"
	report, err := NewReport("2024-05", "Öz Kasap", shifts, time.UTC)
	require.NoError(t, err)

	data, err := report.HTML()
	require.NoError(t, err)
	page := string(data)
	assert.Contains(t, page, "<title>Vardiya Raporu 2024-05</title>")
	assert.Contains(t, page, "Personel Özeti")
	assert.Contains(t, page, "Vardiya Detayları")
	assert.Contains(t, page, "Ahmet &lt;script&gt;")
	assert.Equal(t, 2, strings.Count(page, "<table>"))
	assert.Contains(t, page, "@media print")
}

func TestXLSXExport(t *testing.T) {
	report, err := NewReport("2024-05", "", scenarioShifts(), time.UTC)
	require.NoError(t, err)
	data, err := report.XLSX()
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	summary, err := f.GetRows("Personel Özeti")
	require.NoError(t, err)
	assert.Len(t, summary, 3)
	details, err := f.GetRows("Vardiyalar")
	require.NoError(t, err)
	assert.Len(t, details, 4)
}

func TestWriteRowsReportsMissingSheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	err := writeRows(f, "Yok", [][]string{{"a", "b"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Yok!A1")
	assert.NoError(t, writeRows(f, "Sheet1", [][]string{{"a", "b"}}))
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "vardiya_raporu_2024-05.csv", Filename("2024-05", "csv"))
	assert.Equal(t, "vardiya_raporu_2024-05.xlsx", Filename("2024-05", "xlsx"))
}

func TestServiceListsMonth(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	svc := NewService(store, logger.Discard(), time.UTC)

	coll := "businesses/b1/shifts"
	all := append(scenarioShifts(), shift("s4", "st1", "Ahmet", "2024-06-01", 100, 0, false), shift("s5", "st1", "Ahmet", "2024-04-30", 100, 0, false))
	for _, sh := range all {
		doc, err := docstore.Encode(sh)
		require.NoError(t, err)
		_, err = store.Create(ctx, coll, doc)
		require.NoError(t, err)
	}
	_, err := store.Create(ctx, "businesses", docstore.Document{"id": "b1", "name": "Öz Kasap"})
	require.NoError(t, err)

	admin := session.Admin{ID: "a1", Role: models.RoleAdmin}
	shifts, err := svc.List(ctx, admin, "b1", "2024-05")
	require.NoError(t, err)
	require.Len(t, shifts, 3)
	assert.Equal(t, "2024-05-03", shifts[0].Date)
	assert.Equal(t, "2024-05-02", shifts[2].Date)
	assert.Equal(t, "b1", shifts[0].BusinessID)

	report, err := svc.Report(ctx, admin, "b1", "2024-05")
	require.NoError(t, err)
	assert.Equal(t, "Öz Kasap", report.BusinessName)

	_, err = svc.Report(ctx, admin, "b1", "2023-01")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	staff := session.Admin{ID: "u1", Role: models.RoleStaff, BusinessID: "b2"}
	_, err = svc.List(ctx, staff, "b1", "2024-05")
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}
