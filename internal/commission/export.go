package commission

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"marketadmin/internal/constants"
	"marketadmin/internal/models"
)

// ReportFilename - имя файла выгрузки отчета.
func ReportFilename(filter models.CommissionFilter) string {
	period := filter.Period
	if period == "" {
		period = "tum_donemler"
	}
	return "komisyon_raporu_" + period + ".xlsx"
}

// ExportXLSX выгружает отчет: лист сводки по бизнесам и лист с записями.
func ExportXLSX(report models.CommissionReport, records []models.CommissionRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	summarySheet := "Özet"
	index, err := f.NewSheet(summarySheet)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания листа сводки: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("ошибка удаления листа по умолчанию: %w", err)
	}
	f.SetActiveSheet(index)

	headers := []any{"İşletme", "İşletme ID", "Sipariş", "Sipariş Tutarı", "Toplam Komisyon", "Kart", "Nakit", "Bekleyen", "Tahsil Edilen", "KDV", "Net Komisyon"}
	if err := setRow(f, summarySheet, 1, headers); err != nil {
		return nil, err
	}
	rowIndex := 2
	writeSummary := func(s models.BusinessSummary, label string) error {
		if label == "" {
			label = s.BusinessName
		}
		values := []any{label, s.BusinessID, s.OrderCount, s.OrderTotal, s.TotalCommission, s.CardCommission,
			s.CashCommission, s.PendingAmount, s.CollectedAmount, s.VATAmount, s.NetCommission}
		if err := setRow(f, summarySheet, rowIndex, values); err != nil {
			return err
		}
		rowIndex++
		return nil
	}
	for _, s := range report.Summaries {
		if err := writeSummary(s, ""); err != nil {
			return nil, err
		}
	}
	if err := writeSummary(report.Totals, "TOPLAM"); err != nil {
		return nil, err
	}

	recordsSheet := "Kayıtlar"
	if _, err := f.NewSheet(recordsSheet); err != nil {
		return nil, fmt.Errorf("ошибка создания листа записей: %w", err)
	}
	recordHeaders := []any{"Sipariş", "İşletme", "Dönem", "Teslimat", "Ödeme", "Sipariş Tutarı", "Oran", "Komisyon", "Sabit Ücret", "Toplam", "KDV", "Net", "Tahsilat"}
	if err := setRow(f, recordsSheet, 1, recordHeaders); err != nil {
		return nil, err
	}
	for r, rec := range records {
		values := []any{rec.OrderNumber, rec.BusinessName, rec.Period, constants.CourierTypeDisplayMap[rec.CourierType],
			string(rec.PaymentMethod), rec.OrderTotal, rec.CommissionRate, rec.CommissionAmount, rec.PerOrderFee,
			rec.TotalCommission, rec.VATAmount, rec.NetCommission, constants.CollectionStatusDisplayMap[rec.CollectionStatus]}
		if err := setRow(f, recordsSheet, r+2, values); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("ошибка записи XLSX: %w", err)
	}
	return buf.Bytes(), nil
}

// setRow пишет значения в строку row начиная с колонки A.
func setRow(f *excelize.File, sheet string, row int, values []any) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return fmt.Errorf("ошибка адреса ячейки %s: %w", sheet, err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("ошибка записи ячейки %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}
