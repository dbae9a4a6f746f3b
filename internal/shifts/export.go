package shifts

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"html/template"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// Метка порядка байтов UTF-8: без нее Excel открывает турецкие буквы неверно.
const utf8BOM = "\ufeff"

func itoa(n int) string { return strconv.Itoa(n) }

// CSV - таблица смен через ";", пустая строка и блок сводки по сотрудникам.
func (r *Report) CSV() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(utf8BOM)
	w := csv.NewWriter(&buf)
	w.Comma = ';'

	rows := [][]string{detailHeader}
	for _, s := range r.Shifts {
		rows = append(rows, r.detailRow(s))
	}
	rows = append(rows, []string{}, summaryHeader)
	for _, s := range r.Summaries {
		rows = append(rows, summaryRow(s))
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("ошибка записи CSV: %w", err)
	}
	return buf.Bytes(), nil
}

var printTemplate = template.Must(template.New("shifts").Parse(`<!DOCTYPE html>
<html lang="tr">
<head>
<meta charset="utf-8">
<title>Vardiya Raporu {{.Period}}</title>
<style>
  body { font-family: Arial, Helvetica, sans-serif; font-size: 12px; color: #222; margin: 24px; }
  h1 { font-size: 18px; margin: 0 0 4px; }
  h2 { font-size: 14px; margin: 24px 0 8px; }
  .meta { color: #666; margin-bottom: 16px; }
  table { width: 100%; border-collapse: collapse; }
  th, td { border: 1px solid #ccc; padding: 4px 6px; text-align: left; }
  th { background: #f2f2f2; }
  tr:nth-child(even) td { background: #fafafa; }
  @media print {
    body { margin: 0; }
    h2 { page-break-after: avoid; }
    tr { page-break-inside: avoid; }
  }
</style>
</head>
<body onload="window.print()">
<h1>Vardiya Raporu</h1>
<div class="meta">{{if .BusinessName}}{{.BusinessName}} · {{end}}{{.Period}}</div>
<h2>Personel Özeti</h2>
<table>
<thead><tr>{{range .SummaryHeader}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .SummaryRows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
<h2>Vardiya Detayları</h2>
<table>
<thead><tr>{{range .DetailHeader}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .DetailRows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
</body>
</html>
`))

// HTML - самодостаточный документ для печати средствами браузера.
func (r *Report) HTML() ([]byte, error) {
	data := struct {
		Period, BusinessName        string
		SummaryHeader, DetailHeader []string
		SummaryRows, DetailRows     [][]string
	}{
		Period:        r.Period,
		BusinessName:  r.BusinessName,
		SummaryHeader: summaryHeader,
		DetailHeader:  detailHeader,
	}
	for _, s := range r.Summaries {
		data.SummaryRows = append(data.SummaryRows, summaryRow(s))
	}
	for _, s := range r.Shifts {
		data.DetailRows = append(data.DetailRows, r.detailRow(s))
	}
	var buf bytes.Buffer
	if err := printTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("ошибка формирования печатного отчета: %w", err)
	}
	return buf.Bytes(), nil
}

// XLSX - те же таблицы на двух листах.
func (r *Report) XLSX() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	summarySheet := "Personel Özeti"
	index, err := f.NewSheet(summarySheet)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания листа сводки: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("ошибка удаления листа по умолчанию: %w", err)
	}
	f.SetActiveSheet(index)
	rows := [][]string{summaryHeader}
	for _, s := range r.Summaries {
		rows = append(rows, summaryRow(s))
	}
	if err := writeRows(f, summarySheet, rows); err != nil {
		return nil, err
	}

	detailSheet := "Vardiyalar"
	if _, err := f.NewSheet(detailSheet); err != nil {
		return nil, fmt.Errorf("ошибка создания листа смен: %w", err)
	}
	rows = [][]string{detailHeader}
	for _, s := range r.Shifts {
		rows = append(rows, r.detailRow(s))
	}
	if err := writeRows(f, detailSheet, rows); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("ошибка записи XLSX: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]string) error {
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return fmt.Errorf("ошибка адреса ячейки %s: %w", sheet, err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("ошибка записи ячейки %s!%s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}
