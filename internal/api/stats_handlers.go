package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"marketadmin/internal/apperr"
	"marketadmin/internal/commission"
	"marketadmin/internal/models"
	"marketadmin/internal/shifts"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func commissionFilter(r *http.Request) models.CommissionFilter {
	q := r.URL.Query()
	return models.CommissionFilter{
		Period:           q.Get("period"),
		BusinessID:       q.Get("businessId"),
		CollectionStatus: models.CollectionStatus(q.Get("collectionStatus")),
	}
}

// writeFile отдает сформированный файл; inline - открыть в браузере (печатная версия).
func writeFile(w http.ResponseWriter, filename, contentType string, data []byte, inline bool) {
	disposition := "attachment"
	if inline {
		disposition = "inline"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// GetCommissionReport - сводка комиссий по бизнесам и итоги.
func (h *Handler) GetCommissionReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.deps.Commission.Report(r.Context(), adminFrom(r), commissionFilter(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSONSuccess(w, "Commission report retrieved successfully", report)
}

// StreamCommissionReport пересчитывает отчет при каждом изменении записей (SSE).
func (h *Handler) StreamCommissionReport(w http.ResponseWriter, r *http.Request) {
	admin, filter := adminFrom(r), commissionFilter(r)
	h.stream(w, r, func(emit func(seq uint64, data any)) (subscription, error) {
		return h.deps.Commission.Watch(r.Context(), admin, filter, func(seq uint64, report models.CommissionReport) {
			emit(seq, report)
		})
	})
}

func (h *Handler) GetCommissionRecords(w http.ResponseWriter, r *http.Request) {
	records, err := h.deps.Commission.Records(r.Context(), adminFrom(r), commissionFilter(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSONSuccess(w, "Commission records retrieved successfully", records)
}

// ExportCommissionReport - отчет и записи в XLSX.
func (h *Handler) ExportCommissionReport(w http.ResponseWriter, r *http.Request) {
	admin, filter := adminFrom(r), commissionFilter(r)
	report, err := h.deps.Commission.Report(r.Context(), admin, filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	records, err := h.deps.Commission.Records(r.Context(), admin, filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	data, err := commission.ExportXLSX(report, records)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeFile(w, commission.ReportFilename(report.Filter), xlsxContentType, data, false)
}

// UpdateCollectionStatus переводит запись комиссии: pending -> invoiced -> paid.
func (h *Handler) UpdateCollectionStatus(w http.ResponseWriter, r *http.Request) {
	var req CollectionStatusRequest
	if err := decodeJSON(r, "api.UpdateCollectionStatus", &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	record, err := h.deps.Commission.Advance(r.Context(), adminFrom(r), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSONSuccess(w, "Collection status updated successfully", record)
}

// SettleOrder повторно начисляет комиссию по завершенному заказу (идемпотентно).
func (h *Handler) SettleOrder(w http.ResponseWriter, r *http.Request) {
	admin := adminFrom(r)
	order, err := h.deps.Orders.Get(r.Context(), admin, chi.URLParam(r, "collection"), chi.URLParam(r, "orderId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	record, err := h.deps.Commission.Settle(r.Context(), order)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSONSuccess(w, "Commission settled successfully", record)
}

// GetShiftSummary - смены месяца и сводка по сотрудникам: ?period=YYYY-MM
func (h *Handler) GetShiftSummary(w http.ResponseWriter, r *http.Request) {
	list, summaries, err := h.deps.Shifts.Summary(r.Context(), adminFrom(r), chi.URLParam(r, "businessId"), r.URL.Query().Get("period"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSONSuccess(w, "Shifts retrieved successfully", map[string]interface{}{
		"shifts":    list,
		"summaries": summaries,
	})
}

// ExportShifts - отчет по сменам: csv, html (для печати) или xlsx.
func (h *Handler) ExportShifts(w http.ResponseWriter, r *http.Request) {
	const op = "api.ExportShifts"
	format := chi.URLParam(r, "format")
	if format != "csv" && format != "html" && format != "xlsx" {
		h.writeError(w, r, apperr.ValidationFields(op, map[string]string{"format": "допустимые значения: csv, html, xlsx"}))
		return
	}
	period := r.URL.Query().Get("period")
	report, err := h.deps.Shifts.Report(r.Context(), adminFrom(r), chi.URLParam(r, "businessId"), period)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var data []byte
	var contentType string
	switch format {
	case "csv":
		data, err = report.CSV()
		contentType = "text/csv; charset=utf-8"
	case "html":
		data, err = report.HTML()
		contentType = "text/html; charset=utf-8"
	case "xlsx":
		data, err = report.XLSX()
		contentType = xlsxContentType
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeFile(w, shifts.Filename(report.Period, format), contentType, data, format == "html")
}
