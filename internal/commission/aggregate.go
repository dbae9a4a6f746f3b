package commission

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"marketadmin/internal/docstore"
	"marketadmin/internal/models"
)

// Поля записи, без которых отчет считает значение нулем.
var numericFields = []string{"orderTotal", "totalCommission", "vatAmount", "netCommission"}

type summaryAcc struct {
	name                                   string
	count                                  int
	orderTotal, total, card, cash, pending decimal.Decimal
	vat, net                               decimal.Decimal
}

// Aggregate собирает отчет из документов commission_records.
// Фильтры применяются здесь же (точное совпадение, через AND). Запись без
// числового поля учитывается с нулем в этом поле, аномалия пишется в журнал.
func Aggregate(docs []docstore.Document, filter models.CommissionFilter, log logrus.FieldLogger) models.CommissionReport {
	accs := map[string]*summaryAcc{}
	for _, doc := range docs {
		models.Normalize(doc)
		if !matchesFilter(doc, filter) {
			continue
		}
		businessID := str(doc, "businessId")
		acc, ok := accs[businessID]
		if !ok {
			acc = &summaryAcc{}
			accs[businessID] = acc
		}
		if acc.name == "" {
			acc.name = str(doc, "businessName")
		}

		values := make(map[string]decimal.Decimal, len(numericFields))
		for _, field := range numericFields {
			v, ok := number(doc, field)
			if !ok {
				log.WithFields(logrus.Fields{"record_id": doc.ID(), "field": field}).
					Warn("Запись комиссии без числового поля, значение считается нулем")
			}
			values[field] = v
		}

		total := values["totalCommission"]
		acc.count++
		acc.orderTotal = acc.orderTotal.Add(values["orderTotal"])
		acc.total = acc.total.Add(total)
		acc.vat = acc.vat.Add(values["vatAmount"])
		acc.net = acc.net.Add(values["netCommission"])

		if models.PaymentMethod(str(doc, "paymentMethod")).Electronic() {
			acc.card = acc.card.Add(total)
			continue
		}
		acc.cash = acc.cash.Add(total)
		if models.CollectionStatus(str(doc, "collectionStatus")) == models.CollectionPending {
			acc.pending = acc.pending.Add(total)
		}
	}

	report := models.CommissionReport{Filter: filter, Summaries: make([]models.BusinessSummary, 0, len(accs))}
	totals := &summaryAcc{}
	for businessID, acc := range accs {
		report.Summaries = append(report.Summaries, acc.summary(businessID))
		totals.count += acc.count
		totals.orderTotal = totals.orderTotal.Add(acc.orderTotal)
		totals.total = totals.total.Add(acc.total)
		totals.card = totals.card.Add(acc.card)
		totals.cash = totals.cash.Add(acc.cash)
		totals.pending = totals.pending.Add(acc.pending)
		totals.vat = totals.vat.Add(acc.vat)
		totals.net = totals.net.Add(acc.net)
	}
	sort.Slice(report.Summaries, func(i, j int) bool {
		a, b := report.Summaries[i], report.Summaries[j]
		if a.TotalCommission != b.TotalCommission {
			return a.TotalCommission > b.TotalCommission
		}
		return a.BusinessID < b.BusinessID
	})
	report.Totals = totals.summary("")
	return report
}

func (a *summaryAcc) summary(businessID string) models.BusinessSummary {
	return models.BusinessSummary{
		BusinessID:      businessID,
		BusinessName:    a.name,
		OrderCount:      a.count,
		OrderTotal:      a.orderTotal.Round(2).InexactFloat64(),
		TotalCommission: a.total.Round(2).InexactFloat64(),
		CardCommission:  a.card.Round(2).InexactFloat64(),
		CashCommission:  a.cash.Round(2).InexactFloat64(),
		PendingAmount:   a.pending.Round(2).InexactFloat64(),
		CollectedAmount: a.total.Sub(a.pending).Round(2).InexactFloat64(),
		VATAmount:       a.vat.Round(2).InexactFloat64(),
		NetCommission:   a.net.Round(2).InexactFloat64(),
	}
}

func matchesFilter(doc docstore.Document, f models.CommissionFilter) bool {
	if f.Period != "" && str(doc, "period") != f.Period {
		return false
	}
	if f.BusinessID != "" && str(doc, "businessId") != f.BusinessID {
		return false
	}
	if f.CollectionStatus != "" && str(doc, "collectionStatus") != string(f.CollectionStatus) {
		return false
	}
	return true
}

func str(doc docstore.Document, field string) string {
	s, _ := doc[field].(string)
	return s
}

// number читает числовое поле; строка с числом тоже принимается.
func number(doc docstore.Document, field string) (decimal.Decimal, bool) {
	switch v := doc[field].(type) {
	case float64:
		return decimal.NewFromFloat(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case string:
		d, err := decimal.NewFromString(v)
		if err == nil {
			return d, true
		}
	}
	return decimal.Zero, false
}
