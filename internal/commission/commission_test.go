package commission

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"marketadmin/internal/activity"
	"marketadmin/internal/apperr"
	"marketadmin/internal/config"
	"marketadmin/internal/docstore"
	"marketadmin/internal/events"
	"marketadmin/internal/logger"
	"marketadmin/internal/models"
	"marketadmin/internal/session"
)

var testNow = time.Date(2024, 5, 31, 22, 0, 0, 0, time.UTC)

func completedOrder(id string, total float64, method models.PaymentMethod) models.Order {
	completedAt := testNow
	return models.Order{
		ID:            id,
		OrderNumber:   "N-" + id,
		BusinessID:    "b1",
		BusinessName:  "Öz Kasap",
		Total:         total,
		Currency:      "EUR",
		PaymentMethod: method,
		CourierType:   models.CourierPlatform,
		Channel:       models.ChannelDelivery,
		Status:        models.StatusCompleted,
		CompletedAt:   &completedAt,
	}
}

func scenarioPlan() models.CommissionPlan {
	return models.CommissionPlan{
		CommissionRate: 0.10,
		VATRate:        0.19,
		PerOrderFees:   map[models.CourierType]float64{models.CourierPlatform: 1},
	}
}

func TestComputeScenario(t *testing.T) {
	record, err := Compute(completedOrder("o1", 50, models.PaymentCard), scenarioPlan(), testNow)
	require.NoError(t, err)

	assert.Equal(t, 5.0, record.CommissionAmount)
	assert.Equal(t, 1.0, record.PerOrderFee)
	assert.Equal(t, 6.0, record.TotalCommission)
	assert.Equal(t, 0.96, record.VATAmount)
	assert.Equal(t, 5.04, record.NetCommission)
	assert.Equal(t, models.CollectionAutoCollected, record.CollectionStatus)
	assert.Equal(t, "2024-05", record.Period)
	assert.Equal(t, "o1", record.ID)
}

func TestComputeReconciles(t *testing.T) {
	for _, total := range []float64{0.01, 3.33, 19.99, 50, 87.45, 123.456, 999.99} {
		for _, method := range []models.PaymentMethod{models.PaymentCash, models.PaymentCard} {
			record, err := Compute(completedOrder("o", total, method), scenarioPlan(), testNow)
			require.NoError(t, err)

			sum := decimal.NewFromFloat(record.NetCommission).Add(decimal.NewFromFloat(record.VATAmount))
			diff := sum.Sub(decimal.NewFromFloat(record.TotalCommission)).Abs()
			assert.True(t, diff.LessThanOrEqual(decimal.NewFromFloat(0.01)), "total %v", total)

			parts := decimal.NewFromFloat(record.CommissionAmount).Add(decimal.NewFromFloat(record.PerOrderFee))
			assert.True(t, parts.Equal(decimal.NewFromFloat(record.TotalCommission)), "total %v", total)
		}
	}
}

func TestComputeCashIsPending(t *testing.T) {
	record, err := Compute(completedOrder("o1", 20, models.PaymentCash), scenarioPlan(), testNow)
	require.NoError(t, err)
	assert.Equal(t, models.CollectionPending, record.CollectionStatus)
}

func TestComputeRequiresCompletedOrder(t *testing.T) {
	o := completedOrder("o1", 20, models.PaymentCash)
	o.Status = models.StatusReady
	_, err := Compute(o, scenarioPlan(), testNow)
	assert.True(t, apperr.IsKind(err, apperr.KindPreconditionNotMet))

	plan := scenarioPlan()
	plan.CommissionRate = 1.5
	_, err = Compute(completedOrder("o1", 20, models.PaymentCash), plan, testNow)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestCourierTypeOfLegacyOrders(t *testing.T) {
	assert.Equal(t, models.CourierVendor, CourierTypeOf(models.Order{Channel: models.ChannelDelivery}))
	assert.Equal(t, models.CourierSelfPickup, CourierTypeOf(models.Order{Channel: models.ChannelPickup}))
	assert.Equal(t, models.CourierPlatform, CourierTypeOf(models.Order{CourierType: models.CourierPlatform}))
}

func TestNextCollectionStatus(t *testing.T) {
	assert.NoError(t, NextCollectionStatus(models.CollectionPending, models.CollectionInvoiced))
	assert.NoError(t, NextCollectionStatus(models.CollectionInvoiced, models.CollectionPaid))
	assert.NoError(t, NextCollectionStatus(models.CollectionPaid, models.CollectionPaid))

	assert.True(t, apperr.IsKind(NextCollectionStatus(models.CollectionPending, models.CollectionPaid), apperr.KindInvalidTransition))
	assert.True(t, apperr.IsKind(NextCollectionStatus(models.CollectionAutoCollected, models.CollectionInvoiced), apperr.KindInvalidTransition))
	assert.True(t, apperr.IsKind(NextCollectionStatus(models.CollectionPaid, models.CollectionPending), apperr.KindInvalidTransition))
	assert.True(t, apperr.IsKind(NextCollectionStatus(models.CollectionPending, "lost"), apperr.KindValidation))
}

func record(id, business string, total float64, method models.PaymentMethod, status models.CollectionStatus) docstore.Document {
	return docstore.Document{
		"id":               id,
		"businessId":       business,
		"businessName":     "İşletme " + business,
		"orderTotal":       total * 10,
		"totalCommission":  total,
		"vatAmount":        0.0,
		"netCommission":    total,
		"paymentMethod":    string(method),
		"collectionStatus": string(status),
		"period":           "2024-05",
	}
}

func TestAggregate(t *testing.T) {
	docs := []docstore.Document{
		record("r1", "b1", 6, models.PaymentCard, models.CollectionAutoCollected),
		record("r2", "b1", 4, models.PaymentCash, models.CollectionPending),
		record("r3", "b1", 2.5, models.PaymentCash, models.CollectionPaid),
		record("r4", "b2", 13, models.PaymentCash, models.CollectionInvoiced),
		record("r5", "b3", 12.75, models.PaymentCard, models.CollectionAutoCollected),
	}
	other := record("r6", "b1", 100, models.PaymentCard, models.CollectionAutoCollected)
	other["period"] = "2024-04"
	docs = append(docs, other)

	report := Aggregate(docs, models.CommissionFilter{Period: "2024-05"}, logger.Discard())

	require.Len(t, report.Summaries, 3)
	assert.Equal(t, "b2", report.Summaries[0].BusinessID)
	assert.Equal(t, "b3", report.Summaries[1].BusinessID)
	assert.Equal(t, "b1", report.Summaries[2].BusinessID)

	b1 := report.Summaries[2]
	assert.Equal(t, 3, b1.OrderCount)
	assert.Equal(t, 12.5, b1.TotalCommission)
	assert.Equal(t, 6.0, b1.CardCommission)
	assert.Equal(t, 6.5, b1.CashCommission)
	assert.Equal(t, 4.0, b1.PendingAmount)
	assert.Equal(t, 8.5, b1.CollectedAmount)
	assert.Equal(t, "İşletme b1", b1.BusinessName)

	for _, s := range report.Summaries {
		assert.Equal(t, s.TotalCommission, s.PendingAmount+s.CollectedAmount)
	}
	assert.Equal(t, 5, report.Totals.OrderCount)
	assert.Equal(t, 38.25, report.Totals.TotalCommission)
	assert.Equal(t, 4.0, report.Totals.PendingAmount)
}

func TestAggregateFiltersCompose(t *testing.T) {
	docs := []docstore.Document{
		record("r1", "b1", 6, models.PaymentCash, models.CollectionPending),
		record("r2", "b1", 4, models.PaymentCash, models.CollectionPaid),
		record("r3", "b2", 3, models.PaymentCash, models.CollectionPending),
	}
	report := Aggregate(docs, models.CommissionFilter{BusinessID: "b1", CollectionStatus: models.CollectionPending}, logger.Discard())
	require.Len(t, report.Summaries, 1)
	assert.Equal(t, 6.0, report.Totals.TotalCommission)
}

func TestAggregateTreatsMissingFieldAsZero(t *testing.T) {
	broken := record("r1", "b1", 5, models.PaymentCash, models.CollectionPending)
	delete(broken, "totalCommission")
	broken["orderTotal"] = "42.50"
	docs := []docstore.Document{broken, record("r2", "b1", 3, models.PaymentCard, models.CollectionAutoCollected)}

	report := Aggregate(docs, models.CommissionFilter{}, logger.Discard())
	require.Len(t, report.Summaries, 1)
	assert.Equal(t, 2, report.Summaries[0].OrderCount)
	assert.Equal(t, 3.0, report.Summaries[0].TotalCommission)
	assert.Equal(t, 72.5, report.Summaries[0].OrderTotal)
}

func TestAggregateNormalizesLegacyRecords(t *testing.T) {
	legacy := record("r1", "", 5, models.PaymentCash, models.CollectionPending)
	delete(legacy, "businessId")
	delete(legacy, "paymentMethod")
	legacy["butcherId"] = "b9"
	legacy["paymentType"] = "credit_card"

	report := Aggregate([]docstore.Document{legacy}, models.CommissionFilter{BusinessID: "b9"}, logger.Discard())
	require.Len(t, report.Summaries, 1)
	assert.Equal(t, 5.0, report.Summaries[0].CardCommission)
}

func newService(t *testing.T) (*Service, *docstore.Memory, *events.Recorder) {
	t.Helper()
	store := docstore.NewMemory()
	log := logger.Discard()
	rec := &events.Recorder{}
	cfg := &config.Config{DefaultCommissionRate: 0.10, DefaultVATRate: 0.19, FeePlatformCourier: 1}
	svc := NewService(store, rec, activity.New(store, log), cfg, log)
	svc.now = func() time.Time { return testNow }
	return svc, store, rec
}

var admin = session.Admin{ID: "a1", Role: models.RoleAdmin}

func TestSettleIsIdempotent(t *testing.T) {
	svc, _, rec := newService(t)
	ctx := context.Background()

	first, err := svc.Settle(ctx, completedOrder("o1", 50, models.PaymentCard))
	require.NoError(t, err)
	assert.Equal(t, 6.0, first.TotalCommission)

	second, err := svc.Settle(ctx, completedOrder("o1", 50, models.PaymentCard))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, []string{events.CommissionSettledKey}, rec.Keys())

	records, err := svc.Records(ctx, admin, models.CommissionFilter{Period: "2024-05"})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestSettleUsesBusinessRate(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	_, err := store.Create(ctx, "businesses", docstore.Document{"id": "b1", "name": "Öz Kasap", "commissionRate": 0.05})
	require.NoError(t, err)

	record, err := svc.Settle(ctx, completedOrder("o1", 50, models.PaymentCash))
	require.NoError(t, err)
	assert.Equal(t, 2.5, record.CommissionAmount)
	assert.Equal(t, 3.5, record.TotalCommission)
}

func TestAdvanceCollectionStatus(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Settle(ctx, completedOrder("cash1", 20, models.PaymentCash))
	require.NoError(t, err)
	_, err = svc.Settle(ctx, completedOrder("card1", 20, models.PaymentCard))
	require.NoError(t, err)

	invoiced, err := svc.Advance(ctx, admin, "cash1", models.CollectionInvoiced)
	require.NoError(t, err)
	assert.Equal(t, models.CollectionInvoiced, invoiced.CollectionStatus)
	require.NotNil(t, invoiced.InvoicedAt)

	paid, err := svc.Advance(ctx, admin, "cash1", models.CollectionPaid)
	require.NoError(t, err)
	require.NotNil(t, paid.PaidAt)

	stored, err := svc.Get(ctx, "cash1")
	require.NoError(t, err)
	assert.Equal(t, models.CollectionPaid, stored.CollectionStatus)
	assert.Equal(t, 2.0, stored.CommissionAmount)

	_, err = svc.Advance(ctx, admin, "card1", models.CollectionInvoiced)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidTransition))

	owner := session.Admin{ID: "u1", Role: models.RoleBusinessOwner, BusinessID: "b1"}
	_, err = svc.Advance(ctx, owner, "cash1", models.CollectionPaid)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	_, err = svc.Advance(ctx, admin, "nope", models.CollectionPaid)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestReportScopesBusinessRoles(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	for _, doc := range []docstore.Document{
		record("r1", "b1", 6, models.PaymentCard, models.CollectionAutoCollected),
		record("r2", "b2", 4, models.PaymentCash, models.CollectionPending),
	} {
		_, err := store.Create(ctx, "commission_records", doc)
		require.NoError(t, err)
	}

	full, err := svc.Report(ctx, admin, models.CommissionFilter{Period: "2024-05"})
	require.NoError(t, err)
	assert.Len(t, full.Summaries, 2)

	owner := session.Admin{ID: "u1", Role: models.RoleBusinessOwner, BusinessID: "b2"}
	scoped, err := svc.Report(ctx, owner, models.CommissionFilter{Period: "2024-05", BusinessID: "b1"})
	require.NoError(t, err)
	require.Len(t, scoped.Summaries, 1)
	assert.Equal(t, "b2", scoped.Summaries[0].BusinessID)

	_, err = svc.Report(ctx, admin, models.CommissionFilter{CollectionStatus: "lost"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestWatchRecomputesReport(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	reports := make(chan models.CommissionReport, 4)
	sub, err := svc.Watch(ctx, admin, models.CommissionFilter{Period: "2024-05"}, func(seq uint64, r models.CommissionReport) {
		reports <- r
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	initial := <-reports
	assert.Empty(t, initial.Summaries)

	_, err = svc.Settle(ctx, completedOrder("o1", 50, models.PaymentCard))
	require.NoError(t, err)

	select {
	case r := <-reports:
		require.Len(t, r.Summaries, 1)
		assert.Equal(t, 6.0, r.Totals.TotalCommission)
	case <-time.After(2 * time.Second):
		t.Fatal("отчет не пересчитан после начисления")
	}
}

func TestExportXLSX(t *testing.T) {
	docs := []docstore.Document{record("r1", "b1", 6, models.PaymentCard, models.CollectionAutoCollected)}
	report := Aggregate(docs, models.CommissionFilter{Period: "2024-05"}, logger.Discard())
	rec, err := Compute(completedOrder("o1", 50, models.PaymentCard), scenarioPlan(), testNow)
	require.NoError(t, err)

	data, err := ExportXLSX(report, []models.CommissionRecord{rec})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Özet")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "İşletme", rows[0][0])
	assert.Equal(t, "TOPLAM", rows[2][0])

	recordRows, err := f.GetRows("Kayıtlar")
	require.NoError(t, err)
	require.Len(t, recordRows, 2)
	assert.Equal(t, "N-o1", recordRows[1][0])
	assert.Equal(t, "komisyon_raporu_2024-05.xlsx", ReportFilename(models.CommissionFilter{Period: "2024-05"}))
}

func TestSetRowReportsMissingSheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	err := setRow(f, "Yok", 1, []any{"İşletme", 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Yok!A1")

	require.NoError(t, setRow(f, "Sheet1", 2, []any{"İşletme", 1}))
	value, err := f.GetCellValue("Sheet1", "B2")
	require.NoError(t, err)
	assert.Equal(t, "1", value)
}
