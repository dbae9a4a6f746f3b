// Package commission считает комиссию платформы по завершенным заказам,
// ведет статус ее взыскания и собирает отчеты по бизнесам и периодам.
//
// Ставка НДС считается включенной в комиссию: vat = total * r / (1 + r).
// Все денежные величины округляются до 2 знаков, половина вверх.
package commission

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"marketadmin/internal/apperr"
	"marketadmin/internal/config"
	"marketadmin/internal/models"
	"marketadmin/internal/utils"
)

// DefaultPlan - тариф из конфигурации; ставка бизнеса перекрывает CommissionRate.
func DefaultPlan(cfg *config.Config) models.CommissionPlan {
	return models.CommissionPlan{
		CommissionRate: cfg.DefaultCommissionRate,
		VATRate:        cfg.DefaultVATRate,
		PerOrderFees: map[models.CourierType]float64{
			models.CourierSelfPickup: cfg.FeeSelfPickup,
			models.CourierVendor:     cfg.FeeVendorCourier,
			models.CourierPlatform:   cfg.FeePlatformCourier,
		},
	}
}

// CourierTypeOf - тип доставки заказа; для старых заказов без поля выводится из канала.
func CourierTypeOf(order models.Order) models.CourierType {
	if order.CourierType.Valid() {
		return order.CourierType
	}
	if order.Channel == models.ChannelDelivery {
		return models.CourierVendor
	}
	return models.CourierSelfPickup
}

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// Compute считает запись комиссии по завершенному заказу.
func Compute(order models.Order, plan models.CommissionPlan, now time.Time) (models.CommissionRecord, error) {
	const op = "commission.Compute"
	if order.Status != models.StatusCompleted {
		return models.CommissionRecord{}, apperr.PreconditionNotMet(op, "комиссия начисляется только по завершенному заказу")
	}
	if plan.CommissionRate < 0 || plan.CommissionRate >= 1 {
		return models.CommissionRecord{}, apperr.Validation(op, fmt.Sprintf("некорректная ставка комиссии %.4f", plan.CommissionRate))
	}
	if plan.VATRate < 0 || plan.VATRate >= 1 {
		return models.CommissionRecord{}, apperr.Validation(op, fmt.Sprintf("некорректная ставка НДС %.4f", plan.VATRate))
	}

	courierType := CourierTypeOf(order)
	rate := money(plan.CommissionRate)
	vatRate := money(plan.VATRate)

	commissionAmount := money(order.Total).Mul(rate).Round(2)
	perOrderFee := money(plan.PerOrderFees[courierType]).Round(2)
	totalCommission := commissionAmount.Add(perOrderFee)
	vatAmount := totalCommission.Mul(vatRate).Div(decimal.NewFromInt(1).Add(vatRate)).Round(2)
	netCommission := totalCommission.Sub(vatAmount)

	status := models.CollectionPending
	if order.PaymentMethod.Electronic() {
		status = models.CollectionAutoCollected
	}
	completedAt := now
	if order.CompletedAt != nil {
		completedAt = *order.CompletedAt
	}

	return models.CommissionRecord{
		ID:               order.ID,
		OrderID:          order.ID,
		OrderNumber:      order.OrderNumber,
		BusinessID:       order.BusinessID,
		BusinessName:     order.BusinessName,
		OrderTotal:       money(order.Total).Round(2).InexactFloat64(),
		CourierType:      courierType,
		CommissionRate:   plan.CommissionRate,
		CommissionAmount: commissionAmount.InexactFloat64(),
		PerOrderFee:      perOrderFee.InexactFloat64(),
		TotalCommission:  totalCommission.InexactFloat64(),
		VATRate:          plan.VATRate,
		VATAmount:        vatAmount.InexactFloat64(),
		NetCommission:    netCommission.InexactFloat64(),
		PaymentMethod:    order.PaymentMethod,
		CollectionStatus: status,
		Period:           utils.Period(completedAt),
		Currency:         order.Currency,
		CreatedAt:        now,
	}, nil
}

// NextCollectionStatus проверяет переход статуса взыскания.
// auto_collected и paid - конечные; повтор текущего статуса допустим.
func NextCollectionStatus(from, to models.CollectionStatus) error {
	const op = "commission.Advance"
	if !to.Valid() {
		return apperr.Validation(op, fmt.Sprintf("неизвестный статус взыскания %q", to))
	}
	if from == to {
		return nil
	}
	switch {
	case from == models.CollectionPending && to == models.CollectionInvoiced,
		from == models.CollectionInvoiced && to == models.CollectionPaid:
		return nil
	}
	return apperr.InvalidTransition(op, string(from), string(to))
}
