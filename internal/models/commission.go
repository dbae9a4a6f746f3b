package models

import "time"

// CommissionRecord - комиссия платформы по одному завершенному заказу.
// После создания меняется только CollectionStatus.
type CommissionRecord struct {
	ID               string           `json:"id"`
	OrderID          string           `json:"orderId"`
	OrderNumber      string           `json:"orderNumber,omitempty"`
	BusinessID       string           `json:"businessId"`
	BusinessName     string           `json:"businessName,omitempty"`
	OrderTotal       float64          `json:"orderTotal"`
	CourierType      CourierType      `json:"courierType"`
	CommissionRate   float64          `json:"commissionRate"`
	CommissionAmount float64          `json:"commissionAmount"`
	PerOrderFee      float64          `json:"perOrderFee"`
	TotalCommission  float64          `json:"totalCommission"`
	VATRate          float64          `json:"vatRate"`
	VATAmount        float64          `json:"vatAmount"`
	NetCommission    float64          `json:"netCommission"`
	PaymentMethod    PaymentMethod    `json:"paymentMethod"`
	CollectionStatus CollectionStatus `json:"collectionStatus"`
	Period           string           `json:"period"`
	Currency         string           `json:"currency"`
	CreatedAt        time.Time        `json:"createdAt"`
	InvoicedAt       *time.Time       `json:"invoicedAt,omitempty"`
	PaidAt           *time.Time       `json:"paidAt,omitempty"`
}

// CommissionFilter - фильтры отчета; пустое поле не фильтрует.
type CommissionFilter struct {
	Period           string           `json:"period,omitempty"`
	BusinessID       string           `json:"businessId,omitempty"`
	CollectionStatus CollectionStatus `json:"collectionStatus,omitempty"`
}

// BusinessSummary - агрегат комиссий одного бизнеса за выбранные фильтры.
type BusinessSummary struct {
	BusinessID      string  `json:"businessId"`
	BusinessName    string  `json:"businessName,omitempty"`
	OrderCount      int     `json:"orderCount"`
	OrderTotal      float64 `json:"orderTotal"`
	TotalCommission float64 `json:"totalCommission"`
	CardCommission  float64 `json:"cardCommission"`
	CashCommission  float64 `json:"cashCommission"`
	PendingAmount   float64 `json:"pendingAmount"`
	CollectedAmount float64 `json:"collectedAmount"`
	VATAmount       float64 `json:"vatAmount"`
	NetCommission   float64 `json:"netCommission"`
}

// CommissionReport - сводки по бизнесам и общие итоги.
type CommissionReport struct {
	Filter    CommissionFilter  `json:"filter"`
	Summaries []BusinessSummary `json:"summaries"`
	Totals    BusinessSummary   `json:"totals"`
}

// CommissionPlan - условия тарифа бизнеса.
type CommissionPlan struct {
	CommissionRate float64                 `json:"commissionRate"`
	PerOrderFees   map[CourierType]float64 `json:"perOrderFees"`
	VATRate        float64                 `json:"vatRate"`
}
