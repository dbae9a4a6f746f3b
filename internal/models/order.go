package models

import "time"

// LineItem - позиция заказа.
type LineItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
}

// LineTotal - стоимость позиции (цена * количество).
func (li LineItem) LineTotal() float64 {
	return li.UnitPrice * float64(li.Quantity)
}

// CourierAssignment - кто принял ответственность за доставку.
type CourierAssignment struct {
	CourierID   string    `json:"courierId"`
	CourierName string    `json:"courierName,omitempty"`
	AssignedAt  time.Time `json:"assignedAt"`
}

// Shipment - отправка перевозчиком (заказы магазина).
type Shipment struct {
	Carrier        string         `json:"carrier,omitempty"`
	TrackingNumber string         `json:"trackingNumber,omitempty"`
	Status         ShipmentStatus `json:"status"`
	ShippedAt      time.Time      `json:"shippedAt"`
	DeliveredAt    *time.Time     `json:"deliveredAt,omitempty"`
}

// Cancellation - метаданные отмены.
type Cancellation struct {
	Reason     CancellationReason `json:"reason"`
	Text       string             `json:"text,omitempty"`
	RefundOwed bool               `json:"refundOwed"`
	ByAdminID  string             `json:"byAdminId,omitempty"`
}

// Refund - обязательство вернуть деньги клиенту. Сам возврат выполняется вне системы.
type Refund struct {
	Required bool    `json:"required"`
	Amount   float64 `json:"amount"`
	Reason   string  `json:"reason"`
}

// CustomerNotification - флаг уведомления клиента о последнем переходе.
type CustomerNotification struct {
	Status     Status             `json:"status"`
	Reason     CancellationReason `json:"reason,omitempty"`
	ReasonText string             `json:"reasonText,omitempty"`
	RefundOwed bool               `json:"refundOwed"`
	FlaggedAt  time.Time          `json:"flaggedAt"`
}

// Order - заказ клиента (коллекции orders и shop_orders).
type Order struct {
	ID            string `json:"id"`
	OrderNumber   string `json:"orderNumber"`
	BusinessID    string `json:"businessId"`
	BusinessName  string `json:"businessName,omitempty"`
	CustomerID    string `json:"customerId,omitempty"`
	CustomerName  string `json:"customerName,omitempty"`
	CustomerPhone string `json:"customerPhone,omitempty"`
	CustomerEmail string `json:"customerEmail,omitempty"`
	PostalCode    string `json:"postalCode,omitempty"`

	Items       []LineItem `json:"items"`
	Subtotal    float64    `json:"subtotal"`
	DeliveryFee float64    `json:"deliveryFee"`
	Total       float64    `json:"total"`
	Currency    string     `json:"currency"`

	PaymentMethod PaymentMethod `json:"paymentMethod"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	Channel       Channel       `json:"channel"`
	CourierType   CourierType   `json:"courierType,omitempty"`
	Status        Status        `json:"status"`
	Note          string        `json:"note,omitempty"`

	Cancellation   *Cancellation         `json:"cancellation,omitempty"`
	MissingItems   []LineItem            `json:"missingItems,omitempty"`
	Refund         *Refund               `json:"refund,omitempty"`
	Courier        *CourierAssignment    `json:"courier,omitempty"`
	Shipment       *Shipment             `json:"shipment,omitempty"`
	NotifyCustomer bool                  `json:"notifyCustomer"`
	Notification   *CustomerNotification `json:"notification,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
	PreparingAt *time.Time `json:"preparingAt,omitempty"`
	ReadyAt     *time.Time `json:"readyAt,omitempty"`
	InTransitAt *time.Time `json:"inTransitAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
}

// PaidByCard - заказ оплачен картой (есть что возвращать).
func (o Order) PaidByCard() bool {
	return o.PaymentMethod == PaymentCard
}

// DeliveryRecorded - зафиксировано событие доставки.
func (o Order) DeliveryRecorded() bool {
	return o.Shipment != nil && o.Shipment.Status == ShipmentDelivered && o.Shipment.DeliveredAt != nil
}
