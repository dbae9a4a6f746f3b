package api

import (
	"time"

	"marketadmin/internal/models"
	"marketadmin/internal/orders"
	"marketadmin/internal/session"
)

// Структуры запросов и ответов API консоли.

// LoginRequest - вход по email (или телефону) и паролю.
type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	Admin     session.Admin `json:"admin"`
}

// CourierInput - назначение курьера при отправке.
type CourierInput struct {
	CourierID   string `json:"courierId" validate:"required"`
	CourierName string `json:"courierName" validate:"max=100,no_xss"`
}

// OrderActionRequest - действие над заказом.
type OrderActionRequest struct {
	Action       orders.Action             `json:"action" validate:"required"`
	Availability map[string]bool           `json:"availability,omitempty"`
	Courier      *CourierInput             `json:"courier,omitempty"`
	Shipment     *orders.ShipmentInput     `json:"shipment,omitempty"`
	Reason       models.CancellationReason `json:"reason,omitempty"`
	ReasonText   string                    `json:"reasonText,omitempty" validate:"max=500,no_xss"`
	Confirm      bool                      `json:"confirm"`
}

func (r OrderActionRequest) toEngine() orders.Request {
	req := orders.Request{
		Action:       r.Action,
		Availability: r.Availability,
		Shipment:     r.Shipment,
		Reason:       r.Reason,
		ReasonText:   r.ReasonText,
		Confirm:      r.Confirm,
	}
	if r.Courier != nil {
		req.Courier = &models.CourierAssignment{CourierID: r.Courier.CourierID, CourierName: r.Courier.CourierName}
	}
	return req
}

type OrderActionResponse struct {
	Order        models.Order  `json:"order"`
	From         models.Status `json:"from"`
	To           models.Status `json:"to"`
	Changed      bool          `json:"changed"`
	RefundOwed   bool          `json:"refundOwed"`
	RefundAmount float64       `json:"refundAmount,omitempty"`
}

type OrderDetailsResponse struct {
	Order models.Order    `json:"order"`
	Next  []models.Status `json:"next"`
}

// CollectionStatusRequest - перевод записи комиссии по статусам взыскания.
type CollectionStatusRequest struct {
	Status models.CollectionStatus `json:"status" validate:"required,oneof=invoiced paid"`
}

// DecisionRequest - решение по анкете приглашенного.
type DecisionRequest struct {
	Approve bool `json:"approve"`
}

// UploadFileResponse - структура ответа для загруженного файла.
type UploadFileResponse struct {
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
}
