// Package orders реализует жизненный цикл заказа: допустимые переходы статусов
// и их последствия (метки времени, флаг уведомления клиента, обязательство возврата).
package orders

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"marketadmin/internal/apperr"
	"marketadmin/internal/models"
)

// Action - действие администратора над заказом.
type Action string

const (
	ActionConfirm        Action = "confirm"
	ActionAcceptMissing  Action = "accept_missing"
	ActionStartPreparing Action = "start_preparing"
	ActionMarkReady      Action = "mark_ready"
	ActionDispatch       Action = "dispatch"
	ActionRecordDelivery Action = "record_delivery"
	ActionComplete       Action = "complete"
	ActionCancel         Action = "cancel"
)

// ShipmentInput - данные отправки перевозчиком.
type ShipmentInput struct {
	Carrier        string `json:"carrier"`
	TrackingNumber string `json:"trackingNumber"`
}

// Request - запрос на переход.
type Request struct {
	Action Action
	// Availability - наличие по productId для accept_missing; false - позиции нет.
	Availability map[string]bool
	Courier      *models.CourierAssignment
	Shipment     *ShipmentInput
	Reason       models.CancellationReason
	ReasonText   string
	// Confirm - явное подтверждение для отмены.
	Confirm bool
	AdminID string
	Now     time.Time
}

// Effects - последствия перехода, которые сервис сохраняет и рассылает.
type Effects struct {
	NotifyCustomer bool
	RefundOwed     bool
	RefundAmount   float64
	Reason         models.CancellationReason
	ReasonText     string
	// Settle - заказ завершен, пора начислить комиссию.
	Settle bool
}

// Result - итог перехода. Changed=false означает повтор уже примененного действия.
type Result struct {
	Order   models.Order
	From    models.Status
	To      models.Status
	Changed bool
	Effects Effects
}

// Next возвращает статусы, достижимые из from за один шаг.
func Next(from models.Status, channel models.Channel) []models.Status {
	switch from {
	case models.StatusPending:
		return []models.Status{models.StatusConfirmed, models.StatusCancelled}
	case models.StatusConfirmed:
		return []models.Status{models.StatusPreparing, models.StatusCancelled}
	case models.StatusPreparing:
		return []models.Status{models.StatusReady, models.StatusCancelled}
	case models.StatusReady:
		if channel == models.ChannelDelivery {
			return []models.Status{models.StatusInTransit, models.StatusCancelled}
		}
		return []models.Status{models.StatusCompleted, models.StatusCancelled}
	case models.StatusInTransit:
		return []models.Status{models.StatusCompleted, models.StatusCancelled}
	case models.StatusCompleted, models.StatusCancelled:
		return nil
	}
	return nil
}

func allowed(from, to models.Status, channel models.Channel) bool {
	for _, s := range Next(from, channel) {
		if s == to {
			return true
		}
	}
	return false
}

// Target - статус, к которому ведет действие.
func (a Action) Target() (models.Status, bool) {
	switch a {
	case ActionConfirm, ActionAcceptMissing:
		return models.StatusConfirmed, true
	case ActionStartPreparing:
		return models.StatusPreparing, true
	case ActionMarkReady:
		return models.StatusReady, true
	case ActionDispatch, ActionRecordDelivery:
		return models.StatusInTransit, true
	case ActionComplete:
		return models.StatusCompleted, true
	case ActionCancel:
		return models.StatusCancelled, true
	}
	return "", false
}

// Transition применяет действие к заказу. Функция чистая: заказ копируется,
// хранилище не трогается.
func Transition(order models.Order, req Request) (Result, error) {
	const op = "orders.Transition"

	to, ok := req.Action.Target()
	if !ok {
		return Result{}, apperr.Validation(op, fmt.Sprintf("неизвестное действие %q", req.Action))
	}
	if !order.Status.Valid() {
		return Result{}, apperr.Validation(op, fmt.Sprintf("неизвестный статус заказа %q", order.Status))
	}
	if req.Now.IsZero() {
		req.Now = time.Now().UTC()
	}
	res := Result{Order: copyOrder(order), From: order.Status, To: to}

	if req.Action == ActionRecordDelivery {
		return recordDelivery(res, req)
	}

	if order.Status == to {
		// Повтор: ничего не меняем и ничего не рассылаем.
		return res, nil
	}
	if !allowed(order.Status, to, order.Channel) {
		return Result{}, apperr.InvalidTransition(op, string(order.Status), string(to))
	}
	if req.Action == ActionCancel {
		if err := validateCancel(req); err != nil {
			return Result{}, err
		}
	}

	o := &res.Order
	now := req.Now
	switch req.Action {
	case ActionConfirm:
		o.ConfirmedAt = stamp(o.ConfirmedAt, now)
		res.Effects.NotifyCustomer = true

	case ActionAcceptMissing:
		if err := acceptMissing(o, req.Availability, &res.Effects); err != nil {
			return Result{}, err
		}
		o.ConfirmedAt = stamp(o.ConfirmedAt, now)
		res.Effects.NotifyCustomer = true

	case ActionStartPreparing:
		o.PreparingAt = stamp(o.PreparingAt, now)

	case ActionMarkReady:
		o.ReadyAt = stamp(o.ReadyAt, now)
		if o.Channel == models.ChannelPickup {
			res.Effects.NotifyCustomer = true
		}

	case ActionDispatch:
		if err := dispatch(o, req); err != nil {
			return Result{}, err
		}
		o.InTransitAt = stamp(o.InTransitAt, now)
		res.Effects.NotifyCustomer = true

	case ActionComplete:
		if order.Status == models.StatusInTransit && !order.DeliveryRecorded() {
			return Result{}, apperr.PreconditionNotMet(op, "доставка заказа еще не зафиксирована")
		}
		o.CompletedAt = stamp(o.CompletedAt, now)
		res.Effects.Settle = true

	case ActionCancel:
		cancel(o, req, &res.Effects)
		o.CancelledAt = stamp(o.CancelledAt, now)
		res.Effects.NotifyCustomer = true
	}

	o.Status = to
	o.UpdatedAt = now
	if res.Effects.NotifyCustomer {
		o.NotifyCustomer = true
		o.Notification = &models.CustomerNotification{
			Status:     to,
			Reason:     res.Effects.Reason,
			ReasonText: res.Effects.ReasonText,
			RefundOwed: res.Effects.RefundOwed,
			FlaggedAt:  now,
		}
	}
	res.Changed = true
	return res, nil
}

// acceptMissing убирает отсутствующие позиции и пересчитывает суммы.
func acceptMissing(o *models.Order, availability map[string]bool, eff *Effects) error {
	const op = "orders.AcceptWithMissingItems"
	if len(o.Items) == 0 {
		return apperr.PreconditionNotMet(op, "в заказе нет позиций")
	}
	fields := map[string]string{}
	for _, item := range o.Items {
		if _, ok := availability[item.ProductID]; !ok {
			fields[item.ProductID] = "не указано наличие"
		}
	}
	if len(fields) > 0 {
		return apperr.ValidationFields(op, fields)
	}

	var kept, missing []models.LineItem
	removed := decimal.Zero
	subtotal := decimal.Zero
	for _, item := range o.Items {
		line := decimal.NewFromFloat(item.UnitPrice).Mul(decimal.NewFromInt(int64(item.Quantity)))
		if availability[item.ProductID] {
			kept = append(kept, item)
			subtotal = subtotal.Add(line)
		} else {
			missing = append(missing, item)
			removed = removed.Add(line)
		}
	}
	if len(kept) == 0 {
		return apperr.Validation(op, "нет ни одной доступной позиции, заказ нужно отменить")
	}

	subtotal = subtotal.Round(2)
	o.Items = kept
	o.MissingItems = append(o.MissingItems, missing...)
	o.Subtotal = subtotal.InexactFloat64()
	o.Total = subtotal.Add(decimal.NewFromFloat(o.DeliveryFee)).Round(2).InexactFloat64()

	if len(missing) > 0 && o.PaidByCard() {
		amount := removed.Round(2)
		if o.Refund != nil {
			amount = amount.Add(decimal.NewFromFloat(o.Refund.Amount))
		}
		o.Refund = &models.Refund{Required: true, Amount: amount.InexactFloat64(), Reason: "missing_items"}
		eff.RefundOwed = true
		eff.RefundAmount = o.Refund.Amount
	}
	return nil
}

func dispatch(o *models.Order, req Request) error {
	const op = "orders.Dispatch"
	switch {
	case req.Courier != nil && req.Courier.CourierID != "":
		courier := *req.Courier
		courier.AssignedAt = req.Now
		o.Courier = &courier
	case req.Shipment != nil && req.Shipment.Carrier != "" && req.Shipment.TrackingNumber != "":
		o.Shipment = &models.Shipment{
			Carrier:        req.Shipment.Carrier,
			TrackingNumber: req.Shipment.TrackingNumber,
			Status:         models.ShipmentShipped,
			ShippedAt:      req.Now,
		}
	default:
		return apperr.ValidationFields(op, map[string]string{
			"courier": "укажите курьера или перевозчика с номером отслеживания",
		})
	}
	return nil
}

// recordDelivery фиксирует доставку; статус остается in_transit до завершения.
func recordDelivery(res Result, req Request) (Result, error) {
	const op = "orders.RecordDelivery"
	o := &res.Order
	if o.Status != models.StatusInTransit {
		return Result{}, apperr.PreconditionNotMet(op, "доставку можно зафиксировать только для заказа в пути")
	}
	if o.DeliveryRecorded() {
		return res, nil
	}
	if o.Shipment == nil {
		shippedAt := req.Now
		if o.InTransitAt != nil {
			shippedAt = *o.InTransitAt
		}
		carrier := ""
		if o.Courier != nil {
			carrier = o.Courier.CourierName
		}
		o.Shipment = &models.Shipment{Carrier: carrier, ShippedAt: shippedAt}
	}
	deliveredAt := req.Now
	o.Shipment.Status = models.ShipmentDelivered
	o.Shipment.DeliveredAt = &deliveredAt
	o.UpdatedAt = req.Now
	res.Changed = true
	return res, nil
}

func validateCancel(req Request) error {
	const op = "orders.Cancel"
	if !req.Confirm {
		return apperr.Validation(op, "отмена заказа требует подтверждения")
	}
	switch {
	case req.Reason == "" && req.ReasonText == "":
		return apperr.ValidationFields(op, map[string]string{"reason": "укажите причину отмены"})
	case req.Reason == models.ReasonOther || req.Reason == "":
		if req.ReasonText == "" {
			return apperr.ValidationFields(op, map[string]string{"reasonText": "опишите причину отмены"})
		}
	case !req.Reason.Known():
		return apperr.ValidationFields(op, map[string]string{"reason": fmt.Sprintf("неизвестная причина %q", req.Reason)})
	}
	return nil
}

func cancel(o *models.Order, req Request, eff *Effects) {
	reason := req.Reason
	if reason == "" {
		reason = models.ReasonOther
	}
	refundOwed := o.PaymentStatus == models.PaymentPaid
	o.Cancellation = &models.Cancellation{
		Reason:     reason,
		Text:       req.ReasonText,
		RefundOwed: refundOwed,
		ByAdminID:  req.AdminID,
	}
	eff.Reason = reason
	eff.ReasonText = req.ReasonText
	eff.RefundOwed = refundOwed
	if refundOwed {
		// Возврат всей оплаченной суммы: текущий итог плюс ранее удержанная часть.
		amount := decimal.NewFromFloat(o.Total)
		if o.Refund != nil {
			amount = amount.Add(decimal.NewFromFloat(o.Refund.Amount))
		}
		o.Refund = &models.Refund{Required: true, Amount: amount.Round(2).InexactFloat64(), Reason: string(reason)}
		eff.RefundAmount = o.Refund.Amount
	}
}

func stamp(existing *time.Time, now time.Time) *time.Time {
	if existing != nil {
		return existing
	}
	t := now
	return &t
}

func copyOrder(o models.Order) models.Order {
	c := o
	c.Items = append([]models.LineItem(nil), o.Items...)
	c.MissingItems = append([]models.LineItem(nil), o.MissingItems...)
	if o.Cancellation != nil {
		v := *o.Cancellation
		c.Cancellation = &v
	}
	if o.Refund != nil {
		v := *o.Refund
		c.Refund = &v
	}
	if o.Courier != nil {
		v := *o.Courier
		c.Courier = &v
	}
	if o.Shipment != nil {
		v := *o.Shipment
		c.Shipment = &v
	}
	if o.Notification != nil {
		v := *o.Notification
		c.Notification = &v
	}
	return c
}
