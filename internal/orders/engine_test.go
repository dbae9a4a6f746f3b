package orders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketadmin/internal/apperr"
	"marketadmin/internal/models"
)

var testNow = time.Date(2024, 5, 4, 18, 30, 0, 0, time.UTC)

func sampleOrder(status models.Status, channel models.Channel) models.Order {
	return models.Order{
		ID:            "o1",
		OrderNumber:   "A-1001",
		BusinessID:    "b1",
		Items:         []models.LineItem{{ProductID: "p1", Name: "Döner", UnitPrice: 14, Quantity: 3}, {ProductID: "p2", Name: "Ayran", UnitPrice: 8, Quantity: 1}},
		Subtotal:      50,
		DeliveryFee:   0,
		Total:         50,
		Currency:      "EUR",
		PaymentMethod: models.PaymentCard,
		PaymentStatus: models.PaymentPaid,
		Channel:       channel,
		Status:        status,
	}
}

func apply(t *testing.T, o models.Order, req Request) Result {
	t.Helper()
	if req.Now.IsZero() {
		req.Now = testNow
	}
	res, err := Transition(o, req)
	require.NoError(t, err)
	return res
}

func TestAcceptWithMissingItemsScenario(t *testing.T) {
	o := sampleOrder(models.StatusPending, models.ChannelDelivery)

	res := apply(t, o, Request{Action: ActionAcceptMissing, Availability: map[string]bool{"p1": true, "p2": false}})

	assert.True(t, res.Changed)
	assert.Equal(t, models.StatusConfirmed, res.Order.Status)
	assert.Equal(t, 42.0, res.Order.Subtotal)
	assert.Equal(t, 42.0, res.Order.Total)
	assert.Equal(t, res.Order.Subtotal+res.Order.DeliveryFee, res.Order.Total)
	require.NotNil(t, res.Order.Refund)
	assert.Equal(t, 8.0, res.Order.Refund.Amount)
	assert.True(t, res.Effects.RefundOwed)
	assert.Equal(t, 8.0, res.Effects.RefundAmount)
	assert.True(t, res.Effects.NotifyCustomer)
	assert.True(t, res.Order.NotifyCustomer)
	require.Len(t, res.Order.MissingItems, 1)
	assert.Equal(t, "p2", res.Order.MissingItems[0].ProductID)
	assert.Equal(t, testNow, *res.Order.ConfirmedAt)

	// Исходный заказ не изменился.
	assert.Len(t, o.Items, 2)
	assert.Equal(t, models.StatusPending, o.Status)
}

func TestAcceptWithMissingItemsCashHasNoRefund(t *testing.T) {
	o := sampleOrder(models.StatusPending, models.ChannelPickup)
	o.PaymentMethod = models.PaymentCash
	o.PaymentStatus = models.PaymentUnpaid
	o.DeliveryFee = 2.5
	o.Total = 52.5

	res := apply(t, o, Request{Action: ActionAcceptMissing, Availability: map[string]bool{"p1": true, "p2": false}})
	assert.Equal(t, 44.5, res.Order.Total)
	assert.Nil(t, res.Order.Refund)
	assert.False(t, res.Effects.RefundOwed)
}

func TestAcceptWithMissingItemsValidation(t *testing.T) {
	o := sampleOrder(models.StatusPending, models.ChannelDelivery)

	_, err := Transition(o, Request{Action: ActionAcceptMissing, Availability: map[string]bool{"p1": true}, Now: testNow})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = Transition(o, Request{Action: ActionAcceptMissing, Availability: map[string]bool{"p1": false, "p2": false}, Now: testNow})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestCancelScenario(t *testing.T) {
	o := sampleOrder(models.StatusPreparing, models.ChannelDelivery)

	res := apply(t, o, Request{Action: ActionCancel, Reason: models.ReasonCustomerRequest, Confirm: true, AdminID: "a1"})

	assert.Equal(t, models.StatusCancelled, res.Order.Status)
	assert.True(t, res.Effects.RefundOwed)
	assert.True(t, res.Effects.NotifyCustomer)
	assert.Equal(t, 50.0, res.Effects.RefundAmount)
	require.NotNil(t, res.Order.Cancellation)
	assert.Equal(t, models.ReasonCustomerRequest, res.Order.Cancellation.Reason)
	assert.Equal(t, "a1", res.Order.Cancellation.ByAdminID)
	require.NotNil(t, res.Order.Notification)
	assert.True(t, res.Order.Notification.RefundOwed)

	for _, action := range []Action{ActionConfirm, ActionStartPreparing, ActionMarkReady, ActionDispatch, ActionComplete} {
		_, err := Transition(res.Order, Request{Action: action, Now: testNow})
		assert.True(t, apperr.IsKind(err, apperr.KindInvalidTransition), action)
	}
}

func TestCancelAfterPartialRefundReturnsEverything(t *testing.T) {
	o := sampleOrder(models.StatusPending, models.ChannelDelivery)
	accepted := apply(t, o, Request{Action: ActionAcceptMissing, Availability: map[string]bool{"p1": true, "p2": false}})

	res := apply(t, accepted.Order, Request{Action: ActionCancel, Reason: models.ReasonBusinessClosed, Confirm: true})
	assert.Equal(t, 50.0, res.Effects.RefundAmount)
}

func TestCancelUnpaidOwesNoRefund(t *testing.T) {
	o := sampleOrder(models.StatusConfirmed, models.ChannelDineIn)
	o.PaymentStatus = models.PaymentUnpaid

	res := apply(t, o, Request{Action: ActionCancel, ReasonText: "müşteri gelmedi", Confirm: true})
	assert.False(t, res.Effects.RefundOwed)
	assert.Nil(t, res.Order.Refund)
	assert.Equal(t, models.ReasonOther, res.Order.Cancellation.Reason)
	assert.Equal(t, "müşteri gelmedi", res.Order.Cancellation.Text)
}

func TestCancelValidation(t *testing.T) {
	o := sampleOrder(models.StatusPending, models.ChannelDelivery)

	cases := []Request{
		{Action: ActionCancel, Reason: models.ReasonOutOfStock},
		{Action: ActionCancel, Confirm: true},
		{Action: ActionCancel, Reason: models.ReasonOther, Confirm: true},
		{Action: ActionCancel, Reason: "weather", Confirm: true},
	}
	for _, req := range cases {
		req.Now = testNow
		_, err := Transition(o, req)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation), req)
	}
}

func TestCancelTerminalOrderIsInvalidTransition(t *testing.T) {
	o := sampleOrder(models.StatusCompleted, models.ChannelDelivery)

	for _, req := range []Request{
		{Action: ActionCancel, Reason: models.ReasonCustomerRequest},
		{Action: ActionCancel, Reason: models.ReasonCustomerRequest, Confirm: true},
	} {
		req.Now = testNow
		_, err := Transition(o, req)
		assert.True(t, apperr.IsKind(err, apperr.KindInvalidTransition), req)
	}
}

func TestAcceptWithMissingItemsKeepsDeliveryFee(t *testing.T) {
	o := sampleOrder(models.StatusPending, models.ChannelDelivery)
	o.DeliveryFee = 3.50
	o.Total = 53.50

	res := apply(t, o, Request{Action: ActionAcceptMissing, Availability: map[string]bool{"p1": true, "p2": false}})

	assert.Equal(t, 42.0, res.Order.Subtotal)
	assert.Equal(t, 3.50, res.Order.DeliveryFee)
	assert.Equal(t, 45.50, res.Order.Total)
	assert.Equal(t, res.Order.Subtotal+res.Order.DeliveryFee, res.Order.Total)
	require.NotNil(t, res.Order.Refund)
	assert.Equal(t, 8.0, res.Order.Refund.Amount)
}

func TestPendingReachability(t *testing.T) {
	assert.ElementsMatch(t, []models.Status{models.StatusConfirmed, models.StatusCancelled}, Next(models.StatusPending, models.ChannelDelivery))
	assert.Empty(t, Next(models.StatusCompleted, models.ChannelDelivery))
	assert.Empty(t, Next(models.StatusCancelled, models.ChannelPickup))

	o := sampleOrder(models.StatusPending, models.ChannelDelivery)
	for _, action := range []Action{ActionStartPreparing, ActionMarkReady, ActionDispatch, ActionComplete} {
		_, err := Transition(o, Request{Action: action, Now: testNow})
		assert.True(t, apperr.IsKind(err, apperr.KindInvalidTransition), action)
	}
}

func TestRepeatedTransitionIsNoop(t *testing.T) {
	o := sampleOrder(models.StatusPreparing, models.ChannelPickup)

	first := apply(t, o, Request{Action: ActionMarkReady})
	require.True(t, first.Changed)
	readyAt := *first.Order.ReadyAt

	second := apply(t, first.Order, Request{Action: ActionMarkReady, Now: testNow.Add(time.Minute)})
	assert.False(t, second.Changed)
	assert.Equal(t, readyAt, *second.Order.ReadyAt)
	assert.Equal(t, Effects{}, second.Effects)
}

func TestDeliveryFlow(t *testing.T) {
	o := sampleOrder(models.StatusReady, models.ChannelDelivery)

	_, err := Transition(o, Request{Action: ActionComplete, Now: testNow})
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidTransition))

	_, err = Transition(o, Request{Action: ActionDispatch, Now: testNow})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	dispatched := apply(t, o, Request{Action: ActionDispatch, Courier: &models.CourierAssignment{CourierID: "d1", CourierName: "Emre"}})
	assert.Equal(t, models.StatusInTransit, dispatched.Order.Status)
	assert.Equal(t, "d1", dispatched.Order.Courier.CourierID)
	assert.Equal(t, testNow, dispatched.Order.Courier.AssignedAt)

	_, err = Transition(dispatched.Order, Request{Action: ActionComplete, Now: testNow})
	assert.True(t, apperr.IsKind(err, apperr.KindPreconditionNotMet))

	delivered := apply(t, dispatched.Order, Request{Action: ActionRecordDelivery, Now: testNow.Add(20 * time.Minute)})
	assert.True(t, delivered.Changed)
	assert.True(t, delivered.Order.DeliveryRecorded())
	assert.Equal(t, "Emre", delivered.Order.Shipment.Carrier)
	assert.Equal(t, models.StatusInTransit, delivered.Order.Status)

	again := apply(t, delivered.Order, Request{Action: ActionRecordDelivery})
	assert.False(t, again.Changed)

	completed := apply(t, delivered.Order, Request{Action: ActionComplete})
	assert.Equal(t, models.StatusCompleted, completed.Order.Status)
	assert.True(t, completed.Effects.Settle)
}

func TestShipmentDispatch(t *testing.T) {
	o := sampleOrder(models.StatusReady, models.ChannelDelivery)
	res := apply(t, o, Request{Action: ActionDispatch, Shipment: &ShipmentInput{Carrier: "DHL", TrackingNumber: "JD0001"}})
	require.NotNil(t, res.Order.Shipment)
	assert.Equal(t, models.ShipmentShipped, res.Order.Shipment.Status)
	assert.False(t, res.Order.DeliveryRecorded())
}

func TestDispatchRequiresDeliveryChannel(t *testing.T) {
	o := sampleOrder(models.StatusReady, models.ChannelDineIn)
	_, err := Transition(o, Request{Action: ActionDispatch, Courier: &models.CourierAssignment{CourierID: "d1"}, Now: testNow})
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidTransition))

	served := apply(t, o, Request{Action: ActionComplete})
	assert.Equal(t, models.StatusCompleted, served.Order.Status)
}

func TestRecordDeliveryRequiresInTransit(t *testing.T) {
	o := sampleOrder(models.StatusReady, models.ChannelDelivery)
	_, err := Transition(o, Request{Action: ActionRecordDelivery, Now: testNow})
	assert.True(t, apperr.IsKind(err, apperr.KindPreconditionNotMet))
}

func TestUnknownAction(t *testing.T) {
	_, err := Transition(sampleOrder(models.StatusPending, models.ChannelPickup), Request{Action: "teleport"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}
