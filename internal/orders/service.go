package orders

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"marketadmin/internal/activity"
	"marketadmin/internal/apperr"
	"marketadmin/internal/constants"
	"marketadmin/internal/docstore"
	"marketadmin/internal/events"
	"marketadmin/internal/formatters"
	"marketadmin/internal/models"
	"marketadmin/internal/notify"
	"marketadmin/internal/session"
)

// Notifier - рассылка уведомлений по каналам.
type Notifier interface {
	Dispatch(ctx context.Context, to notify.Recipient, msg notify.Message, channels ...notify.Channel) notify.Report
}

// Settler начисляет комиссию по завершенному заказу.
type Settler interface {
	Settle(ctx context.Context, order models.Order) (models.CommissionRecord, error)
}

// Service применяет переходы к заказам в хранилище и выполняет побочные действия.
type Service struct {
	store     docstore.Store
	publisher events.Publisher
	notifier  Notifier
	activity  *activity.Log
	settler   Settler
	log       *logrus.Logger

	operatorChatID int64
	now            func() time.Time
	wg             sync.WaitGroup
}

// Deps - зависимости сервиса заказов.
type Deps struct {
	Store          docstore.Store
	Publisher      events.Publisher
	Notifier       Notifier
	Activity       *activity.Log
	Settler        Settler
	Log            *logrus.Logger
	OperatorChatID int64
}

func NewService(d Deps) *Service {
	return &Service{
		store:          d.Store,
		publisher:      d.Publisher,
		notifier:       d.Notifier,
		activity:       d.Activity,
		settler:        d.Settler,
		log:            d.Log,
		operatorChatID: d.OperatorChatID,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// ValidCollection - заказы ресторанов и кермесов (orders) или магазина (shop_orders).
func ValidCollection(collection string) bool {
	return collection == constants.COLLECTION_ORDERS || collection == constants.COLLECTION_SHOP_ORDERS
}

// Get читает заказ с проверкой доступа к бизнесу.
func (s *Service) Get(ctx context.Context, admin session.Admin, collection, id string) (models.Order, error) {
	const op = "orders.Get"
	if !ValidCollection(collection) {
		return models.Order{}, apperr.Validation(op, "неизвестная коллекция заказов: "+collection)
	}
	doc, err := s.store.Get(ctx, collection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return models.Order{}, apperr.NotFound(op, "заказ")
	}
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"order_id": id, "collection": collection}).Error("Ошибка чтения заказа")
		return models.Order{}, apperr.Remote(op, err)
	}
	var order models.Order
	if err := docstore.Decode(doc, &order); err != nil {
		return models.Order{}, apperr.Remote(op, err)
	}
	if !admin.CanAccessBusiness(order.BusinessID) {
		return models.Order{}, apperr.Forbidden(op, constants.AccessDeniedMessage)
	}
	return order, nil
}

// Apply применяет действие к заказу. Повтор уже примененного действия ничего не пишет.
func (s *Service) Apply(ctx context.Context, admin session.Admin, collection, id string, req Request) (Result, error) {
	const op = "orders.Apply"
	order, err := s.Get(ctx, admin, collection, id)
	if err != nil {
		return Result{}, err
	}

	req.Now = s.now()
	req.AdminID = admin.ID
	res, err := Transition(order, req)
	if err != nil {
		return Result{}, err
	}
	if !res.Changed {
		return res, nil
	}

	patch, err := docstore.Encode(res.Order)
	if err != nil {
		return Result{}, apperr.Remote(op, err)
	}
	delete(patch, "id")
	delete(patch, "createdAt")
	if err := s.store.Merge(ctx, collection, id, patch); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"order_id":   id,
			"collection": collection,
			"action":     req.Action,
		}).Error("Не удалось сохранить новый статус заказа")
		if errors.Is(err, docstore.ErrNotFound) {
			return Result{}, apperr.NotFound(op, "заказ")
		}
		return Result{}, apperr.Remote(op, err)
	}

	s.log.WithFields(logrus.Fields{
		"order_id": id,
		"from":     res.From,
		"to":       res.To,
		"action":   req.Action,
		"admin_id": admin.ID,
	}).Info("Статус заказа изменен")

	s.publish(ctx, collection, admin, res)
	s.activity.Record(ctx, admin, models.ActivityLog{
		Action:     "order." + string(req.Action),
		TargetType: collection,
		TargetID:   id,
		OrderID:    id,
		Category:   models.CategoryOrder,
		Details: map[string]any{
			"orderNumber": res.Order.OrderNumber,
			"from":        string(res.From),
			"to":          string(res.To),
			"refundOwed":  res.Effects.RefundOwed,
		},
	})
	if res.Effects.NotifyCustomer {
		s.notifyCustomer(ctx, res.Order)
	}
	if res.Effects.RefundOwed {
		s.alertOperator(ctx, res.Order)
	}
	if res.Effects.Settle && s.settler != nil {
		if _, err := s.settler.Settle(ctx, res.Order); err != nil {
			// Начисление можно повторить вручную: оно идемпотентно.
			s.log.WithError(err).WithField("order_id", id).Error("Не удалось начислить комиссию по завершенному заказу")
		}
	}
	return res, nil
}

// Delete безвозвратно удаляет заказ. Не является переходом статуса.
func (s *Service) Delete(ctx context.Context, admin session.Admin, collection, id string, confirm bool) error {
	const op = "orders.Delete"
	if !confirm {
		return apperr.Validation(op, "удаление заказа требует подтверждения")
	}
	order, err := s.Get(ctx, admin, collection, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, collection, id); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"order_id": id, "collection": collection}).Error("Ошибка удаления заказа")
		return apperr.Remote(op, err)
	}
	s.log.WithFields(logrus.Fields{"order_id": id, "admin_id": admin.ID}).Warn("Заказ удален")
	s.activity.Record(ctx, admin, models.ActivityLog{
		Action:     "order.delete",
		TargetType: collection,
		TargetID:   id,
		OrderID:    id,
		Category:   models.CategoryOrder,
		Details:    map[string]any{"orderNumber": order.OrderNumber, "status": string(order.Status)},
	})
	return nil
}

// ListQuery строит запрос вкладки заказов: группа статусов и бизнес.
func ListQuery(admin session.Admin, collection, group, businessID string, limit int) (docstore.Query, error) {
	const op = "orders.List"
	if !ValidCollection(collection) {
		return docstore.Query{}, apperr.Validation(op, "неизвестная коллекция заказов: "+collection)
	}
	q := docstore.Query{Collection: collection, OrderBy: "createdAt", Desc: true, Limit: limit}
	if q.Limit <= 0 {
		q.Limit = constants.OrdersPerPage
	}
	if group != "" && group != constants.ORDER_GROUP_ALL {
		statuses, ok := constants.OrderGroupStatuses[group]
		if !ok {
			return docstore.Query{}, apperr.Validation(op, "неизвестная группа заказов: "+group)
		}
		values := make([]string, 0, len(statuses))
		for _, st := range statuses {
			values = append(values, string(st))
		}
		q.Filters = append(q.Filters, docstore.Where("status", docstore.OpIn, values))
	}
	if scoped := admin.ScopeBusiness(businessID); scoped != "" {
		q.Filters = append(q.Filters, docstore.Where("businessId", docstore.OpEq, scoped))
	} else if !admin.Role.AtLeast(models.RoleAdmin) {
		return docstore.Query{}, apperr.Forbidden(op, constants.AccessDeniedMessage)
	}
	return q, nil
}

// List возвращает заказы вкладки, новые первыми.
func (s *Service) List(ctx context.Context, admin session.Admin, collection, group, businessID string, limit int) ([]models.Order, error) {
	const op = "orders.List"
	q, err := ListQuery(admin, collection, group, businessID, limit)
	if err != nil {
		return nil, err
	}
	docs, err := s.store.Find(ctx, q)
	if err != nil {
		s.log.WithError(err).WithField("collection", collection).Error("Ошибка получения списка заказов")
		return nil, apperr.Remote(op, err)
	}
	orders, err := docstore.DecodeAll[models.Order](docs)
	if err != nil {
		return nil, apperr.Remote(op, err)
	}
	return orders, nil
}

// Watch подписывает на вкладку заказов; handler получает весь список при каждом изменении.
func (s *Service) Watch(ctx context.Context, admin session.Admin, collection, group, businessID string, handler func(seq uint64, orders []models.Order)) (docstore.Subscription, error) {
	const op = "orders.Watch"
	q, err := ListQuery(admin, collection, group, businessID, 0)
	if err != nil {
		return nil, err
	}
	sub, err := s.store.Subscribe(ctx, q, func(snap docstore.Snapshot) {
		orders, err := docstore.DecodeAll[models.Order](snap.Docs)
		if err != nil {
			s.log.WithError(err).WithField("collection", collection).Warn("Снимок заказов пропущен: ошибка декодирования")
			return
		}
		handler(snap.Seq, orders)
	})
	if err != nil {
		return nil, apperr.Remote(op, err)
	}
	return sub, nil
}

// Wait дожидается фоновых уведомлений (при остановке сервера и в тестах).
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) publish(ctx context.Context, collection string, admin session.Admin, res Result) {
	if s.publisher == nil {
		return
	}
	ev := events.OrderStatusEvent{
		OrderID:        res.Order.ID,
		OrderNumber:    res.Order.OrderNumber,
		Collection:     collection,
		BusinessID:     res.Order.BusinessID,
		From:           res.From,
		To:             res.To,
		NotifyCustomer: res.Effects.NotifyCustomer,
		RefundOwed:     res.Effects.RefundOwed,
		RefundAmount:   res.Effects.RefundAmount,
		ActorID:        admin.ID,
		ChangedAt:      res.Order.UpdatedAt,
	}
	if err := s.publisher.Publish(ctx, events.OrderStatusKey(res.To), ev); err != nil {
		s.log.WithError(err).WithField("order_id", res.Order.ID).Warn("Событие статуса заказа не опубликовано")
	}
}

// notifyCustomer рассылает уведомление в фоне: оно не блокирует и не ломает переход.
func (s *Service) notifyCustomer(ctx context.Context, order models.Order) {
	if s.notifier == nil {
		return
	}
	to := notify.Recipient{Name: order.CustomerName, Email: order.CustomerEmail, Phone: order.CustomerPhone}
	if to.Email == "" && to.Phone == "" {
		return
	}
	subject, body := formatters.FormatOrderStatusForCustomer(order)
	bg := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		report := s.notifier.Dispatch(bg, to, notify.Message{Subject: subject, Body: body},
			notify.ChannelEmail, notify.ChannelSMS, notify.ChannelWhatsApp)
		entry := s.log.WithFields(logrus.Fields{"order_id": order.ID, "channels": report.String()})
		if err := report.Err(); err != nil {
			entry.WithError(err).Warn("Уведомление клиента доставлено не по всем каналам")
			return
		}
		entry.Debug("Клиент уведомлен о смене статуса")
	}()
}

func (s *Service) alertOperator(ctx context.Context, order models.Order) {
	if s.notifier == nil || s.operatorChatID == 0 {
		return
	}
	bg := context.WithoutCancel(ctx)
	text := formatters.FormatRefundAlertForOperator(order)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		report := s.notifier.Dispatch(bg, notify.Recipient{Name: "operator", TelegramChatID: s.operatorChatID},
			notify.Message{Body: text, HTML: text}, notify.ChannelTelegram)
		if err := report.Err(); err != nil {
			s.log.WithError(err).WithField("order_id", order.ID).Warn("Оператор не получил сообщение о возврате")
		}
	}()
}
