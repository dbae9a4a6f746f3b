package commission

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"marketadmin/internal/activity"
	"marketadmin/internal/apperr"
	"marketadmin/internal/config"
	"marketadmin/internal/constants"
	"marketadmin/internal/docstore"
	"marketadmin/internal/events"
	"marketadmin/internal/models"
	"marketadmin/internal/session"
)

// Service создает записи комиссии и меняет их статус взыскания.
type Service struct {
	store     docstore.Store
	publisher events.Publisher
	activity  *activity.Log
	plan      models.CommissionPlan
	log       *logrus.Logger
	now       func() time.Time
}

func NewService(store docstore.Store, publisher events.Publisher, act *activity.Log, cfg *config.Config, log *logrus.Logger) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		activity:  act,
		plan:      DefaultPlan(cfg),
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// PlanFor - тариф бизнеса: ставка из документа бизнеса, остальное по умолчанию.
func (s *Service) PlanFor(ctx context.Context, businessID string) (models.CommissionPlan, error) {
	plan := s.plan
	doc, err := s.store.Get(ctx, constants.COLLECTION_BUSINESSES, businessID)
	if errors.Is(err, docstore.ErrNotFound) {
		return plan, nil
	}
	if err != nil {
		return plan, apperr.Remote("commission.PlanFor", err)
	}
	var business models.Business
	if err := docstore.Decode(doc, &business); err != nil {
		return plan, apperr.Remote("commission.PlanFor", err)
	}
	if business.CommissionRate != nil {
		plan.CommissionRate = *business.CommissionRate
	}
	return plan, nil
}

// Settle создает запись комиссии по завершенному заказу. Повторный вызов
// возвращает уже созданную запись: id записи совпадает с id заказа.
func (s *Service) Settle(ctx context.Context, order models.Order) (models.CommissionRecord, error) {
	const op = "commission.Settle"
	if existing, err := s.Get(ctx, order.ID); err == nil {
		return existing, nil
	} else if !apperr.IsKind(err, apperr.KindNotFound) {
		return models.CommissionRecord{}, err
	}

	plan, err := s.PlanFor(ctx, order.BusinessID)
	if err != nil {
		return models.CommissionRecord{}, err
	}
	record, err := Compute(order, plan, s.now())
	if err != nil {
		return models.CommissionRecord{}, err
	}
	doc, err := docstore.Encode(record)
	if err != nil {
		return models.CommissionRecord{}, apperr.Remote(op, err)
	}
	if _, err := s.store.Create(ctx, constants.COLLECTION_COMMISSION_RECORDS, doc); err != nil {
		if errors.Is(err, docstore.ErrAlreadyExists) {
			return s.Get(ctx, order.ID)
		}
		s.log.WithError(err).WithFields(logrus.Fields{"order_id": order.ID, "business_id": order.BusinessID}).
			Error("Не удалось создать запись комиссии")
		return models.CommissionRecord{}, apperr.Remote(op, err)
	}

	s.log.WithFields(logrus.Fields{
		"order_id":         order.ID,
		"business_id":      order.BusinessID,
		"total_commission": record.TotalCommission,
		"collection":       record.CollectionStatus,
	}).Info("Комиссия начислена")
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.CommissionSettledKey, record); err != nil {
			s.log.WithError(err).WithField("order_id", order.ID).Warn("Событие начисления комиссии не опубликовано")
		}
	}
	s.activity.Record(ctx, session.System, models.ActivityLog{
		Action:     "commission.settle",
		TargetType: constants.COLLECTION_COMMISSION_RECORDS,
		TargetID:   record.ID,
		OrderID:    order.ID,
		Category:   models.CategoryCommission,
		Details:    map[string]any{"totalCommission": record.TotalCommission, "businessId": record.BusinessID},
	})
	return record, nil
}

func (s *Service) Get(ctx context.Context, id string) (models.CommissionRecord, error) {
	const op = "commission.Get"
	doc, err := s.store.Get(ctx, constants.COLLECTION_COMMISSION_RECORDS, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return models.CommissionRecord{}, apperr.NotFound(op, "запись комиссии")
	}
	if err != nil {
		s.log.WithError(err).WithField("record_id", id).Error("Ошибка чтения записи комиссии")
		return models.CommissionRecord{}, apperr.Remote(op, err)
	}
	var record models.CommissionRecord
	if err := docstore.Decode(doc, &record); err != nil {
		return models.CommissionRecord{}, apperr.Remote(op, err)
	}
	return record, nil
}

// Advance переводит запись по цепочке pending -> invoiced -> paid.
func (s *Service) Advance(ctx context.Context, admin session.Admin, id string, to models.CollectionStatus) (models.CommissionRecord, error) {
	const op = "commission.Advance"
	if !admin.Role.AtLeast(models.RoleAdmin) {
		return models.CommissionRecord{}, apperr.Forbidden(op, constants.AccessDeniedMessage)
	}
	record, err := s.Get(ctx, id)
	if err != nil {
		return models.CommissionRecord{}, err
	}
	if err := NextCollectionStatus(record.CollectionStatus, to); err != nil {
		return models.CommissionRecord{}, err
	}
	if record.CollectionStatus == to {
		return record, nil
	}

	now := s.now()
	patch := docstore.Document{"collectionStatus": string(to)}
	switch to {
	case models.CollectionInvoiced:
		record.InvoicedAt = &now
		patch["invoicedAt"] = now
	case models.CollectionPaid:
		record.PaidAt = &now
		patch["paidAt"] = now
	}
	if err := s.store.Merge(ctx, constants.COLLECTION_COMMISSION_RECORDS, id, patch); err != nil {
		s.log.WithError(err).WithField("record_id", id).Error("Не удалось обновить статус взыскания")
		return models.CommissionRecord{}, apperr.Remote(op, err)
	}
	from := record.CollectionStatus
	record.CollectionStatus = to

	s.activity.Record(ctx, admin, models.ActivityLog{
		Action:     "commission.collection." + string(to),
		TargetType: constants.COLLECTION_COMMISSION_RECORDS,
		TargetID:   id,
		OrderID:    record.OrderID,
		Category:   models.CategoryCommission,
		Details:    map[string]any{"from": string(from), "to": string(to), "businessId": record.BusinessID},
	})
	return record, nil
}

// Query строит запрос записей по фильтрам с учетом доступа администратора.
func Query(admin session.Admin, filter models.CommissionFilter) (docstore.Query, models.CommissionFilter, error) {
	const op = "commission.Report"
	filter.BusinessID = admin.ScopeBusiness(filter.BusinessID)
	if filter.BusinessID == "" && !admin.Role.AtLeast(models.RoleAdmin) {
		return docstore.Query{}, filter, apperr.Forbidden(op, constants.AccessDeniedMessage)
	}
	if filter.CollectionStatus != "" && !filter.CollectionStatus.Valid() {
		return docstore.Query{}, filter, apperr.ValidationFields(op, map[string]string{"collectionStatus": "неизвестный статус"})
	}
	q := docstore.Query{Collection: constants.COLLECTION_COMMISSION_RECORDS, OrderBy: "createdAt", Desc: true}
	if filter.Period != "" {
		q.Filters = append(q.Filters, docstore.Where("period", docstore.OpEq, filter.Period))
	}
	if filter.BusinessID != "" {
		q.Filters = append(q.Filters, docstore.Where("businessId", docstore.OpEq, filter.BusinessID))
	}
	if filter.CollectionStatus != "" {
		q.Filters = append(q.Filters, docstore.Where("collectionStatus", docstore.OpEq, string(filter.CollectionStatus)))
	}
	return q, filter, nil
}

// Records - записи по фильтрам, новые первыми.
func (s *Service) Records(ctx context.Context, admin session.Admin, filter models.CommissionFilter) ([]models.CommissionRecord, error) {
	q, _, err := Query(admin, filter)
	if err != nil {
		return nil, err
	}
	docs, err := s.store.Find(ctx, q)
	if err != nil {
		s.log.WithError(err).Error("Ошибка получения записей комиссии")
		return nil, apperr.Remote("commission.Records", err)
	}
	records, err := docstore.DecodeAll[models.CommissionRecord](docs)
	if err != nil {
		return nil, apperr.Remote("commission.Records", err)
	}
	return records, nil
}

// Report пересчитывает отчет по текущим записям.
func (s *Service) Report(ctx context.Context, admin session.Admin, filter models.CommissionFilter) (models.CommissionReport, error) {
	q, filter, err := Query(admin, filter)
	if err != nil {
		return models.CommissionReport{}, err
	}
	docs, err := s.store.Find(ctx, q)
	if err != nil {
		s.log.WithError(err).WithField("period", filter.Period).Error("Ошибка получения записей комиссии для отчета")
		return models.CommissionReport{}, apperr.Remote("commission.Report", err)
	}
	return Aggregate(docs, filter, s.log), nil
}

// Watch пересчитывает отчет на каждом снимке записей.
func (s *Service) Watch(ctx context.Context, admin session.Admin, filter models.CommissionFilter, handler func(seq uint64, report models.CommissionReport)) (docstore.Subscription, error) {
	q, filter, err := Query(admin, filter)
	if err != nil {
		return nil, err
	}
	sub, err := s.store.Subscribe(ctx, q, func(snap docstore.Snapshot) {
		handler(snap.Seq, Aggregate(snap.Docs, filter, s.log))
	})
	if err != nil {
		return nil, apperr.Remote("commission.Watch", err)
	}
	return sub, nil
}
