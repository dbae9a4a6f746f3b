// Package activity ведет журнал действий администраторов (коллекция activity_logs).
// Записи только добавляются; чтение с фильтрами по автору, заказу, категории и окну дат.
package activity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"marketadmin/internal/apperr"
	"marketadmin/internal/constants"
	"marketadmin/internal/docstore"
	"marketadmin/internal/models"
	"marketadmin/internal/session"
	"marketadmin/internal/utils"
)

// Log - журнал действий.
type Log struct {
	store docstore.Store
	log   *logrus.Logger
	now   func() time.Time
}

func New(store docstore.Store, log *logrus.Logger) *Log {
	return &Log{store: store, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Append добавляет запись от имени администратора.
func (l *Log) Append(ctx context.Context, admin session.Admin, entry models.ActivityLog) error {
	const op = "activity.Append"
	if entry.Action == "" {
		return apperr.Validation(op, "не указано действие")
	}
	entry.ID = ""
	entry.ActorID = admin.ID
	entry.ActorName = admin.Name
	entry.ActorRole = admin.Role
	entry.ActorPhone = admin.Phone
	if normalized, err := utils.NormalizePhone(admin.Phone); err == nil {
		entry.ActorPhone = normalized
	}
	entry.CreatedAt = l.now()

	doc, err := docstore.Encode(entry)
	if err != nil {
		return apperr.Remote(op, err)
	}
	delete(doc, "id")
	if _, err := l.store.Create(ctx, constants.COLLECTION_ACTIVITY_LOGS, doc); err != nil {
		l.log.WithError(err).WithFields(logrus.Fields{
			"action":   entry.Action,
			"actor_id": entry.ActorID,
		}).Error("Не удалось записать действие в журнал")
		return apperr.Remote(op, err)
	}
	return nil
}

// Record пишет запись и не возвращает ошибку: журнал не должен ломать основную операцию.
func (l *Log) Record(ctx context.Context, admin session.Admin, entry models.ActivityLog) {
	_ = l.Append(ctx, admin, entry)
}

// Filter - фильтры чтения журнала; пустые поля не фильтруют.
type Filter struct {
	Actor    string // телефон или id автора
	OrderID  string
	Category models.ActivityCategory
	Window   string // today, 7d, 30d, all
	Limit    int
}

// List возвращает записи по фильтрам, новые первыми.
func (l *Log) List(ctx context.Context, f Filter) ([]models.ActivityLog, error) {
	const op = "activity.List"
	q := docstore.Query{
		Collection: constants.COLLECTION_ACTIVITY_LOGS,
		OrderBy:    "createdAt",
		Desc:       true,
		Limit:      f.Limit,
	}
	if q.Limit <= 0 {
		q.Limit = constants.ActivityLogsPerPage
	}

	since, err := WindowStart(f.Window, l.now())
	if err != nil {
		return nil, apperr.Validation(op, err.Error())
	}
	if !since.IsZero() {
		q.Filters = append(q.Filters, docstore.Where("createdAt", docstore.OpGte, since))
	}
	if actor := strings.TrimSpace(f.Actor); actor != "" {
		if variants := utils.PhoneVariants(actor); utils.LooksLikePhone(actor) && len(variants) > 0 {
			q.Filters = append(q.Filters, docstore.Where("actorPhone", docstore.OpIn, variants))
		} else {
			q.Filters = append(q.Filters, docstore.Where("actorId", docstore.OpEq, actor))
		}
	}
	if f.OrderID != "" {
		q.Filters = append(q.Filters, docstore.Where("orderId", docstore.OpEq, f.OrderID))
	}
	if f.Category != "" {
		q.Filters = append(q.Filters, docstore.Where("category", docstore.OpEq, string(f.Category)))
	}

	docs, err := l.store.Find(ctx, q)
	if err != nil {
		l.log.WithError(err).Error("Ошибка чтения журнала действий")
		return nil, apperr.Remote(op, err)
	}
	entries, err := docstore.DecodeAll[models.ActivityLog](docs)
	if err != nil {
		return nil, apperr.Remote(op, err)
	}
	return entries, nil
}

// WindowStart - начало окна дат; для "all" и пустого окна - нулевое время.
// "today" начинается с полуночи UTC.
func WindowStart(window string, now time.Time) (time.Time, error) {
	now = now.UTC()
	switch window {
	case "", constants.WINDOW_ALL:
		return time.Time{}, nil
	case constants.WINDOW_TODAY:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	case constants.WINDOW_7D:
		return now.AddDate(0, 0, -7), nil
	case constants.WINDOW_30D:
		return now.AddDate(0, 0, -30), nil
	}
	return time.Time{}, fmt.Errorf("неизвестное окно дат: %q", window)
}
