package shifts

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"marketadmin/internal/apperr"
	"marketadmin/internal/constants"
	"marketadmin/internal/docstore"
	"marketadmin/internal/models"
	"marketadmin/internal/session"
	"marketadmin/internal/utils"
)

// Service читает смены бизнеса (businesses/{id}/shifts).
type Service struct {
	store docstore.Store
	log   *logrus.Logger
	loc   *time.Location
}

// NewService; loc - часовой пояс для времени начала и конца смен в отчетах.
func NewService(store docstore.Store, log *logrus.Logger, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: store, log: log, loc: loc}
}

// List - смены за месяц "YYYY-MM", новые первыми.
func (s *Service) List(ctx context.Context, admin session.Admin, businessID, period string) ([]models.ShiftRecord, error) {
	const op = "shifts.List"
	if businessID == "" {
		return nil, apperr.ValidationFields(op, map[string]string{"businessId": "обязательное поле"})
	}
	if !admin.CanAccessBusiness(businessID) {
		return nil, apperr.Forbidden(op, constants.AccessDeniedMessage)
	}
	start, end, err := utils.ParsePeriod(period)
	if err != nil {
		return nil, apperr.ValidationFields(op, map[string]string{"period": err.Error()})
	}

	q := docstore.Query{
		Collection: constants.ShiftsCollection(businessID),
		Filters: []docstore.Filter{
			docstore.Where("date", docstore.OpGte, start.Format("2006-01-02")),
			docstore.Where("date", docstore.OpLte, end.AddDate(0, 0, -1).Format("2006-01-02")),
		},
		OrderBy: "date",
		Desc:    true,
	}
	docs, err := s.store.Find(ctx, q)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"business_id": businessID, "period": period}).Error("Ошибка получения смен")
		return nil, apperr.Remote(op, err)
	}
	shifts, err := docstore.DecodeAll[models.ShiftRecord](docs)
	if err != nil {
		return nil, apperr.Remote(op, err)
	}
	for i := range shifts {
		if shifts[i].BusinessID == "" {
			shifts[i].BusinessID = businessID
		}
		if shifts[i].PauseMinutes > shifts[i].TotalMinutes || shifts[i].PauseMinutes < 0 {
			s.log.WithFields(logrus.Fields{"shift_id": shifts[i].ID, "business_id": businessID}).
				Warn("Смена с некорректными минутами паузы, значение ограничено")
		}
	}
	return shifts, nil
}

// Summary - смены и свод по сотрудникам за месяц.
func (s *Service) Summary(ctx context.Context, admin session.Admin, businessID, period string) ([]models.ShiftRecord, []models.StaffSummary, error) {
	shifts, err := s.List(ctx, admin, businessID, period)
	if err != nil {
		return nil, nil, err
	}
	return shifts, Rollup(shifts), nil
}

// Report готовит выгрузку за месяц; без смен возвращает ValidationError.
func (s *Service) Report(ctx context.Context, admin session.Admin, businessID, period string) (*Report, error) {
	shifts, err := s.List(ctx, admin, businessID, period)
	if err != nil {
		return nil, err
	}
	return NewReport(period, s.businessName(ctx, businessID), shifts, s.loc)
}

func (s *Service) businessName(ctx context.Context, businessID string) string {
	doc, err := s.store.Get(ctx, constants.COLLECTION_BUSINESSES, businessID)
	if err != nil {
		if !errors.Is(err, docstore.ErrNotFound) {
			s.log.WithError(err).WithField("business_id", businessID).Warn("Не удалось прочитать название бизнеса для отчета")
		}
		return ""
	}
	var business models.Business
	if err := docstore.Decode(doc, &business); err != nil {
		return ""
	}
	return business.Name
}
