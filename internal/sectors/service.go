// Package sectors - справочник вертикалей маркетплейса.
package sectors

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"marketadmin/internal/activity"
	"marketadmin/internal/apperr"
	"marketadmin/internal/constants"
	"marketadmin/internal/docstore"
	"marketadmin/internal/models"
	"marketadmin/internal/session"
	"marketadmin/internal/validation"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type catalogue struct {
	Sectors []models.Sector `yaml:"sectors"`
}

// Defaults разбирает встроенный справочник вертикалей.
func Defaults() ([]models.Sector, error) {
	var c catalogue
	if err := yaml.Unmarshal(defaultsYAML, &c); err != nil {
		return nil, fmt.Errorf("sectors: разбор справочника по умолчанию: %w", err)
	}
	return c.Sectors, nil
}

type Service struct {
	store    docstore.Store
	activity *activity.Log
	log      *logrus.Logger
	now      func() time.Time
}

func NewService(store docstore.Store, act *activity.Log, log *logrus.Logger) *Service {
	return &Service{store: store, activity: act, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// List - все вертикали по sortOrder, затем по имени.
func (s *Service) List(ctx context.Context) ([]models.Sector, error) {
	docs, err := s.store.Find(ctx, docstore.Query{Collection: constants.COLLECTION_SECTORS, OrderBy: "sortOrder"})
	if err != nil {
		s.log.WithError(err).Error("Ошибка получения вертикалей")
		return nil, apperr.Remote("sectors.List", err)
	}
	list, err := docstore.DecodeAll[models.Sector](docs)
	if err != nil {
		return nil, apperr.Remote("sectors.List", err)
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].SortOrder != list[j].SortOrder {
			return list[i].SortOrder < list[j].SortOrder
		}
		return list[i].Name < list[j].Name
	})
	return list, nil
}

func (s *Service) Get(ctx context.Context, id string) (models.Sector, error) {
	const op = "sectors.Get"
	doc, err := s.store.Get(ctx, constants.COLLECTION_SECTORS, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return models.Sector{}, apperr.NotFound(op, "сектор")
	}
	if err != nil {
		s.log.WithError(err).WithField("sector_id", id).Error("Ошибка чтения вертикали")
		return models.Sector{}, apperr.Remote(op, err)
	}
	var sector models.Sector
	if err := docstore.Decode(doc, &sector); err != nil {
		return models.Sector{}, apperr.Remote(op, err)
	}
	return sector, nil
}

func (s *Service) Create(ctx context.Context, admin session.Admin, sector models.Sector) (models.Sector, error) {
	const op = "sectors.Create"
	if err := s.check(op, admin, &sector); err != nil {
		return models.Sector{}, err
	}
	if sector.ID == "" {
		sector.ID = uuid.NewString()
	}
	now := s.now()
	sector.CreatedAt, sector.UpdatedAt = now, now
	doc, err := docstore.Encode(sector)
	if err != nil {
		return models.Sector{}, apperr.Remote(op, err)
	}
	if _, err := s.store.Create(ctx, constants.COLLECTION_SECTORS, doc); err != nil {
		if errors.Is(err, docstore.ErrAlreadyExists) {
			return models.Sector{}, apperr.ValidationFields(op, map[string]string{"id": "уже существует"})
		}
		s.log.WithError(err).WithField("sector_id", sector.ID).Error("Ошибка создания вертикали")
		return models.Sector{}, apperr.Remote(op, err)
	}
	s.record(ctx, admin, "sector.create", sector.ID)
	return sector, nil
}

// Update заменяет поля вертикали; дата создания сохраняется.
func (s *Service) Update(ctx context.Context, admin session.Admin, id string, sector models.Sector) (models.Sector, error) {
	const op = "sectors.Update"
	if err := s.check(op, admin, &sector); err != nil {
		return models.Sector{}, err
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return models.Sector{}, err
	}
	sector.ID = id
	sector.CreatedAt = existing.CreatedAt
	sector.UpdatedAt = s.now()
	doc, err := docstore.Encode(sector)
	if err != nil {
		return models.Sector{}, apperr.Remote(op, err)
	}
	delete(doc, "id")
	if err := s.store.Merge(ctx, constants.COLLECTION_SECTORS, id, doc); err != nil {
		s.log.WithError(err).WithField("sector_id", id).Error("Ошибка обновления вертикали")
		return models.Sector{}, apperr.Remote(op, err)
	}
	s.record(ctx, admin, "sector.update", id)
	return sector, nil
}

func (s *Service) Delete(ctx context.Context, admin session.Admin, id string) error {
	const op = "sectors.Delete"
	if !admin.Role.AtLeast(models.RoleAdmin) {
		return apperr.Forbidden(op, constants.AccessDeniedMessage)
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, constants.COLLECTION_SECTORS, id); err != nil {
		s.log.WithError(err).WithField("sector_id", id).Error("Ошибка удаления вертикали")
		return apperr.Remote(op, err)
	}
	s.record(ctx, admin, "sector.delete", id)
	return nil
}

// SeedDefaults добавляет вертикали из встроенного справочника, которых еще нет.
// Возвращает id добавленных.
func (s *Service) SeedDefaults(ctx context.Context, admin session.Admin) ([]string, error) {
	const op = "sectors.SeedDefaults"
	if !admin.Role.AtLeast(models.RoleAdmin) {
		return nil, apperr.Forbidden(op, constants.AccessDeniedMessage)
	}
	defaults, err := Defaults()
	if err != nil {
		return nil, err
	}
	created := []string{}
	for _, sector := range defaults {
		now := s.now()
		sector.CreatedAt, sector.UpdatedAt = now, now
		doc, err := docstore.Encode(sector)
		if err != nil {
			return created, apperr.Remote(op, err)
		}
		if _, err := s.store.Create(ctx, constants.COLLECTION_SECTORS, doc); err != nil {
			if errors.Is(err, docstore.ErrAlreadyExists) {
				continue
			}
			s.log.WithError(err).WithField("sector_id", sector.ID).Error("Ошибка добавления вертикали по умолчанию")
			return created, apperr.Remote(op, err)
		}
		created = append(created, sector.ID)
	}
	s.log.WithField("created", len(created)).Info("Вертикали по умолчанию добавлены")
	if len(created) > 0 {
		s.record(ctx, admin, "sector.seed", strings.Join(created, ","))
	}
	return created, nil
}

func (s *Service) check(op string, admin session.Admin, sector *models.Sector) error {
	if !admin.Role.AtLeast(models.RoleAdmin) {
		return apperr.Forbidden(op, constants.AccessDeniedMessage)
	}
	sector.Name = strings.TrimSpace(sector.Name)
	sector.Category = strings.TrimSpace(sector.Category)
	return validation.Struct(op, *sector)
}

func (s *Service) record(ctx context.Context, admin session.Admin, action, id string) {
	s.activity.Record(ctx, admin, models.ActivityLog{
		Action:     action,
		TargetType: constants.COLLECTION_SECTORS,
		TargetID:   id,
		Category:   models.CategorySector,
	})
}
