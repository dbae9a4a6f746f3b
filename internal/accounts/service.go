// Package accounts - операция create-user: учетная запись, профиль, назначение роли
// и приветственное уведомление.
package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"marketadmin/internal/activity"
	"marketadmin/internal/apperr"
	"marketadmin/internal/config"
	"marketadmin/internal/constants"
	"marketadmin/internal/docstore"
	"marketadmin/internal/formatters"
	"marketadmin/internal/models"
	"marketadmin/internal/notify"
	"marketadmin/internal/session"
	"marketadmin/internal/utils"
	"marketadmin/internal/validation"
)

// Identities - провайдер учетных записей.
type Identities interface {
	CreateIdentity(ctx context.Context, email, phone, password string) (models.Identity, error)
	DeleteIdentity(ctx context.Context, id string) error
}

type Notifier interface {
	Dispatch(ctx context.Context, to notify.Recipient, msg notify.Message, channels ...notify.Channel) notify.Report
}

// CreateUserInput - форма создания пользователя.
type CreateUserInput struct {
	FirstName  string      `json:"firstName" validate:"required,max=100,no_xss"`
	LastName   string      `json:"lastName" validate:"max=100,no_xss"`
	Email      string      `json:"email" validate:"omitempty,email"`
	Phone      string      `json:"phone" validate:"phone"`
	Password   string      `json:"password" validate:"required,min=6,max=72"`
	Role       models.Role `json:"role" validate:"required,oneof=admin business_owner staff driver customer"`
	BusinessID string      `json:"businessId"`
	PostalCode string      `json:"postalCode" validate:"omitempty,max=10"`
	City       string      `json:"city" validate:"max=100,no_xss"`
	// Channels - каналы приветствия; пусто - email, SMS и WhatsApp.
	Channels []notify.Channel `json:"channels"`
}

// CreateUserResult - созданные записи и исход приветствия по каналам.
type CreateUserResult struct {
	User          models.User         `json:"user"`
	Admin         *models.AdminRecord `json:"admin,omitempty"`
	Notifications notify.Report       `json:"notifications"`
}

type Service struct {
	store      docstore.Store
	identities Identities
	notifier   Notifier
	activity   *activity.Log
	consoleURL string
	log        *logrus.Logger
	now        func() time.Time
}

func NewService(store docstore.Store, identities Identities, notifier Notifier, act *activity.Log, cfg *config.Config, log *logrus.Logger) *Service {
	return &Service{
		store:      store,
		identities: identities,
		notifier:   notifier,
		activity:   act,
		consoleURL: cfg.ConsoleURL,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreateUser заводит пользователя. Записи создаются по очереди без транзакции:
// при сбое уже созданные записи удаляются. Сбой приветствия не отменяет создание.
func (s *Service) CreateUser(ctx context.Context, admin session.Admin, in CreateUserInput) (CreateUserResult, error) {
	const op = "accounts.CreateUser"
	if err := validation.Struct(op, in); err != nil {
		return CreateUserResult{}, err
	}
	if strings.TrimSpace(in.Email) == "" && strings.TrimSpace(in.Phone) == "" {
		return CreateUserResult{}, apperr.ValidationFields(op, map[string]string{"email": "укажите email или телефон"})
	}
	if !canCreate(admin, in.Role) {
		return CreateUserResult{}, apperr.Forbidden(op, constants.AccessDeniedMessage)
	}
	for _, ch := range in.Channels {
		switch ch {
		case notify.ChannelEmail, notify.ChannelSMS, notify.ChannelWhatsApp, notify.ChannelTelegram:
		default:
			return CreateUserResult{}, apperr.ValidationFields(op, map[string]string{"channels": "неизвестный канал: " + string(ch)})
		}
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	var phone string
	if in.Phone != "" {
		normalized, err := utils.NormalizePhone(in.Phone)
		if err != nil {
			return CreateUserResult{}, apperr.ValidationFields(op, map[string]string{"phone": err.Error()})
		}
		phone = normalized
	}

	var business models.Business
	if in.Role.BusinessScoped() {
		businessID := admin.ScopeBusiness(in.BusinessID)
		if businessID == "" {
			return CreateUserResult{}, apperr.ValidationFields(op, map[string]string{"businessId": "обязательное поле для этой роли"})
		}
		var err error
		if business, err = s.business(ctx, businessID); err != nil {
			return CreateUserResult{}, err
		}
	}

	identity, err := s.identities.CreateIdentity(ctx, email, phone, in.Password)
	if err != nil {
		return CreateUserResult{}, err
	}

	now := s.now()
	user := models.User{
		ID:         identity.ID,
		FirstName:  strings.TrimSpace(in.FirstName),
		LastName:   strings.TrimSpace(in.LastName),
		Email:      email,
		Phone:      phone,
		PostalCode: strings.TrimSpace(in.PostalCode),
		City:       strings.TrimSpace(in.City),
		Role:       in.Role,
		BusinessID: business.ID,
		CreatedAt:  now,
	}
	if err := s.create(ctx, constants.COLLECTION_USERS, user); err != nil {
		s.rollback(ctx, identity.ID, "")
		return CreateUserResult{}, apperr.Remote(op, err)
	}

	result := CreateUserResult{User: user}
	if in.Role != models.RoleCustomer {
		record := models.AdminRecord{
			ID:           identity.ID,
			Name:         user.DisplayName(),
			Email:        email,
			Phone:        phone,
			Role:         in.Role,
			BusinessID:   business.ID,
			BusinessName: business.Name,
			IsActive:     true,
			CreatedAt:    now,
		}
		if err := s.create(ctx, constants.COLLECTION_ADMINS, record); err != nil {
			s.rollback(ctx, identity.ID, user.ID)
			return CreateUserResult{}, apperr.Remote(op, err)
		}
		result.Admin = &record
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role, "business_id": user.BusinessID}).
		Info("Пользователь создан")
	result.Notifications = s.welcome(ctx, user, business.Name, in.Channels)

	s.activity.Record(ctx, admin, models.ActivityLog{
		Action:     "user.create",
		TargetType: constants.COLLECTION_USERS,
		TargetID:   user.ID,
		Category:   models.CategoryUser,
		Details: map[string]any{
			"role":          string(user.Role),
			"businessId":    user.BusinessID,
			"notifications": result.Notifications.String(),
		},
	})
	return result, nil
}

// canCreate - администраторы создают роли ниже своей и клиентов;
// владелец бизнеса - только персонал и курьеров.
func canCreate(admin session.Admin, role models.Role) bool {
	if !admin.Role.AtLeast(models.RoleBusinessOwner) {
		return false
	}
	if admin.Role == models.RoleBusinessOwner {
		return role == models.RoleStaff || role == models.RoleDriver
	}
	return role.Level() < admin.Role.Level()
}

func (s *Service) welcome(ctx context.Context, user models.User, businessName string, channels []notify.Channel) notify.Report {
	if s.notifier == nil {
		return notify.Report{}
	}
	if len(channels) == 0 {
		channels = []notify.Channel{notify.ChannelEmail, notify.ChannelSMS, notify.ChannelWhatsApp}
	}
	login := user.Email
	if login == "" {
		login = user.Phone
	}
	subject, body := formatters.FormatWelcome(user.DisplayName(), user.Role, businessName, login, s.consoleURL)
	to := notify.Recipient{Name: user.DisplayName(), Email: user.Email, Phone: user.Phone}
	report := s.notifier.Dispatch(ctx, to, notify.Message{Subject: subject, Body: body}, channels...)
	if err := report.Err(); err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Warn("Приветствие доставлено не по всем каналам")
	}
	return report
}

func (s *Service) create(ctx context.Context, collection string, v any) error {
	doc, err := docstore.Encode(v)
	if err != nil {
		return err
	}
	if _, err := s.store.Create(ctx, collection, doc); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"collection": collection, "id": doc.ID()}).
			Error("Ошибка создания записи пользователя")
		return err
	}
	return nil
}

// rollback удаляет то, что успели создать. Ошибки только логируются.
func (s *Service) rollback(ctx context.Context, identityID, userID string) {
	if userID != "" {
		if err := s.store.Delete(ctx, constants.COLLECTION_USERS, userID); err != nil {
			s.log.WithError(err).WithField("user_id", userID).Error("Откат: профиль не удален")
		}
	}
	if err := s.identities.DeleteIdentity(ctx, identityID); err != nil {
		s.log.WithError(err).WithField("identity_id", identityID).Error("Откат: учетная запись не удалена")
	}
}

func (s *Service) business(ctx context.Context, id string) (models.Business, error) {
	const op = "accounts.business"
	doc, err := s.store.Get(ctx, constants.COLLECTION_BUSINESSES, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return models.Business{}, apperr.ValidationFields(op, map[string]string{"businessId": "işletme bulunamadı"})
	}
	if err != nil {
		s.log.WithError(err).WithField("business_id", id).Error("Ошибка чтения бизнеса")
		return models.Business{}, apperr.Remote(op, err)
	}
	var business models.Business
	if err := docstore.Decode(doc, &business); err != nil {
		return models.Business{}, apperr.Remote(op, err)
	}
	return business, nil
}
