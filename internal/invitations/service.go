// Package invitations ведет приглашения администраторов: ссылка с токеном и QR-кодом,
// анкета приглашенного и решение оператора.
package invitations

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"marketadmin/internal/activity"
	"marketadmin/internal/apperr"
	"marketadmin/internal/blob"
	"marketadmin/internal/config"
	"marketadmin/internal/constants"
	"marketadmin/internal/docstore"
	"marketadmin/internal/formatters"
	"marketadmin/internal/models"
	"marketadmin/internal/session"
	"marketadmin/internal/utils"
	"marketadmin/internal/validation"
)

// Messenger - канал оператора (Telegram).
type Messenger interface {
	SendText(chatID int64, text string) error
	SendPhoto(chatID int64, name string, png []byte, caption string) error
}

// CreateInput - данные нового приглашения.
type CreateInput struct {
	Role       models.Role `json:"role" validate:"required,oneof=admin business_owner staff driver"`
	BusinessID string      `json:"businessId"`
	Phone      string      `json:"phone" validate:"phone"`
	Email      string      `json:"email" validate:"omitempty,email"`
}

type Service struct {
	store          docstore.Store
	blobs          blob.Store
	messenger      Messenger
	activity       *activity.Log
	operatorChatID int64
	consoleURL     string
	log            *logrus.Logger
	now            func() time.Time
}

// NewService. messenger может быть nil: тогда оператор не получает QR-код в Telegram.
func NewService(store docstore.Store, blobs blob.Store, messenger Messenger, act *activity.Log, cfg *config.Config, log *logrus.Logger) *Service {
	return &Service{
		store:          store,
		blobs:          blobs,
		messenger:      messenger,
		activity:       act,
		operatorChatID: cfg.OperatorChatID,
		consoleURL:     strings.TrimRight(cfg.ConsoleURL, "/"),
		log:            log,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Link - ссылка регистрации по токену.
func (s *Service) Link(token string) string {
	return s.consoleURL + "/register/" + token
}

// Create выпускает приглашение. Пригласить можно только на роль ниже своей;
// владелец бизнеса приглашает только в свой бизнес.
func (s *Service) Create(ctx context.Context, admin session.Admin, in CreateInput) (models.Invitation, error) {
	const op = "invitations.Create"
	if err := validation.Struct(op, in); err != nil {
		return models.Invitation{}, err
	}
	if !admin.Role.AtLeast(models.RoleBusinessOwner) || in.Role.Level() >= admin.Role.Level() {
		return models.Invitation{}, apperr.Forbidden(op, constants.AccessDeniedMessage)
	}

	inv := models.Invitation{Role: in.Role, Email: strings.ToLower(strings.TrimSpace(in.Email))}
	if in.Phone != "" {
		phone, err := utils.NormalizePhone(in.Phone)
		if err != nil {
			return models.Invitation{}, apperr.ValidationFields(op, map[string]string{"phone": err.Error()})
		}
		inv.Phone = phone
	}

	if in.Role.BusinessScoped() {
		businessID := admin.ScopeBusiness(in.BusinessID)
		if businessID == "" {
			return models.Invitation{}, apperr.ValidationFields(op, map[string]string{"businessId": "обязательное поле"})
		}
		business, err := s.business(ctx, businessID)
		if err != nil {
			return models.Invitation{}, err
		}
		inv.BusinessID, inv.BusinessName = business.ID, business.Name
	}

	now := s.now()
	inv.Token = uuid.NewString()
	inv.ID = inv.Token
	inv.Status = models.InvitationPending
	inv.InvitedBy = admin.ID
	inv.CreatedAt = now
	inv.ExpiresAt = now.Add(constants.InvitationTTL)
	inv.Link = s.Link(inv.Token)

	png, err := utils.GenerateQRCode(inv.Link, constants.InvitationQRSize)
	if err != nil {
		return models.Invitation{}, err
	}
	if s.blobs != nil {
		url, err := s.blobs.Put(ctx, "invitations/"+inv.Token+".png", png, "image/png")
		if err != nil {
			s.log.WithError(err).WithField("invitation_id", inv.ID).Warn("QR-код приглашения не сохранен")
		} else {
			inv.QRCodeURL = url
		}
	}

	doc, err := docstore.Encode(inv)
	if err != nil {
		return models.Invitation{}, apperr.Remote(op, err)
	}
	if _, err := s.store.Create(ctx, constants.COLLECTION_ADMIN_INVITATIONS, doc); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"invitation_id": inv.ID, "business_id": inv.BusinessID}).
			Error("Не удалось сохранить приглашение")
		return models.Invitation{}, apperr.Remote(op, err)
	}
	s.log.WithFields(logrus.Fields{"invitation_id": inv.ID, "role": inv.Role, "business_id": inv.BusinessID}).
		Info("Приглашение создано")

	s.toOperator(func(m Messenger) error {
		return m.SendPhoto(s.operatorChatID, "davet_"+inv.Token+".png", png, formatters.FormatInvitationCaption(inv, inv.Link))
	}, inv.ID)
	s.activity.Record(ctx, admin, models.ActivityLog{
		Action:     "invitation.create",
		TargetType: constants.COLLECTION_ADMIN_INVITATIONS,
		TargetID:   inv.ID,
		Category:   models.CategoryInvitation,
		Details:    map[string]any{"role": string(inv.Role), "businessId": inv.BusinessID},
	})
	return inv, nil
}

func (s *Service) get(ctx context.Context, op, id string) (models.Invitation, error) {
	doc, err := s.store.Get(ctx, constants.COLLECTION_ADMIN_INVITATIONS, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return models.Invitation{}, apperr.NotFound(op, "приглашение")
	}
	if err != nil {
		s.log.WithError(err).WithField("invitation_id", id).Error("Ошибка чтения приглашения")
		return models.Invitation{}, apperr.Remote(op, err)
	}
	var inv models.Invitation
	if err := docstore.Decode(doc, &inv); err != nil {
		return models.Invitation{}, apperr.Remote(op, err)
	}
	return inv, nil
}

// GetByToken - приглашение по ссылке. Просроченное отклоняется.
func (s *Service) GetByToken(ctx context.Context, token string) (models.Invitation, error) {
	const op = "invitations.GetByToken"
	inv, err := s.get(ctx, op, token)
	if err != nil {
		return models.Invitation{}, err
	}
	if inv.Expired(s.now()) {
		return models.Invitation{}, apperr.Validation(op, "davet bağlantısının süresi doldu")
	}
	return inv, nil
}

// Register принимает анкету приглашенного: pending -> registered.
func (s *Service) Register(ctx context.Context, token string, form models.RegistrationForm) (models.Invitation, error) {
	const op = "invitations.Register"
	if err := validation.Struct(op, form); err != nil {
		return models.Invitation{}, err
	}
	phone, err := utils.NormalizePhone(form.Phone)
	if err != nil {
		return models.Invitation{}, apperr.ValidationFields(op, map[string]string{"phone": err.Error()})
	}
	form.Phone = phone
	form.Email = strings.ToLower(strings.TrimSpace(form.Email))

	inv, err := s.GetByToken(ctx, token)
	if err != nil {
		return models.Invitation{}, err
	}
	if inv.Status != models.InvitationPending {
		return models.Invitation{}, apperr.InvalidTransition(op, string(inv.Status), string(models.InvitationRegistered))
	}

	now := s.now()
	inv.Status = models.InvitationRegistered
	inv.Registration = &form
	inv.RegisteredAt = &now
	if err := s.store.Merge(ctx, constants.COLLECTION_ADMIN_INVITATIONS, inv.ID, docstore.Document{
		"status":       string(inv.Status),
		"registration": form,
		"registeredAt": now,
	}); err != nil {
		s.log.WithError(err).WithField("invitation_id", inv.ID).Error("Не удалось сохранить анкету приглашения")
		return models.Invitation{}, apperr.Remote(op, err)
	}
	s.log.WithField("invitation_id", inv.ID).Info("Анкета по приглашению получена")

	s.toOperator(func(m Messenger) error {
		return m.SendText(s.operatorChatID, formatters.FormatRegistrationForOperator(inv))
	}, inv.ID)
	return inv, nil
}

// Decide - решение оператора по анкете: registered -> approved | rejected.
func (s *Service) Decide(ctx context.Context, admin session.Admin, id string, approve bool) (models.Invitation, error) {
	const op = "invitations.Decide"
	inv, err := s.get(ctx, op, id)
	if err != nil {
		return models.Invitation{}, err
	}
	if !admin.Role.AtLeast(models.RoleAdmin) && !(inv.BusinessID != "" && admin.Role == models.RoleBusinessOwner && admin.BusinessID == inv.BusinessID) {
		return models.Invitation{}, apperr.Forbidden(op, constants.AccessDeniedMessage)
	}
	to := models.InvitationRejected
	if approve {
		to = models.InvitationApproved
	}
	if inv.Status != models.InvitationRegistered {
		return models.Invitation{}, apperr.InvalidTransition(op, string(inv.Status), string(to))
	}

	now := s.now()
	inv.Status, inv.DecidedAt, inv.DecidedBy = to, &now, admin.ID
	if err := s.store.Merge(ctx, constants.COLLECTION_ADMIN_INVITATIONS, id, docstore.Document{
		"status":    string(to),
		"decidedAt": now,
		"decidedBy": admin.ID,
	}); err != nil {
		s.log.WithError(err).WithField("invitation_id", id).Error("Не удалось сохранить решение по приглашению")
		return models.Invitation{}, apperr.Remote(op, err)
	}
	s.activity.Record(ctx, admin, models.ActivityLog{
		Action:     "invitation." + string(to),
		TargetType: constants.COLLECTION_ADMIN_INVITATIONS,
		TargetID:   id,
		Category:   models.CategoryInvitation,
		Details:    map[string]any{"role": string(inv.Role), "businessId": inv.BusinessID},
	})
	return inv, nil
}

// List - приглашения по статусу (пустой статус - все), новые первыми.
func (s *Service) List(ctx context.Context, admin session.Admin, status models.InvitationStatus) ([]models.Invitation, error) {
	const op = "invitations.List"
	if !admin.Role.AtLeast(models.RoleBusinessOwner) {
		return nil, apperr.Forbidden(op, constants.AccessDeniedMessage)
	}
	if status != "" && !status.Valid() {
		return nil, apperr.ValidationFields(op, map[string]string{"status": "неизвестный статус"})
	}
	q := docstore.Query{Collection: constants.COLLECTION_ADMIN_INVITATIONS, OrderBy: "createdAt", Desc: true}
	if status != "" {
		q.Filters = append(q.Filters, docstore.Where("status", docstore.OpEq, string(status)))
	}
	if businessID := admin.ScopeBusiness(""); businessID != "" {
		q.Filters = append(q.Filters, docstore.Where("businessId", docstore.OpEq, businessID))
	}
	docs, err := s.store.Find(ctx, q)
	if err != nil {
		s.log.WithError(err).WithField("status", status).Error("Ошибка получения приглашений")
		return nil, apperr.Remote(op, err)
	}
	out, err := docstore.DecodeAll[models.Invitation](docs)
	if err != nil {
		return nil, apperr.Remote(op, err)
	}
	return out, nil
}

func (s *Service) business(ctx context.Context, id string) (models.Business, error) {
	const op = "invitations.business"
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

// toOperator отправляет сообщение оператору; сбой канала только логируется.
func (s *Service) toOperator(send func(Messenger) error, invitationID string) {
	if s.messenger == nil || s.operatorChatID == 0 {
		return
	}
	if err := send(s.messenger); err != nil {
		s.log.WithError(err).WithField("invitation_id", invitationID).Warn("Оператор не получил уведомление о приглашении")
	}
}
