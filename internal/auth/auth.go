// Package auth - провайдер идентификации: учетные записи с паролями (bcrypt)
// и токены доступа консоли (JWT, HMAC).
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"marketadmin/internal/apperr"
	"marketadmin/internal/config"
	"marketadmin/internal/constants"
	"marketadmin/internal/docstore"
	"marketadmin/internal/models"
)

// MinPasswordLength - минимальная длина пароля учетной записи.
const MinPasswordLength = 6

// Claims - содержимое токена доступа. Subject - идентификатор учетной записи.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type Provider struct {
	store  docstore.Store
	secret []byte
	ttl    time.Duration
	log    *logrus.Logger
	now    func() time.Time
}

func NewProvider(store docstore.Store, cfg *config.Config, log *logrus.Logger) *Provider {
	return &Provider{
		store:  store,
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.JWTTTL,
		log:    log,
		now:    time.Now,
	}
}

// CreateIdentity заводит учетную запись. Email или телефон должны быть уникальны.
func (p *Provider) CreateIdentity(ctx context.Context, email, phone, password string) (models.Identity, error) {
	const op = "auth.CreateIdentity"

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" && phone == "" {
		return models.Identity{}, apperr.ValidationFields(op, map[string]string{"email": "укажите email или телефон"})
	}
	if len(password) < MinPasswordLength {
		return models.Identity{}, apperr.ValidationFields(op, map[string]string{
			"password": fmt.Sprintf("минимум %d символов", MinPasswordLength),
		})
	}

	for field, value := range map[string]string{"email": email, "phone": phone} {
		if value == "" {
			continue
		}
		existing, err := p.store.Find(ctx, docstore.Query{
			Collection: constants.COLLECTION_IDENTITIES,
			Filters:    []docstore.Filter{docstore.Where(field, docstore.OpEq, value)},
			Limit:      1,
		})
		if err != nil {
			p.log.WithError(err).WithField(field, value).Error("Ошибка проверки уникальности учетной записи")
			return models.Identity{}, apperr.Remote(op, err)
		}
		if len(existing) > 0 {
			return models.Identity{}, apperr.ValidationFields(op, map[string]string{field: "уже зарегистрирован"})
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%s: хеширование пароля: %w", op, err)
	}
	identity := models.Identity{
		ID:           uuid.NewString(),
		Email:        email,
		Phone:        phone,
		PasswordHash: string(hash),
		CreatedAt:    p.now().UTC(),
	}
	doc, err := docstore.Encode(identity)
	if err != nil {
		return models.Identity{}, err
	}
	if _, err := p.store.Create(ctx, constants.COLLECTION_IDENTITIES, doc); err != nil {
		p.log.WithError(err).WithField("identityId", identity.ID).Error("Ошибка создания учетной записи")
		return models.Identity{}, apperr.Remote(op, err)
	}
	return identity, nil
}

// DeleteIdentity удаляет учетную запись (откат неудачного create-user).
func (p *Provider) DeleteIdentity(ctx context.Context, id string) error {
	if err := p.store.Delete(ctx, constants.COLLECTION_IDENTITIES, id); err != nil {
		return apperr.Remote("auth.DeleteIdentity", err)
	}
	return nil
}

// Authenticate проверяет email (или телефон) и пароль.
func (p *Provider) Authenticate(ctx context.Context, login, password string) (models.Identity, error) {
	const op = "auth.Authenticate"
	login = strings.TrimSpace(login)
	field := "phone"
	if strings.Contains(login, "@") {
		field, login = "email", strings.ToLower(login)
	}

	docs, err := p.store.Find(ctx, docstore.Query{
		Collection: constants.COLLECTION_IDENTITIES,
		Filters:    []docstore.Filter{docstore.Where(field, docstore.OpEq, login)},
		Limit:      1,
	})
	if err != nil {
		p.log.WithError(err).Error("Ошибка поиска учетной записи при входе")
		return models.Identity{}, apperr.Remote(op, err)
	}
	if len(docs) == 0 {
		return models.Identity{}, apperr.Unauthorized(op, "неверный логин или пароль")
	}
	var identity models.Identity
	if err := docstore.Decode(docs[0], &identity); err != nil {
		return models.Identity{}, apperr.Remote(op, err)
	}
	if identity.Disabled {
		return models.Identity{}, apperr.Unauthorized(op, "учетная запись отключена")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)); err != nil {
		return models.Identity{}, apperr.Unauthorized(op, "неверный логин или пароль")
	}
	return identity, nil
}

// IssueToken выпускает токен доступа.
func (p *Provider) IssueToken(identity models.Identity) (string, time.Time, error) {
	now := p.now()
	expires := now.Add(p.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			ID:        uuid.NewString(),
		},
		Email: identity.Email,
		Phone: identity.Phone,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth.IssueToken: %w", err)
	}
	return signed, expires, nil
}

// ParseToken проверяет подпись и срок действия токена.
func (p *Provider) ParseToken(tokenStr string) (*Claims, error) {
	const op = "auth.ParseToken"
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("неожиданный метод подписи: %v", t.Header["alg"])
		}
		return p.secret, nil
	}, jwt.WithTimeFunc(p.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.Unauthorized(op, "срок действия токена истек")
		}
		return nil, apperr.Unauthorized(op, "недействительный токен")
	}
	if !token.Valid || claims.Subject == "" {
		return nil, apperr.Unauthorized(op, "недействительный токен")
	}
	return claims, nil
}
