package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"marketadmin/internal/apperr"
	"marketadmin/internal/constants"
	"marketadmin/internal/docstore"
	"marketadmin/internal/models"
)

// Admin - сессия администратора консоли. Передается явно в каждую операцию
// вместо глобального "текущего администратора".
type Admin struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email,omitempty"`
	Phone        string      `json:"phone,omitempty"`
	Role         models.Role `json:"role"`
	BusinessID   string      `json:"businessId,omitempty"`
	BusinessName string      `json:"businessName,omitempty"`
}

// System - сессия для фоновых действий без оператора.
var System = Admin{ID: "system", Name: "system", Role: models.RoleSuperAdmin}

// CanAccessBusiness - бизнес-роли видят только свой бизнес, администраторы - все.
func (a Admin) CanAccessBusiness(businessID string) bool {
	if a.Role.AtLeast(models.RoleAdmin) {
		return true
	}
	return a.BusinessID != "" && a.BusinessID == businessID
}

// ScopeBusiness возвращает бизнес, которым ограничены запросы: для администраторов -
// запрошенный (может быть пустым), для бизнес-ролей - всегда свой.
func (a Admin) ScopeBusiness(requested string) string {
	if a.Role.AtLeast(models.RoleAdmin) {
		return requested
	}
	return a.BusinessID
}

type contextKey struct{ name string }

var adminKey = &contextKey{"Admin"}

func WithAdmin(ctx context.Context, admin Admin) context.Context {
	return context.WithValue(ctx, adminKey, admin)
}

// FromContext достает сессию, положенную AuthMiddleware.
func FromContext(ctx context.Context) (Admin, bool) {
	admin, ok := ctx.Value(adminKey).(Admin)
	return admin, ok
}

type cachedAdmin struct {
	admin    Admin
	loadedAt time.Time
}

// Manager загружает записи ролей (коллекция admins) и кэширует их на короткое время,
// чтобы не читать хранилище на каждый запрос консоли.
type Manager struct {
	store docstore.Store
	log   *logrus.Logger
	ttl   time.Duration

	mu    sync.RWMutex
	cache map[string]cachedAdmin
}

func NewManager(store docstore.Store, log *logrus.Logger) *Manager {
	return &Manager{
		store: store,
		log:   log,
		ttl:   time.Minute,
		cache: make(map[string]cachedAdmin),
	}
}

// Load возвращает сессию администратора по идентификатору учетной записи.
func (m *Manager) Load(ctx context.Context, adminID string) (Admin, error) {
	const op = "session.Load"

	m.mu.RLock()
	entry, ok := m.cache[adminID]
	m.mu.RUnlock()
	if ok && time.Since(entry.loadedAt) < m.ttl {
		return entry.admin, nil
	}

	doc, err := m.store.Get(ctx, constants.COLLECTION_ADMINS, adminID)
	if errors.Is(err, docstore.ErrNotFound) {
		return Admin{}, apperr.Forbidden(op, "учетная запись не является администратором")
	}
	if err != nil {
		m.log.WithError(err).WithField("adminId", adminID).Error("Ошибка загрузки записи администратора")
		return Admin{}, apperr.Remote(op, err)
	}
	var record models.AdminRecord
	if err := docstore.Decode(doc, &record); err != nil {
		return Admin{}, apperr.Remote(op, err)
	}
	if !record.IsActive {
		return Admin{}, apperr.Forbidden(op, "учетная запись администратора отключена")
	}
	if !record.Role.Valid() {
		m.log.WithFields(logrus.Fields{"adminId": adminID, "role": record.Role}).Warn("Неизвестная роль администратора")
		return Admin{}, apperr.Forbidden(op, "неизвестная роль")
	}

	admin := Admin{
		ID:           record.ID,
		Name:         record.Name,
		Email:        record.Email,
		Phone:        record.Phone,
		Role:         record.Role,
		BusinessID:   record.BusinessID,
		BusinessName: record.BusinessName,
	}
	m.mu.Lock()
	m.cache[adminID] = cachedAdmin{admin: admin, loadedAt: time.Now()}
	m.mu.Unlock()
	return admin, nil
}

// Invalidate сбрасывает кэш после изменения роли.
func (m *Manager) Invalidate(adminID string) {
	m.mu.Lock()
	delete(m.cache, adminID)
	m.mu.Unlock()
}
