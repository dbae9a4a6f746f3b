package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"marketadmin/internal/accounts"
	"marketadmin/internal/activity"
	"marketadmin/internal/invitations"
	"marketadmin/internal/models"
	"marketadmin/internal/search"
)

// --- Приглашения ---

// GetInvitationByToken - публичная страница регистрации по ссылке из QR-кода.
func (h *Handler) GetInvitationByToken(w http.ResponseWriter, r *http.Request) {
	inv, err := h.deps.Invitations.GetByToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	// Данные пригласившего и анкета наружу не отдаются.
	writeJSONSuccess(w, "Invitation retrieved successfully", map[string]interface{}{
		"role":         inv.Role,
		"businessName": inv.BusinessName,
		"status":       inv.Status,
		"expiresAt":    inv.ExpiresAt,
	})
}

func (h *Handler) RegisterInvitation(w http.ResponseWriter, r *http.Request) {
	var form models.RegistrationForm
	if err := decodeJSON(r, "api.RegisterInvitation", &form); err != nil {
		h.writeError(w, r, err)
		return
	}
	inv, err := h.deps.Invitations.Register(r.Context(), chi.URLParam(r, "token"), form)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSONSuccess(w, "Application received, pending approval", map[string]interface{}{"status": inv.Status})
}

// ListInvitations: ?status=pending|registered|approved|rejected
func (h *Handler) ListInvitations(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.Invitations.List(r.Context(), adminFrom(r), models.InvitationStatus(r.URL.Query().Get("status")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSONSuccess(w, "Invitations retrieved successfully", list)
}

func (h *Handler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	var in invitations.CreateInput
	if err := decodeJSON(r, "api.CreateInvitation", &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	inv, err := h.deps.Invitations.Create(r.Context(), adminFrom(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSONSuccess(w, "Invitation created successfully", inv)
}

// DecideInvitation одобряет или отклоняет анкету.
func (h *Handler) DecideInvitation(w http.ResponseWriter, r *http.Request) {
	var req DecisionRequest
	if err := decodeJSON(r, "api.DecideInvitation", &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	inv, err := h.deps.Invitations.Decide(r.Context(), adminFrom(r), chi.URLParam(r, "id"), req.Approve)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSONSuccess(w, "Decision saved successfully", inv)
}

// --- Пользователи ---

// CreateUser заводит учетную запись и рассылает приветствие. Сбой части каналов
// не отменяет создание: исход по каналам возвращается в ответе.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in accounts.CreateUserInput
	if err := decodeJSON(r, "api.CreateUser", &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.deps.Accounts.CreateUser(r.Context(), adminFrom(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	message := "User created successfully"
	if failed := result.Notifications.Failed(); len(failed) > 0 {
		message = "User created, some notifications failed"
	}
	writeJSONSuccess(w, message, result)
}

// Search: ?q=...&window=today|7d|30d|all
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.deps.Search.Search(r.Context(), adminFrom(r), search.Request{
		Query:  q.Get("q"),
		Window: q.Get("window"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSONSuccess(w, "Search completed", result)
}

// ListActivity: ?actor=&orderId=&category=&window=&limit=
func (h *Handler) ListActivity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entries, err := h.deps.Activity.List(r.Context(), activity.Filter{
		Actor:    q.Get("actor"),
		OrderID:  q.Get("orderId"),
		Category: models.ActivityCategory(q.Get("category")),
		Window:   q.Get("window"),
		Limit:    queryInt(r, "limit"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSONSuccess(w, "Activity retrieved successfully", entries)
}

// --- Вертикали ---

func (h *Handler) ListSectors(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.Sectors.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSONSuccess(w, "Sectors retrieved successfully", list)
}

func (h *Handler) CreateSector(w http.ResponseWriter, r *http.Request) {
	var sector models.Sector
	if err := decodeJSON(r, "api.CreateSector", &sector); err != nil {
		h.writeError(w, r, err)
		return
	}
	created, err := h.deps.Sectors.Create(r.Context(), adminFrom(r), sector)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSONSuccess(w, "Sector created successfully", created)
}

func (h *Handler) UpdateSector(w http.ResponseWriter, r *http.Request) {
	var sector models.Sector
	if err := decodeJSON(r, "api.UpdateSector", &sector); err != nil {
		h.writeError(w, r, err)
		return
	}
	updated, err := h.deps.Sectors.Update(r.Context(), adminFrom(r), chi.URLParam(r, "id"), sector)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSONSuccess(w, "Sector updated successfully", updated)
}

func (h *Handler) DeleteSector(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.deps.Sectors.Delete(r.Context(), adminFrom(r), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSONSuccess(w, "Sector deleted successfully", map[string]string{"id": id})
}

// SeedSectors добавляет недостающие вертикали из встроенного справочника.
func (h *Handler) SeedSectors(w http.ResponseWriter, r *http.Request) {
	created, err := h.deps.Sectors.SeedDefaults(r.Context(), adminFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSONSuccess(w, "Default sectors seeded successfully", map[string]interface{}{"created": created})
}
