package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"marketadmin/internal/apperr"
	"marketadmin/internal/models"
	"marketadmin/internal/orders"
	"marketadmin/internal/session"
	"marketadmin/internal/validation"
)

// maxBodyBytes - предел тела JSON-запроса.
const maxBodyBytes = 1 << 20

// jsonResponse - стандартный ответ API.
type jsonResponse struct {
	Status  string            `json:"status"` // "success" или "error"
	Message string            `json:"message"`
	Kind    apperr.Kind       `json:"kind,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Data    interface{}       `json:"data,omitempty"`
}

// --- Вспомогательные функции для JSON-ответов ---
func writeJSON(w http.ResponseWriter, statusCode int, body jsonResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, jsonResponse{Status: "error", Message: message})
}

func writeJSONSuccess(w http.ResponseWriter, message string, data interface{}) {
	writeJSON(w, http.StatusOK, jsonResponse{Status: "success", Message: message, Data: data})
}

// statusForKind - HTTP-статус для вида ошибки.
func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindInvalidTransition:
		return http.StatusConflict
	case apperr.KindPreconditionNotMet:
		return http.StatusUnprocessableEntity
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindRemoteOperationFailed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError переводит ошибку операции в ответ. Посторонние ошибки не раскрываются.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		h.log.WithError(err).WithFields(logrus.Fields{
			"path":       r.URL.Path,
			"request_id": middleware.GetReqID(r.Context()),
		}).Error("API: необработанная ошибка")
		writeJSONError(w, http.StatusInternalServerError, "Внутренняя ошибка сервера")
		return
	}
	code := statusForKind(appErr.Kind)
	if code >= http.StatusInternalServerError {
		h.log.WithError(err).WithFields(logrus.Fields{
			"path":       r.URL.Path,
			"request_id": middleware.GetReqID(r.Context()),
		}).Warn("API: внешняя операция не выполнена")
	}
	writeJSON(w, code, jsonResponse{
		Status:  "error",
		Message: appErr.Message,
		Kind:    appErr.Kind,
		Fields:  appErr.Fields,
	})
}

// decodeJSON читает тело запроса и проверяет его по тегам validate.
func decodeJSON(r *http.Request, op string, v any) error {
	body := io.LimitReader(r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return apperr.Validation(op, fmt.Sprintf("некорректное тело запроса: %v", err))
	}
	return validation.Struct(op, v)
}

// adminFrom достает сессию, положенную AuthMiddleware.
func adminFrom(r *http.Request) session.Admin {
	admin, _ := session.FromContext(r.Context())
	return admin
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// GetProfile возвращает сессию текущего администратора.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	writeJSONSuccess(w, "Profile retrieved successfully", adminFrom(r))
}

// GetOrders возвращает вкладку заказов: ?group=new|active|completed|cancelled|all&businessId=&limit=
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	q := r.URL.Query()
	list, err := h.deps.Orders.List(r.Context(), adminFrom(r), collection, q.Get("group"), q.Get("businessId"), queryInt(r, "limit"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSONSuccess(w, "Orders retrieved successfully", list)
}

// StreamOrders - живая вкладка заказов (SSE).
func (h *Handler) StreamOrders(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	q := r.URL.Query()
	admin := adminFrom(r)
	h.stream(w, r, func(emit func(seq uint64, data any)) (subscription, error) {
		return h.deps.Orders.Watch(r.Context(), admin, collection, q.Get("group"), q.Get("businessId"),
			func(seq uint64, list []models.Order) { emit(seq, list) })
	})
}

// GetOrderDetails возвращает заказ и допустимые следующие статусы.
func (h *Handler) GetOrderDetails(w http.ResponseWriter, r *http.Request) {
	order, err := h.deps.Orders.Get(r.Context(), adminFrom(r), chi.URLParam(r, "collection"), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSONSuccess(w, "Order retrieved successfully", OrderDetailsResponse{
		Order: order,
		Next:  orders.Next(order.Status, order.Channel),
	})
}

// HandleOrderAction применяет действие к заказу.
func (h *Handler) HandleOrderAction(w http.ResponseWriter, r *http.Request) {
	const op = "api.OrderAction"
	var req OrderActionRequest
	if err := decodeJSON(r, op, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.deps.Orders.Apply(r.Context(), adminFrom(r), chi.URLParam(r, "collection"), chi.URLParam(r, "id"), req.toEngine())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	message := "Order status updated"
	if !res.Changed {
		message = "Order status unchanged"
	}
	writeJSONSuccess(w, message, OrderActionResponse{
		Order:        res.Order,
		From:         res.From,
		To:           res.To,
		Changed:      res.Changed,
		RefundOwed:   res.Effects.RefundOwed,
		RefundAmount: res.Effects.RefundAmount,
	})
}

// DeleteOrder удаляет заказ; требует ?confirm=true.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	confirm, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	err := h.deps.Orders.Delete(r.Context(), adminFrom(r), chi.URLParam(r, "collection"), chi.URLParam(r, "id"), confirm)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSONSuccess(w, "Order deleted successfully", nil)
}

// Login обменивает логин и пароль на токен доступа консоли.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	const op = "api.Login"
	var req LoginRequest
	if err := decodeJSON(r, op, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	identity, err := h.deps.Auth.Authenticate(r.Context(), req.Login, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	admin, err := h.deps.Sessions.Load(r.Context(), identity.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	token, expires, err := h.deps.Auth.IssueToken(identity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.deps.Activity.Record(r.Context(), admin, models.ActivityLog{
		Action:   "auth.login",
		Category: models.CategoryAuth,
		Details:  map[string]any{"requestId": middleware.GetReqID(r.Context())},
	})
	writeJSONSuccess(w, "Logged in successfully", LoginResponse{Token: token, ExpiresAt: expires, Admin: admin})
}
