package constants

import (
	"time"

	"marketadmin/internal/models"
)

// Document Store Collections
// Коллекции хранилища документов
const (
	COLLECTION_ORDERS             = "orders"
	COLLECTION_SHOP_ORDERS        = "shop_orders"
	COLLECTION_COMMISSION_RECORDS = "commission_records"
	COLLECTION_BUSINESSES         = "businesses"
	COLLECTION_ADMIN_INVITATIONS  = "admin_invitations"
	COLLECTION_ACTIVITY_LOGS      = "activity_logs"
	COLLECTION_SECTORS            = "sectors"
	COLLECTION_USERS              = "users"
	COLLECTION_ADMINS             = "admins"
	COLLECTION_IDENTITIES         = "identities"
)

// ShiftsCollection - вложенная коллекция смен бизнеса.
func ShiftsCollection(businessID string) string {
	return COLLECTION_BUSINESSES + "/" + businessID + "/shifts"
}

// Order List Groups (console tabs)
// Группы списков заказов (вкладки консоли)
const (
	ORDER_GROUP_NEW       = "new"
	ORDER_GROUP_ACTIVE    = "active"
	ORDER_GROUP_COMPLETED = "completed"
	ORDER_GROUP_CANCELLED = "cancelled"
	ORDER_GROUP_ALL       = "all"
)

// OrderGroupStatuses - статусы, входящие в каждую вкладку.
var OrderGroupStatuses = map[string][]models.Status{
	ORDER_GROUP_NEW:       {models.StatusPending},
	ORDER_GROUP_ACTIVE:    {models.StatusConfirmed, models.StatusPreparing, models.StatusReady, models.StatusInTransit},
	ORDER_GROUP_COMPLETED: {models.StatusCompleted},
	ORDER_GROUP_CANCELLED: {models.StatusCancelled},
}

// Pagination
// Пагинация
const (
	OrdersPerPage       = 50
	ActivityLogsPerPage = 100
	SearchResultLimit   = 25
	RecentOrdersPerUser = 5
)

// Invitations
// Приглашения
const (
	InvitationTTL    = 48 * time.Hour
	InvitationQRSize = 256
)

// Activity log date windows
// Окна дат журнала действий
const (
	WINDOW_TODAY = "today"
	WINDOW_7D    = "7d"
	WINDOW_30D   = "30d"
	WINDOW_ALL   = "all"
)

// Order Status Events (routing keys)
// Ключи маршрутизации событий статуса заказа
const (
	ORDER_EVENTS_EXCHANGE    = "order_events"
	ORDER_STATUS_ROUTING_KEY = "order.status."
)

// Shift export file names
// Имена файлов отчета по сменам
const (
	SHIFT_REPORT_FILE_PREFIX = "vardiya_raporu_"
)

var StatusDisplayMap = map[models.Status]string{
	models.StatusPending:   "Beklemede",
	models.StatusConfirmed: "Onaylandı",
	models.StatusPreparing: "Hazırlanıyor",
	models.StatusReady:     "Hazır",
	models.StatusInTransit: "Yolda",
	models.StatusCompleted: "Tamamlandı",
	models.StatusCancelled: "İptal edildi",
}

var StatusEmojiMap = map[models.Status]string{
	models.StatusPending:   "🆕",
	models.StatusConfirmed: "👍",
	models.StatusPreparing: "👨‍🍳",
	models.StatusReady:     "📦",
	models.StatusInTransit: "🚚",
	models.StatusCompleted: "✅",
	models.StatusCancelled: "❌",
}

var CancellationReasonDisplayMap = map[models.CancellationReason]string{
	models.ReasonOutOfStock:      "Ürün stokta yok",
	models.ReasonBusinessClosed:  "İşletme kapalı",
	models.ReasonNoDelivery:      "Teslimat yapılamıyor",
	models.ReasonDuplicateOrder:  "Mükerrer sipariş",
	models.ReasonCustomerRequest: "Müşteri talebi",
	models.ReasonOther:           "Diğer",
}

var CollectionStatusDisplayMap = map[models.CollectionStatus]string{
	models.CollectionAutoCollected: "Otomatik tahsil",
	models.CollectionPending:       "Bekliyor",
	models.CollectionInvoiced:      "Faturalandı",
	models.CollectionPaid:          "Ödendi",
}

var CourierTypeDisplayMap = map[models.CourierType]string{
	models.CourierSelfPickup: "Gel-al",
	models.CourierVendor:     "İşletme kuryesi",
	models.CourierPlatform:   "Platform kuryesi",
}

// AccessDeniedMessage - текст отказа в доступе для консоли.
const AccessDeniedMessage = "Bu işlem için yetkiniz yok."

var RoleDisplayMap = map[models.Role]string{
	models.RoleSuperAdmin:    "Süper Yönetici",
	models.RoleAdmin:         "Yönetici",
	models.RoleBusinessOwner: "İşletme Sahibi",
	models.RoleStaff:         "Personel",
	models.RoleDriver:        "Kurye",
	models.RoleCustomer:      "Müşteri",
}
