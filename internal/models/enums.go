package models

// Status - статус исполнения заказа.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusInTransit Status = "in_transit"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// AllStatuses перечисляет статусы в порядке жизненного цикла.
var AllStatuses = []Status{
	StatusPending, StatusConfirmed, StatusPreparing, StatusReady,
	StatusInTransit, StatusCompleted, StatusCancelled,
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusReady,
		StatusInTransit, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal - из завершенного или отмененного заказа переходов нет.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Channel - канал заказа.
type Channel string

const (
	ChannelDineIn      Channel = "dine_in"
	ChannelPickup      Channel = "pickup"
	ChannelDelivery    Channel = "delivery"
	ChannelKermesBooth Channel = "kermes_booth"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelDineIn, ChannelPickup, ChannelDelivery, ChannelKermesBooth:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
)

func (p PaymentMethod) Valid() bool {
	return p == PaymentCash || p == PaymentCard
}

// Electronic - оплата, по которой комиссия удерживается автоматически.
func (p PaymentMethod) Electronic() bool {
	return p == PaymentCard
}

type PaymentStatus string

const (
	PaymentPaid   PaymentStatus = "paid"
	PaymentUnpaid PaymentStatus = "unpaid"
)

// CancellationReason - код причины отмены. Свободный текст хранится с кодом other.
type CancellationReason string

const (
	ReasonOutOfStock      CancellationReason = "out_of_stock"
	ReasonBusinessClosed  CancellationReason = "business_closed"
	ReasonNoDelivery      CancellationReason = "no_delivery"
	ReasonDuplicateOrder  CancellationReason = "duplicate_order"
	ReasonCustomerRequest CancellationReason = "customer_request"
	ReasonOther           CancellationReason = "other"
)

// CancellationReasons - фиксированный список причин для выбора в консоли.
var CancellationReasons = []CancellationReason{
	ReasonOutOfStock, ReasonBusinessClosed, ReasonNoDelivery, ReasonDuplicateOrder, ReasonCustomerRequest,
}

func (r CancellationReason) Known() bool {
	for _, known := range CancellationReasons {
		if r == known {
			return true
		}
	}
	return false
}

type ShipmentStatus string

const (
	ShipmentShipped   ShipmentStatus = "shipped"
	ShipmentDelivered ShipmentStatus = "delivered"
)

// CourierType - путь доставки, от него зависит фиксированный сбор за заказ.
type CourierType string

const (
	CourierSelfPickup      CourierType = "self_pickup"
	CourierVendor          CourierType = "vendor_courier"
	CourierPlatform        CourierType = "platform_courier"
	CourierTypeUnspecified CourierType = ""
)

func (c CourierType) Valid() bool {
	return c == CourierSelfPickup || c == CourierVendor || c == CourierPlatform
}

// CollectionStatus - состояние взыскания комиссии.
type CollectionStatus string

const (
	CollectionAutoCollected CollectionStatus = "auto_collected"
	CollectionPending       CollectionStatus = "pending"
	CollectionInvoiced      CollectionStatus = "invoiced"
	CollectionPaid          CollectionStatus = "paid"
)

func (c CollectionStatus) Valid() bool {
	switch c {
	case CollectionAutoCollected, CollectionPending, CollectionInvoiced, CollectionPaid:
		return true
	}
	return false
}

type ShiftStatus string

const (
	ShiftActive ShiftStatus = "active"
	ShiftEnded  ShiftStatus = "ended"
)

type InvitationStatus string

const (
	InvitationPending    InvitationStatus = "pending"
	InvitationRegistered InvitationStatus = "registered"
	InvitationApproved   InvitationStatus = "approved"
	InvitationRejected   InvitationStatus = "rejected"
)

func (s InvitationStatus) Valid() bool {
	switch s {
	case InvitationPending, InvitationRegistered, InvitationApproved, InvitationRejected:
		return true
	}
	return false
}

// Role - роль администратора консоли.
type Role string

const (
	RoleSuperAdmin    Role = "super_admin"
	RoleAdmin         Role = "admin"
	RoleBusinessOwner Role = "business_owner"
	RoleStaff         Role = "staff"
	RoleDriver        Role = "driver"
	RoleCustomer      Role = "customer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleBusinessOwner, RoleStaff, RoleDriver, RoleCustomer:
		return true
	}
	return false
}

// BusinessScoped - роли, которым обязательно нужна привязка к бизнесу.
func (r Role) BusinessScoped() bool {
	return r == RoleBusinessOwner || r == RoleStaff || r == RoleDriver
}

// Level - уровень в иерархии ролей: Customer < Staff/Driver < BusinessOwner < Admin < SuperAdmin.
func (r Role) Level() int {
	switch r {
	case RoleCustomer:
		return 0
	case RoleStaff, RoleDriver:
		return 1
	case RoleBusinessOwner:
		return 2
	case RoleAdmin:
		return 3
	case RoleSuperAdmin:
		return 4
	}
	return -1
}

// AtLeast сообщает, соответствует ли роль минимально требуемой.
func (r Role) AtLeast(required Role) bool {
	level, requiredLevel := r.Level(), required.Level()
	if level < 0 || requiredLevel < 0 {
		return false
	}
	return level >= requiredLevel
}

// ActivityCategory - категория записи журнала действий.
type ActivityCategory string

const (
	CategoryOrder      ActivityCategory = "order"
	CategoryCommission ActivityCategory = "commission"
	CategoryUser       ActivityCategory = "user"
	CategoryInvitation ActivityCategory = "invitation"
	CategorySector     ActivityCategory = "sector"
	CategoryAuth       ActivityCategory = "auth"
)
