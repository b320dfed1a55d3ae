package domain

type PaymentStatusType string

const (
	PaymentStatusPending   PaymentStatusType = "PENDING"
	PaymentStatusConfirmed PaymentStatusType = "CONFIRMED"
	PaymentStatusCredited  PaymentStatusType = "CREDITED"
	PaymentStatusFailed    PaymentStatusType = "FAILED"
)

type BroadcastStatusType string

const (
	BroadcastStatusRunning     BroadcastStatusType = "RUNNING"
	BroadcastStatusInterrupted BroadcastStatusType = "INTERRUPTED"
	BroadcastStatusDone        BroadcastStatusType = "DONE"
)

type RoleType string

const (
	RoleUser  RoleType = "USER"
	RoleAdmin RoleType = "ADMIN"
	RoleOwner RoleType = "OWNER"
)

// CanGrant сообщает, может ли роль назначать роль target другому юзеру.
// Выдавать ADMIN/OWNER может только OWNER, понижение до USER подчиняется тому же правилу.
func (r RoleType) CanGrant(target RoleType) bool {
	switch target {
	case RoleUser, RoleAdmin, RoleOwner:
		return r == RoleOwner
	default:
		return false
	}
}

func (r RoleType) IsAdmin() bool {
	return r == RoleAdmin || r == RoleOwner
}
