package enums

// OrderKind separates hosted-payment orders from reseller check orders.
type OrderKind string

const (
	OrderKindHosted   OrderKind = "hosted"
	OrderKindReseller OrderKind = "reseller"
)

func (k OrderKind) IsValid() bool {
	return k == OrderKindHosted || k == OrderKindReseller
}

// OrderStatus tracks an order from capture to payment.
type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusAwaitingCheck  OrderStatus = "awaiting_check"
	OrderStatusPaid           OrderStatus = "paid"
	OrderStatusFailed         OrderStatus = "failed"
	OrderStatusCanceled       OrderStatus = "canceled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPendingPayment,
	OrderStatusAwaitingCheck,
	OrderStatusPaid,
	OrderStatusFailed,
	OrderStatusCanceled,
}

func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}
