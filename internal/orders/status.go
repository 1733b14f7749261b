package orders

type Status string

const (
	StatusPendingPayment Status = "PENDING_PAYMENT"
	StatusPaid           Status = "PAID"
	StatusProcessing     Status = "PROCESSING"
	StatusShipped        Status = "SHIPPED"
	StatusDelivered      Status = "DELIVERED"
	StatusCancelled      Status = "CANCELLED"
	StatusRefunded       Status = "REFUNDED"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

type PaymentMethod string

const (
	MethodCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
	MethodBankTransfer   PaymentMethod = "BANK_TRANSFER"
	MethodBTC            PaymentMethod = "BTC"
	MethodETH            PaymentMethod = "ETH"
	MethodUSDTTRC20      PaymentMethod = "USDT_TRC20"
	MethodUSDTERC20      PaymentMethod = "USDT_ERC20"
)

var validNext = map[Status]map[Status]bool{
	StatusPendingPayment: {StatusPaid: true, StatusProcessing: true, StatusCancelled: true},
	StatusPaid:           {StatusProcessing: true, StatusShipped: true, StatusCancelled: true, StatusRefunded: true},
	StatusProcessing:     {StatusShipped: true, StatusCancelled: true, StatusRefunded: true},
	StatusShipped:        {StatusDelivered: true, StatusRefunded: true},
	StatusDelivered:      {StatusRefunded: true},
	StatusCancelled:      {StatusRefunded: true},
	StatusRefunded:       {},
}

var validPaymentNext = map[PaymentStatus]map[PaymentStatus]bool{
	PaymentPending:   {PaymentCompleted: true, PaymentFailed: true},
	PaymentFailed:    {PaymentPending: true, PaymentCompleted: true},
	PaymentCompleted: {PaymentRefunded: true},
	PaymentRefunded:  {},
}

var cryptoMethods = map[PaymentMethod]bool{
	MethodBTC:       true,
	MethodETH:       true,
	MethodUSDTTRC20: true,
	MethodUSDTERC20: true,
}

// CanTransition reports whether an order may move from one status to another.
// Staying in place is always allowed.
func CanTransition(from, to Status) bool {
	return from == to || validNext[from][to]
}

func CanTransitionPayment(from, to PaymentStatus) bool {
	return from == to || validPaymentNext[from][to]
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

func (s PaymentStatus) Valid() bool {
	_, ok := validPaymentNext[s]
	return ok
}

func (m PaymentMethod) Valid() bool {
	return m == MethodCashOnDelivery || m == MethodBankTransfer || cryptoMethods[m]
}

func (m PaymentMethod) Crypto() bool { return cryptoMethods[m] }
