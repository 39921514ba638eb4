package enum

// ── Kiosk selections ──

const (
	ServiceModeDineIn = "DINE_IN"
	ServiceModeToGo   = "TO_GO"
)

const (
	PaymentMethodCard = "CARD"
	PaymentMethodCash = "CASH"
)

// ServiceModes lists service modes in the order the kiosk offers them.
// The first entry is the default for a fresh order.
var ServiceModes = []string{ServiceModeDineIn, ServiceModeToGo}

// PaymentMethods lists payment methods in the order the kiosk offers them.
var PaymentMethods = []string{PaymentMethodCard, PaymentMethodCash}

// ── Backends (selected by config) ──

const (
	DatasetBackendCSV      = "csv"
	DatasetBackendPostgres = "postgres"
)

const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)
