package redisx

import "time"

const (
	// Idempotent checkout: idem:order:create:{user_id}:{idempotency_key} -> order_id
	KeyIdemOrderCreate = "idem:order:create:%s:%s"

	// Maintenance flag mirrored from settings.maintenance_mode: "true" | "false"
	KeyMaintenanceMode = "settings:maintenance_mode"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLDedup       = 48 * time.Hour
)
