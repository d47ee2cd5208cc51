package domain

import "time"

// SystemSetting is a single runtime configuration row.
type SystemSetting struct {
	Key         string
	Value       string
	Description string
	UpdatedAt   time.Time
}
