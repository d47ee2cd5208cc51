package dto

// AutoCloseSettingsRequest changes the auto-close schedule. Omitted fields keep their stored value.
type AutoCloseSettingsRequest struct {
	Enabled   *bool   `json:"enabled"`
	GraceDays *int    `json:"grace_days"`
	Frequency *string `json:"frequency"`
	Hour      *int    `json:"hour"`
	Minute    *int    `json:"minute"`
}

// NumberingSettingsRequest changes the layout of future ticket numbers.
type NumberingSettingsRequest struct {
	Prefix *string `json:"prefix"`
	Digits *int    `json:"digits"`
}
