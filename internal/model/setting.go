package model

import "time"

// AppSetting is one runtime-adjustable key/value pair, e.g. the grade
// scale override.
type AppSetting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Well-known setting keys.
const (
	SettingGradeBands = "grade_bands"
)

// UpdateSettingRequest is the payload for changing a setting value.
type UpdateSettingRequest struct {
	Value string `json:"value" binding:"required,max=2000"`
}
