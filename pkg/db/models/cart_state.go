package models

import "time"

// CartState holds one serialized cart under its storage key.
type CartState struct {
	StateKey  string    `gorm:"column:state_key;primaryKey;size:128"`
	Payload   string    `gorm:"column:payload;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (CartState) TableName() string {
	return "cart_states"
}
