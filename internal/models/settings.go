package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Settings is the singleton quick-trade configuration record.
type Settings struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	DefaultWallet   string    `gorm:"size:64" json:"defaultWallet"`
	BuyAmounts      FloatList `gorm:"type:text" json:"buyAmounts"`
	SellPercentages FloatList `gorm:"type:text" json:"sellAmountPercentages"`
	Slippage        float64   `gorm:"not null;default:5" json:"slippage"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// FloatList is an ordered list of numbers stored as a JSON column.
type FloatList []float64

// Value implements the driver.Valuer interface
func (l FloatList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements the sql.Scanner interface
func (l *FloatList) Scan(value interface{}) error {
	if value == nil {
		*l = FloatList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for FloatList: %T", value)
	}
	if len(data) == 0 {
		*l = FloatList{}
		return nil
	}
	return json.Unmarshal(data, l)
}
