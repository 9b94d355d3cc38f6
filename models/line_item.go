package models

import (
	"time"
)

type LineItem struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	InvoiceID   uint      `gorm:"not null;index" json:"invoice_id"`
	Description string    `gorm:"type:text" json:"description"`
	Quantity    float64   `gorm:"type:decimal(10,2)" json:"quantity"`
	UnitPrice   float64   `gorm:"type:decimal(10,2)" json:"unit_price"`
	TotalPrice  float64   `gorm:"type:decimal(10,2)" json:"total_price"`
	Verified    bool      `gorm:"default:false" json:"verified"`
}

// TableName overrides the table name
func (LineItem) TableName() string {
	return "line_items"
}
