package models

import (
	"time"
)

// InvoiceStatusPending is the status every freshly ingested invoice starts in.
const InvoiceStatusPending = "pending"

type Invoice struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	UserID        uint       `gorm:"not null;index" json:"user_id"`
	User          User       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	SupplierName  string     `gorm:"size:255" json:"supplier_name"`
	InvoiceNumber *string    `gorm:"size:100" json:"invoice_number"`
	InvoiceDate   time.Time  `gorm:"type:date" json:"invoice_date"`
	TotalAmount   float64    `gorm:"type:decimal(10,2)" json:"total_amount"`
	TvaAmount     float64    `gorm:"type:decimal(10,2)" json:"tva_amount"`
	TvaPercentage float64    `gorm:"type:decimal(5,2)" json:"tva_percentage"`
	Status        string     `gorm:"size:50;default:'pending'" json:"status"`
	ImagePath     string     `gorm:"size:500" json:"image_path"`
	LineItems     []LineItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"line_items,omitempty"`
}

// TableName overrides the table name
func (Invoice) TableName() string {
	return "invoices"
}
