package repository

import (
	"context"

	"github.com/yourusername/facturio/models"
	"gorm.io/gorm"
)

type LineItemRepository interface {
	WithTx(tx *gorm.DB) LineItemRepository
	Create(ctx context.Context, item *models.LineItem) error
	FindByInvoiceID(ctx context.Context, invoiceID uint) ([]models.LineItem, error)
	DeleteByInvoiceID(ctx context.Context, invoiceID uint) error
}

type gormLineItemRepository struct {
	db *gorm.DB
}

func NewLineItemRepository(db *gorm.DB) LineItemRepository {
	return &gormLineItemRepository{db: db}
}

func (r *gormLineItemRepository) WithTx(tx *gorm.DB) LineItemRepository {
	return &gormLineItemRepository{db: tx}
}

func (r *gormLineItemRepository) Create(ctx context.Context, item *models.LineItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *gormLineItemRepository) FindByInvoiceID(ctx context.Context, invoiceID uint) ([]models.LineItem, error) {
	var items []models.LineItem
	if err := r.db.WithContext(ctx).Where("invoice_id = ?", invoiceID).Order("id").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *gormLineItemRepository) DeleteByInvoiceID(ctx context.Context, invoiceID uint) error {
	return r.db.WithContext(ctx).Where("invoice_id = ?", invoiceID).Delete(&models.LineItem{}).Error
}
