package repository

import (
	"context"

	"github.com/yourusername/facturio/models"
	"gorm.io/gorm"
)

type InvoiceRepository interface {
	// WithTx returns a repository bound to the given transaction handle.
	WithTx(tx *gorm.DB) InvoiceRepository
	FindAll(ctx context.Context) ([]models.Invoice, error)
	FindByUserID(ctx context.Context, userID uint) ([]models.Invoice, error)
	FindByID(ctx context.Context, id uint) (*models.Invoice, error)
	Create(ctx context.Context, invoice *models.Invoice) error
	Save(ctx context.Context, invoice *models.Invoice) error
	Delete(ctx context.Context, id uint) error
}

type gormInvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &gormInvoiceRepository{db: db}
}

func (r *gormInvoiceRepository) WithTx(tx *gorm.DB) InvoiceRepository {
	return &gormInvoiceRepository{db: tx}
}

func (r *gormInvoiceRepository) FindAll(ctx context.Context) ([]models.Invoice, error) {
	var invoices []models.Invoice
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *gormInvoiceRepository) FindByUserID(ctx context.Context, userID uint) ([]models.Invoice, error) {
	var invoices []models.Invoice
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *gormInvoiceRepository) FindByID(ctx context.Context, id uint) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).First(&invoice, id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *gormInvoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *gormInvoiceRepository) Save(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Save(invoice).Error
}

func (r *gormInvoiceRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Invoice{}, id).Error
}
