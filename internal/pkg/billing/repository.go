package billing

import (
	"errors"
	"time"

	"github.com/FabianGrimm/InkPress/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the billing service and
// reconciler. Each write is a single atomic upsert keyed on user_id;
// concurrent webhook deliveries for the same user cannot interleave into a
// torn state because no handler does a read-modify-write across statements
// against the same field set.
type Repository interface {
	Get(userID uint) (*models.SubscriptionRecord, error)
	FindOrDefault(userID uint) (*models.SubscriptionRecord, error)
	FindByCustomerID(customerID string) (*models.SubscriptionRecord, error)
	FindBySubscriptionID(subscriptionID string) (*models.SubscriptionRecord, error)
	Upsert(rec *models.SubscriptionRecord) error
	CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Get(userID uint) (*models.SubscriptionRecord, error) {
	var rec models.SubscriptionRecord
	if err := r.db.Where("user_id = ?", userID).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// FindOrDefault returns the user's record, or a FREE default without
// persisting it. Used by read-only access checks.
func (r *gormRepository) FindOrDefault(userID uint) (*models.SubscriptionRecord, error) {
	rec, err := r.Get(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewFreeSubscriptionRecord(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *gormRepository) FindByCustomerID(customerID string) (*models.SubscriptionRecord, error) {
	var rec models.SubscriptionRecord
	if err := r.db.Where("provider_customer_id = ?", customerID).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *gormRepository) FindBySubscriptionID(subscriptionID string) (*models.SubscriptionRecord, error) {
	var rec models.SubscriptionRecord
	if err := r.db.Where("provider_subscription_id = ?", subscriptionID).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *gormRepository) Upsert(rec *models.SubscriptionRecord) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"tier",
			"provider_customer_id",
			"provider_subscription_id",
			"provider_price_id",
			"current_period_end",
			"updated_at",
		}),
	}).Create(rec).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("user_id = ?", rec.UserID).First(rec).Error
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.Where("provider_event_id = ?", event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
