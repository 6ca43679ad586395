package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/orris-inc/paywall/internal/shared/constants"
)

// BillingAccountModel represents the database persistence model for billing
// accounts. This is the anti-corruption layer between domain and database.
type BillingAccountModel struct {
	ID                uint    `gorm:"primarykey"`
	UserID            uint    `gorm:"not null;uniqueIndex:idx_billing_accounts_user_id"`
	Email             string  `gorm:"not null;size:255"`
	IsAdmin           bool    `gorm:"not null;default:false"`
	Status            string  `gorm:"not null;size:20;default:trial;index:idx_billing_accounts_status"`
	CustomerID        *string `gorm:"size:255;index:idx_billing_accounts_customer_id"`
	SubscriptionID    *string `gorm:"size:255;index:idx_billing_accounts_subscription_id"`
	SubscriptionStart *time.Time
	SubscriptionEnd   *time.Time
	TrialStart        *time.Time
	TrialEnd          *time.Time
	Metadata          datatypes.JSON
	Version           int `gorm:"not null;default:1"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the table name for GORM
func (BillingAccountModel) TableName() string {
	return constants.TableBillingAccounts
}
