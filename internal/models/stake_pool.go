package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type StakePool struct {
	ID          int64           `gorm:"primaryKey" json:"id"`
	LockDays    int             `gorm:"not null" json:"lock_days"`
	RatePerSec  string          `gorm:"size:78;not null;default:0" json:"rate_per_sec"`
	MinStake    decimal.Decimal `gorm:"type:decimal(65,18);not null;default:0" json:"min_stake"`
	MaxStake    decimal.Decimal `gorm:"type:decimal(65,18);not null;default:0" json:"max_stake"`
	TotalStaked decimal.Decimal `gorm:"type:decimal(65,18);not null;default:0" json:"total_staked"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (StakePool) TableName() string {
	return "stake_pools"
}
