package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailySnapshot 每个UTC日期一行，全量重算后整行覆盖写入
type DailySnapshot struct {
	ID                 uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Date               string          `gorm:"size:10;not null;uniqueIndex:uk_date" json:"date"`
	NewStake           decimal.Decimal `gorm:"type:decimal(65,18);not null;default:0" json:"new_stake"`
	NewUnstake         decimal.Decimal `gorm:"type:decimal(65,18);not null;default:0" json:"new_unstake"`
	ActiveStake        decimal.Decimal `gorm:"type:decimal(65,18);not null;default:0" json:"active_stake"`
	CumulativeStake    decimal.Decimal `gorm:"type:decimal(65,18);not null;default:0" json:"cumulative_stake"`
	TotalUsers         int64           `gorm:"not null;default:0" json:"total_users"`
	UnlockedNext1Day   decimal.Decimal `gorm:"column:unlocked_next_1day;type:decimal(65,18);not null;default:0" json:"unlocked_next_1day"`
	UnlockedNext2Days  decimal.Decimal `gorm:"column:unlocked_next_2days;type:decimal(65,18);not null;default:0" json:"unlocked_next_2days"`
	UnlockedNext7Days  decimal.Decimal `gorm:"column:unlocked_next_7days;type:decimal(65,18);not null;default:0" json:"unlocked_next_7days"`
	UnlockedNext15Days decimal.Decimal `gorm:"column:unlocked_next_15days;type:decimal(65,18);not null;default:0" json:"unlocked_next_15days"`
	UnlockedNext30Days decimal.Decimal `gorm:"column:unlocked_next_30days;type:decimal(65,18);not null;default:0" json:"unlocked_next_30days"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (DailySnapshot) TableName() string {
	return "daily_stake_snapshots"
}
