package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type StakeStatus string

const (
	StakeStatusActive   StakeStatus = "active"
	StakeStatusUnstaked StakeStatus = "unstaked"
)

// StakeRecord 链上每笔质押动作对应一行
// tx_hash全局唯一，作为幂等键；status只会从active转为unstaked，不可逆
type StakeRecord struct {
	ID               uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserAddress      string          `gorm:"size:42;not null;index:idx_user_pool_status" json:"user_address"`
	StakeIndex       int64           `gorm:"not null;index:idx_user_pool_status" json:"stake_index"`
	Amount           decimal.Decimal `gorm:"type:decimal(65,18);not null" json:"amount"`
	LockDays         int             `gorm:"not null" json:"lock_days"`
	StakeTime        int64           `gorm:"not null;index" json:"stake_time"`
	StakeTimestamp   time.Time       `gorm:"not null" json:"stake_timestamp"`
	UnlockTime       int64           `gorm:"not null;index" json:"unlock_time"`
	UnlockTimestamp  time.Time       `gorm:"not null" json:"unlock_timestamp"`
	UnstakeTime      *int64          `json:"unstake_time"`
	UnstakeTimestamp *time.Time      `json:"unstake_timestamp"`
	TxHash           string          `gorm:"size:66;not null;uniqueIndex:uk_tx" json:"tx_hash"`
	BlockNumber      int64           `gorm:"not null;index" json:"block_number"`
	Status           StakeStatus     `gorm:"size:20;not null;default:'active';index:idx_user_pool_status" json:"status"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (StakeRecord) TableName() string {
	return "stake_records"
}
