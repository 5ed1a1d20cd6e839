package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hcm999/staking-gana/internal/models"
)

type StakeRepository struct {
	db *gorm.DB
}

func NewStakeRepository(db *gorm.DB) *StakeRepository {
	return &StakeRepository{db: db}
}

// InsertIgnore 幂等插入质押记录，以tx_hash为冲突键
// 返回是否真正写入了新行；重复插入是no-op，不修改已有字段
func (r *StakeRepository) InsertIgnore(ctx context.Context, record *models.StakeRecord) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tx_hash"}},
		DoNothing: true,
	}).Create(record)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FindEarliestMatchable 查找最早的可匹配质押记录
// 条件：同用户同池、仍为active、解锁时间不晚于事件时间
// 排序：stake_time升序，再按id升序保证确定性
func (r *StakeRepository) FindEarliestMatchable(ctx context.Context, userAddress string, poolID int64, eligibleBefore int64) (*models.StakeRecord, error) {
	var record models.StakeRecord
	err := r.db.WithContext(ctx).
		Where("user_address = ? AND stake_index = ? AND status = ? AND unlock_time <= ?",
			userAddress, poolID, models.StakeStatusActive, eligibleBefore).
		Order("stake_time ASC, id ASC").
		First(&record).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &record, err
}

// MarkUnstaked 将记录从active转为unstaked并记录解押时间
// 条件更新，已解押的记录不会被再次更新；返回是否真正更新了行
func (r *StakeRepository) MarkUnstaked(ctx context.Context, id uint64, unstakeTime int64) (bool, error) {
	ts := time.Unix(unstakeTime, 0).UTC()
	result := r.db.WithContext(ctx).
		Model(&models.StakeRecord{}).
		Where("id = ? AND status = ?", id, models.StakeStatusActive).
		Updates(map[string]interface{}{
			"status":            models.StakeStatusUnstaked,
			"unstake_time":      unstakeTime,
			"unstake_timestamp": ts,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *StakeRepository) GetByTxHash(ctx context.Context, txHash string) (*models.StakeRecord, error) {
	var record models.StakeRecord
	err := r.db.WithContext(ctx).
		Where("tx_hash = ?", txHash).
		First(&record).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &record, err
}

// SumActive 仍在质押中的总量
func (r *StakeRepository) SumActive(ctx context.Context) (decimal.Decimal, error) {
	return r.sum(ctx, "status = ?", models.StakeStatusActive)
}

// SumAll 累计质押总量（含已解押）
func (r *StakeRepository) SumAll(ctx context.Context) (decimal.Decimal, error) {
	return r.sum(ctx, "1 = 1")
}

// SumActiveByPool 指定池的活跃质押总量
func (r *StakeRepository) SumActiveByPool(ctx context.Context, poolID int64) (decimal.Decimal, error) {
	return r.sum(ctx, "status = ? AND stake_index = ?", models.StakeStatusActive, poolID)
}

// SumUnlockingBetween 活跃记录中解锁时间落在[from, to]内的总量
func (r *StakeRepository) SumUnlockingBetween(ctx context.Context, from, to int64) (decimal.Decimal, error) {
	return r.sum(ctx, "status = ? AND unlock_time BETWEEN ? AND ?", models.StakeStatusActive, from, to)
}

// SumStakedBetween 质押时间落在[from, to)内的总量，用于重算当日新增质押
func (r *StakeRepository) SumStakedBetween(ctx context.Context, from, to int64) (decimal.Decimal, error) {
	return r.sum(ctx, "stake_time >= ? AND stake_time < ?", from, to)
}

// SumUnstakedBetween 解押时间落在[from, to)内的本金总量，用于重算当日解押
func (r *StakeRepository) SumUnstakedBetween(ctx context.Context, from, to int64) (decimal.Decimal, error) {
	return r.sum(ctx, "status = ? AND unstake_time >= ? AND unstake_time < ?", models.StakeStatusUnstaked, from, to)
}

// CountActiveUsers 活跃质押的去重用户数
func (r *StakeRepository) CountActiveUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.StakeRecord{}).
		Where("status = ?", models.StakeStatusActive).
		Distinct("user_address").
		Count(&count).Error
	return count, err
}

func (r *StakeRepository) sum(ctx context.Context, query string, args ...interface{}) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	row := r.db.WithContext(ctx).
		Model(&models.StakeRecord{}).
		Select("COALESCE(SUM(amount), 0)").
		Where(query, args...).
		Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
