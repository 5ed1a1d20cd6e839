package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hcm999/staking-gana/internal/models"
)

type PoolRepository struct {
	db *gorm.DB
}

func NewPoolRepository(db *gorm.DB) *PoolRepository {
	return &PoolRepository{db: db}
}

// Seed 初始化质押池配置，已存在的池只更新配置字段
// 不覆盖rate_per_sec和total_staked，这两个字段由抓取任务维护
func (r *PoolRepository) Seed(ctx context.Context, pools []models.StakePool) error {
	for i := range pools {
		err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"lock_days", "min_stake", "max_stake", "updated_at"}),
		}).Create(&pools[i]).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// UpdateRate 写入从链上读取的最新利率
func (r *PoolRepository) UpdateRate(ctx context.Context, poolID int64, ratePerSec string) error {
	return r.db.WithContext(ctx).
		Model(&models.StakePool{}).
		Where("id = ?", poolID).
		Update("rate_per_sec", ratePerSec).Error
}

// UpdateTotalStaked 覆盖写入池的当前活跃质押总量
func (r *PoolRepository) UpdateTotalStaked(ctx context.Context, poolID int64, total decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.StakePool{}).
		Where("id = ?", poolID).
		Update("total_staked", total).Error
}

func (r *PoolRepository) List(ctx context.Context) ([]models.StakePool, error) {
	var pools []models.StakePool
	err := r.db.WithContext(ctx).
		Order("id ASC").
		Find(&pools).Error
	return pools, err
}

func (r *PoolRepository) GetByID(ctx context.Context, poolID int64) (*models.StakePool, error) {
	var pool models.StakePool
	err := r.db.WithContext(ctx).
		Where("id = ?", poolID).
		First(&pool).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &pool, err
}
