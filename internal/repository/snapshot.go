package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hcm999/staking-gana/internal/models"
)

type SnapshotRepository struct {
	db *gorm.DB
}

func NewSnapshotRepository(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Upsert 以date为键写入当日快照
// 冲突时整行覆盖，同一天最后一次运行的结果生效
func (r *SnapshotRepository) Upsert(ctx context.Context, snapshot *models.DailySnapshot) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"new_stake", "new_unstake", "active_stake", "cumulative_stake", "total_users",
			"unlocked_next_1day", "unlocked_next_2days", "unlocked_next_7days",
			"unlocked_next_15days", "unlocked_next_30days", "updated_at",
		}),
	}).Create(snapshot).Error
}

// Range 返回最近days天的快照，按日期升序
func (r *SnapshotRepository) Range(ctx context.Context, days int) ([]models.DailySnapshot, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days+1).Format("2006-01-02")

	var snapshots []models.DailySnapshot
	err := r.db.WithContext(ctx).
		Where("date >= ?", cutoff).
		Order("date ASC").
		Find(&snapshots).Error
	return snapshots, err
}

// Latest 返回日期最新的一行快照，没有时返回nil
func (r *SnapshotRepository) Latest(ctx context.Context) (*models.DailySnapshot, error) {
	var snapshot models.DailySnapshot
	err := r.db.WithContext(ctx).
		Order("date DESC").
		First(&snapshot).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &snapshot, err
}

func (r *SnapshotRepository) GetByDate(ctx context.Context, date string) (*models.DailySnapshot, error) {
	var snapshot models.DailySnapshot
	err := r.db.WithContext(ctx).
		Where("date = ?", date).
		First(&snapshot).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &snapshot, err
}
