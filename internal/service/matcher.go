package service

import (
	"context"

	"github.com/hcm999/staking-gana/internal/models"
	"github.com/hcm999/staking-gana/internal/repository"
	"github.com/hcm999/staking-gana/pkg/logger"
)

// MatchStrategy 解押事件与质押记录的匹配策略
// 链上事件不携带被关闭仓位的引用，只能由任务推断；策略可替换，
// 将来合约若提供精确引用可以换成精确匹配而不影响聚合逻辑
type MatchStrategy interface {
	// Match 为一笔解押事件找到至多一条active记录并标记解押
	// 返回匹配到的记录和是否真正完成了状态转换
	Match(ctx context.Context, userAddress string, poolID int64, eventTime int64) (*models.StakeRecord, bool, error)
}

// FIFOMatcher 先进先出匹配
// 在同用户同池、解锁时间不晚于事件时间的active记录中选最早质押的一条
type FIFOMatcher struct {
	stakeRepo *repository.StakeRepository
}

func NewFIFOMatcher(stakeRepo *repository.StakeRepository) *FIFOMatcher {
	return &FIFOMatcher{stakeRepo: stakeRepo}
}

func (m *FIFOMatcher) Match(ctx context.Context, userAddress string, poolID int64, eventTime int64) (*models.StakeRecord, bool, error) {
	record, err := m.stakeRepo.FindEarliestMatchable(ctx, userAddress, poolID, eventTime)
	if err != nil {
		return nil, false, err
	}
	if record == nil {
		return nil, false, nil
	}

	// 条件更新：只有仍为active时才会生效，并发下最多转换一次
	updated, err := m.stakeRepo.MarkUnstaked(ctx, record.ID, eventTime)
	if err != nil {
		return nil, false, err
	}
	if !updated {
		logger.WithFields(map[string]interface{}{
			"record_id": record.ID,
			"tx_hash":   record.TxHash,
		}).Warn("记录在匹配过程中已被解押，跳过")
		return nil, false, nil
	}

	return record, true, nil
}
