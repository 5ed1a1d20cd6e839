package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hcm999/staking-gana/internal/blockchain"
	"github.com/hcm999/staking-gana/internal/config"
	"github.com/hcm999/staking-gana/internal/models"
	"github.com/hcm999/staking-gana/internal/repository"
	"github.com/hcm999/staking-gana/pkg/errors"
	"github.com/hcm999/staking-gana/pkg/logger"
)

const secondsPerDay = 86400

// amountExp 合约原生单位到展示单位的换算（1e18）
const amountExp = -18

// unlockHorizons 快照中的五个前瞻解锁窗口（天）
var unlockHorizons = []int{1, 2, 7, 15, 30}

// ChainReader 任务所需的账本只读访问
type ChainReader interface {
	GetLatestBlockNumber(ctx context.Context) (int64, error)
	GetPoolRate(ctx context.Context, poolID int64) (string, error)
	GetStakedLogs(ctx context.Context, fromBlock, toBlock int64) ([]*blockchain.StakedEvent, error)
	GetRewardPaidLogs(ctx context.Context, fromBlock, toBlock int64) ([]*blockchain.RewardPaidEvent, error)
	GetBlockTimestamp(ctx context.Context, blockNumber int64) (time.Time, error)
}

// RunSummary 单次运行的结果摘要
type RunSummary struct {
	Today           string          `json:"today"`
	NewStake        decimal.Decimal `json:"newStake"`
	Unstake         decimal.Decimal `json:"unstake"`
	NetNewStake     decimal.Decimal `json:"netNewStake"`
	ActiveStake     decimal.Decimal `json:"activeStake"`
	CumulativeStake decimal.Decimal `json:"cumulativeStake"`
	TotalUsers      int64           `json:"totalUsers"`
}

// IngestService 抓取任务：扫描区块窗口内的质押/解押事件，
// 对账后重算聚合并写入当日快照
type IngestService struct {
	chain        ChainReader
	poolRepo     *repository.PoolRepository
	stakeRepo    *repository.StakeRepository
	snapshotRepo *repository.SnapshotRepository
	matcher      MatchStrategy
	pools        []config.PoolConfig
	lockDays     map[int64]int
	scanWindow   int64
	clock        blockchain.Clock
}

func NewIngestService(
	chain ChainReader,
	poolRepo *repository.PoolRepository,
	stakeRepo *repository.StakeRepository,
	snapshotRepo *repository.SnapshotRepository,
	matcher MatchStrategy,
	pools []config.PoolConfig,
	scanWindow int64,
	clock blockchain.Clock,
) *IngestService {
	if clock == nil {
		clock = blockchain.SystemClock
	}
	lockDays := make(map[int64]int, len(pools))
	for _, pool := range pools {
		lockDays[pool.ID] = pool.LockDays
	}
	return &IngestService{
		chain:        chain,
		poolRepo:     poolRepo,
		stakeRepo:    stakeRepo,
		snapshotRepo: snapshotRepo,
		matcher:      matcher,
		pools:        pools,
		lockDays:     lockDays,
		scanWindow:   scanWindow,
		clock:        clock,
	}
}

// Run 执行一次完整的抓取
// 各行写入独立提交，中途失败留下的是合法的部分更新状态，重跑安全
func (s *IngestService) Run(ctx context.Context) (*RunSummary, error) {
	now := s.clock.Now().UTC()
	nowUnix := now.Unix()
	today := now.Format("2006-01-02")
	dayStart := nowUnix - nowUnix%secondsPerDay

	head, err := s.chain.GetLatestBlockNumber(ctx)
	if err != nil {
		return nil, err
	}

	fromBlock := head - s.scanWindow
	if fromBlock < 0 {
		fromBlock = 0
	}

	logger.WithFields(map[string]interface{}{
		"head":       head,
		"from_block": fromBlock,
		"today":      today,
	}).Info("开始抓取数据...")

	// 1. 刷新各池利率，单个池失败不中断
	s.refreshPoolRates(ctx)

	// 2. 质押事件入库（整个窗口，幂等）
	if err := s.ingestStakes(ctx, fromBlock, head); err != nil {
		return nil, err
	}

	// 3. 解押事件对账（整个窗口，按区块升序保证FIFO语义）
	if err := s.reconcileUnstakes(ctx, fromBlock, head); err != nil {
		return nil, err
	}

	// 4. 从存储重算聚合并提交快照
	summary, err := s.commitSnapshot(ctx, today, dayStart, nowUnix)
	if err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"today":            summary.Today,
		"new_stake":        summary.NewStake.String(),
		"unstake":          summary.Unstake.String(),
		"net_new_stake":    summary.NetNewStake.String(),
		"active_stake":     summary.ActiveStake.String(),
		"cumulative_stake": summary.CumulativeStake.String(),
		"total_users":      summary.TotalUsers,
	}).Info("数据抓取完成")

	return summary, nil
}

// refreshPoolRates 利率是参考性元数据，单池失败记日志后跳过
func (s *IngestService) refreshPoolRates(ctx context.Context) {
	for _, pool := range s.pools {
		rate, err := s.chain.GetPoolRate(ctx, pool.ID)
		if err != nil {
			logger.Error("获取池利率失败，跳过:", pool.ID, err)
			continue
		}
		if err := s.poolRepo.UpdateRate(ctx, pool.ID, rate); err != nil {
			logger.Error("更新池利率失败:", pool.ID, err)
			continue
		}
		logger.WithFields(map[string]interface{}{
			"pool_id":      pool.ID,
			"rate_per_sec": rate,
		}).Debug("池利率已更新")
	}
}

func (s *IngestService) ingestStakes(ctx context.Context, fromBlock, toBlock int64) error {
	events, err := s.chain.GetStakedLogs(ctx, fromBlock, toBlock)
	if err != nil {
		return errors.New(errors.ErrStakeIngest, "扫描Staked事件失败", err)
	}

	for _, event := range events {
		lockDays := s.lockDays[event.PoolID]
		unlockTime := event.StakeTime + int64(lockDays)*secondsPerDay

		record := &models.StakeRecord{
			UserAddress:     event.User.Hex(),
			StakeIndex:      event.PoolID,
			Amount:          decimal.NewFromBigInt(event.Amount, amountExp),
			LockDays:        lockDays,
			StakeTime:       event.StakeTime,
			StakeTimestamp:  time.Unix(event.StakeTime, 0).UTC(),
			UnlockTime:      unlockTime,
			UnlockTimestamp: time.Unix(unlockTime, 0).UTC(),
			TxHash:          event.TxHash,
			BlockNumber:     event.BlockNumber,
			Status:          models.StakeStatusActive,
		}

		created, err := s.stakeRepo.InsertIgnore(ctx, record)
		if err != nil {
			logger.Error("插入质押记录失败:", event.TxHash, err)
			continue
		}
		if created {
			logger.WithFields(map[string]interface{}{
				"user":    record.UserAddress,
				"pool_id": record.StakeIndex,
				"amount":  record.Amount.String(),
				"tx_hash": record.TxHash,
			}).Info("新增质押记录")
		}
	}

	return nil
}

func (s *IngestService) reconcileUnstakes(ctx context.Context, fromBlock, toBlock int64) error {
	events, err := s.chain.GetRewardPaidLogs(ctx, fromBlock, toBlock)
	if err != nil {
		return errors.New(errors.ErrReconcile, "扫描RewardPaid事件失败", err)
	}

	// FIFO匹配依赖事件按区块升序处理
	sort.Slice(events, func(i, j int) bool {
		return events[i].BlockNumber < events[j].BlockNumber
	})

	for _, event := range events {
		ts, err := s.chain.GetBlockTimestamp(ctx, event.BlockNumber)
		if err != nil {
			logger.Error("获取区块时间戳失败，跳过事件:", event.TxHash, err)
			continue
		}

		record, matched, err := s.matcher.Match(ctx, event.User.Hex(), event.PoolID, ts.Unix())
		if err != nil {
			logger.Error("解押匹配失败:", event.TxHash, err)
			continue
		}
		if !matched {
			// 没有符合条件的active记录，可能已在上次运行中对账
			logger.WithFields(map[string]interface{}{
				"user":    event.User.Hex(),
				"pool_id": event.PoolID,
				"tx_hash": event.TxHash,
			}).Debug("无可匹配的质押记录，跳过解押事件")
			continue
		}

		logger.WithFields(map[string]interface{}{
			"user":      record.UserAddress,
			"pool_id":   record.StakeIndex,
			"amount":    record.Amount.String(),
			"stake_tx":  record.TxHash,
			"reward_tx": event.TxHash,
		}).Info("质押记录已解押")
	}

	return nil
}

// commitSnapshot 全部聚合从存储重算，不信任内存中的事件累计值
// 因此同一天重复运行得到完全一致的快照
func (s *IngestService) commitSnapshot(ctx context.Context, today string, dayStart, nowUnix int64) (*RunSummary, error) {
	newStake, err := s.stakeRepo.SumStakedBetween(ctx, dayStart, dayStart+secondsPerDay)
	if err != nil {
		return nil, errors.New(errors.ErrAggregateQuery, "统计当日新增质押失败", err)
	}

	newUnstake, err := s.stakeRepo.SumUnstakedBetween(ctx, dayStart, dayStart+secondsPerDay)
	if err != nil {
		return nil, errors.New(errors.ErrAggregateQuery, "统计当日解押失败", err)
	}

	activeStake, err := s.stakeRepo.SumActive(ctx)
	if err != nil {
		return nil, errors.New(errors.ErrAggregateQuery, "统计活跃质押失败", err)
	}

	cumulativeStake, err := s.stakeRepo.SumAll(ctx)
	if err != nil {
		return nil, errors.New(errors.ErrAggregateQuery, "统计累计质押失败", err)
	}

	totalUsers, err := s.stakeRepo.CountActiveUsers(ctx)
	if err != nil {
		return nil, errors.New(errors.ErrAggregateQuery, "统计活跃用户失败", err)
	}

	unlocked := make([]decimal.Decimal, len(unlockHorizons))
	for i, horizon := range unlockHorizons {
		total, err := s.stakeRepo.SumUnlockingBetween(ctx, nowUnix, nowUnix+int64(horizon)*secondsPerDay)
		if err != nil {
			return nil, errors.New(errors.ErrAggregateQuery, "统计前瞻解锁失败", err)
		}
		unlocked[i] = total
	}

	snapshot := &models.DailySnapshot{
		Date:               today,
		NewStake:           newStake,
		NewUnstake:         newUnstake,
		ActiveStake:        activeStake,
		CumulativeStake:    cumulativeStake,
		TotalUsers:         totalUsers,
		UnlockedNext1Day:   unlocked[0],
		UnlockedNext2Days:  unlocked[1],
		UnlockedNext7Days:  unlocked[2],
		UnlockedNext15Days: unlocked[3],
		UnlockedNext30Days: unlocked[4],
	}

	if err := s.snapshotRepo.Upsert(ctx, snapshot); err != nil {
		return nil, errors.New(errors.ErrSnapshotWrite, "写入当日快照失败", err)
	}

	// 池总量在快照之后更新，每行独立提交
	for _, pool := range s.pools {
		total, err := s.stakeRepo.SumActiveByPool(ctx, pool.ID)
		if err != nil {
			return nil, errors.New(errors.ErrAggregateQuery, "统计池质押总量失败", err)
		}
		if err := s.poolRepo.UpdateTotalStaked(ctx, pool.ID, total); err != nil {
			return nil, errors.New(errors.ErrSnapshotWrite, "更新池质押总量失败", err)
		}
	}

	return &RunSummary{
		Today:           today,
		NewStake:        newStake,
		Unstake:         newUnstake,
		NetNewStake:     newStake.Sub(newUnstake),
		ActiveStake:     activeStake,
		CumulativeStake: cumulativeStake,
		TotalUsers:      totalUsers,
	}, nil
}
