package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hcm999/staking-gana/internal/models"
)

func newStakeRecord(user string, poolID int64, amount int64, stakeTime, unlockTime int64, txHash string) *models.StakeRecord {
	return &models.StakeRecord{
		UserAddress:     user,
		StakeIndex:      poolID,
		Amount:          decimal.NewFromInt(amount),
		StakeTime:       stakeTime,
		StakeTimestamp:  time.Unix(stakeTime, 0).UTC(),
		UnlockTime:      unlockTime,
		UnlockTimestamp: time.Unix(unlockTime, 0).UTC(),
		TxHash:          txHash,
		BlockNumber:     100,
		Status:          models.StakeStatusActive,
	}
}

func TestInsertIgnore_DuplicateTxHash(t *testing.T) {
	db := newTestDB(t)
	repo := NewStakeRepository(db)
	ctx := context.Background()

	record := newStakeRecord("0xabc", 0, 1000, 1000, 2000, "0xtx1")
	created, err := repo.InsertIgnore(ctx, record)
	require.NoError(t, err)
	assert.True(t, created)

	// 同一交易哈希再次插入是no-op，不修改已有字段
	dup := newStakeRecord("0xother", 1, 9999, 5000, 6000, "0xtx1")
	created, err = repo.InsertIgnore(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created)

	stored, err := repo.GetByTxHash(ctx, "0xtx1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "0xabc", stored.UserAddress)
	assert.Equal(t, int64(0), stored.StakeIndex)
	assert.True(t, stored.Amount.Equal(decimal.NewFromInt(1000)))

	var count int64
	require.NoError(t, db.Model(&models.StakeRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestFindEarliestMatchable_FIFOOrder(t *testing.T) {
	db := newTestDB(t)
	repo := NewStakeRepository(db)
	ctx := context.Background()

	// 两笔都已解锁，应当选质押时间更早的一笔
	_, err := repo.InsertIgnore(ctx, newStakeRecord("0xabc", 0, 100, 2000, 3000, "0xtx2"))
	require.NoError(t, err)
	_, err = repo.InsertIgnore(ctx, newStakeRecord("0xabc", 0, 200, 1000, 2500, "0xtx1"))
	require.NoError(t, err)

	record, err := repo.FindEarliestMatchable(ctx, "0xabc", 0, 5000)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "0xtx1", record.TxHash)
	assert.Equal(t, int64(1000), record.StakeTime)
}

func TestFindEarliestMatchable_Filters(t *testing.T) {
	db := newTestDB(t)
	repo := NewStakeRepository(db)
	ctx := context.Background()

	// 未到解锁时间的记录不可匹配
	_, err := repo.InsertIgnore(ctx, newStakeRecord("0xabc", 0, 100, 1000, 9000, "0xtx1"))
	require.NoError(t, err)

	record, err := repo.FindEarliestMatchable(ctx, "0xabc", 0, 5000)
	require.NoError(t, err)
	assert.Nil(t, record)

	// 其他用户、其他池均不可匹配
	record, err = repo.FindEarliestMatchable(ctx, "0xdef", 0, 10000)
	require.NoError(t, err)
	assert.Nil(t, record)

	record, err = repo.FindEarliestMatchable(ctx, "0xabc", 1, 10000)
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestMarkUnstaked_TransitionOnce(t *testing.T) {
	db := newTestDB(t)
	repo := NewStakeRepository(db)
	ctx := context.Background()

	rec := newStakeRecord("0xabc", 0, 100, 1000, 2000, "0xtx1")
	_, err := repo.InsertIgnore(ctx, rec)
	require.NoError(t, err)

	updated, err := repo.MarkUnstaked(ctx, rec.ID, 3000)
	require.NoError(t, err)
	assert.True(t, updated)

	stored, err := repo.GetByTxHash(ctx, "0xtx1")
	require.NoError(t, err)
	assert.Equal(t, models.StakeStatusUnstaked, stored.Status)
	require.NotNil(t, stored.UnstakeTime)
	assert.Equal(t, int64(3000), *stored.UnstakeTime)

	// 已解押的记录不会被再次更新
	updated, err = repo.MarkUnstaked(ctx, rec.ID, 4000)
	require.NoError(t, err)
	assert.False(t, updated)

	stored, err = repo.GetByTxHash(ctx, "0xtx1")
	require.NoError(t, err)
	assert.Equal(t, int64(3000), *stored.UnstakeTime)
}

func TestAggregates(t *testing.T) {
	db := newTestDB(t)
	repo := NewStakeRepository(db)
	ctx := context.Background()

	r1 := newStakeRecord("0xaaa", 0, 1000, 1000, 2000, "0xtx1")
	r2 := newStakeRecord("0xaaa", 1, 500, 1500, 3000, "0xtx2")
	r3 := newStakeRecord("0xbbb", 0, 300, 2000, 4000, "0xtx3")
	for _, r := range []*models.StakeRecord{r1, r2, r3} {
		_, err := repo.InsertIgnore(ctx, r)
		require.NoError(t, err)
	}

	// 解押一笔后：active=800，cumulative不变，去重用户数为2
	updated, err := repo.MarkUnstaked(ctx, r1.ID, 2500)
	require.NoError(t, err)
	require.True(t, updated)

	active, err := repo.SumActive(ctx)
	require.NoError(t, err)
	assert.True(t, active.Equal(decimal.NewFromInt(800)), "got %s", active)

	all, err := repo.SumAll(ctx)
	require.NoError(t, err)
	assert.True(t, all.Equal(decimal.NewFromInt(1800)), "got %s", all)

	users, err := repo.CountActiveUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), users)

	byPool, err := repo.SumActiveByPool(ctx, 0)
	require.NoError(t, err)
	assert.True(t, byPool.Equal(decimal.NewFromInt(300)), "got %s", byPool)

	staked, err := repo.SumStakedBetween(ctx, 1000, 2000)
	require.NoError(t, err)
	assert.True(t, staked.Equal(decimal.NewFromInt(1500)), "got %s", staked)

	unstaked, err := repo.SumUnstakedBetween(ctx, 2000, 3000)
	require.NoError(t, err)
	assert.True(t, unstaked.Equal(decimal.NewFromInt(1000)), "got %s", unstaked)
}

func TestSumUnlockingBetween_MonotonicHorizons(t *testing.T) {
	db := newTestDB(t)
	repo := NewStakeRepository(db)
	ctx := context.Background()

	now := int64(100000)
	day := int64(86400)

	_, err := repo.InsertIgnore(ctx, newStakeRecord("0xaaa", 0, 100, 1000, now+day/2, "0xtx1"))
	require.NoError(t, err)
	_, err = repo.InsertIgnore(ctx, newStakeRecord("0xaaa", 0, 200, 1000, now+5*day, "0xtx2"))
	require.NoError(t, err)
	_, err = repo.InsertIgnore(ctx, newStakeRecord("0xbbb", 0, 400, 1000, now+20*day, "0xtx3"))
	require.NoError(t, err)
	// 已过解锁窗口起点之前的记录不计入
	_, err = repo.InsertIgnore(ctx, newStakeRecord("0xbbb", 0, 800, 1000, now-10, "0xtx4"))
	require.NoError(t, err)

	horizons := []int64{1, 2, 7, 15, 30}
	prev := decimal.Zero
	for _, h := range horizons {
		total, err := repo.SumUnlockingBetween(ctx, now, now+h*day)
		require.NoError(t, err)
		assert.True(t, total.GreaterThanOrEqual(prev),
			"horizon %d: %s < %s", h, total, prev)
		prev = total
	}

	next1, err := repo.SumUnlockingBetween(ctx, now, now+day)
	require.NoError(t, err)
	assert.True(t, next1.Equal(decimal.NewFromInt(100)))

	next30, err := repo.SumUnlockingBetween(ctx, now, now+30*day)
	require.NoError(t, err)
	assert.True(t, next30.Equal(decimal.NewFromInt(700)))
}
