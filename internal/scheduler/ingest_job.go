package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hcm999/staking-gana/internal/service"
	"github.com/hcm999/staking-gana/pkg/errors"
	"github.com/hcm999/staking-gana/pkg/logger"
)

// IngestScheduler 定时触发抓取任务
// 单飞保护：同一时刻最多一次运行，避免并发对账竞争同一条记录
type IngestScheduler struct {
	cron       *cron.Cron
	ingestSvc  *service.IngestService
	cronExpr   string
	runTimeout time.Duration
	isRunning  int32
}

func NewIngestScheduler(ingestSvc *service.IngestService, cronExpr string, runTimeout time.Duration) *IngestScheduler {
	return &IngestScheduler{
		cron:       cron.New(cron.WithSeconds()),
		ingestSvc:  ingestSvc,
		cronExpr:   cronExpr,
		runTimeout: runTimeout,
	}
}

func (s *IngestScheduler) Start() error {
	_, err := s.cron.AddFunc(s.cronExpr, s.runScheduled)
	if err != nil {
		return err
	}

	s.cron.Start()
	logger.Info("Ingest scheduler started, cron:", s.cronExpr)
	return nil
}

func (s *IngestScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Ingest scheduler stopped")
}

func (s *IngestScheduler) runScheduled() {
	if !atomic.CompareAndSwapInt32(&s.isRunning, 0, 1) {
		logger.Warn("上一次抓取尚未完成，跳过本次触发")
		return
	}
	defer atomic.StoreInt32(&s.isRunning, 0)

	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	if _, err := s.ingestSvc.Run(ctx); err != nil {
		logger.Error("定时抓取失败:", err)
	}
}

// TriggerManualRun 手动触发一次抓取，运行中时拒绝
func (s *IngestScheduler) TriggerManualRun(ctx context.Context) (*service.RunSummary, error) {
	if !atomic.CompareAndSwapInt32(&s.isRunning, 0, 1) {
		return nil, errors.New(errors.ErrRunInProgress, "上一次抓取尚未完成", nil)
	}
	defer atomic.StoreInt32(&s.isRunning, 0)

	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	return s.ingestSvc.Run(runCtx)
}

// IsRunning 返回是否有抓取正在进行
func (s *IngestScheduler) IsRunning() bool {
	return atomic.LoadInt32(&s.isRunning) == 1
}
