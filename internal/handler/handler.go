package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hcm999/staking-gana/internal/repository"
	"github.com/hcm999/staking-gana/internal/scheduler"
	apperrors "github.com/hcm999/staking-gana/pkg/errors"
	"github.com/hcm999/staking-gana/pkg/logger"
)

const secondsPerYear = 31536000

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// IngestHandler 抓取任务的触发入口
type IngestHandler struct {
	scheduler *scheduler.IngestScheduler
	secret    string
}

func NewIngestHandler(scheduler *scheduler.IngestScheduler, secret string) *IngestHandler {
	return &IngestHandler{scheduler: scheduler, secret: secret}
}

// TriggerFetch 鉴权后同步执行一次抓取并返回结果摘要
// 未通过鉴权的请求在任何账本/存储访问之前被拒绝
func (h *IngestHandler) TriggerFetch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	authHeader := r.Header.Get("Authorization")
	if h.secret == "" || authHeader != "Bearer "+h.secret {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	summary, err := h.scheduler.TriggerManualRun(r.Context())
	if err != nil {
		if apperrors.Is(err, apperrors.ErrRunInProgress) {
			writeError(w, http.StatusConflict, "a fetch run is already in progress")
			return
		}
		logger.Error("手动抓取失败:", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Internal Server Error",
			"details": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    summary,
	})
}

// SnapshotHandler 每日快照的只读查询
type SnapshotHandler struct {
	snapshotRepo *repository.SnapshotRepository
}

func NewSnapshotHandler(snapshotRepo *repository.SnapshotRepository) *SnapshotHandler {
	return &SnapshotHandler{snapshotRepo: snapshotRepo}
}

func (h *SnapshotHandler) GetSnapshots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	if days < 1 || days > 365 {
		days = 30
	}

	ctx := r.Context()
	snapshots, err := h.snapshotRepo.Range(ctx, days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get snapshots: "+err.Error())
		return
	}

	items := make([]map[string]interface{}, 0, len(snapshots))
	for _, s := range snapshots {
		items = append(items, map[string]interface{}{
			"date":               s.Date,
			"newStake":           s.NewStake,
			"newUnstake":         s.NewUnstake,
			"activeStake":        s.ActiveStake,
			"cumulativeStake":    s.CumulativeStake,
			"totalUsers":         s.TotalUsers,
			"unlockedNext1Day":   s.UnlockedNext1Day,
			"unlockedNext2Days":  s.UnlockedNext2Days,
			"unlockedNext7Days":  s.UnlockedNext7Days,
			"unlockedNext15Days": s.UnlockedNext15Days,
			"unlockedNext30Days": s.UnlockedNext30Days,
		})
	}

	writeJSON(w, http.StatusOK, items)
}

// PoolHandler 质押池列表的只读查询
type PoolHandler struct {
	poolRepo *repository.PoolRepository
}

func NewPoolHandler(poolRepo *repository.PoolRepository) *PoolHandler {
	return &PoolHandler{poolRepo: poolRepo}
}

func (h *PoolHandler) GetPools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx := r.Context()
	pools, err := h.poolRepo.List(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get pools: "+err.Error())
		return
	}

	items := make([]map[string]interface{}, 0, len(pools))
	for _, p := range pools {
		items = append(items, map[string]interface{}{
			"id":          p.ID,
			"lockDays":    p.LockDays,
			"apy":         formatAPY(p.RatePerSec),
			"totalStaked": p.TotalStaked,
			"ratePerSec":  p.RatePerSec,
		})
	}

	writeJSON(w, http.StatusOK, items)
}

// formatAPY 由每秒利率（合约原生1e18单位）换算年化百分比展示串
func formatAPY(ratePerSec string) string {
	rate, err := decimal.NewFromString(ratePerSec)
	if err != nil {
		return "0.00%"
	}
	apy := rate.Shift(-18).Mul(decimal.NewFromInt(secondsPerYear * 100))
	return apy.StringFixed(2) + "%"
}

// StatsHandler 最新快照的单行概览
type StatsHandler struct {
	snapshotRepo *repository.SnapshotRepository
}

func NewStatsHandler(snapshotRepo *repository.SnapshotRepository) *StatsHandler {
	return &StatsHandler{snapshotRepo: snapshotRepo}
}

func (h *StatsHandler) GetLatestStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx := r.Context()
	snapshot, err := h.snapshotRepo.Latest(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get stats: "+err.Error())
		return
	}

	if snapshot == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"cumulativeStake":    decimal.Zero,
			"activeStake":        decimal.Zero,
			"totalUsers":         0,
			"unlockedNext1Day":   decimal.Zero,
			"unlockedNext2Days":  decimal.Zero,
			"unlockedNext7Days":  decimal.Zero,
			"unlockedNext15Days": decimal.Zero,
			"unlockedNext30Days": decimal.Zero,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cumulativeStake":    snapshot.CumulativeStake,
		"activeStake":        snapshot.ActiveStake,
		"totalUsers":         snapshot.TotalUsers,
		"unlockedNext1Day":   snapshot.UnlockedNext1Day,
		"unlockedNext2Days":  snapshot.UnlockedNext2Days,
		"unlockedNext7Days":  snapshot.UnlockedNext7Days,
		"unlockedNext15Days": snapshot.UnlockedNext15Days,
		"unlockedNext30Days": snapshot.UnlockedNext30Days,
	})
}

func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
