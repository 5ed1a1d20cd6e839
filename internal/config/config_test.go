package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
database:
  host: "127.0.0.1"
  port: 3306
  user: "stake"
  password: "secret"
  dbname: "staking"

server:
  port: 8080

chain:
  name: "bsc"
  rpc_urls:
    - "https://bsc-dataseed1.binance.org"
    - "https://bsc-dataseed2.binance.org"
  contract_address: "0x1234567890123456789012345678901234567890"

pools:
  - id: 0
    lock_days: 1
    min_stake: 100
    max_stake: 1000000
  - id: 1
    lock_days: 15
    min_stake: 100
    max_stake: 1000000

ingest:
  cron: "0 */10 * * * *"
  cron_secret: "topsecret"

logging:
  level: "info"
  format: "json"
  output: "stdout"
`

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeTestConfig(t, testYAML))
	require.NoError(t, err)

	assert.Equal(t, "staking", cfg.Database.DBName)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Len(t, cfg.Chain.RPCURLs, 2)
	assert.Equal(t, "topsecret", cfg.Ingest.CronSecret)
	require.Len(t, cfg.Pools, 2)
	assert.Equal(t, 15, cfg.Pools[1].LockDays)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeTestConfig(t, testYAML))
	require.NoError(t, err)

	assert.Equal(t, int64(20000), cfg.Chain.ScanWindow)
	assert.Equal(t, 60, cfg.Chain.NodeCooldown)
	assert.Equal(t, 10, cfg.Chain.RequestTimeout)
	assert.Equal(t, 60, cfg.Ingest.RunTimeout)
	assert.Equal(t, 30, cfg.Ingest.BlockCacheTTL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{
		Host: "127.0.0.1", Port: 3306,
		User: "stake", Password: "secret", DBName: "staking",
	}
	assert.Equal(t,
		"stake:secret@tcp(127.0.0.1:3306)/staking?charset=utf8mb4&parseTime=True&loc=Local",
		d.DSN())
}

func TestGetPoolConfig(t *testing.T) {
	cfg, err := Load(writeTestConfig(t, testYAML))
	require.NoError(t, err)

	pool, err := cfg.GetPoolConfig(1)
	require.NoError(t, err)
	assert.Equal(t, 15, pool.LockDays)

	_, err = cfg.GetPoolConfig(99)
	require.Error(t, err)
}

func TestLockDaysMap(t *testing.T) {
	cfg, err := Load(writeTestConfig(t, testYAML))
	require.NoError(t, err)

	m := cfg.LockDaysMap()
	assert.Equal(t, map[int64]int{0: 1, 1: 15}, m)
}
