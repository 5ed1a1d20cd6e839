package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Pools    []PoolConfig   `mapstructure:"pools"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User, d.Password, d.Host, d.Port, d.DBName)
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type ChainConfig struct {
	Name            string   `mapstructure:"name"`
	RPCURLs         []string `mapstructure:"rpc_urls"`
	ContractAddress string   `mapstructure:"contract_address"`
	ScanWindow      int64    `mapstructure:"scan_window"`
	NodeCooldown    int      `mapstructure:"node_cooldown"`
	RequestTimeout  int      `mapstructure:"request_timeout"`
}

type PoolConfig struct {
	ID       int64   `mapstructure:"id"`
	LockDays int     `mapstructure:"lock_days"`
	MinStake float64 `mapstructure:"min_stake"`
	MaxStake float64 `mapstructure:"max_stake"`
}

type IngestConfig struct {
	Cron          string `mapstructure:"cron"`
	CronSecret    string `mapstructure:"cron_secret"`
	RunTimeout    int    `mapstructure:"run_timeout"`
	BlockCacheTTL int    `mapstructure:"block_cache_ttl"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetDefault("chain.scan_window", 20000)
	v.SetDefault("chain.node_cooldown", 60)
	v.SetDefault("chain.request_timeout", 10)
	v.SetDefault("ingest.run_timeout", 60)
	v.SetDefault("ingest.block_cache_ttl", 30)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// GetPoolConfig 按池ID查找池配置
func (c *Config) GetPoolConfig(poolID int64) (*PoolConfig, error) {
	for _, pool := range c.Pools {
		if pool.ID == poolID {
			return &pool, nil
		}
	}
	return nil, fmt.Errorf("pool config not found: %d", poolID)
}

// LockDaysMap 返回池ID到锁定天数的映射
func (c *Config) LockDaysMap() map[int64]int {
	m := make(map[int64]int, len(c.Pools))
	for _, pool := range c.Pools {
		m[pool.ID] = pool.LockDays
	}
	return m
}
