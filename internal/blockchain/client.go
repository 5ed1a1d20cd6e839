package blockchain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/hcm999/staking-gana/internal/config"
	"github.com/hcm999/staking-gana/pkg/errors"
	"github.com/hcm999/staking-gana/pkg/logger"
)

var ratePerSecSelector = crypto.Keccak256([]byte("ratePerSec(uint256)"))[:4]

// Client 质押合约的只读访问客户端
// 通过节点池选择RPC节点，失败时标记冷却并换节点重试一次
type Client struct {
	contract   common.Address
	pool       *NodePool
	clients    map[string]*ethclient.Client
	blockCache *Cache
}

// NewClient 按配置的节点列表建立客户端
// 个别节点连接失败只记日志，全部失败才返回错误
func NewClient(chainCfg *config.ChainConfig, pool *NodePool, blockCache *Cache) (*Client, error) {
	clients := make(map[string]*ethclient.Client, len(chainCfg.RPCURLs))
	for _, url := range chainCfg.RPCURLs {
		client, err := ethclient.Dial(url)
		if err != nil {
			logger.Error("连接RPC节点失败:", url, err)
			continue
		}
		clients[url] = client
	}

	if len(clients) == 0 {
		return nil, errors.New(errors.ErrRPCConnect, "所有RPC节点均不可用", nil)
	}

	return &Client{
		contract:   common.HexToAddress(chainCfg.ContractAddress),
		pool:       pool,
		clients:    clients,
		blockCache: blockCache,
	}, nil
}

// Close 关闭所有节点连接
func (c *Client) Close() {
	for _, client := range c.clients {
		client.Close()
	}
}

// GetLatestBlockNumber 获取链上最新区块号
func (c *Client) GetLatestBlockNumber(ctx context.Context) (int64, error) {
	var number int64
	err := c.withClient(ctx, func(client *ethclient.Client) error {
		header, err := client.HeaderByNumber(ctx, nil)
		if err != nil {
			return err
		}
		number = header.Number.Int64()
		return nil
	})
	if err != nil {
		return 0, errors.New(errors.ErrBlockFetch, "获取最新区块失败", err)
	}
	return number, nil
}

// GetPoolRate 通过eth_call读取指定池的每秒利率
// 返回合约原生单位的整数字符串
func (c *Client) GetPoolRate(ctx context.Context, poolID int64) (string, error) {
	data := make([]byte, 0, 36)
	data = append(data, ratePerSecSelector...)
	data = append(data, common.LeftPadBytes(big.NewInt(poolID).Bytes(), 32)...)

	var rate string
	err := c.withClient(ctx, func(client *ethclient.Client) error {
		result, err := client.CallContract(ctx, ethereum.CallMsg{
			To:   &c.contract,
			Data: data,
		}, nil)
		if err != nil {
			return err
		}
		rate = new(big.Int).SetBytes(result).String()
		return nil
	})
	if err != nil {
		return "", errors.New(errors.ErrRateFetch,
			fmt.Sprintf("获取池 %d 利率失败", poolID), err)
	}
	return rate, nil
}

// GetStakedLogs 获取区块范围内的Staked事件
func (c *Client) GetStakedLogs(ctx context.Context, fromBlock, toBlock int64) ([]*StakedEvent, error) {
	logs, err := c.filterLogs(ctx, StakedSig, fromBlock, toBlock)
	if err != nil {
		return nil, errors.New(errors.ErrEventParse, "过滤Staked事件失败", err)
	}

	events := make([]*StakedEvent, 0, len(logs))
	for _, log := range logs {
		event, err := ParseStakedLog(log)
		if err != nil {
			logger.Error("解析Staked日志失败:", log.TxHash.Hex(), err)
			continue
		}
		events = append(events, event)
	}

	logger.WithFields(map[string]interface{}{
		"from_block": fromBlock,
		"to_block":   toBlock,
		"count":      len(events),
	}).Info("获取Staked事件日志")

	return events, nil
}

// GetRewardPaidLogs 获取区块范围内的RewardPaid（解押）事件
func (c *Client) GetRewardPaidLogs(ctx context.Context, fromBlock, toBlock int64) ([]*RewardPaidEvent, error) {
	logs, err := c.filterLogs(ctx, RewardPaidSig, fromBlock, toBlock)
	if err != nil {
		return nil, errors.New(errors.ErrEventParse, "过滤RewardPaid事件失败", err)
	}

	events := make([]*RewardPaidEvent, 0, len(logs))
	for _, log := range logs {
		event, err := ParseRewardPaidLog(log)
		if err != nil {
			logger.Error("解析RewardPaid日志失败:", log.TxHash.Hex(), err)
			continue
		}
		events = append(events, event)
	}

	logger.WithFields(map[string]interface{}{
		"from_block": fromBlock,
		"to_block":   toBlock,
		"count":      len(events),
	}).Info("获取RewardPaid事件日志")

	return events, nil
}

// GetBlockTimestamp 获取区块时间戳，短TTL缓存
func (c *Client) GetBlockTimestamp(ctx context.Context, blockNumber int64) (time.Time, error) {
	key := fmt.Sprintf("block_ts_%d", blockNumber)
	if cached, ok := c.blockCache.Get(key); ok {
		return cached.(time.Time), nil
	}

	var ts time.Time
	err := c.withClient(ctx, func(client *ethclient.Client) error {
		header, err := client.HeaderByNumber(ctx, big.NewInt(blockNumber))
		if err != nil {
			return err
		}
		ts = time.Unix(int64(header.Time), 0).UTC()
		return nil
	})
	if err != nil {
		return time.Time{}, errors.New(errors.ErrBlockFetch,
			fmt.Sprintf("获取区块 %d 失败", blockNumber), err)
	}

	c.blockCache.Set(key, ts)
	return ts, nil
}

func (c *Client) filterLogs(ctx context.Context, eventSig common.Hash, fromBlock, toBlock int64) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: big.NewInt(fromBlock),
		ToBlock:   big.NewInt(toBlock),
		Addresses: []common.Address{c.contract},
		Topics:    [][]common.Hash{{eventSig}},
	}

	var logs []types.Log
	err := c.withClient(ctx, func(client *ethclient.Client) error {
		var err error
		logs, err = client.FilterLogs(ctx, query)
		return err
	})
	return logs, err
}

// withClient 选择节点执行请求，失败时冷却该节点并换一个节点重试一次
func (c *Client) withClient(ctx context.Context, fn func(*ethclient.Client) error) error {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		endpoint := c.pool.Pick()
		if endpoint == nil {
			return errors.New(errors.ErrRPCConnect, "没有可用的RPC节点", nil)
		}

		client, ok := c.clients[endpoint.URL]
		if !ok {
			c.pool.MarkDown(endpoint)
			lastErr = fmt.Errorf("节点未连接: %s", endpoint.URL)
			continue
		}

		err := fn(client)
		if err == nil {
			return nil
		}

		logger.WithFields(map[string]interface{}{
			"node":    endpoint.URL,
			"attempt": attempt + 1,
		}).Warn("RPC请求失败，切换节点重试: ", err)
		c.pool.MarkDown(endpoint)
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return lastErr
}
