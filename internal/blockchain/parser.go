package blockchain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// Staked(address indexed user, uint256 index, uint256 amount, uint256 stakeTime)
	StakedSig = crypto.Keccak256Hash([]byte("Staked(address,uint256,uint256,uint256)"))
	// RewardPaid(address indexed user, uint256 index, uint256 reward)
	RewardPaidSig = crypto.Keccak256Hash([]byte("RewardPaid(address,uint256,uint256)"))
)

type StakedEvent struct {
	User        common.Address
	PoolID      int64
	Amount      *big.Int
	StakeTime   int64
	TxHash      string
	BlockNumber int64
}

type RewardPaidEvent struct {
	User        common.Address
	PoolID      int64
	Reward      *big.Int
	TxHash      string
	BlockNumber int64
}

// ParseStakedLog 解析Staked事件日志
// topics[1]为user，data依次为index、amount、stakeTime三个32字节字
func ParseStakedLog(log types.Log) (*StakedEvent, error) {
	if len(log.Topics) < 2 || len(log.Data) < 96 {
		return nil, ErrInvalidLogFormat
	}

	user := common.BytesToAddress(log.Topics[1].Bytes())
	index := new(big.Int).SetBytes(log.Data[0:32])
	amount := new(big.Int).SetBytes(log.Data[32:64])
	stakeTime := new(big.Int).SetBytes(log.Data[64:96])

	return &StakedEvent{
		User:        user,
		PoolID:      index.Int64(),
		Amount:      amount,
		StakeTime:   stakeTime.Int64(),
		TxHash:      log.TxHash.Hex(),
		BlockNumber: int64(log.BlockNumber),
	}, nil
}

// ParseRewardPaidLog 解析RewardPaid（解押）事件日志
// topics[1]为user，data依次为index、reward两个32字节字
func ParseRewardPaidLog(log types.Log) (*RewardPaidEvent, error) {
	if len(log.Topics) < 2 || len(log.Data) < 64 {
		return nil, ErrInvalidLogFormat
	}

	user := common.BytesToAddress(log.Topics[1].Bytes())
	index := new(big.Int).SetBytes(log.Data[0:32])
	reward := new(big.Int).SetBytes(log.Data[32:64])

	return &RewardPaidEvent{
		User:        user,
		PoolID:      index.Int64(),
		Reward:      reward,
		TxHash:      log.TxHash.Hex(),
		BlockNumber: int64(log.BlockNumber),
	}, nil
}

var ErrInvalidLogFormat = &InvalidLogFormatError{}

type InvalidLogFormatError struct{}

func (e *InvalidLogFormatError) Error() string {
	return "invalid log format: insufficient topics or data"
}
