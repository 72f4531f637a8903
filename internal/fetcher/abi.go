package fetcher

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const stakingABIJSON = `[
{"inputs":[{"internalType":"address","name":"user","type":"address"}],"name":"getStakes","outputs":[{"components":[{"internalType":"uint256","name":"amount","type":"uint256"},{"internalType":"uint256","name":"lastClaimed","type":"uint256"},{"internalType":"uint256","name":"dailyRewardRate","type":"uint256"},{"internalType":"uint256","name":"unlockTime","type":"uint256"},{"internalType":"bool","name":"complete","type":"bool"}],"internalType":"struct Stake[]","name":"","type":"tuple[]"}],"stateMutability":"view","type":"function"},
{"inputs":[{"internalType":"address","name":"user","type":"address"}],"name":"viewRewards","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"pool","outputs":[{"internalType":"uint256","name":"totalStaked","type":"uint256"},{"internalType":"uint256","name":"dailyRewardRate","type":"uint256"},{"internalType":"uint256","name":"lockupDays","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"getAllSellStakesWithKeys","outputs":[{"internalType":"address[]","name":"sellers","type":"address[]"},{"internalType":"uint256[]","name":"stakeIds","type":"uint256[]"},{"components":[{"internalType":"uint256","name":"price","type":"uint256"},{"internalType":"uint256","name":"bonusAmount","type":"uint256"},{"internalType":"uint256","name":"amount","type":"uint256"},{"internalType":"uint256","name":"lastClaimed","type":"uint256"},{"internalType":"uint256","name":"dailyRewardRate","type":"uint256"},{"internalType":"uint256","name":"origUnlockTime","type":"uint256"}],"internalType":"struct SellStake[]","name":"sellStakeData","type":"tuple[]"},{"internalType":"uint256[]","name":"pendingRewards","type":"uint256[]"}],"stateMutability":"view","type":"function"},
{"inputs":[{"internalType":"address","name":"user","type":"address"}],"name":"getAllWithdrawStakes","outputs":[{"components":[{"internalType":"uint256","name":"stakeId","type":"uint256"},{"internalType":"uint256","name":"amount","type":"uint256"},{"internalType":"uint256","name":"unlockTime","type":"uint256"}],"internalType":"struct WithdrawStake[]","name":"","type":"tuple[]"}],"stateMutability":"view","type":"function"},
{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"user","type":"address"},{"indexed":false,"internalType":"uint256","name":"stakeId","type":"uint256"},{"indexed":false,"internalType":"uint256","name":"amount","type":"uint256"},{"indexed":false,"internalType":"uint256","name":"timestamp","type":"uint256"}],"name":"WithdrawalClaimed","type":"event"}
]`

const (
	methodGetStakes      = "getStakes"
	methodViewRewards    = "viewRewards"
	methodPool           = "pool"
	methodSellStakes     = "getAllSellStakesWithKeys"
	methodWithdrawStakes = "getAllWithdrawStakes"
	eventWithdrawn       = "WithdrawalClaimed"
)

var stakingABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(stakingABIJSON))
	if err != nil {
		panic("failed to parse staking ABI: " + err.Error())
	}
	stakingABI = parsed
}

// Tuple layouts in ABI field order; field names must match the ABI component names.
type stakeTuple struct {
	Amount          *big.Int
	LastClaimed     *big.Int
	DailyRewardRate *big.Int
	UnlockTime      *big.Int
	Complete        bool
}

type sellStakeTuple struct {
	Price           *big.Int
	BonusAmount     *big.Int
	Amount          *big.Int
	LastClaimed     *big.Int
	DailyRewardRate *big.Int
	OrigUnlockTime  *big.Int
}

type withdrawTuple struct {
	StakeId    *big.Int // matches the ABI component name
	Amount     *big.Int
	UnlockTime *big.Int
}
