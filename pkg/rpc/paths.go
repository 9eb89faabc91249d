package rpc

// Cosmos LCD (REST gateway) paths used by the account view.
const (
	latestBlockPath = "/cosmos/base/tendermint/v1beta1/blocks/latest"
	balancesPath    = "/cosmos/bank/v1beta1/balances/%s"
	delegationsPath = "/cosmos/staking/v1beta1/delegations/%s"
	rewardsPath     = "/cosmos/distribution/v1beta1/delegators/%s/rewards"
)
