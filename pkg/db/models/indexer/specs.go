package indexer

import "github.com/canopy-network/explorerx/pkg/query"

// List specs. Expressions reference the aliases the postgres store selects
// from: b (blocks), t (transactions), vs (validator set), fps (finality
// providers with stake), d (delegations), p (proposals), tk (tokens).

var blockHeight = query.Column{Name: "height", Expr: "b.height", Kind: query.Int, Unique: true}

var BlockSpec = &query.Spec{
	Entity: "blocks",
	Sorts: map[string]query.Column{
		"height":  blockHeight,
		"time":    {Name: "time", Expr: "b.time", Kind: query.Time},
		"numTxs":  {Name: "num_txs", Expr: "b.num_txs", Kind: query.Int},
		"gasUsed": {Name: "gas_used", Expr: "b.gas_used", Kind: query.Int},
	},
	DefaultSort: "height",
	TieBreak:    []query.Column{blockHeight},
	Search:      []string{"b.hash", "b.proposer_address"},
	Filters: map[string]query.Filter{
		"proposer":  {Expr: "b.proposer_address", Op: query.OpEq, Kind: query.Text},
		"minHeight": {Expr: "b.height", Op: query.OpMin, Kind: query.Int},
		"maxHeight": {Expr: "b.height", Op: query.OpBefore, Kind: query.Int},
		"minTxs":    {Expr: "b.num_txs", Op: query.OpMin, Kind: query.Int},
		"from":      {Expr: "b.time", Op: query.OpMin, Kind: query.Time},
		"to":        {Expr: "b.time", Op: query.OpBefore, Kind: query.Time},
	},
}

var TransactionSpec = &query.Spec{
	Entity: "transactions",
	Sorts: map[string]query.Column{
		"height":  {Name: "height", Expr: "t.height", Kind: query.Int},
		"time":    {Name: "time", Expr: "t.time", Kind: query.Time},
		"fee":     {Name: "fee_amount", Expr: "t.fee_amount", Kind: query.Int},
		"gasUsed": {Name: "gas_used", Expr: "t.gas_used", Kind: query.Int},
	},
	DefaultSort: "height",
	TieBreak: []query.Column{
		{Name: "height", Expr: "t.height", Kind: query.Int},
		{Name: "tx_index", Expr: "t.tx_index", Kind: query.Int},
	},
	Search: []string{"t.hash", "t.sender"},
	Filters: map[string]query.Filter{
		"type":     {Expr: "t.type", Op: query.OpEq, Kind: query.Text},
		"sender":   {Expr: "t.sender", Op: query.OpEq, Kind: query.Text},
		"success":  {Expr: "t.success", Op: query.OpEq, Kind: query.Bool},
		"height":   {Expr: "t.height", Op: query.OpEq, Kind: query.Int},
		"feeDenom": {Expr: "t.fee_denom", Op: query.OpEq, Kind: query.Text},
		"from":     {Expr: "t.time", Op: query.OpMin, Kind: query.Time},
		"to":       {Expr: "t.time", Op: query.OpBefore, Kind: query.Time},
	},
}

// ValidatorSpec uses offset paging: tokens, commission and moniker change between fetches.
var ValidatorSpec = &query.Spec{
	Entity: "validators",
	Paging: query.Offset,
	Sorts: map[string]query.Column{
		"votingPower": {Name: "tokens", Expr: "vs.tokens", Kind: query.Int},
		"moniker":     {Name: "moniker", Expr: "vs.moniker", Kind: query.Text},
		"commission":  {Name: "commission_rate", Expr: "vs.commission_rate::numeric", Kind: query.Text},
	},
	DefaultSort: "votingPower",
	TieBreak:    []query.Column{{Name: "operator_address", Expr: "vs.operator_address", Kind: query.Text, Unique: true}},
	Search:      []string{"vs.moniker", "vs.operator_address"},
	Filters: map[string]query.Filter{
		"status": {
			Expr: "vs.status", Op: query.OpEq, Kind: query.Text,
			Enum: []string{ValidatorStatusActive, ValidatorStatusInactive, ValidatorStatusJailed},
		},
		"jailed": {Expr: "vs.jailed", Op: query.OpEq, Kind: query.Bool},
	},
}

// FinalityProviderSpec uses offset paging: active stake changes between fetches.
var FinalityProviderSpec = &query.Spec{
	Entity: "finality-providers",
	Paging: query.Offset,
	Sorts: map[string]query.Column{
		"stake":      {Name: "active_sats", Expr: "fps.active_sats", Kind: query.Int},
		"moniker":    {Name: "moniker", Expr: "fps.moniker", Kind: query.Text},
		"commission": {Name: "commission", Expr: "fps.commission::numeric", Kind: query.Text},
	},
	DefaultSort: "stake",
	TieBreak:    []query.Column{{Name: "btc_pk", Expr: "fps.btc_pk", Kind: query.Text, Unique: true}},
	Search:      []string{"fps.moniker", "fps.btc_pk", "fps.babylon_address"},
	Filters: map[string]query.Filter{
		"status":  {Expr: "fps.status", Op: query.OpEq, Kind: query.Text, Enum: []string{"active", "inactive", "jailed", "slashed"}},
		"slashed": {Expr: "fps.slashed", Op: query.OpEq, Kind: query.Bool},
	},
}

var DelegationSpec = &query.Spec{
	Entity: "delegations",
	Sorts: map[string]query.Column{
		"height": {Name: "staking_block_height", Expr: "d.staking_block_height", Kind: query.Int},
		"amount": {Name: "amount_sats", Expr: "d.amount_sats", Kind: query.Int},
	},
	DefaultSort: "height",
	// Two staking transactions in one block can share an output index; the hash makes the key unique.
	TieBreak: []query.Column{
		{Name: "staking_block_height", Expr: "d.staking_block_height", Kind: query.Int},
		{Name: "staking_output_idx", Expr: "d.staking_output_idx", Kind: query.Int},
		{Name: "staking_tx_hash", Expr: "d.staking_tx_hash", Kind: query.Text},
	},
	Search: []string{"d.staking_tx_hash", "d.staker_btc_pk"},
	Filters: map[string]query.Filter{
		"state":     {Expr: "d.state", Op: query.OpEq, Kind: query.Text, Enum: DelegationStates},
		"stakerPk":  {Expr: "d.staker_btc_pk", Op: query.OpEq, Kind: query.Text},
		"fpPk":      {Expr: "d.fp_btc_pk", Op: query.OpEq, Kind: query.Text},
		"minAmount": {Expr: "d.amount_sats", Op: query.OpMin, Kind: query.Int},
		"maxAmount": {Expr: "d.amount_sats", Op: query.OpBefore, Kind: query.Int},
	},
}

var ProposalSpec = &query.Spec{
	Entity: "proposals",
	Sorts: map[string]query.Column{
		"id":         {Name: "id", Expr: "p.id", Kind: query.Int, Unique: true},
		"submitTime": {Name: "submit_time", Expr: "p.submit_time", Kind: query.Time},
	},
	DefaultSort: "id",
	TieBreak:    []query.Column{{Name: "id", Expr: "p.id", Kind: query.Int, Unique: true}},
	Search:      []string{"p.title"},
	Filters: map[string]query.Filter{
		"status":   {Expr: "p.status", Op: query.OpEq, Kind: query.Text, Enum: ProposalStatuses},
		"proposer": {Expr: "p.proposer", Op: query.OpEq, Kind: query.Text},
		"type":     {Expr: "p.proposal_type", Op: query.OpEq, Kind: query.Text},
	},
}

var TokenSpec = &query.Spec{
	Entity: "tokens",
	Sorts: map[string]query.Column{
		"denom":  {Name: "denom", Expr: "tk.denom", Kind: query.Text, Unique: true},
		"symbol": {Name: "symbol", Expr: "tk.symbol", Kind: query.Text},
	},
	DefaultSort: "symbol",
	TieBreak:    []query.Column{{Name: "denom", Expr: "tk.denom", Kind: query.Text, Unique: true}},
	Search:      []string{"tk.denom", "tk.symbol", "tk.name"},
	Filters: map[string]query.Filter{
		"native": {Expr: "tk.native", Op: query.OpEq, Kind: query.Bool},
	},
}
