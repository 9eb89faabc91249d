package indexer

const (
	FinalityProvidersTableName = "finality_providers"
	// FinalityProviderSigningViewName is refreshed by the query service; see RefreshViews.
	FinalityProviderSigningViewName = "finality_provider_signing"
)

// FinalityProvider is a BTC staking finality provider with its active stake.
type FinalityProvider struct {
	BtcPk          string `db:"btc_pk" json:"btcPk"`
	BabylonAddress string `db:"babylon_address" json:"babylonAddress"`
	Moniker        string `db:"moniker" json:"moniker"`
	Commission     string `db:"commission" json:"commission"`
	Status         string `db:"status" json:"status"`
	Slashed        bool   `db:"slashed" json:"slashed"`
	ActiveSats     int64  `db:"active_sats" json:"activeSats"`
}

func (f FinalityProvider) CursorKey(column string) any {
	switch column {
	case "btc_pk":
		return f.BtcPk
	case "active_sats":
		return f.ActiveSats
	case "moniker":
		return f.Moniker
	}
	return nil
}

// FinalityProviderSigning is a row of the finality_provider_signing materialized view.
type FinalityProviderSigning struct {
	BtcPk         string  `db:"btc_pk" json:"-"`
	Votes         int64   `db:"votes" json:"votes"`
	Expected      int64   `db:"expected" json:"expected"`
	InclusionRate float64 `db:"inclusion_rate" json:"inclusionRate"`
}
