package domain

// AssetID identifies one side of an AMM pool. Native XRP has symbol "XRP"
// and no issuer.
type AssetID struct {
	Symbol string
	Issuer string
}

// IsXRP reports whether the asset is native XRP.
func (a AssetID) IsXRP() bool {
	return a.Symbol == "XRP" && a.Issuer == ""
}

// Market is an AMM pool identified by its account address and asset pair.
// The account doubles as the market identifier in output records because
// the service does not reflect it back in transaction history.
type Market struct {
	Account string
	Asset1  AssetID
	Asset2  AssetID
}

// Resolved reports whether the asset pair is known.
func (m Market) Resolved() bool {
	return m.Asset1.Symbol != "" && m.Asset2.Symbol != ""
}
