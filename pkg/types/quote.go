package types

// QuoteRequest describes one quote lookup against the solver relay
type QuoteRequest struct {
	InputAsset    string `json:"defuse_asset_identifier_in"`
	OutputAsset   string `json:"defuse_asset_identifier_out"`
	ExactAmountIn string `json:"exact_amount_in"`
	MinDeadlineMs int64  `json:"min_deadline_ms"`
}

// Quote is a single solver offer. The zero Quote encodes as {} and stands
// for "no quote available".
type Quote struct {
	InputAsset     string `json:"defuse_asset_identifier_in,omitempty"`
	OutputAsset    string `json:"defuse_asset_identifier_out,omitempty"`
	AmountIn       string `json:"amount_in,omitempty"`
	AmountOut      string `json:"amount_out,omitempty"`
	ExpirationTime string `json:"expiration_time,omitempty"`
	QuoteHash      string `json:"quote_hash,omitempty"`
}

// IsZero reports whether q is the empty quote
func (q Quote) IsZero() bool {
	return q == Quote{}
}

// QuoteResult holds every candidate returned by the relay and the best one
type QuoteResult struct {
	Candidates []Quote `json:"quotes"`
	Best       Quote   `json:"best_quote"`
}
