package domain

// TokenID identifies a timestamped tweet token. Tweet status ids are
// externally assigned and assumed unique per tweet.
type TokenID uint64

// MintRequest carries everything the orchestrator needs to timestamp a tweet.
// The tweet body and image are produced upstream (content resolver, image
// renderer) and arrive here already extracted.
type MintRequest struct {
	ID       TokenID
	Username string
	Body     string // raw JSON of the tweet as returned by the source API
	Image    string // embeddable image reference (data URL or https URL)
}

// MintParams echoes the parameters passed to the registry's mint method.
type MintParams struct {
	ID       TokenID `json:"_id"`
	URI      string  `json:"_uri"`
	Username string  `json:"_username"`
	Supply   uint64  `json:"_supply"`
}

// MintReceipt is returned to the caller after a successful mint orchestration.
type MintReceipt struct {
	MintTxHash string     `json:"mint_tx_hash"`
	MintParams MintParams `json:"mint_params"`
}
