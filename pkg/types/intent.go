package types

// Intent kinds understood by the verifying contract
const (
	IntentTokenDiff  = "token_diff"
	IntentTransfer   = "transfer"
	IntentFtWithdraw = "ft_withdraw"
)

// Intent is one entry of an intent message. Only the fields relevant to
// the given kind are set.
type Intent struct {
	Intent     string            `json:"intent"`
	Diff       map[string]string `json:"diff,omitempty"`
	Referral   string            `json:"referral,omitempty"`
	ReceiverID string            `json:"receiver_id,omitempty"`
	Tokens     map[string]string `json:"tokens,omitempty"`
	Memo       string            `json:"memo,omitempty"`
	Token      string            `json:"token,omitempty"`
	Amount     string            `json:"amount,omitempty"`
	SignerID   string            `json:"signer_id,omitempty"`
}

// IntentMessage is the message a signer commits to
type IntentMessage struct {
	SignerID          string   `json:"signer_id,omitempty"`
	Nonce             string   `json:"nonce,omitempty"`
	VerifyingContract string   `json:"verifying_contract,omitempty"`
	Deadline          string   `json:"deadline"`
	Intents           []Intent `json:"intents"`
}

// SignMessageRequest is what a wallet is asked to sign
type SignMessageRequest struct {
	Message     string
	Nonce       [32]byte
	Recipient   string
	CallbackURL string
}

// NEP413Payload is the payload echoed back in nep413 signed data
type NEP413Payload struct {
	Message     string `json:"message"`
	Nonce       string `json:"nonce"`
	Recipient   string `json:"recipient"`
	CallbackURL string `json:"callbackUrl,omitempty"`
}

// SignedData is a signed intent message in one of the supported standards
type SignedData struct {
	Standard  string      `json:"standard"`
	Payload   interface{} `json:"payload"`
	Signature string      `json:"signature"`
	PublicKey string      `json:"public_key,omitempty"`
}

// PublishIntent is the single element of publish_intent params
type PublishIntent struct {
	SignedData  SignedData `json:"signed_data"`
	QuoteHashes []string   `json:"quote_hashes"`
}

// IntentStatus is the relay's view of a published intent
type IntentStatus struct {
	IntentHash string `json:"intent_hash"`
	Status     string `json:"status"`
	Data       struct {
		Hash string `json:"hash,omitempty"`
	} `json:"data"`
}

// IsTerminal reports whether the relay will not update the status again
func (s IntentStatus) IsTerminal() bool {
	switch s.Status {
	case "SETTLED", "NOT_FOUND_OR_NOT_VALID":
		return true
	}
	return false
}
