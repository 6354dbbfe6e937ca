package types

// FunctionCall is a contract method invocation inside a transaction
type FunctionCall struct {
	MethodName string                 `json:"methodName"`
	Args       map[string]interface{} `json:"args"`
	Gas        string                 `json:"gas"`
	Deposit    string                 `json:"deposit"`
}

// Action is one step of a transaction. Only FunctionCall is supported.
type Action struct {
	Type   string       `json:"type"`
	Params FunctionCall `json:"params"`
}

// Transaction is a batch of actions against a single receiver
type Transaction struct {
	ReceiverID string   `json:"receiverId"`
	Actions    []Action `json:"actions"`
}

// NewFunctionCall builds a FunctionCall action
func NewFunctionCall(method string, args map[string]interface{}, gas, deposit string) Action {
	if args == nil {
		args = map[string]interface{}{}
	}
	return Action{
		Type: "FunctionCall",
		Params: FunctionCall{
			MethodName: method,
			Args:       args,
			Gas:        gas,
			Deposit:    deposit,
		},
	}
}

// AccessKey is an entry of an account's access key list
type AccessKey struct {
	PublicKey string `json:"public_key"`
	AccessKey struct {
		Nonce      uint64      `json:"nonce"`
		Permission interface{} `json:"permission"`
	} `json:"access_key"`
}

// TransactionOutcome is the subset of a NEAR execution outcome divvy reads
type TransactionOutcome struct {
	Status struct {
		SuccessValue *string     `json:"SuccessValue,omitempty"`
		Failure      interface{} `json:"Failure,omitempty"`
	} `json:"status"`
	Transaction struct {
		Hash     string `json:"hash"`
		SignerID string `json:"signer_id"`
	} `json:"transaction"`
}

// DefaultGas is 30 Tgas, attached to every function call divvy makes
const DefaultGas = "30000000000000"
