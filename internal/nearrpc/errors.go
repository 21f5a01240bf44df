package nearrpc

import (
	"bytes"
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var (
	// ErrUnknownBlock means the node does not have the requested block, either because it
	// was skipped or because it has been garbage collected.
	ErrUnknownBlock = errors.New("unknown block")
	// ErrUnknownAccount means the account does not exist at the requested block.
	ErrUnknownAccount = errors.New("unknown account")
	// ErrContractExecution means a view call reached the contract and failed there.
	ErrContractExecution = errors.New("contract execution failed")
	// ErrNoStakingPool means the lockup contract has no staking pool selected.
	ErrNoStakingPool = errors.New("no staking pool selected")
)

// RPCError is the error object of a JSON-RPC response.
type RPCError struct {
	Name    string              `json:"name"`
	Code    int                 `json:"code"`
	Message string              `json:"message"`
	Data    jsoniter.RawMessage `json:"data,omitempty"`
	Cause   *ErrorCause         `json:"cause,omitempty"`
}

// ErrorCause is the structured cause nodes attach to handler errors.
type ErrorCause struct {
	Name string              `json:"name"`
	Info jsoniter.RawMessage `json:"info,omitempty"`
}

func (e *RPCError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("rpc error %s/%s: %s", e.Name, e.Cause.Name, e.Message)
	}
	return fmt.Sprintf("rpc error %d: %s %s", e.Code, e.Message, string(e.Data))
}

// Is matches the package sentinels against the cause name, falling back to the
// free-form data older nodes return.
func (e *RPCError) Is(target error) bool {
	cause := ""
	if e.Cause != nil {
		cause = e.Cause.Name
	}
	switch target {
	case ErrUnknownBlock:
		return cause == "UNKNOWN_BLOCK" || cause == "GARBAGE_COLLECTED_BLOCK" ||
			bytes.Contains(e.Data, []byte("DB Not Found"))
	case ErrUnknownAccount:
		return cause == "UNKNOWN_ACCOUNT" || bytes.Contains(e.Data, []byte("does not exist while viewing"))
	case ErrContractExecution:
		return cause == "CONTRACT_EXECUTION_ERROR" || cause == "NO_CONTRACT_CODE"
	}
	return false
}
