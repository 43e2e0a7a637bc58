package domain

import "errors"

// Error kinds per spec §7's propagation table. Procedure-layer
// implementations and the HTTP client both produce these; the orchestrator
// decides compensation based on which one it sees.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnknownAccount    = errors.New("unknown account")
	ErrConcurrencyFail   = errors.New("concurrency conflict: conditional update matched no rows")
	ErrAlreadyReleased   = errors.New("hold already released")
	ErrAccountNotFound   = errors.New("account not found")
	ErrEngineBusy        = errors.New("engine busy")
	ErrProtocol          = errors.New("malformed procedure response")
	ErrNetwork           = errors.New("network timeout or reset")
	ErrGeneratorRunning  = errors.New("Cannot reset while RDG is running")
)
