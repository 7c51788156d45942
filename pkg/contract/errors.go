package contract

import "errors"

var (
	// ErrMissingBridge reports a renderer surface built before bridge
	// exposure installed the namespace object.
	ErrMissingBridge = errors.New("contract: bridge not exposed")

	// ErrUnknownAction reports a call through an action the contract does
	// not declare for that direction.
	ErrUnknownAction = errors.New("contract: unknown action")
)
