package money

import "github.com/pkg/errors"

var (
	ErrInvalidFunction      = errors.New("money: unknown function")
	ErrDuplicateNullifier   = errors.New("money: nullifier already exists")
	ErrDuplicateCoin        = errors.New("money: coin already exists")
	ErrMerkleRootNotFound   = errors.New("money: merkle root not in root history")
	ErrValueMismatch        = errors.New("money: value commitments do not balance")
	ErrTokenMismatch        = errors.New("money: token commitments do not match")
	ErrSpendHookMismatch    = errors.New("money: companion call does not match spend hook")
	ErrSpendHookOutOfBounds = errors.New("money: spend hook companion index out of bounds")
	ErrCallOutOfBounds      = errors.New("money: cross-call index out of bounds")
	ErrPrevCallMismatch     = errors.New("money: previous call is not the expected contract function")
	ErrPrevInputMismatch    = errors.New("money: previous call input does not match")
	ErrNonNativeToken       = errors.New("money: native token required")
	ErrTokenIDMismatch      = errors.New("money: token id does not derive from authority")
	ErrTokenFrozen          = errors.New("money: token is frozen")
	ErrTokenAlreadyFrozen   = errors.New("money: token is already frozen")
	ErrNoInputs             = errors.New("money: transaction has no inputs")
	ErrNoOutputs            = errors.New("money: transaction has no outputs")
	ErrSwapShape            = errors.New("money: swap requires exactly two inputs and two outputs")
)
