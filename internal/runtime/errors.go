package runtime

import "github.com/pkg/errors"

// Validation failures are typed so callers can distinguish a malformed
// transaction from an unlucky one (e.g. a root that fell out of the
// accepted set) without parsing messages.
var (
	ErrUnknownContract      = errors.New("call targets an unknown contract")
	ErrInvalidFunction      = errors.New("unknown contract function")
	ErrCallIndexOutOfBounds = errors.New("call index out of bounds")
	ErrEmptyTransaction     = errors.New("transaction has no calls")
	ErrBundleMismatch       = errors.New("proof or signature bundle count does not match call count")
	ErrProofCountMismatch   = errors.New("proof count does not match metadata")
	ErrSigCountMismatch     = errors.New("signature count does not match metadata")
	ErrProofVerifyFailed    = errors.New("proof verification failed")
	ErrSignatureInvalid     = errors.New("signature verification failed")
	ErrBlockOutOfOrder      = errors.New("block slot is not after the current tip")
)
