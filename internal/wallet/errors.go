package wallet

import "errors"

// Wallet errors.
var (
	// ErrInvalidPhrase: the recovery phrase failed BIP-39 checksum
	// validation. Checked once at import, not on every derivation.
	ErrInvalidPhrase = errors.New("invalid recovery phrase")

	// ErrInsufficientFunds: the requested amount exceeds the sum of
	// spendable UTXOs.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrNoCoins: no spendable UTXOs at all.
	ErrNoCoins = errors.New("no spendable coins")

	// ErrOffline: a mint-dependent operation was attempted without
	// connectivity. Retryable.
	ErrOffline = errors.New("no connectivity")
)
