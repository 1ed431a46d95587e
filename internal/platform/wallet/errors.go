package wallet

import "errors"

var (
	ErrWalletNotFound = errors.New("wallet not found")
	ErrUnknownRole    = errors.New("unknown wallet role")
)
