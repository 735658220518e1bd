package wallet

import "errors"

var (
	ErrWalletNotFound     = errors.New("wallet not found")
	ErrDuplicateWallet    = errors.New("wallet already exists for tournament and user")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrInvalidTrade       = errors.New("invalid trade parameters")
	ErrInvalidBalance     = errors.New("initial balance must be positive")
)
