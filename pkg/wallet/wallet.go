// Package wallet defines the wallet-connection collaborator the bridge core
// reads sessions from and signs through.
package wallet

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	// ErrNotConnected is returned by operations that need a connected session.
	ErrNotConnected = errors.New("wallet not connected")
	// ErrUnsupportedChain is returned when switching to a chain outside the registry.
	ErrUnsupportedChain = errors.New("unsupported chain")
	// ErrReverted is returned alongside a receipt whose status is failed.
	ErrReverted = errors.New("transaction reverted")
	// ErrChainMismatch is returned when a request targets a chain other
	// than the active one.
	ErrChainMismatch = errors.New("active chain does not match request")
)

// Session is the wallet state the core reads. It is a value; providers hand
// out copies and only change state through their own operations.
type Session struct {
	Connected     bool           `json:"connected"`
	Address       common.Address `json:"address"`
	ActiveChainID uint64         `json:"active_chain_id"`
	// NativeBalance is the wei-denominated balance on the active chain.
	NativeBalance string `json:"native_balance"`
}

// EventType names a session change.
type EventType string

const (
	EventAccountsChanged EventType = "accountsChanged"
	EventChainChanged    EventType = "chainChanged"
	EventDisconnected    EventType = "disconnect"
)

// Event carries the session as it stands after a change.
type Event struct {
	Type    EventType `json:"type"`
	Session Session   `json:"session"`
}

// TxRequest is an unsigned contract call. ChainID must equal the active
// chain at signing time.
type TxRequest struct {
	ChainID uint64
	To      common.Address
	Data    []byte
	Value   *big.Int
	// Operation labels the request in logs and metrics.
	Operation string
}

// Provider is the wallet-connection collaborator.
type Provider interface {
	Session() Session
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	ActiveChainID(ctx context.Context) (uint64, error)
	SignAndSend(ctx context.Context, req TxRequest) (common.Hash, error)
	WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	Subscribe() (<-chan Event, func())
}
