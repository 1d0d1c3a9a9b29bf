package bridge

import (
	"errors"
	"fmt"

	apperrors "github.com/topdeveloper55/ether-pulse-bridge/pkg/app/errors"
)

// Failure kinds surfaced by the bridge core. Every error returned by this
// package and by the orchestrator wraps exactly one of them.
var (
	ErrWalletNotConnected   = errors.New("wallet not connected")
	ErrWrongNetwork         = errors.New("wrong network")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidSelection     = errors.New("invalid selection")
	ErrApprovalFailed       = errors.New("approval failed")
	ErrSubmissionFailed     = errors.New("submission failed")
	ErrConfirmationTimedOut = errors.New("confirmation timed out")
	ErrServiceUnreachable   = errors.New("confirmation service unreachable")
	ErrSubmissionInFlight   = errors.New("submission already in flight")
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrWalletNotConnected, "WalletNotConnected"},
	{ErrWrongNetwork, "WrongNetwork"},
	{ErrInvalidAmount, "InvalidAmount"},
	{ErrInvalidSelection, "InvalidSelection"},
	{ErrApprovalFailed, "ApprovalFailed"},
	{ErrSubmissionFailed, "SubmissionFailed"},
	{ErrConfirmationTimedOut, "ConfirmationTimedOut"},
	{ErrServiceUnreachable, "ServiceUnreachable"},
	{ErrSubmissionInFlight, "SubmissionInFlight"},
}

// KindOf names the failure kind wrapped by err, or "Internal".
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "Internal"
}

// NotConnectedError reports a write attempted without a connected wallet.
func NotConnectedError() error {
	return apperrors.UnAuthorizedError(ErrWalletNotConnected, ErrWalletNotConnected.Error())
}

// WrongNetworkError reports that the wallet's active chain is not the source chain.
func WrongNetworkError(active, want uint64) error {
	return apperrors.ConflictError(
		fmt.Errorf("%w: wallet on chain %d, source chain is %d", ErrWrongNetwork, active, want),
		ErrWrongNetwork.Error(),
	)
}

// InvalidAmountError reports an amount that cannot be bridged.
func InvalidAmountError(reason string) error {
	return apperrors.BadRequestError(fmt.Errorf("%w: %s", ErrInvalidAmount, reason), ErrInvalidAmount.Error())
}

// InvalidSelectionError reports an unusable chain or token choice.
func InvalidSelectionError(reason string) error {
	return apperrors.BadRequestError(fmt.Errorf("%w: %s", ErrInvalidSelection, reason), ErrInvalidSelection.Error())
}

// ApprovalError wraps a failed or rejected approval.
func ApprovalError(cause error) error {
	return apperrors.DependencyFailureError(fmt.Errorf("%w: %w", ErrApprovalFailed, cause), ErrApprovalFailed.Error())
}

// SubmissionError wraps a failed lock submission.
func SubmissionError(cause error) error {
	return apperrors.DependencyFailureError(fmt.Errorf("%w: %w", ErrSubmissionFailed, cause), ErrSubmissionFailed.Error())
}

// TimedOutError reports an exhausted confirmation budget. The transfer may
// still settle later.
func TimedOutError(attempts int) error {
	return apperrors.TimeoutError(
		fmt.Errorf("%w after %d attempts", ErrConfirmationTimedOut, attempts),
		ErrConfirmationTimedOut.Error(),
	)
}

// UnreachableError wraps a failed confirmation service request.
func UnreachableError(cause error) error {
	return apperrors.DependencyFailureError(fmt.Errorf("%w: %w", ErrServiceUnreachable, cause), ErrServiceUnreachable.Error())
}

// InFlightError reports a second submission for a wallet that already has one pending.
func InFlightError() error {
	return apperrors.LockedError(ErrSubmissionInFlight, ErrSubmissionInFlight.Error())
}
