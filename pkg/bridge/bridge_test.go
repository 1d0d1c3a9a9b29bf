package bridge

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/topdeveloper55/ether-pulse-bridge/pkg/app/errors"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/ethereum"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/ethereum/contracts"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/registry"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/wallet"
)

var (
	user        = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	bscBridge   = common.HexToAddress("0x0000000000000000000000000000000000000097")
	bscUSDT     = registry.Token{Symbol: "USDT", Address: common.HexToAddress("0x00000000000000000000000000000000000097a1"), Decimals: 6}
	sepoliaUSDT = registry.Token{Symbol: "USDT", Address: common.HexToAddress("0x00000000000000000000000000000000001115a1"), Decimals: 6}
	bsc         = registry.Chain{Name: "BSC Testnet", ChainID: 97, Bridge: bscBridge, Tokens: []registry.Token{bscUSDT}}
	sepolia     = registry.Chain{Name: "Sepolia", ChainID: 11155111, Bridge: common.HexToAddress("0x1115"), Tokens: []registry.Token{sepoliaUSDT}}
)

func connectedOn(chainID uint64) wallet.Session {
	return wallet.Session{Connected: true, Address: user, ActiveChainID: chainID}
}

func providerOn(chainID uint64) *MockProvider {
	s := connectedOn(chainID)
	return &MockProvider{SessionFunc: func() wallet.Session { return s }}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in       string
		decimals uint8
		want     string
		wantErr  bool
	}{
		{in: "50", decimals: 6, want: "50000000"},
		{in: "0.000001", decimals: 6, want: "1"},
		{in: "1.500000", decimals: 6, want: "1500000"},
		{in: ".5", decimals: 18, want: "500000000000000000"},
		{in: " 2 ", decimals: 0, want: "2"},
		{in: "0.0000001", decimals: 6, wantErr: true},
		{in: "0", decimals: 6, wantErr: true},
		{in: "-1", decimals: 6, wantErr: true},
		{in: "", decimals: 6, wantErr: true},
		{in: "abc", decimals: 6, wantErr: true},
		{in: "1e3", decimals: 6, wantErr: true},
		{in: "1.5", decimals: 0, wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseAmount(tt.in, tt.decimals)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidAmount) {
				t.Errorf("ParseAmount(%q, %d): expected ErrInvalidAmount, got %v", tt.in, tt.decimals, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmount(%q, %d): unexpected error %v", tt.in, tt.decimals, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("ParseAmount(%q, %d) = %s, want %s", tt.in, tt.decimals, got, tt.want)
		}
	}
}

func TestFormatAmount_RoundTrip(t *testing.T) {
	v, err := ParseAmount("50", 6)
	require.NoError(t, err)
	assert.Equal(t, "50", FormatAmount(v, 6))
	assert.Equal(t, "1.5", FormatAmount(big.NewInt(1500000), 6))
	assert.Equal(t, "0", FormatAmount(nil, 6))
}

func TestIntent_Validate(t *testing.T) {
	ok := Intent{Source: bsc, Destination: sepolia, Token: bscUSDT, Amount: "10"}
	require.NoError(t, ok.Validate())

	same := ok
	same.Destination = bsc
	assert.True(t, errors.Is(same.Validate(), ErrInvalidSelection))

	foreign := ok
	foreign.Token = sepoliaUSDT
	assert.True(t, errors.Is(foreign.Validate(), ErrInvalidSelection))

	tooPrecise := ok
	tooPrecise.Amount = "1.1234567"
	err := tooPrecise.Validate()
	assert.True(t, errors.Is(err, ErrInvalidAmount))
	assert.True(t, apperrors.Is(err, apperrors.CategoryDataError))
}

func TestIsSourceChain(t *testing.T) {
	assert.True(t, IsSourceChain(connectedOn(97), bsc))
	assert.False(t, IsSourceChain(connectedOn(11155111), bsc))
	assert.False(t, IsSourceChain(wallet.Session{ActiveChainID: 97}, bsc))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, "WrongNetwork", KindOf(WrongNetworkError(1, 97)))
	assert.Equal(t, "ApprovalFailed", KindOf(ApprovalError(errors.New("user rejected"))))
	assert.Equal(t, "ConfirmationTimedOut", KindOf(TimedOutError(60)))
	assert.Equal(t, "SubmissionInFlight", KindOf(InFlightError()))
	assert.Equal(t, "Internal", KindOf(errors.New("boom")))
	assert.Equal(t, "", KindOf(nil))
}

func TestInspector_CheckAllowance(t *testing.T) {
	var gotOwner, gotSpender common.Address
	reader := &MockReader{
		AllowanceFunc: func(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
			gotOwner, gotSpender = owner, spender
			return big.NewInt(2_500_000), nil
		},
	}
	in := NewInspector(readersFor(reader), zap.NewNop())

	res := in.CheckAllowance(context.Background(), connectedOn(97), bsc, bscUSDT)
	assert.True(t, res.Approved)
	assert.Equal(t, "2.5", res.Allowance)
	assert.Equal(t, user, gotOwner)
	assert.Equal(t, bscBridge, gotSpender)
	assert.Equal(t, 0, res.Raw.Cmp(big.NewInt(2_500_000)))
}

func TestInspector_FailsClosed(t *testing.T) {
	calls := 0
	reader := &MockReader{
		AllowanceFunc: func(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
			calls++
			return nil, errors.New("rpc unavailable")
		},
	}
	in := NewInspector(readersFor(reader), nil)

	res := in.CheckAllowance(context.Background(), connectedOn(97), bsc, bscUSDT)
	assert.False(t, res.Approved)
	assert.Equal(t, "0", res.Allowance)

	res = in.CheckAllowance(context.Background(), wallet.Session{}, bsc, bscUSDT)
	assert.False(t, res.Approved)
	assert.Equal(t, 1, calls)

	zero := NewInspector(readersFor(&MockReader{}), nil)
	assert.False(t, zero.CheckAllowance(context.Background(), connectedOn(97), bsc, bscUSDT).Approved)
}

func TestIssuer_ApproveCeiling(t *testing.T) {
	provider := providerOn(97)
	issuer, err := NewIssuer(provider, "", zap.NewNop())
	require.NoError(t, err)

	_, err = issuer.Approve(context.Background(), connectedOn(97), bsc, bscUSDT)
	require.NoError(t, err)

	sent := provider.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, bscUSDT.Address, sent[0].To)
	assert.Equal(t, bsc.ChainID, sent[0].ChainID)

	parsed, err := contracts.ERC20MetaData.GetAbi()
	require.NoError(t, err)
	args, err := parsed.Methods["approve"].Inputs.Unpack(sent[0].Data[4:])
	require.NoError(t, err)
	assert.Equal(t, bscBridge, args[0])
	assert.Equal(t, "100000000000000", args[1].(*big.Int).String())
}

func TestIssuer_GuardsBeforeSigning(t *testing.T) {
	tests := []struct {
		name    string
		session wallet.Session
		active  uint64
		want    error
	}{
		{"disconnected", wallet.Session{ActiveChainID: 97}, 97, ErrWalletNotConnected},
		{"wrong network", connectedOn(11155111), 11155111, ErrWrongNetwork},
		{"stale session", connectedOn(97), 11155111, ErrWrongNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			active := tt.active
			provider := &MockProvider{
				SessionFunc:       func() wallet.Session { return tt.session },
				ActiveChainIDFunc: func(context.Context) (uint64, error) { return active, nil },
			}
			issuer, err := NewIssuer(provider, "", nil)
			require.NoError(t, err)

			_, err = issuer.Approve(context.Background(), tt.session, bsc, bscUSDT)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Empty(t, provider.Sent())
		})
	}
}

func TestIssuer_RejectedOrReverted(t *testing.T) {
	rejecting := providerOn(97)
	rejecting.SignAndSendFunc = func(context.Context, wallet.TxRequest) (common.Hash, error) {
		return common.Hash{}, errors.New("user rejected")
	}
	issuer, err := NewIssuer(rejecting, "", nil)
	require.NoError(t, err)
	_, err = issuer.Approve(context.Background(), connectedOn(97), bsc, bscUSDT)
	assert.True(t, errors.Is(err, ErrApprovalFailed))
	assert.True(t, apperrors.Is(err, apperrors.CategoryDependencyFailure))

	reverting := providerOn(97)
	reverting.WaitForReceiptFunc = func(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
		return &types.Receipt{Status: types.ReceiptStatusFailed}, wallet.ErrReverted
	}
	issuer, err = NewIssuer(reverting, "", nil)
	require.NoError(t, err)
	_, err = issuer.Approve(context.Background(), connectedOn(97), bsc, bscUSDT)
	assert.True(t, errors.Is(err, ErrApprovalFailed))
	assert.True(t, errors.Is(err, wallet.ErrReverted))
}

func TestIssuer_ChainSwitchedBeforeSigning(t *testing.T) {
	provider := providerOn(97)
	provider.SignAndSendFunc = func(ctx context.Context, req wallet.TxRequest) (common.Hash, error) {
		return common.Hash{}, fmt.Errorf("%w: active chain 11155111, request for %d", wallet.ErrChainMismatch, req.ChainID)
	}
	issuer, err := NewIssuer(provider, "", nil)
	require.NoError(t, err)

	_, err = issuer.Approve(context.Background(), connectedOn(97), bsc, bscUSDT)
	assert.True(t, errors.Is(err, ErrWrongNetwork), "got %v", err)
	assert.False(t, errors.Is(err, ErrApprovalFailed))
}

func TestIssuer_WaitsPastCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := providerOn(97)
	provider.SignAndSendFunc = func(context.Context, wallet.TxRequest) (common.Hash, error) {
		cancel()
		return common.HexToHash("0xa11"), nil
	}
	provider.WaitForReceiptFunc = func(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: hash, BlockNumber: big.NewInt(100)}, nil
	}
	issuer, err := NewIssuer(provider, "", nil)
	require.NoError(t, err)

	hash, err := issuer.Approve(ctx, connectedOn(97), bsc, bscUSDT)
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0xa11"), hash)
}

func TestNewIssuer_RejectsBadCeiling(t *testing.T) {
	_, err := NewIssuer(providerOn(97), "-5", nil)
	require.Error(t, err)
}

func lockRecord(id int64, from common.Address, amount int64) *ethereum.TransferRecord {
	return &ethereum.TransferRecord{
		UniqueID:           big.NewInt(id),
		From:               from,
		To:                 from,
		Token:              bscUSDT.Address,
		Amount:             big.NewInt(amount),
		DestinationChainID: big.NewInt(11155111),
		TxHash:             common.HexToHash("0xabcdef"),
	}
}

func TestSubmitter_SubmitLock(t *testing.T) {
	provider := providerOn(97)
	var readBlock *big.Int
	reader := &MockReader{
		LatestTransferIDFunc: func(ctx context.Context, bridge common.Address, blockNumber *big.Int) (*big.Int, error) {
			readBlock = blockNumber
			return big.NewInt(12), nil
		},
		TransferRecordFunc: func(ctx context.Context, bridge common.Address, id, blockNumber *big.Int) (*ethereum.TransferRecord, error) {
			assert.Equal(t, int64(12), id.Int64())
			return lockRecord(12, user, 50_000_000), nil
		},
	}
	sb := NewSubmitter(provider, readersFor(reader), zap.NewNop())

	receipt, err := sb.SubmitLock(context.Background(), connectedOn(97), Intent{
		Source: bsc, Destination: sepolia, Token: bscUSDT, Amount: "50",
	})
	require.NoError(t, err)

	assert.Equal(t, "12", receipt.UniqueID)
	assert.Equal(t, common.HexToHash("0xabcdef"), receipt.SourceTxHash)
	assert.Equal(t, common.HexToHash("0x01"), receipt.LockTxHash)
	assert.Equal(t, uint64(97), receipt.SourceChainID)
	assert.Equal(t, uint64(11155111), receipt.DestinationChainID)
	assert.Equal(t, "50000000", receipt.Amount)
	assert.Equal(t, uint64(100), receipt.BlockNumber)
	assert.Equal(t, int64(100), readBlock.Int64())

	amount, ok := new(big.Int).SetString(receipt.Amount, 10)
	require.True(t, ok)
	assert.Equal(t, "50", FormatAmount(amount, bscUSDT.Decimals))

	sent := provider.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, bscBridge, sent[0].To)
	parsed, err := contracts.LockBridgeMetaData.GetAbi()
	require.NoError(t, err)
	args, err := parsed.Methods["lockTokens"].Inputs.Unpack(sent[0].Data[4:])
	require.NoError(t, err)
	assert.Equal(t, user, args[0])
	assert.Equal(t, bscUSDT.Address, args[1])
	assert.Equal(t, int64(11155111), args[3].(*big.Int).Int64())
}

func TestSubmitter_WalksBackPastOtherLocks(t *testing.T) {
	other := common.HexToAddress("0xbb")
	reader := &MockReader{
		LatestTransferIDFunc: func(context.Context, common.Address, *big.Int) (*big.Int, error) {
			return big.NewInt(5), nil
		},
		TransferRecordFunc: func(ctx context.Context, bridge common.Address, id, blockNumber *big.Int) (*ethereum.TransferRecord, error) {
			if id.Int64() == 5 {
				return lockRecord(5, other, 1), nil
			}
			return lockRecord(id.Int64(), user, 1_000_000), nil
		},
	}
	sb := NewSubmitter(providerOn(97), readersFor(reader), nil)

	receipt, err := sb.SubmitLock(context.Background(), connectedOn(97), Intent{
		Source: bsc, Destination: sepolia, Token: bscUSDT, Amount: "1",
	})
	require.NoError(t, err)
	assert.Equal(t, "4", receipt.UniqueID)
}

func TestSubmitter_RecordMismatchFails(t *testing.T) {
	reader := &MockReader{
		LatestTransferIDFunc: func(context.Context, common.Address, *big.Int) (*big.Int, error) {
			return big.NewInt(1), nil
		},
		TransferRecordFunc: func(ctx context.Context, bridge common.Address, id, blockNumber *big.Int) (*ethereum.TransferRecord, error) {
			return lockRecord(id.Int64(), user, 7), nil
		},
	}
	sb := NewSubmitter(providerOn(97), readersFor(reader), nil)

	_, err := sb.SubmitLock(context.Background(), connectedOn(97), Intent{
		Source: bsc, Destination: sepolia, Token: bscUSDT, Amount: "1",
	})
	assert.True(t, errors.Is(err, ErrSubmissionFailed))
}

func TestSubmitter_CompletesAfterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := providerOn(97)
	provider.SignAndSendFunc = func(context.Context, wallet.TxRequest) (common.Hash, error) {
		cancel()
		return common.HexToHash("0xabc"), nil
	}
	provider.WaitForReceiptFunc = func(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: hash, BlockNumber: big.NewInt(100)}, nil
	}
	reader := &MockReader{
		LatestTransferIDFunc: func(ctx context.Context, bridge common.Address, blockNumber *big.Int) (*big.Int, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return big.NewInt(3), nil
		},
		TransferRecordFunc: func(ctx context.Context, bridge common.Address, id, blockNumber *big.Int) (*ethereum.TransferRecord, error) {
			return lockRecord(3, user, 1_000_000), nil
		},
	}
	sb := NewSubmitter(provider, readersFor(reader), nil)

	receipt, err := sb.SubmitLock(ctx, connectedOn(97), Intent{
		Source: bsc, Destination: sepolia, Token: bscUSDT, Amount: "1",
	})
	require.NoError(t, err)
	assert.Equal(t, "3", receipt.UniqueID)
	assert.Equal(t, common.HexToHash("0xabc"), receipt.LockTxHash)

	sent := provider.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, bsc.ChainID, sent[0].ChainID)
}

func TestSubmitter_RejectsAmountAboveBalance(t *testing.T) {
	provider := providerOn(97)
	reader := &MockReader{
		BalanceOfFunc: func(ctx context.Context, token, account common.Address) (*big.Int, error) {
			assert.Equal(t, bscUSDT.Address, token)
			assert.Equal(t, user, account)
			return big.NewInt(1_500_000), nil
		},
	}
	sb := NewSubmitter(provider, readersFor(reader), nil)

	_, err := sb.SubmitLock(context.Background(), connectedOn(97), Intent{
		Source: bsc, Destination: sepolia, Token: bscUSDT, Amount: "2",
	})
	assert.True(t, errors.Is(err, ErrInvalidAmount), "got %v", err)
	assert.Contains(t, err.Error(), "1.5 USDT")
	assert.Empty(t, provider.Sent())
}

func TestSubmitter_ChainSwitchedBeforeSigning(t *testing.T) {
	provider := providerOn(97)
	provider.SignAndSendFunc = func(ctx context.Context, req wallet.TxRequest) (common.Hash, error) {
		return common.Hash{}, fmt.Errorf("%w: active chain 11155111, request for %d", wallet.ErrChainMismatch, req.ChainID)
	}
	sb := NewSubmitter(provider, readersFor(&MockReader{}), nil)

	_, err := sb.SubmitLock(context.Background(), connectedOn(97), Intent{
		Source: bsc, Destination: sepolia, Token: bscUSDT, Amount: "1",
	})
	assert.True(t, errors.Is(err, ErrWrongNetwork), "got %v", err)
}

func TestSubmitter_RejectsBeforeAnyWalletCall(t *testing.T) {
	tests := []struct {
		name    string
		session wallet.Session
		intent  Intent
		want    error
	}{
		{"same chain", connectedOn(97), Intent{Source: bsc, Destination: bsc, Token: bscUSDT, Amount: "1"}, ErrInvalidSelection},
		{"bad amount", connectedOn(97), Intent{Source: bsc, Destination: sepolia, Token: bscUSDT, Amount: "0"}, ErrInvalidAmount},
		{"wrong network", connectedOn(11155111), Intent{Source: bsc, Destination: sepolia, Token: bscUSDT, Amount: "1"}, ErrWrongNetwork},
		{"disconnected", wallet.Session{}, Intent{Source: bsc, Destination: sepolia, Token: bscUSDT, Amount: "1"}, ErrWalletNotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.session
			provider := &MockProvider{SessionFunc: func() wallet.Session { return s }}
			sb := NewSubmitter(provider, readersFor(&MockReader{}), nil)

			_, err := sb.SubmitLock(context.Background(), tt.session, tt.intent)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Empty(t, provider.Sent())
		})
	}
}
