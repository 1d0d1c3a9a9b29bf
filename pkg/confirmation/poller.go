package confirmation

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/topdeveloper55/ether-pulse-bridge/internal/metrics"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/bridge"
)

const (
	DefaultInterval    = 10 * time.Second
	DefaultMaxAttempts = 60
)

// Status is the outcome of one poll attempt, or of the whole wait.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusConfirmed Status = "Confirmed"
	StatusNotFound  Status = "NotFound"
	StatusTimedOut  Status = "TimedOut"
)

// Lookuper fetches the backend's records for a transaction hash.
type Lookuper interface {
	Lookup(ctx context.Context, txHash string) ([]Record, error)
}

// Attempt describes one finished poll.
type Attempt struct {
	Number int
	Status Status
	Err    error
}

// Result is the outcome of Await.
type Result struct {
	Status   Status  `json:"status"`
	Attempts int     `json:"attempts"`
	Record   *Record `json:"record,omitempty"`
}

// Poller waits for the backend to report a transfer as confirmed.
type Poller struct {
	client      Lookuper
	interval    time.Duration
	maxAttempts int
	logger      *zap.Logger
	observe     func(Attempt)
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithPollerLogger sets the poller logger.
func WithPollerLogger(logger *zap.Logger) PollerOption {
	return func(p *Poller) { p.logger = logger }
}

// NewPoller creates a poller. Non-positive values select the defaults.
func NewPoller(client Lookuper, interval time.Duration, maxAttempts int, opts ...PollerOption) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	p := &Poller{
		client:      client,
		interval:    interval,
		maxAttempts: maxAttempts,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaxAttempts returns the poll budget.
func (p *Poller) MaxAttempts() int { return p.maxAttempts }

// Await polls for txHash, sleeping one interval before every attempt. It
// returns Confirmed as soon as an attempt sees a confirmed record, TimedOut
// with ErrConfirmationTimedOut after exactly MaxAttempts attempts, or
// ctx.Err() when ctx ends first. Lookup errors count as unconfirmed attempts.
func (p *Poller) Await(ctx context.Context, txHash string, observe ...func(Attempt)) (Result, error) {
	start := time.Now()
	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			metrics.ConfirmationWait.WithLabelValues("cancelled").Observe(time.Since(start).Seconds())
			return Result{Status: StatusPending, Attempts: attempt - 1}, ctx.Err()
		case <-timer.C:
		}

		status, record, err := p.poll(ctx, txHash)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			if ctx.Err() != nil {
				metrics.ConfirmationWait.WithLabelValues("cancelled").Observe(time.Since(start).Seconds())
				return Result{Status: StatusPending, Attempts: attempt}, ctx.Err()
			}
		}
		for _, fn := range observe {
			fn(Attempt{Number: attempt, Status: status, Err: err})
		}

		if status == StatusConfirmed {
			metrics.ConfirmationWait.WithLabelValues("confirmed").Observe(time.Since(start).Seconds())
			p.logger.Info("Transfer confirmed",
				zap.String("tx_hash", txHash),
				zap.Int("attempt", attempt))
			return Result{Status: StatusConfirmed, Attempts: attempt, Record: record}, nil
		}

		if attempt < p.maxAttempts {
			timer.Reset(p.interval)
		}
	}

	metrics.ConfirmationWait.WithLabelValues("timed_out").Observe(time.Since(start).Seconds())
	p.logger.Warn("Confirmation budget exhausted, transfer may still settle",
		zap.String("tx_hash", txHash),
		zap.Int("attempts", p.maxAttempts))
	return Result{Status: StatusTimedOut, Attempts: p.maxAttempts}, bridge.TimedOutError(p.maxAttempts)
}

func (p *Poller) poll(ctx context.Context, txHash string) (Status, *Record, error) {
	records, err := p.client.Lookup(ctx, txHash)
	if err != nil {
		metrics.ConfirmationPolls.WithLabelValues("error").Inc()
		metrics.ErrorsTotal.WithLabelValues("confirmation", "lookup_failed").Inc()
		p.logger.Warn("Confirmation lookup failed",
			zap.String("tx_hash", txHash),
			zap.Error(err))
		return StatusNotFound, nil, err
	}

	record := matchRecord(records, txHash)
	switch {
	case record == nil:
		metrics.ConfirmationPolls.WithLabelValues("not_found").Inc()
		return StatusNotFound, nil, nil
	case record.Confirmed:
		metrics.ConfirmationPolls.WithLabelValues("confirmed").Inc()
		return StatusConfirmed, record, nil
	default:
		metrics.ConfirmationPolls.WithLabelValues("pending").Inc()
		return StatusPending, record, nil
	}
}

// matchRecord picks the record for txHash. Records without a hash are taken
// as answering the query, since the backend already filters by path.
func matchRecord(records []Record, txHash string) *Record {
	for i := range records {
		if records[i].TxHash == "" || strings.EqualFold(records[i].TxHash, txHash) {
			r := records[i]
			return &r
		}
	}
	return nil
}
