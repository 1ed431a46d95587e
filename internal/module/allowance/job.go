package allowance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/kislikjeka/zapfeed/internal/module/reconcile"
	"github.com/kislikjeka/zapfeed/internal/platform/payment"
	"github.com/kislikjeka/zapfeed/internal/platform/user"
	"github.com/kislikjeka/zapfeed/internal/platform/wallet"
	"github.com/kislikjeka/zapfeed/pkg/logger"
	"github.com/kislikjeka/zapfeed/pkg/money"
)

var ErrHostWalletNotFound = errors.New("host wallet not found")

// Stage names the step that failed for one wallet
type Stage string

const (
	StageWallets Stage = "wallets"
	StageClear   Stage = "clear"
	StageTopUp   Stage = "topup"
)

// Failure is one wallet the run could not fully process
type Failure struct {
	UserID   string `json:"user_id"`
	WalletID string `json:"wallet_id,omitempty"`
	Stage    Stage  `json:"stage"`
	Message  string `json:"error"`
	Err      error  `json:"-"`
}

func (f *Failure) Error() string {
	if f.WalletID == "" {
		return fmt.Sprintf("allowance %s for user %s: %v", f.Stage, f.UserID, f.Err)
	}
	return fmt.Sprintf("allowance %s for wallet %s: %v", f.Stage, f.WalletID, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Report summarizes one run
type Report struct {
	Wallets     int        `json:"wallets"`
	Cleared     int        `json:"cleared"`
	ClearedSats int64      `json:"cleared_sats"`
	ToppedUp    int        `json:"topped_up"`
	Failures    []*Failure `json:"failures"`
	errs        *multierror.Error
}

// Err is nil when every wallet was processed
func (r *Report) Err() error {
	return r.errs.ErrorOrNil()
}

func (r *Report) fail(f *Failure) {
	r.Failures = append(r.Failures, f)
	r.errs = multierror.Append(r.errs, f)
}

// Job clears allowance wallets into the host wallet and tops them up again
type Job struct {
	config    *Config
	directory Directory
	transfers Transferer
	topups    TopUpper
	metrics   Recorder
	logger    *logger.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// NewJob creates an allowance job
func NewJob(config *Config, dir Directory, transfers Transferer, topups TopUpper, log *logger.Logger) *Job {
	if config == nil {
		config = DefaultConfig()
	}
	return &Job{
		config:    config,
		directory: dir,
		transfers: transfers,
		topups:    topups,
		logger:    log.WithField("component", "allowance"),
	}
}

// SetMetrics records the result of every run
func (j *Job) SetMetrics(m Recorder) {
	j.metrics = m
}

// Run executes RunOnce every Interval until ctx ends or Stop is called
func (j *Job) Run(ctx context.Context) {
	if !j.config.Enabled {
		j.logger.Info("allowance job is disabled")
		return
	}

	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return
	}
	j.running = true
	stopCh := make(chan struct{})
	j.stopCh = stopCh
	j.mu.Unlock()

	j.logger.Info("starting allowance job",
		"interval", j.config.Interval,
		"amount_sats", j.config.AmountSats)

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("allowance job stopping (context done)")
			j.markStopped()
			return
		case <-stopCh:
			j.logger.Info("allowance job stopping (stop signal)")
			return
		case <-ticker.C:
			if _, err := j.RunOnce(ctx); err != nil {
				j.logger.Error("allowance run failed", "error", err)
			}
		}
	}
}

// Stop ends a running loop. Run may be called again afterwards.
func (j *Job) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.running {
		return
	}
	close(j.stopCh)
	j.stopCh = nil
	j.running = false
}

// Running reports whether the Run loop is active
func (j *Job) Running() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

func (j *Job) markStopped() {
	j.mu.Lock()
	j.running = false
	j.mu.Unlock()
}

// RunOnce clears and tops up every allowance wallet. The returned error is
// for failures that stop the whole run; per-wallet failures are in the
// report.
func (j *Job) RunOnce(ctx context.Context) (*Report, error) {
	start := time.Now()

	host, err := j.hostWallet(ctx)
	if err != nil {
		return nil, err
	}

	users, err := j.directory.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	report := &Report{}
	for i := range users {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		u := &users[i]

		wallets, err := j.directory.ListWallets(ctx, u.ID)
		if err != nil {
			j.record(report, &Failure{UserID: u.ID, Stage: StageWallets, Err: err})
			continue
		}
		w, ok := wallet.FindByRole(wallets, wallet.RoleAllowance)
		if !ok || w.ID == host.ID {
			continue
		}
		report.Wallets++
		j.process(ctx, report, u, w, host)
	}

	j.logger.WithDuration(time.Since(start)).Info("allowance run completed",
		"wallets", report.Wallets,
		"cleared", report.Cleared,
		"cleared_sats", report.ClearedSats,
		"topped_up", report.ToppedUp,
		"failures", len(report.Failures))

	if j.metrics != nil {
		stages := make([]string, 0, len(report.Failures))
		for _, f := range report.Failures {
			stages = append(stages, string(f.Stage))
		}
		j.metrics.RecordAllowance(report.ToppedUp, stages)
	}

	return report, nil
}

func (j *Job) process(ctx context.Context, report *Report, u *user.User, w, host wallet.Wallet) {
	if sats := money.MsatToSats(w.BalanceMsat); sats > 0 {
		extra := payment.Extra{
			FromUserID:   u.ID,
			FromWalletID: w.ID,
			FromName:     u.DisplayName,
			ToUserID:     j.config.HostUserID,
			ToWalletID:   host.ID,
			Tag:          payment.TagZap,
		}
		if _, err := j.transfers.SendTransfer(ctx, w, host, sats, ClearingMemo(u), extra); err != nil {
			// no top-up on top of an uncleared balance
			j.record(report, &Failure{UserID: u.ID, WalletID: w.ID, Stage: StageClear, Err: err})
			return
		}
		report.Cleared++
		report.ClearedSats += sats
	}

	if err := j.topups.TopUp(ctx, w.ID, j.config.AmountSats); err != nil {
		j.record(report, &Failure{UserID: u.ID, WalletID: w.ID, Stage: StageTopUp, Err: err})
		return
	}
	report.ToppedUp++
}

func (j *Job) record(report *Report, f *Failure) {
	f.Message = f.Err.Error()
	j.logger.Warn("allowance step failed",
		"user_id", f.UserID,
		"wallet_id", f.WalletID,
		"stage", f.Stage,
		"error", f.Err)
	report.fail(f)
}

func (j *Job) hostWallet(ctx context.Context) (wallet.Wallet, error) {
	wallets, err := j.directory.ListWallets(ctx, j.config.HostUserID)
	if err != nil {
		return wallet.Wallet{}, fmt.Errorf("failed to list host wallets: %w", err)
	}
	for _, w := range wallets {
		if w.ID == j.config.HostWalletID {
			if w.InKey == "" {
				return wallet.Wallet{}, fmt.Errorf("host wallet %s has no invoice key", w.ID)
			}
			return w, nil
		}
	}
	return wallet.Wallet{}, fmt.Errorf("%w: %s", ErrHostWalletNotFound, j.config.HostWalletID)
}

// ClearingMemo is the memo of the payment that empties u's allowance wallet
func ClearingMemo(u *user.User) string {
	return u.Label() + " " + reconcile.HousekeepingMarker
}
