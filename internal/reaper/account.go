package reaper

import (
	"context"
	"errors"
	"time"

	"github.com/makwanagautam41/SnapLink-sub001/internal/logging"
	"github.com/makwanagautam41/SnapLink-sub001/internal/model"
	"github.com/makwanagautam41/SnapLink-sub001/internal/notify"
	"github.com/makwanagautam41/SnapLink-sub001/internal/recordstore"
)

// AccountConfig configures the account reaper.
type AccountConfig struct {
	// OperatorAddress receives the deletion report. Required.
	OperatorAddress string
	// OpTimeout bounds each store and notifier call. Default: 30s.
	OpTimeout time.Duration
}

// AccountTickResult summarises one account tick.
type AccountTickResult struct {
	TickID     string
	Candidates int
	// Report lists accounts this tick deleted. Accounts already gone at
	// delete time are not included.
	Report      *DeletionReport
	AlreadyGone int
	Failures    []*TickError
	Notified    bool
	Interrupted bool
	Duration    time.Duration
}

// AccountFilter selects accounts whose scheduled deletion is due at now.
func AccountFilter(now time.Time) recordstore.Filter {
	return recordstore.And(
		recordstore.Eq(model.AccountFieldDeletionScheduled, true),
		recordstore.Lte(model.AccountFieldDeletionScheduledAt, now),
	)
}

// AccountReaper deletes accounts whose scheduled deletion is due and
// notifies the operator.
type AccountReaper struct {
	accounts recordstore.Collection[model.Account]
	notifier notify.Notifier
	config   AccountConfig
	opts     options
}

// NewAccountReaper creates an account reaper.
func NewAccountReaper(
	accounts recordstore.Collection[model.Account],
	notifier notify.Notifier,
	config AccountConfig,
	opts ...Option,
) *AccountReaper {
	if config.OpTimeout <= 0 {
		config.OpTimeout = DefaultOpTimeout
	}
	return &AccountReaper{
		accounts: accounts,
		notifier: notifier,
		config:   config,
		opts:     buildOptions("account-reaper", opts),
	}
}

// Name returns the reaper name.
func (r *AccountReaper) Name() string { return NameAccounts }

// EligibleCount returns how many accounts are due for deletion now.
func (r *AccountReaper) EligibleCount(ctx context.Context) (int64, error) {
	cctx, cancel := withTimeout(ctx, r.config.OpTimeout)
	defer cancel()
	n, err := r.accounts.Count(cctx, AccountFilter(r.opts.now()))
	if err != nil {
		return 0, &TickError{Reaper: NameAccounts, Kind: FailureQuery, Err: err}
	}
	r.opts.metrics.SetEligible(NameAccounts, n)
	return n, nil
}

// RunTick deletes every due account and sends one report if any were
// deleted. The returned error is non-nil when the scan failed, the report
// could not be sent, or ctx was cancelled.
func (r *AccountReaper) RunTick(ctx context.Context) (AccountTickResult, error) {
	start := r.opts.now()
	ctx, log := logging.StartTick(ctx, r.opts.logger)

	res := AccountTickResult{
		TickID: log.TickID(),
		Report: &DeletionReport{},
	}

	qctx, cancel := withTimeout(ctx, r.config.OpTimeout)
	candidates, err := r.accounts.Find(qctx, AccountFilter(start))
	cancel()
	if err != nil {
		tickErr := &TickError{Reaper: NameAccounts, Kind: FailureQuery, Err: err}
		log.Errorf("account query failed", map[string]any{"error": err.Error()})
		r.finish(&res, start, tickErr)
		return res, tickErr
	}

	res.Candidates = len(candidates)
	r.opts.metrics.SetCandidates(NameAccounts, len(candidates))
	if len(candidates) == 0 {
		r.finish(&res, start, nil)
		log.Debug("no accounts due for deletion")
		return res, nil
	}

	for _, acct := range candidates {
		if ctx.Err() != nil {
			res.Interrupted = true
			break
		}

		entry := ReportEntry{
			Username:  acct.Username,
			Name:      acct.Name,
			Email:     acct.Email,
			DeletedAt: r.opts.now(),
		}

		dctx, cancel := withTimeout(ctx, r.config.OpTimeout)
		err := r.accounts.DeleteByID(dctx, acct.ID)
		cancel()

		switch {
		case err == nil:
			res.Report.Add(entry)
			log.Debugf("account deleted", map[string]any{
				"accountId": acct.ID,
				"username":  acct.Username,
			})
		case errors.Is(err, recordstore.ErrNotFound):
			res.AlreadyGone++
			log.Debugf("account already deleted", map[string]any{"accountId": acct.ID})
		default:
			tickErr := &TickError{Reaper: NameAccounts, Kind: FailureRecordDelete, ID: acct.ID, Err: err}
			res.Failures = append(res.Failures, tickErr)
			r.opts.metrics.RecordItemFailure(NameAccounts, tickErr.Kind.String())
			log.Warnf("account delete failed", map[string]any{
				"accountId": acct.ID,
				"username":  acct.Username,
				"error":     err.Error(),
			})
		}
	}
	r.opts.metrics.AddDeleted(NameAccounts, res.Report.Len())

	var runErr error
	if res.Report.Len() > 0 {
		if err := r.sendReport(ctx, res.Report); err != nil {
			runErr = err
			log.Errorf("deletion report not delivered", map[string]any{
				"to":      r.config.OperatorAddress,
				"deleted": res.Report.Len(),
				"error":   err.Error(),
			})
		} else {
			res.Notified = true
		}
	}
	if runErr == nil && res.Interrupted {
		runErr = ctx.Err()
	}
	r.finish(&res, start, runErr)

	log.Infof("account tick complete", map[string]any{
		"candidates":  res.Candidates,
		"deleted":     res.Report.Len(),
		"alreadyGone": res.AlreadyGone,
		"failed":      len(res.Failures),
		"notified":    res.Notified,
		"interrupted": res.Interrupted,
		"durationMs":  res.Duration.Milliseconds(),
	})
	return res, runErr
}

func (r *AccountReaper) sendReport(ctx context.Context, report *DeletionReport) error {
	subject, body := report.Render()
	// Sent even after cancellation: the listed deletions already happened.
	nctx, cancel := withTimeout(context.WithoutCancel(ctx), r.config.OpTimeout)
	defer cancel()
	err := r.notifier.Send(nctx, notify.Message{
		To:      r.config.OperatorAddress,
		Subject: subject,
		Body:    body,
	})
	r.opts.metrics.RecordNotification(err == nil)
	if err != nil {
		return &TickError{Reaper: NameAccounts, Kind: FailureNotification, Err: err}
	}
	return nil
}

func (r *AccountReaper) finish(res *AccountTickResult, start time.Time, err error) {
	res.Duration = r.opts.now().Sub(start)
	r.opts.metrics.RecordTick(NameAccounts, res.Duration.Seconds(), err == nil)
}
