package reaper

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/makwanagautam41/SnapLink-sub001/internal/model"
	"github.com/makwanagautam41/SnapLink-sub001/internal/notify"
	"github.com/makwanagautam41/SnapLink-sub001/internal/recordstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const operator = "ops@snaplink.test"

func account(id string, scheduled bool, at *time.Time) model.Account {
	return model.Account{
		ID:       id,
		Username: id,
		Name:     "Name " + id,
		Email:    id + "@example.com",
		DeletionSchedule: model.DeletionSchedule{
			IsScheduled: scheduled,
			ScheduledAt: at,
		},
	}
}

func at(d time.Duration) *time.Time {
	t := testNow.Add(d)
	return &t
}

type accountFixture struct {
	accounts *recordstore.MemoryCollection[model.Account]
	notifier *notify.Recorder
	metrics  *fakeMetrics
	reaper   *AccountReaper
}

func newAccountFixture(t *testing.T, records ...model.Account) *accountFixture {
	t.Helper()
	f := &accountFixture{
		accounts: recordstore.NewMemoryCollection("accounts", records...),
		notifier: notify.NewRecorder(),
		metrics:  newFakeMetrics(),
	}
	f.reaper = NewAccountReaper(f.accounts, f.notifier, AccountConfig{OperatorAddress: operator}, testOptions(f.metrics)...)
	return f
}

func TestAccountReaperEligibility(t *testing.T) {
	f := newAccountFixture(t,
		account("due", true, at(-time.Hour)),
		account("due-now", true, at(0)),
		account("future", true, at(time.Minute)),
		account("unscheduled", false, at(-time.Hour)),
		account("no-date", true, nil),
	)

	res, err := f.reaper.RunTick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Candidates)
	require.Equal(t, 2, res.Report.Len())
	for _, id := range []string{"due", "due-now"} {
		_, ok := f.accounts.Get(id)
		assert.False(t, ok, "%s should be deleted", id)
	}
	for _, id := range []string{"future", "unscheduled", "no-date"} {
		_, ok := f.accounts.Get(id)
		assert.True(t, ok, "%s should be kept", id)
	}
	assert.True(t, res.Notified)
	assert.Equal(t, 1, f.notifier.Len())
}

func TestAccountReaperReportCorrectness(t *testing.T) {
	f := newAccountFixture(t,
		account("u1", true, at(-2*time.Hour)),
		account("u2", true, at(-time.Hour)),
		account("u3", true, at(-time.Minute)),
	)
	f.accounts.FailDelete("u3", errors.New("write conflict"))

	res, err := f.reaper.RunTick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []ReportEntry{
		{Username: "u1", Name: "Name u1", Email: "u1@example.com", DeletedAt: testNow},
		{Username: "u2", Name: "Name u2", Email: "u2@example.com", DeletedAt: testNow},
	}, res.Report.Entries())

	require.Len(t, res.Failures, 1)
	assert.Equal(t, FailureRecordDelete, res.Failures[0].Kind)
	assert.Equal(t, "u3", res.Failures[0].ID)
	_, ok := f.accounts.Get("u3")
	assert.True(t, ok, "failed account stays eligible")

	msgs := f.notifier.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, operator, msgs[0].To)
	assert.Contains(t, msgs[0].Subject, "2")
	assert.Contains(t, msgs[0].Body, "Total accounts deleted: 2")
	assert.Contains(t, msgs[0].Body, "u1@example.com")
	assert.Contains(t, msgs[0].Body, "u2@example.com")
	assert.NotContains(t, msgs[0].Body, "u3")

	assert.Equal(t, 2, f.metrics.deleted[NameAccounts])
	assert.Equal(t, 1, f.metrics.failures[NameAccounts+"/record_delete"])
	assert.Equal(t, []bool{true}, f.metrics.notifications)
}

func TestAccountReaperNoNotificationWithoutDeletions(t *testing.T) {
	t.Run("nothing due", func(t *testing.T) {
		f := newAccountFixture(t, account("future", true, at(time.Hour)))
		res, err := f.reaper.RunTick(context.Background())
		require.NoError(t, err)
		assert.Zero(t, res.Candidates)
		assert.Zero(t, f.notifier.Len())
	})

	t.Run("every delete fails", func(t *testing.T) {
		f := newAccountFixture(t, account("u1", true, at(-time.Hour)))
		f.accounts.FailDelete("u1", errors.New("boom"))
		res, err := f.reaper.RunTick(context.Background())
		require.NoError(t, err)
		assert.Len(t, res.Failures, 1)
		assert.False(t, res.Notified)
		assert.Zero(t, f.notifier.Len())
	})

	t.Run("already gone", func(t *testing.T) {
		f := newAccountFixture(t, account("u1", true, at(-time.Hour)))
		f.accounts.FailDelete("u1", recordstore.ErrNotFound)
		res, err := f.reaper.RunTick(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, res.AlreadyGone)
		assert.Zero(t, res.Report.Len())
		assert.Zero(t, f.notifier.Len())
	})
}

func TestAccountReaperNotificationFailureKeepsDeletions(t *testing.T) {
	f := newAccountFixture(t,
		account("u1", true, at(-time.Hour)),
		account("u2", true, at(-time.Hour)),
	)
	f.notifier.Fail(errors.New("smtp: 421 service unavailable"))

	res, err := f.reaper.RunTick(context.Background())
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, FailureNotification, kind)

	assert.Equal(t, 2, res.Report.Len())
	assert.False(t, res.Notified)
	assert.Zero(t, f.accounts.Len())
	assert.Equal(t, []bool{false}, f.metrics.notifications)
	assert.Equal(t, []tickRecord{{NameAccounts, false}}, f.metrics.ticks)

	// The report is not retried on the next tick.
	f.notifier.Fail(nil)
	_, err = f.reaper.RunTick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.notifier.Len())
}

func TestAccountReaperIdempotentAcrossTicks(t *testing.T) {
	f := newAccountFixture(t,
		account("u1", true, at(-time.Hour)),
		account("future", true, at(time.Hour)),
	)

	_, err := f.reaper.RunTick(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, f.notifier.Len())

	res, err := f.reaper.RunTick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Report.Len())
	assert.Equal(t, 1, f.notifier.Len())
	assert.Equal(t, 1, f.accounts.Len())
}

func TestAccountReaperQueryFailureHasNoSideEffects(t *testing.T) {
	f := newAccountFixture(t, account("u1", true, at(-time.Hour)))
	f.accounts.FailFind(errors.New("database unreachable"))

	var deletes int
	f.accounts.SetHook(func(c recordstore.Call) {
		if c.Op == recordstore.OpDelete {
			deletes++
		}
	})

	_, err := f.reaper.RunTick(context.Background())
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, FailureQuery, kind)
	assert.Zero(t, deletes)
	assert.Zero(t, f.notifier.Len())
	assert.Equal(t, 1, f.accounts.Len())
}

func TestAccountReaperReportsPartialBatchOnCancel(t *testing.T) {
	f := newAccountFixture(t,
		account("u1", true, at(-time.Hour)),
		account("u2", true, at(-time.Hour)),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.accounts.SetHook(func(c recordstore.Call) {
		if c.Op == recordstore.OpDelete && c.ID == "u1" {
			cancel()
		}
	})

	res, err := f.reaper.RunTick(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, res.Interrupted)
	// u1's delete saw the cancelled context and failed, so nothing is reported.
	assert.Zero(t, res.Report.Len())
	assert.Zero(t, f.notifier.Len())
	assert.Equal(t, 2, f.accounts.Len())
}

func TestAccountReaperEligibleCount(t *testing.T) {
	f := newAccountFixture(t,
		account("u1", true, at(-time.Hour)),
		account("u2", true, at(time.Hour)),
	)
	n, err := f.reaper.EligibleCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, int64(1), f.metrics.eligible[NameAccounts])
}

func TestDeletionReportRender(t *testing.T) {
	var r DeletionReport
	r.Add(ReportEntry{Username: "alice", Name: "Alice A", Email: "alice@example.com", DeletedAt: testNow})
	r.Add(ReportEntry{Username: "bob", Name: "Bob", Email: "bob@example.com", DeletedAt: testNow.Add(time.Second)})

	subject, body := r.Render()
	assert.Equal(t, "SnapLink: 2 scheduled account deletion(s) completed", subject)

	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "USERNAME  NAME     EMAIL              DELETED AT", lines[2])
	assert.Equal(t, "alice     Alice A  alice@example.com  2026-10-15T12:00:00Z", lines[3])
	assert.Equal(t, "bob       Bob      bob@example.com    2026-10-15T12:00:01Z", lines[4])
	assert.Equal(t, "Total accounts deleted: 2", lines[6])
}

func TestTickErrorFormatting(t *testing.T) {
	base := errors.New("boom")
	err := &TickError{Reaper: NameAccounts, Kind: FailureRecordDelete, ID: "u1", Err: base}
	assert.Equal(t, "accounts reaper: record_delete failure for u1: boom", err.Error())
	assert.ErrorIs(t, err, base)

	err = &TickError{Reaper: NameStories, Kind: FailureQuery, Err: base}
	assert.Equal(t, "stories reaper: query failure: boom", err.Error())

	_, ok := KindOf(base)
	assert.False(t, ok)
	assert.Equal(t, "unknown", FailureKind(0).String())
}
