package reaper

import (
	"context"
	"errors"
	"time"

	"github.com/makwanagautam41/SnapLink-sub001/internal/logging"
	"github.com/makwanagautam41/SnapLink-sub001/internal/mediastore"
	"github.com/makwanagautam41/SnapLink-sub001/internal/model"
	"github.com/makwanagautam41/SnapLink-sub001/internal/recordstore"
)

// StoryConfig configures the story reaper.
type StoryConfig struct {
	// Retention is how long an unarchived story lives. Default: 24h.
	Retention time.Duration
	// OpTimeout bounds each store call. Default: 30s.
	OpTimeout time.Duration
}

// DefaultStoryConfig returns the default configuration.
func DefaultStoryConfig() StoryConfig {
	return StoryConfig{
		Retention: model.StoryRetention,
		OpTimeout: DefaultOpTimeout,
	}
}

// StoryTickResult summarises one story tick.
type StoryTickResult struct {
	TickID     string
	Cutoff     time.Time
	Candidates int
	// Deleted counts stories whose record is gone after the tick, including
	// records another process removed first.
	Deleted     int
	AlreadyGone int
	Failures    []*TickError
	// Interrupted is set when ctx was cancelled before every candidate ran.
	Interrupted bool
	Duration    time.Duration
}

// StoryFilter selects unarchived stories created before cutoff.
func StoryFilter(cutoff time.Time) recordstore.Filter {
	return recordstore.And(
		recordstore.Lt(model.StoryFieldCreatedAt, cutoff),
		recordstore.Eq(model.StoryFieldArchived, false),
	)
}

// StoryReaper deletes expired stories and their media.
type StoryReaper struct {
	stories recordstore.Collection[model.Story]
	media   mediastore.Store
	config  StoryConfig
	opts    options
}

// NewStoryReaper creates a story reaper.
func NewStoryReaper(
	stories recordstore.Collection[model.Story],
	media mediastore.Store,
	config StoryConfig,
	opts ...Option,
) *StoryReaper {
	if config.Retention <= 0 {
		config.Retention = model.StoryRetention
	}
	if config.OpTimeout <= 0 {
		config.OpTimeout = DefaultOpTimeout
	}
	return &StoryReaper{
		stories: stories,
		media:   media,
		config:  config,
		opts:    buildOptions("story-reaper", opts),
	}
}

// Name returns the reaper name.
func (r *StoryReaper) Name() string { return NameStories }

// EligibleCount returns how many stories the next tick would process.
func (r *StoryReaper) EligibleCount(ctx context.Context) (int64, error) {
	cctx, cancel := withTimeout(ctx, r.config.OpTimeout)
	defer cancel()
	n, err := r.stories.Count(cctx, StoryFilter(r.opts.now().Add(-r.config.Retention)))
	if err != nil {
		return 0, &TickError{Reaper: NameStories, Kind: FailureQuery, Err: err}
	}
	r.opts.metrics.SetEligible(NameStories, n)
	return n, nil
}

// RunTick performs one scan and processes every expired story in query
// order. The returned error is non-nil only when the scan failed or ctx
// was cancelled; per-item failures are in the result.
func (r *StoryReaper) RunTick(ctx context.Context) (StoryTickResult, error) {
	start := r.opts.now()
	ctx, log := logging.StartTick(ctx, r.opts.logger)

	res := StoryTickResult{
		TickID: log.TickID(),
		Cutoff: start.Add(-r.config.Retention),
	}

	qctx, cancel := withTimeout(ctx, r.config.OpTimeout)
	candidates, err := r.stories.Find(qctx, StoryFilter(res.Cutoff))
	cancel()
	if err != nil {
		tickErr := &TickError{Reaper: NameStories, Kind: FailureQuery, Err: err}
		log.Errorf("story query failed", map[string]any{
			"cutoff": res.Cutoff,
			"error":  err.Error(),
		})
		r.finish(&res, start, tickErr)
		return res, tickErr
	}

	res.Candidates = len(candidates)
	r.opts.metrics.SetCandidates(NameStories, len(candidates))

	for _, story := range candidates {
		if ctx.Err() != nil {
			res.Interrupted = true
			break
		}

		gone, tickErr := r.reapOne(ctx, story)
		if tickErr != nil {
			res.Failures = append(res.Failures, tickErr)
			r.opts.metrics.RecordItemFailure(NameStories, tickErr.Kind.String())
			log.Warnf("story delete failed", map[string]any{
				"storyId": story.ID,
				"kind":    tickErr.Kind.String(),
				"error":   tickErr.Err.Error(),
			})
			continue
		}

		res.Deleted++
		if gone {
			res.AlreadyGone++
		}
		log.Debugf("story deleted", map[string]any{
			"storyId":   story.ID,
			"mediaKind": story.MediaKind.String(),
		})
	}
	r.opts.metrics.AddDeleted(NameStories, res.Deleted)

	var runErr error
	if res.Interrupted {
		runErr = ctx.Err()
	}
	r.finish(&res, start, runErr)

	log.Infof("story tick complete", map[string]any{
		"candidates":  res.Candidates,
		"deleted":     res.Deleted,
		"alreadyGone": res.AlreadyGone,
		"failed":      len(res.Failures),
		"interrupted": res.Interrupted,
		"durationMs":  res.Duration.Milliseconds(),
	})
	return res, runErr
}

// reapOne deletes the media object, then the record. gone reports that the
// record had already been removed.
func (r *StoryReaper) reapOne(ctx context.Context, story model.Story) (gone bool, tickErr *TickError) {
	if story.MediaExternalID != "" {
		mctx, cancel := withTimeout(ctx, r.config.OpTimeout)
		err := r.media.DeleteObject(mctx, story.MediaExternalID, story.MediaKind)
		cancel()
		if err != nil {
			return false, &TickError{Reaper: NameStories, Kind: FailureExternalDelete, ID: story.ID, Err: err}
		}
	}

	dctx, cancel := withTimeout(ctx, r.config.OpTimeout)
	err := r.stories.DeleteByID(dctx, story.ID)
	cancel()
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, recordstore.ErrNotFound):
		return true, nil
	default:
		return false, &TickError{Reaper: NameStories, Kind: FailureRecordDelete, ID: story.ID, Err: err}
	}
}

func (r *StoryReaper) finish(res *StoryTickResult, start time.Time, err error) {
	res.Duration = r.opts.now().Sub(start)
	r.opts.metrics.RecordTick(NameStories, res.Duration.Seconds(), err == nil)
}
