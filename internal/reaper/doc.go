// Package reaper implements the two periodic lifecycle workers.
//
// [StoryReaper] removes stories older than the retention window that were
// not archived. For each story the hosted media object is deleted first and
// the record second, so a media failure leaves the record in place for the
// next tick to retry.
//
// [AccountReaper] removes accounts whose scheduled deletion date has
// arrived, then sends one [DeletionReport] to the operator listing the
// accounts removed in that tick.
//
// Per-item failures never abort a tick. A failed eligibility query aborts
// the tick with no side effects. Neither worker keeps state between ticks.
package reaper
