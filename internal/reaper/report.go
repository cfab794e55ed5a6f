package reaper

import (
	"bytes"
	"fmt"
	"text/tabwriter"
	"time"
)

// ReportEntry is a snapshot of an account taken just before it was deleted.
type ReportEntry struct {
	Username  string
	Name      string
	Email     string
	DeletedAt time.Time
}

// DeletionReport accumulates the accounts deleted in one tick, in order.
// It lives only for the duration of the tick.
type DeletionReport struct {
	entries []ReportEntry
}

// Add appends an entry.
func (r *DeletionReport) Add(e ReportEntry) {
	r.entries = append(r.entries, e)
}

// Len returns the number of deleted accounts.
func (r *DeletionReport) Len() int {
	return len(r.entries)
}

// Entries returns a copy of the entries.
func (r *DeletionReport) Entries() []ReportEntry {
	return append([]ReportEntry(nil), r.entries...)
}

// Render formats the report as a notification subject and plain-text body.
func (r *DeletionReport) Render() (subject, body string) {
	subject = fmt.Sprintf("SnapLink: %d scheduled account deletion(s) completed", len(r.entries))

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "The following accounts reached their scheduled deletion date and were deleted.\n\n")

	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "USERNAME\tNAME\tEMAIL\tDELETED AT")
	for _, e := range r.entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Username, e.Name, e.Email, e.DeletedAt.UTC().Format(time.RFC3339))
	}
	_ = tw.Flush()

	fmt.Fprintf(&buf, "\nTotal accounts deleted: %d\n", len(r.entries))
	return subject, buf.String()
}
