package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/leonletto/threadtrack/internal/history"
	"github.com/leonletto/threadtrack/internal/textutil"
	"github.com/leonletto/threadtrack/internal/tracker"
	"github.com/leonletto/threadtrack/internal/types"
)

const (
	listTitleRunes = 20
	listHeader     = "ID  | Title                    | Last Update"
	listRule       = "--------------------------------------------------"
)

// FormatTrackingID renders a tracking id zero-padded to three digits.
func FormatTrackingID(id int) string {
	return fmt.Sprintf("%03d", id)
}

// FormatTimeAgo renders the time since t using the coarsest non-zero unit
// among days, hours and minutes, e.g. "3d ago", "5h ago", "0m ago".
func FormatTimeAgo(t, now time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d/(24*time.Hour)))
	case d >= time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	default:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	}
}

// FormatList renders the tracked threads, one table per board.
func FormatList(groups []tracker.BoardGroup, now time.Time) string {
	if len(groups) == 0 {
		return "No threads currently being tracked\n"
	}

	var out strings.Builder
	for i, g := range groups {
		if i > 0 {
			out.WriteString("\n")
		}
		fmt.Fprintf(&out, "Board: /%s/\n", g.Board)
		out.WriteString(listHeader + "\n")
		out.WriteString(listRule + "\n")
		for _, rec := range g.Threads {
			title := textutil.Truncate(displayTitle(rec), listTitleRunes)
			fmt.Fprintf(&out, "%s | %-*s | %s\n",
				FormatTrackingID(rec.ID), listTitleRunes, title, FormatTimeAgo(rec.LastUpdate, now))
		}
	}
	return out.String()
}

// FormatAdded is printed after a thread starts being tracked.
func FormatAdded(rec types.ThreadRecord) string {
	return fmt.Sprintf("Now tracking %s - %s (ID: %s)\n", rec.Key(), displayTitle(rec), FormatTrackingID(rec.ID))
}

// FormatAlreadyTracked is printed when the thread is in the registry already.
func FormatAlreadyTracked(rec types.ThreadRecord) string {
	return fmt.Sprintf("Thread %s is already being tracked (ID: %s)\n", rec.Key(), FormatTrackingID(rec.ID))
}

// FormatRemoveDetails is shown above the removal prompt.
func FormatRemoveDetails(rec types.ThreadRecord) string {
	return fmt.Sprintf("Thread: %s\nTitle: %s\n", rec.Key(), displayTitle(rec))
}

// FormatRemoved is printed after --delete succeeds.
func FormatRemoved(rec types.ThreadRecord) string {
	return fmt.Sprintf("Stopped tracking thread %s\n", FormatTrackingID(rec.ID))
}

// FormatExpired reports the inactivity sweep. It is empty when nothing was
// removed.
func FormatExpired(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf("Removed %d inactive threads\n", n)
}

// FormatMonitorStart is printed when the poll loop begins.
func FormatMonitorStart(rec types.ThreadRecord) string {
	return fmt.Sprintf("Monitoring %s - %s\nCheck interval: %ds, Press Ctrl+C to stop\n",
		rec.Key(), displayTitle(rec), rec.CheckInterval)
}

// FormatHistory renders recent notification attempts, newest first.
func FormatHistory(entries []history.Entry, now time.Time) string {
	if len(entries) == 0 {
		return "No notifications recorded\n"
	}

	var out strings.Builder
	for _, e := range entries {
		status := "sent"
		if !e.Delivered {
			status = "failed"
		}
		fmt.Fprintf(&out, "%-8s %-6s %s #%d  %s\n",
			FormatTimeAgo(e.CreatedAt, now), status,
			types.ThreadKey{Board: e.Board, ThreadID: e.ThreadID}, e.PostNo,
			textutil.Truncate(textutil.SingleLine(e.Body), 60))
		if e.Error != "" {
			fmt.Fprintf(&out, "         error: %s\n", e.Error)
		}
	}
	return out.String()
}

// displayTitle flattens a stored title onto one line.
func displayTitle(rec types.ThreadRecord) string {
	return textutil.SingleLine(rec.Title)
}
