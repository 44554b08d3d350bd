package tracker

import (
	"html"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/leonletto/threadtrack/internal/textutil"
	"github.com/leonletto/threadtrack/internal/types"
)

// ExpiryWindow is how long a thread may go without new posts before the
// sweep drops it.
const ExpiryWindow = 24 * time.Hour

// titleFromComment is the rune limit for a title derived from the OP comment.
const titleFromComment = 50

// BoardGroup is one board's slice of the list view.
type BoardGroup struct {
	Board   string
	Threads []types.ThreadRecord
}

// DeriveTitle picks a title for a thread from its original post: the
// subject as given (entities decoded), else the first 50 runes of the
// comment with markup stripped, else "Thread <no>". Whitespace is kept;
// callers flatten it for display.
func DeriveTitle(op types.Post) string {
	if sub := html.UnescapeString(op.Subject); sub != "" {
		return sub
	}
	if com := textutil.StripMarkup(op.Comment); strings.TrimSpace(com) != "" {
		return textutil.Truncate(com, titleFromComment)
	}
	return "Thread " + strconv.FormatInt(op.No, 10)
}

// Insert allocates the next id and stores a new record for key built from
// snap. The caller must have checked that key is not tracked yet.
func Insert(reg *types.Registry, key types.ThreadKey, snap types.Snapshot, interval int, now time.Time) types.ThreadRecord {
	if reg.Threads == nil {
		reg.Threads = make(map[types.ThreadKey]types.ThreadRecord)
	}
	if reg.NextID < 1 {
		reg.NextID = 1
	}

	op, _ := snap.OP()
	rec := types.ThreadRecord{
		ID:            reg.NextID,
		Board:         key.Board,
		ThreadID:      key.ThreadID,
		Title:         DeriveTitle(op),
		LastPostNo:    snap.LastPostNo(),
		LastUpdate:    now,
		AddedTime:     now,
		CheckInterval: interval,
	}
	reg.Threads[key] = rec
	reg.NextID++
	return rec
}

// Group returns the records grouped by board. Boards sort ascending;
// within a board the most recently updated thread comes first.
func Group(reg types.Registry) []BoardGroup {
	byBoard := make(map[string][]types.ThreadRecord)
	for _, rec := range reg.Threads {
		byBoard[rec.Board] = append(byBoard[rec.Board], rec)
	}

	boards := make([]string, 0, len(byBoard))
	for b := range byBoard {
		boards = append(boards, b)
	}
	sort.Strings(boards)

	out := make([]BoardGroup, 0, len(boards))
	for _, b := range boards {
		recs := byBoard[b]
		sort.Slice(recs, func(i, j int) bool {
			if !recs[i].LastUpdate.Equal(recs[j].LastUpdate) {
				return recs[i].LastUpdate.After(recs[j].LastUpdate)
			}
			return recs[i].ID < recs[j].ID
		})
		out = append(out, BoardGroup{Board: b, Threads: recs})
	}
	return out
}

// RemoveID deletes the record with the given tracking id.
func RemoveID(reg *types.Registry, id int) (types.ThreadRecord, bool) {
	rec, ok := reg.FindByID(id)
	if !ok {
		return types.ThreadRecord{}, false
	}
	delete(reg.Threads, rec.Key())
	return rec, true
}

// ExpireBefore deletes every record last updated strictly before cutoff,
// except those under a key in keep, and returns them ordered by id.
func ExpireBefore(reg *types.Registry, cutoff time.Time, keep ...types.ThreadKey) []types.ThreadRecord {
	var removed []types.ThreadRecord
	for key, rec := range reg.Threads {
		if rec.LastUpdate.Before(cutoff) && !slices.Contains(keep, key) {
			removed = append(removed, rec)
			delete(reg.Threads, key)
		}
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i].ID < removed[j].ID })
	return removed
}

// AdvanceCursor moves the record's cursor forward to lastPostNo and stamps
// LastUpdate. It reports false when the record is gone or the cursor would
// not move.
func AdvanceCursor(reg *types.Registry, key types.ThreadKey, lastPostNo int64, now time.Time) bool {
	rec, ok := reg.Threads[key]
	if !ok || lastPostNo <= rec.LastPostNo {
		return false
	}
	rec.LastPostNo = lastPostNo
	rec.LastUpdate = now
	reg.Threads[key] = rec
	return true
}
