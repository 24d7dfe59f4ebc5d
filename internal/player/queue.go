package player

import (
	"github.com/cockroachdb/errors"

	"github.com/nvallance/quaver/internal/utils"
)

const DefaultHistoryCap = 25

var ErrInvalidIndex = errors.New("index outside the mutable range of the queue")

// Queue is the session's track list: an append-only playlist with a cursor
// plus a bounded history of finished tracks. The playlist never shrinks on
// playback; "current" is tracks[pos]. pos == -1 means nothing has ever played.
//
// Queue is not safe for concurrent use; it is owned by one Player and mutated
// only under the Player's lock.
type Queue struct {
	tracks     []Track
	pos        int
	history    []Track
	historyCap int
}

func NewQueue() *Queue {
	return &Queue{pos: -1, historyCap: DefaultHistoryCap}
}

// Current returns the track under the cursor, or nil when nothing has played.
func (q *Queue) Current() *Track {
	if q.pos < 0 || q.pos >= len(q.tracks) {
		return nil
	}
	t := q.tracks[q.pos]
	return &t
}

// Position returns the cursor, -1 when nothing has ever played.
func (q *Queue) Position() int { return q.pos }

func (q *Queue) Len() int { return len(q.tracks) }

// UpcomingCount returns how many unplayed tracks remain past the cursor.
func (q *Queue) UpcomingCount() int {
	n := len(q.tracks) - q.pos - 1
	if n < 0 {
		return 0
	}
	return n
}

// Upcoming returns a copy of the unplayed tail.
func (q *Queue) Upcoming() []Track {
	if q.pos+1 >= len(q.tracks) {
		return nil
	}
	out := make([]Track, len(q.tracks)-q.pos-1)
	copy(out, q.tracks[q.pos+1:])
	return out
}

// Tracks returns a copy of the whole playlist.
func (q *Queue) Tracks() []Track {
	out := make([]Track, len(q.tracks))
	copy(out, q.tracks)
	return out
}

// History returns a copy of the finished-track history, most recent last.
func (q *Queue) History() []Track {
	out := make([]Track, len(q.history))
	copy(out, q.history)
	return out
}

// Append adds a track at the end of the playlist. Existing entries are never
// reordered by insertion.
func (q *Queue) Append(t Track) {
	q.tracks = append(q.tracks, t)
}

// InsertNext places a track directly after the cursor so it plays next.
func (q *Queue) InsertNext(t Track) {
	at := q.pos + 1
	if at > len(q.tracks) {
		at = len(q.tracks)
	}
	q.tracks = append(q.tracks, Track{})
	copy(q.tracks[at+1:], q.tracks[at:])
	q.tracks[at] = t
}

// Remove deletes the unplayed entry at the absolute playlist index. Entries at
// or before the cursor are immutable; removing them would corrupt history
// semantics.
func (q *Queue) Remove(index int) (Track, error) {
	if index <= q.pos || index >= len(q.tracks) {
		return Track{}, errors.WithDetailf(ErrInvalidIndex, "index %d, cursor %d, length %d", index, q.pos, len(q.tracks))
	}
	t := q.tracks[index]
	q.tracks = append(q.tracks[:index], q.tracks[index+1:]...)
	return t, nil
}

// Shuffle permutes the unplayed tail in place. The cursor and everything at or
// before it are untouched. Returns false when there are fewer than two
// unplayed tracks.
func (q *Queue) Shuffle() bool {
	tail := q.tracks[q.pos+1:]
	if len(tail) < 2 {
		return false
	}
	utils.ShuffleSlice(tail)
	return true
}

// Advance moves the cursor one step forward. Returns false at the tail.
func (q *Queue) Advance() bool {
	if q.pos+1 >= len(q.tracks) {
		return false
	}
	q.pos++
	return true
}

// WrapAdvance moves the cursor forward, wrapping to the head past the tail.
// Used by queue-loop playback.
func (q *Queue) WrapAdvance() {
	if len(q.tracks) == 0 {
		return
	}
	q.pos = (q.pos + 1) % len(q.tracks)
}

// StepBack moves the cursor one step backward. Returns false at the head or
// when nothing has played.
func (q *Queue) StepBack() bool {
	if q.pos <= 0 {
		return false
	}
	q.pos--
	return true
}

// AtTail reports whether no unplayed tracks remain past the cursor.
func (q *Queue) AtTail() bool {
	return q.pos+1 >= len(q.tracks)
}

// RecordFinished appends a fully played track to history, evicting the oldest
// entry past the cap.
func (q *Queue) RecordFinished(t Track) {
	q.history = append(q.history, t)
	if len(q.history) > q.historyCap {
		q.history = q.history[len(q.history)-q.historyCap:]
	}
}

// ClearUpcoming drops every unplayed track, keeping the played prefix and the
// current entry.
func (q *Queue) ClearUpcoming() {
	if q.pos+1 < len(q.tracks) {
		q.tracks = q.tracks[:q.pos+1]
	}
}

// Reset empties the queue entirely. Used on stop/disconnect.
func (q *Queue) Reset() {
	q.tracks = nil
	q.history = nil
	q.pos = -1
}
