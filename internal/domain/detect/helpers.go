package detect

import (
	"fmt"
	"time"

	"github.com/riftcoach/insight/internal/domain/features"
	"github.com/riftcoach/insight/internal/domain/model"
)

// span is an inclusive range of window indexes.
type span struct {
	first, last int
}

func (s span) len() int { return s.last - s.first + 1 }

// runs finds maximal runs of windows in [from, to) satisfying pred that are
// at least minLen long.
func runs(series []features.Value, from, to, minLen int, pred func(features.Value) bool) []span {
	if to > len(series) {
		to = len(series)
	}
	var out []span
	start := -1
	for i := from; i <= to; i++ {
		if i < to && pred(series[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 && i-start >= minLen {
			out = append(out, span{first: start, last: i - 1})
		}
		start = -1
	}
	return out
}

// windowRange returns the time covered by a span.
func windowRange(fv features.View, s span) (time.Duration, time.Duration) {
	first, _ := fv.Window(s.first)
	last, _ := fv.Window(s.last)
	return first.From, last.To
}

// actorEvents returns events of kind by actor within [from, to]. A zero to
// means no upper bound.
func actorEvents(mc MatchContext, kind model.EventKind, actor string, from, to time.Duration) []model.TimelineEvent {
	return mc.Timeline.Filter(func(e model.TimelineEvent) bool {
		return e.Kind == kind && e.Actor == actor && e.At >= from && (to == 0 || e.At <= to)
	})
}

func seqs(events []model.TimelineEvent) []int {
	out := make([]int, len(events))
	for i, e := range events {
		out[i] = e.Seq
	}
	return out
}

// clock formats a game time as m:ss.
func clock(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
