package lunar

import (
	"sort"
	"time"

	"LunarPull/internal/domain/models"
	"LunarPull/pkg/util"
)

// eventIndex answers "which phase is this day" from a sorted event list.
type eventIndex struct {
	events []models.PhaseEvent
}

func newEventIndex(events []models.PhaseEvent) eventIndex {
	sorted := make([]models.PhaseEvent, 0, len(events))
	for _, e := range events {
		e.Date = util.DateOf(e.Date)
		sorted = append(sorted, e)
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	// one event per date; the first reported wins
	dedup := sorted[:0]
	for _, e := range sorted {
		if n := len(dedup); n > 0 && dedup[n-1].Date.Equal(e.Date) {
			continue
		}
		dedup = append(dedup, e)
	}
	return eventIndex{events: dedup}
}

// phaseOn returns the label for day d.
// An event day carries its event phase, days after an event carry the phase
// following it, and days before the first event carry the phase preceding it.
func (x eventIndex) phaseOn(d time.Time) models.Phase {
	// first event strictly after d
	i := sort.Search(len(x.events), func(i int) bool { return x.events[i].Date.After(d) })
	if i == 0 {
		return x.events[0].Phase.Prev()
	}
	prev := x.events[i-1]
	if prev.Date.Equal(d) {
		return prev.Phase
	}
	return prev.Phase.Next()
}

// ExpandEvents turns principal phase-events into one label per date in [start, end].
// It returns nil if there are no events.
func ExpandEvents(events []models.PhaseEvent, start, end time.Time) []models.LunarPhaseRecord {
	if len(events) == 0 {
		return nil
	}
	idx := newEventIndex(events)
	days := util.EachDay(start, end)
	out := make([]models.LunarPhaseRecord, len(days))
	for i, d := range days {
		out[i] = models.LunarPhaseRecord{Date: d, Phase: idx.phaseOn(d), Source: models.SourceUSNO}
	}
	return out
}
