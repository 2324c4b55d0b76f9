package lunar

import (
	"math"
	"time"

	"LunarPull/internal/domain/models"
	"LunarPull/pkg/util"
)

// SynodicMonth is the mean length of a lunation in days.
const SynodicMonth = 29.53

// binWidth splits the lunation into eight equal phase bins.
const binWidth = SynodicMonth / models.PhaseCount

// referenceNewMoon is the known new moon the local formula counts from.
var referenceNewMoon = time.Date(2000, 1, 6, 0, 0, 0, 0, time.UTC)

// MoonAge returns the days elapsed in the current lunation for date, in [0, SynodicMonth).
func MoonAge(date time.Time) float64 {
	days := float64(util.DaysBetween(referenceNewMoon, date))
	age := math.Mod(days, SynodicMonth)
	if age < 0 {
		age += SynodicMonth
	}
	return age
}

// LocalPhase computes the phase of date from the mean synodic month.
// It is deterministic and needs no network.
func LocalPhase(date time.Time) models.Phase {
	idx := int(MoonAge(date) / binWidth)
	if idx > int(models.WaningCrescent) {
		idx = int(models.WaningCrescent)
	}
	return models.Phase(idx)
}

// LocalCalendar labels every date in [start, end] with LocalPhase.
func LocalCalendar(start, end time.Time) []models.LunarPhaseRecord {
	days := util.EachDay(start, end)
	out := make([]models.LunarPhaseRecord, len(days))
	for i, d := range days {
		out[i] = models.LunarPhaseRecord{Date: d, Phase: LocalPhase(d), Source: models.SourceLocal}
	}
	return out
}
