/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package growth

import (
	"context"
	"fmt"
	"time"

	"github.com/0ld3ull/operator/internal/scheduler"
)

// Daily posting window: 04:00-19:00 UTC.
const (
	windowStart = 4
	windowEnd   = 19
)

// PlanDailySchedule plans today's (or targetDate's) tweet schedule with
// natural human-like spacing, 4-8 tweets spread across the posting
// window. Idempotent: an existing plan for the date is returned as-is
// (spec §4.7 invariant: replanning the same day must not produce a
// different schedule), grounded on growth_agent.py's
// plan_daily_schedule.
func (a *Agent) PlanDailySchedule(ctx context.Context, targetDate string) (Plan, error) {
	today := targetDate
	if today == "" {
		today = time.Now().UTC().Format("2006-01-02")
	}

	existing, err := a.store.GetDailyPlan(ctx, today)
	if err != nil {
		return Plan{}, fmt.Errorf("get daily plan: %w", err)
	}
	if existing != nil {
		return *existing, nil
	}

	count := 4 + a.rng.Intn(5) // 4-8 inclusive
	bestHours, err := a.store.bestPerformingHours(ctx)
	if err != nil {
		return Plan{}, fmt.Errorf("best performing hours: %w", err)
	}

	slots := a.generateOrganicTimes(today, count, bestHours)
	plan := Plan{ScheduleDate: today, PlannedCount: count, SlotTimes: slots}

	if err := a.store.StoreDailyPlan(ctx, plan); err != nil {
		return Plan{}, fmt.Errorf("store daily plan: %w", err)
	}
	return plan, nil
}

// hourMinute is an intermediate (hour, minute) slot before conversion to
// a full datetime.
type hourMinute struct{ hour, minute int }

func (hm hourMinute) totalMinutes() int { return hm.hour*60 + hm.minute }

// generateOrganicTimes produces count posting times across the window,
// nudged toward historically best-performing hours when enough data
// exists, with jittered minutes (never :00 or :30) and enforced 2-6 hour
// gaps between consecutive posts. Faithful translation of
// growth_agent.py's _generate_organic_times, with Python's module-level
// random replaced by the agent's injected *rand.Rand for determinism.
func (a *Agent) generateOrganicTimes(dateStr string, count int, bestHours []int) []time.Time {
	windowHours := float64(windowEnd - windowStart)
	segmentSize := windowHours / float64(count)

	times := make([]hourMinute, 0, count)
	for i := 0; i < count; i++ {
		segStart := float64(windowStart) + float64(i)*segmentSize
		segEnd := float64(windowStart) + float64(i+1)*segmentSize

		if len(bestHours) > 0 {
			var bestInSegment []int
			for _, h := range bestHours {
				if float64(h) >= segStart && float64(h) < segEnd {
					bestInSegment = append(bestInSegment, h)
				}
			}
			if len(bestInSegment) > 0 && a.rng.Float64() < 0.6 {
				hour := bestInSegment[a.rng.Intn(len(bestInSegment))]
				times = append(times, hourMinute{hour, a.organicMinute()})
				continue
			}
		}

		hourFloat := segStart + a.rng.Float64()*(segEnd-0.02-segStart)
		times = append(times, hourMinute{int(hourFloat), a.organicMinute()})
	}

	// Three passes to stabilize cascading pushes from enforcing the
	// 2h/6h gap bounds.
	for pass := 0; pass < 3; pass++ {
		for i := 1; i < len(times); i++ {
			prevMinutes := times[i-1].totalMinutes()
			currMinutes := times[i].totalMinutes()
			gap := currMinutes - prevMinutes

			switch {
			case gap < 120:
				newMinutes := prevMinutes + 120 + a.rng.Intn(16)
				newHour := newMinutes / 60
				if newHour > windowEnd-1 {
					newHour = windowEnd - 1
				}
				newMinute := newMinutes % 60
				if newMinute == 0 || newMinute == 30 {
					newMinute += 1 + a.rng.Intn(5)
				}
				if newMinute > 59 {
					newMinute = 59
				}
				times[i] = hourMinute{newHour, newMinute}
			case gap > 360:
				mid := prevMinutes + gap/2
				newHour := mid / 60
				if newHour > windowEnd-1 {
					newHour = windowEnd - 1
				}
				newMinute := mid % 60
				if newMinute == 0 || newMinute == 30 {
					newMinute += 1 + a.rng.Intn(5)
				}
				if newMinute > 59 {
					newMinute = 59
				}
				times[i] = hourMinute{newHour, newMinute}
			}
		}
	}

	// Final safety pass: drop any slot that still violates the min 2h
	// gap (can happen when too many tweets hit the window ceiling). Not
	// a bug if this yields fewer slots than requested — spec.md says so
	// explicitly.
	cleaned := times[:1]
	for i := 1; i < len(times); i++ {
		if times[i].totalMinutes()-cleaned[len(cleaned)-1].totalMinutes() >= 115 {
			cleaned = append(cleaned, times[i])
		}
	}

	slots := make([]time.Time, 0, len(cleaned))
	for _, hm := range cleaned {
		hour := hm.hour
		if hour < windowStart {
			hour = windowStart
		}
		if hour > windowEnd-1 {
			hour = windowEnd - 1
		}
		minute := hm.minute
		if minute < 0 {
			minute = 0
		}
		if minute > 59 {
			minute = 59
		}
		t, err := time.Parse("2006-01-02T15:04:05Z07:00", fmt.Sprintf("%sT%02d:%02d:00+00:00", dateStr, hour, minute))
		if err != nil {
			continue
		}
		slots = append(slots, t)
	}
	return slots
}

// organicMinute returns a minute value that never lands on :00 or :30,
// so the schedule never looks machine-generated.
func (a *Agent) organicMinute() int {
	minute := 1 + a.rng.Intn(58)
	for minute == 0 || minute == 30 {
		minute = 1 + a.rng.Intn(58)
	}
	return minute
}

// GetTodaysPlan returns the current UTC day's schedule, or nil if none
// has been generated yet.
func (a *Agent) GetTodaysPlan(ctx context.Context) (*Plan, error) {
	today := time.Now().UTC().Format("2006-01-02")
	return a.store.GetDailyPlan(ctx, today)
}

// GetNextPlannedSlot returns the next open slot in today's plan that is
// at least 5 minutes in the future and not already taken by a pending
// scheduled job (90-minute conflict window), or nil if none is
// available. contentScheduler may be nil (no conflict check performed),
// grounded on growth_agent.py's get_next_planned_slot reading
// scheduler.db's scheduled_content table directly.
func (a *Agent) GetNextPlannedSlot(ctx context.Context, contentScheduler *scheduler.Store) (*time.Time, error) {
	plan, err := a.GetTodaysPlan(ctx)
	if err != nil {
		return nil, fmt.Errorf("get today's plan: %w", err)
	}
	if plan == nil {
		return nil, nil
	}

	var taken []time.Time
	if contentScheduler != nil {
		pending, err := contentScheduler.ListPending(ctx)
		if err == nil {
			for _, job := range pending {
				taken = append(taken, job.ScheduledTime)
			}
		}
	}

	now := time.Now().UTC()
	for _, slot := range plan.SlotTimes {
		if !slot.After(now.Add(5 * time.Minute)) {
			continue
		}
		conflict := false
		for _, t := range taken {
			if diff := slot.Sub(t); diff < 90*time.Minute && diff > -90*time.Minute {
				conflict = true
				break
			}
		}
		if !conflict {
			result := slot
			return &result, nil
		}
	}
	return nil, nil
}
