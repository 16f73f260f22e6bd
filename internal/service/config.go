package service

import "fmt"

// PlanConfig holds the planning constraints. Clock values are minutes since midnight.
type PlanConfig struct {
	WorkStart     int
	WorkEnd       int
	MinMinutes    int
	SpeedKmh      float64
	LookaheadDays int
	SlotMinutes   int
	MaxTokens     int
	Temperature   float64
}

func DefaultPlanConfig() PlanConfig {
	return PlanConfig{
		WorkStart:     6*60 + 30,
		WorkEnd:       12*60 + 30,
		MinMinutes:    20,
		SpeedKmh:      40,
		LookaheadDays: 30,
		SlotMinutes:   30,
		MaxTokens:     4000,
		Temperature:   0.3,
	}
}

func (c PlanConfig) DailyHours() float64 {
	return float64(c.WorkEnd-c.WorkStart) / 60
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Slots lists start times from WorkStart in SlotMinutes steps, strictly before WorkEnd.
func (c PlanConfig) Slots() []string {
	step := c.SlotMinutes
	if step <= 0 {
		step = 30
	}
	var out []string
	for m := c.WorkStart; m < c.WorkEnd; m += step {
		out = append(out, formatClock(m))
	}
	return out
}
