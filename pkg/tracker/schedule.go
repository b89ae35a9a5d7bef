package tracker

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule wraps the cron expression that defines the canonical reporting
// boundary series. Boundaries are unix-second timestamps in UTC.
type Schedule struct {
	expr  string
	sched cron.Schedule
}

// NewSchedule parses a cron expression with a seconds field, e.g.
// "0 0 0 * * *" for daily boundaries at midnight UTC.
func NewSchedule(expr string) (*Schedule, error) {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", expr, err)
	}
	return &Schedule{expr: expr, sched: sched}, nil
}

// Expression returns the raw cron expression.
func (s *Schedule) Expression() string { return s.expr }

// Next returns the first boundary strictly after the given timestamp.
func (s *Schedule) Next(timestamp int64) int64 {
	return s.sched.Next(time.Unix(timestamp, 0).UTC()).Unix()
}

// Series returns every boundary in (from, to], ascending. Used to seed the
// canonical boundary set from a fixed start date up to now.
func (s *Schedule) Series(from, to int64) []int64 {
	var out []int64
	for t := s.Next(from); t > 0 && t <= to; t = s.Next(t) {
		out = append(out, t)
	}
	return out
}
