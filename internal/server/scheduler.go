package server

import (
	"context"
	"log"
	"time"

	"asyncops/internal/domain"
	"asyncops/internal/engine"
	"asyncops/internal/engine/policy"
)

// summaryScheduler generates the daily summary once per day at the
// configured UTC time. It polls rather than sleeping until the target so
// that clock adjustments and restarts are handled naturally.
type summaryScheduler struct {
	engine   engine.Engine
	hour     int
	minute   int
	interval time.Duration
	lastRun  string
}

func startSummaryScheduler(e engine.Engine) {
	if e.Config == nil || !e.Config.Summary.Enabled {
		return
	}
	s := &summaryScheduler{
		engine:   e,
		hour:     e.Config.Summary.RunHourUTC,
		minute:   e.Config.Summary.RunMinuteUTC,
		interval: time.Duration(e.Config.Summary.PollIntervalSeconds) * time.Second,
	}
	go s.run()
}

func (s *summaryScheduler) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		s.tick(time.Now().UTC())
		<-ticker.C
	}
}

func (s *summaryScheduler) tick(now time.Time) {
	date := now.Format("2006-01-02")
	if s.lastRun == date {
		return
	}
	target := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.minute, 0, 0, time.UTC)
	if now.Before(target) {
		return
	}
	// The scheduler acts with admin rights; summaries carry no generator
	// identity.
	actor := policy.Actor{Role: domain.RoleAdmin}
	if _, err := s.engine.GenerateDailySummary(context.Background(), actor, date, false); err != nil {
		log.Printf("summary scheduler: generate for %s failed: %v", date, err)
		return
	}
	s.lastRun = date
}
