package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"
)

// Scheduler periodically reingests every profile so the knowledge base
// follows GitHub and relational data changes. Redis locks keep multiple
// instances from reingesting the same profile at once.
type Scheduler struct {
	Ingestor *Ingestor
	Rdb      *redis.Client
	Schedule string
	Stop     chan struct{}
	Logger   *log.Logger

	lastRun *time.Time
}

func (s *Scheduler) Start() {
	if s.Logger == nil {
		s.Logger = log.New(log.Writer(), "[SCHED] ", log.LstdFlags)
	}
	ticker := time.NewTicker(10 * time.Minute)
	go func() {
		for {
			select {
			case <-s.Stop:
				ticker.Stop()
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

func (s *Scheduler) tick() {
	if !isDue(s.Schedule, s.lastRun) {
		return
	}
	now := time.Now()
	s.lastRun = &now

	ctx := context.Background()
	ids, err := s.Ingestor.Store.ListProfiles(ctx)
	if err != nil {
		s.Logger.Printf("list profiles: %v", err)
		return
	}

	for _, id := range ids {
		if s.Rdb != nil {
			lockKey := fmt.Sprintf("sched:lock:%d", id)
			ok, err := s.Rdb.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
			if err != nil {
				s.Logger.Printf("lock %s: %v", lockKey, err)
				continue
			}
			if !ok {
				continue
			}
		}

		go func(profileID int64) {
			// jitter to avoid stampedes
			time.Sleep(time.Duration(250+int64(time.Now().UnixNano()%250)) * time.Millisecond)
			count, err := s.Ingestor.ReingestProfile(ctx, profileID)
			if err != nil {
				s.Logger.Printf("scheduled reingest of profile %d failed: %v", profileID, err)
				return
			}
			s.Logger.Printf("scheduled reingest of profile %d: %d chunks", profileID, count)
		}(id)
	}
}

// isDue determines if a reingest should run now based on the last run time.
// Supports "@daily", "@hourly", and standard 5-field cron expressions.
func isDue(cronSpec string, last *time.Time) bool {
	now := time.Now()
	switch cronSpec {
	case "@daily":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= 24*time.Hour
	case "@hourly":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= time.Hour
	default:
		expr, err := cronexpr.Parse(cronSpec)
		if err != nil {
			// Fallback: treat as @daily if invalid
			if last == nil {
				return true
			}
			return now.Sub(*last) >= 24*time.Hour
		}
		if last == nil {
			return true
		}
		next := expr.Next(*last)
		return !next.After(now)
	}
}
