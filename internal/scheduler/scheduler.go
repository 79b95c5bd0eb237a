// Package scheduler implements the backoff-aware domain draw algorithm.
//
// URLs are grouped into per-domain stacks. Each draw picks a domain uniformly
// at random, pops its most recently enqueued URL, and stamps the domain's
// last-dispatch time. Draws that hit a domain still inside its politeness
// window feed a stall counter; once it reaches three times the number of
// remaining domains, the scheduler pauses globally for one politeness
// interval and resets the counter. The pause is a backpressure valve, not a
// per-domain gate: the draw still proceeds against the chosen domain.
package scheduler

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/EiffelFly/trafilatura/internal/metrics"
	"github.com/EiffelFly/trafilatura/internal/pipeline"
)

// stallFactor scales the remaining domain count into the pause threshold.
const stallFactor = 3

// Scheduler owns the mutable queue, backoff registry, and stall counter for
// one run. It is not safe for concurrent use; executors draw from a single
// orchestrating goroutine.
type Scheduler struct {
	queue   map[string][]string
	domains []string
	backoff map[string]time.Time
	stall   int

	sleep  time.Duration
	rng    *rand.Rand
	clock  pipeline.Clock
	pauser pauser
	logger *zap.Logger
}

// pauser abstracts how the scheduler backs off during a global pause.
type pauser interface {
	Pause(ctx context.Context, delay time.Duration)
}

type timerPauser struct{}

func (timerPauser) Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// New creates an empty Scheduler. The random source and clock are injectable
// so tests can fix both.
func New(sleep time.Duration, rng *rand.Rand, clock pipeline.Clock, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		queue:   make(map[string][]string),
		backoff: make(map[string]time.Time),
		sleep:   sleep,
		rng:     rng,
		clock:   clock,
		pauser:  timerPauser{},
		logger:  logger,
	}
}

// Partition fills the scheduler from a URL list, consuming it back to front
// so processing order is the reverse of input order. Domain buckets appear in
// encounter order.
func (s *Scheduler) Partition(urls []string, domainOf func(string) string) {
	for i := len(urls) - 1; i >= 0; i-- {
		url := urls[i]
		domain := domainOf(url)
		if domain == "" {
			s.logger.Warn("no domain for URL, discarding", zap.String("url", url))
			continue
		}
		s.Add(domain, url)
	}
}

// Add enqueues a URL under its domain bucket.
func (s *Scheduler) Add(domain, url string) {
	if _, ok := s.queue[domain]; !ok {
		s.domains = append(s.domains, domain)
	}
	s.queue[domain] = append(s.queue[domain], url)
}

// Empty reports whether any URL remains.
func (s *Scheduler) Empty() bool {
	return len(s.queue) == 0
}

// Domains returns the number of distinct domains remaining.
func (s *Scheduler) Domains() int {
	return len(s.queue)
}

// URLs returns the number of URLs remaining across all domains.
func (s *Scheduler) URLs() int {
	n := 0
	for _, pending := range s.queue {
		n += len(pending)
	}
	return n
}

// SetStall seeds the stall counter. The sequential executor starts elevated
// so a lone slow domain trips the valve sooner.
func (s *Scheduler) SetStall(i int) {
	s.stall = i
}

// Draw selects the next URL and updates queue, registry, and stall state.
// It must not be called on an empty scheduler. The global pause honors
// context cancellation.
func (s *Scheduler) Draw(ctx context.Context) string {
	idx := s.rng.Intn(len(s.domains))
	domain := s.domains[idx]

	if last, ok := s.backoff[domain]; ok && s.clock.Now().Sub(last) < s.sleep {
		s.stall++
		if s.stall >= stallFactor*len(s.queue) {
			s.logger.Debug("spacing request for domain", zap.String("domain", domain))
			metrics.ObservePause()
			s.pauser.Pause(ctx, s.sleep)
			s.stall = 0
		}
	}

	pending := s.queue[domain]
	url := pending[len(pending)-1]
	pending = pending[:len(pending)-1]

	if len(pending) == 0 {
		delete(s.queue, domain)
		delete(s.backoff, domain)
		s.domains = append(s.domains[:idx], s.domains[idx+1:]...)
	} else {
		s.queue[domain] = pending
		s.backoff[domain] = s.clock.Now()
	}
	return url
}
