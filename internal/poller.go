package internal

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultPollInterval is the pause between two status requests
	DefaultPollInterval = 1500 * time.Millisecond
	// DefaultPollTimeout is the wall-clock budget of one Poll
	DefaultPollTimeout = 30 * time.Second
)

// StatusFetcher returns the current state of a job
type StatusFetcher func(ctx context.Context, jobID string) (*JobStatusData, error)

// StatusFunc is told about every status request of a job
type StatusFunc func(jobID string, status JobStatus, attempt int)

// JobResult is the terminal state of a job
type JobResult struct {
	JobID    string
	Status   JobStatus
	Detail   string
	Link     string // Drive web link on success
	Attempts int
	Elapsed  time.Duration
}

// JobPoller waits for background upload jobs to finish
type JobPoller struct {
	fetch    StatusFetcher
	interval time.Duration
	timeout  time.Duration
	clock    Clock
	inflight singleflight.Group

	mu       sync.Mutex
	watchers map[string]map[int]StatusFunc
	nextID   int
}

// NewJobPoller creates a poller. Non-positive durations use the defaults; a
// nil clock uses RealClock.
func NewJobPoller(fetch StatusFetcher, interval, timeout time.Duration, clock Clock) *JobPoller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	if clock == nil {
		clock = RealClock
	}
	return &JobPoller{
		fetch:    fetch,
		interval: interval,
		timeout:  timeout,
		clock:    clock,
		watchers: make(map[string]map[int]StatusFunc),
	}
}

// Poll requests the job status until it is success or error. A failed status
// request ends polling with that error, without retry. When the budget runs
// out first, Poll returns a *TimeoutError.
//
// Concurrent calls for the same jobID share a single polling loop. The loop
// is not tied to any one caller: a caller whose ctx ends gets ctx.Err() while
// the others keep waiting, and the loop stops at the latest when the budget
// runs out. onStatus, when set, sees every status request made while the
// caller waits.
func (p *JobPoller) Poll(ctx context.Context, jobID string, onStatus StatusFunc) (*JobResult, error) {
	if jobID == "" {
		return nil, &ValidationError{Field: "job", Msg: "id must not be empty"}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if onStatus != nil {
		defer p.watch(jobID, onStatus)()
	}

	loopCtx := context.WithoutCancel(ctx)
	ch := p.inflight.DoChan(jobID, func() (interface{}, error) {
		return p.poll(loopCtx, jobID)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Shared {
			LogDebug("shared poll for job %s", jobID)
		}
		if r.Err != nil {
			return nil, r.Err
		}
		res := *r.Val.(*JobResult)
		return &res, nil
	}
}

// watch registers fn for jobID and returns its removal
func (p *JobPoller) watch(jobID string, fn StatusFunc) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	if p.watchers[jobID] == nil {
		p.watchers[jobID] = make(map[int]StatusFunc)
	}
	p.watchers[jobID][id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.watchers[jobID], id)
		if len(p.watchers[jobID]) == 0 {
			delete(p.watchers, jobID)
		}
	}
}

func (p *JobPoller) notify(jobID string, status JobStatus, attempt int) {
	p.mu.Lock()
	fns := make([]StatusFunc, 0, len(p.watchers[jobID]))
	for _, fn := range p.watchers[jobID] {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(jobID, status, attempt)
	}
}

func (p *JobPoller) poll(ctx context.Context, jobID string) (*JobResult, error) {
	start := p.clock.Now()
	last := JobPending
	attempts := 0

	for p.clock.Now().Sub(start) < p.timeout {
		data, err := p.fetch(ctx, jobID)
		attempts++
		if err != nil {
			LogWarn("status request for job %s failed: %v", jobID, err)
			return nil, err
		}
		if data.Status != last {
			LogDebug("job %s: %s -> %s", jobID, last, data.Status)
			last = data.Status
		}
		p.notify(jobID, data.Status, attempts)

		if data.Status.Terminal() {
			res := &JobResult{
				JobID:    jobID,
				Status:   data.Status,
				Detail:   data.Detail,
				Attempts: attempts,
				Elapsed:  p.clock.Now().Sub(start),
			}
			if data.DriveFile != nil {
				res.Link = data.DriveFile.WebViewLink
			}
			return res, nil
		}

		if err := p.clock.Sleep(ctx, p.interval); err != nil {
			return nil, err
		}
	}

	return nil, &TimeoutError{JobID: jobID, Elapsed: p.clock.Now().Sub(start), LastStatus: last}
}
