package internal

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// DefaultArchiveWorkers bounds the log fetches an archive run has in flight
const DefaultArchiveWorkers = 4

// ArchiveResult summarizes an archive run
type ArchiveResult struct {
	Sessions int
	Messages int
	Failed   []string
}

// Archive pulls every session and its logs into store. A session whose logs
// cannot be fetched is recorded in Failed and skipped. onProgress, when set,
// is called after each session with the number handled so far.
func (c *Console) Archive(ctx context.Context, store *Storage, workers int, onProgress func(done, total int)) (*ArchiveResult, error) {
	sessions, err := c.LoadSessions(ctx)
	if err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = DefaultArchiveWorkers
	}

	normalizer := NewNormalizer(c.client.BaseURL())
	transcripts := make([]*Transcript, len(sessions))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, s := range sessions {
		i, s := i, s
		g.Go(func() error {
			defer func() {
				n := done.Add(1)
				if onProgress != nil {
					onProgress(int(n), len(sessions))
				}
			}()
			logs, err := c.ChatLogs(gctx, s.ID)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				LogWarn("Failed to fetch logs of %s: %v", s.ID, err)
				return nil
			}
			t, err := normalizer.Normalize(s, logs, "api")
			if err != nil {
				LogWarn("Skipping session %s: %v", s.ID, err)
				return nil
			}
			transcripts[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &ArchiveResult{}
	for i, t := range transcripts {
		if t == nil {
			res.Failed = append(res.Failed, sessions[i].ID)
			continue
		}
		if err := store.SaveTranscript(ctx, t); err != nil {
			return res, err
		}
		res.Sessions++
		res.Messages += len(t.Messages)
	}
	return res, nil
}
