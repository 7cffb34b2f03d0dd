package analysis

import (
	"context"
	"errors"

	"github.com/wonny/alphapulse/internal/contracts"
)

// ErrSuperseded is returned to a caller whose computation was replaced by a
// newer submission for the same key
var ErrSuperseded = errors.New("computation superseded by a newer submission")

// Submission is a claimed slot for one key. Claiming happens in Begin, so the
// order of Begin calls decides which submission wins, not the order of Run.
type Submission struct {
	svc    *Service
	key    string
	id     uint64
	ctx    context.Context
	cancel context.CancelCauseFunc
}

// Begin claims the key and cancels whatever was in flight under it.
// The returned submission must be finished with Run.
func (s *Service) Begin(ctx context.Context, key string) *Submission {
	runCtx, cancel := context.WithCancelCause(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	sub := &Submission{svc: s, key: key, id: s.seq, ctx: runCtx, cancel: cancel}
	if prev, ok := s.inflight[key]; ok {
		prev.cancel(ErrSuperseded)
	}
	s.inflight[key] = sub
	return sub
}

// Run analyzes the dataset and releases the slot. A submission replaced by a
// later Begin returns ErrSuperseded, even if its computation had finished.
func (sub *Submission) Run(ds *contracts.PerformanceDataset) (*contracts.AnalysisReport, error) {
	s := sub.svc
	defer sub.release()

	if errors.Is(context.Cause(sub.ctx), ErrSuperseded) {
		return nil, ErrSuperseded
	}

	report, err := s.Analyze(sub.ctx, ds)
	if errors.Is(context.Cause(sub.ctx), ErrSuperseded) {
		s.logger.WithField("key", sub.key).Debug("Computation superseded")
		return nil, ErrSuperseded
	}
	return report, err
}

func (sub *Submission) release() {
	sub.cancel(nil)

	s := sub.svc
	s.mu.Lock()
	if cur, ok := s.inflight[sub.key]; ok && cur.id == sub.id {
		delete(s.inflight, sub.key)
	}
	s.mu.Unlock()
}

// Submit analyzes a dataset under a key. At most one computation per key is
// in flight: a newer Submit cancels the older one, which returns ErrSuperseded.
// Distinct keys do not affect each other.
func (s *Service) Submit(ctx context.Context, key string, ds *contracts.PerformanceDataset) (*contracts.AnalysisReport, error) {
	return s.Begin(ctx, key).Run(ds)
}

// InFlight returns the number of keys with a running computation
func (s *Service) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}
