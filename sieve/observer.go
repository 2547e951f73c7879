package sieve

import (
	"context"

	"github.com/kbukum/primesieve/errors"
	"github.com/kbukum/primesieve/logger"
)

// Observer receives lifecycle notifications from a run. Implementations must
// be safe for concurrent use: stage notifications arrive from stage
// goroutines.
type Observer interface {
	StageCreated(ctx context.Context, info StageInfo)
	StageFinished(ctx context.Context, info StageInfo, err error)
	UnitSpawned(name string)
	UnitReaped(name string, err error)
	RunFinished(ctx context.Context, summary *Summary, err error)
}

// NopObserver ignores every notification. Embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) StageCreated(context.Context, StageInfo) {}
func (NopObserver) StageFinished(context.Context, StageInfo, error) {}
func (NopObserver) UnitSpawned(string) {}
func (NopObserver) UnitReaped(string, error) {}
func (NopObserver) RunFinished(context.Context, *Summary, error) {}

// Observers fans notifications out to every non-nil observer in order.
func Observers(obs ...Observer) Observer {
	list := make(multiObserver, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			list = append(list, o)
		}
	}
	return list
}

type multiObserver []Observer

func (m multiObserver) StageCreated(ctx context.Context, info StageInfo) {
	for _, o := range m {
		o.StageCreated(ctx, info)
	}
}

func (m multiObserver) StageFinished(ctx context.Context, info StageInfo, err error) {
	for _, o := range m {
		o.StageFinished(ctx, info, err)
	}
}

func (m multiObserver) UnitSpawned(name string) {
	for _, o := range m {
		o.UnitSpawned(name)
	}
}

func (m multiObserver) UnitReaped(name string, err error) {
	for _, o := range m {
		o.UnitReaped(name, err)
	}
}

func (m multiObserver) RunFinished(ctx context.Context, summary *Summary, err error) {
	for _, o := range m {
		o.RunFinished(ctx, summary, err)
	}
}

// logObserver writes stage lifecycle at debug level and the run summary at
// info level.
type logObserver struct {
	NopObserver
	log *logger.Logger
}

func (l *logObserver) StageCreated(_ context.Context, info StageInfo) {
	l.log.Debug("stage created", logger.Fields(logger.FieldStage, info.Index, logger.FieldBase, info.Base))
}

func (l *logObserver) StageFinished(_ context.Context, info StageInfo, err error) {
	fields := logger.Fields(
		logger.FieldStage, info.Index,
		logger.FieldBase, info.Base,
		"forwarded", info.Forwarded,
		"dropped", info.Dropped,
	)
	if err != nil && !errors.IsCanceled(err) {
		l.log.Warn("stage failed", logger.MergeWithError(fields, err))
		return
	}
	l.log.Debug("stage finished", fields)
}

func (l *logObserver) RunFinished(_ context.Context, s *Summary, err error) {
	fields := logger.Fields(
		logger.FieldRunID, s.RunID,
		logger.FieldLow, s.Low,
		logger.FieldHigh, s.High,
		"primes", s.Primes,
		"stages", len(s.Stages),
		"stopped", s.Stopped,
		logger.FieldDuration, s.Elapsed.Milliseconds(),
	)
	if err != nil {
		l.log.Error("run failed", logger.MergeWithError(fields, err))
		return
	}
	l.log.Info("run finished", fields)
}
