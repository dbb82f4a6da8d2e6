package notification

import (
	"context"

	"alarmbell-backend/pkg/logger"
)

// Intake is the common entry point for every record event transport.
type Intake struct {
	dispatcher *Dispatcher
	dedup      Deduper
	logger     *logger.Logger
}

func NewIntake(dispatcher *Dispatcher, dedup Deduper, log *logger.Logger) *Intake {
	return &Intake{dispatcher: dispatcher, dedup: dedup, logger: log}
}

// ProcessRaw decodes one transport message and processes it.
func (in *Intake) ProcessRaw(ctx context.Context, raw []byte) (DispatchReport, error) {
	ev, err := DecodeRecordEvent(raw)
	if err != nil {
		in.logger.Error("[Intake] %v", err)
		return DispatchReport{}, err
	}
	return in.Process(ctx, ev)
}

// Process dispatches ev unless its id was seen before. Sends run on a
// context detached from the caller so they finish even if it goes away.
func (in *Intake) Process(ctx context.Context, ev RecordEvent) (DispatchReport, error) {
	ctx = context.WithoutCancel(ctx)

	if ev.ID != "" && in.dedup != nil {
		first, err := in.dedup.FirstSeen(ctx, ev.ID)
		if err != nil {
			// A failed check still dispatches.
			in.logger.Warn("[Intake] Dedup check failed for event %s: %v", ev.ID, err)
		} else if !first {
			in.logger.Info("[Intake] Skipping duplicate event %s (%s)", ev.ID, ev.Path)
			return DispatchReport{Discarded: "duplicate"}, nil
		}
	}

	return in.dispatcher.Dispatch(ctx, ev)
}
