package audit

import (
	"context"
	"errors"

	"voucherdesk/internal/voucher"
)

// Multi fans a report out to every recorder. All recorders are attempted;
// their errors are joined.
type Multi []voucher.Recorder

func (m Multi) Record(ctx context.Context, report voucher.Report) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// New returns nil when no recorder is configured so screens skip recording
// entirely.
func New(recorders ...voucher.Recorder) voucher.Recorder {
	var active Multi
	for _, r := range recorders {
		if r != nil {
			active = append(active, r)
		}
	}
	switch len(active) {
	case 0:
		return nil
	case 1:
		return active[0]
	}
	return active
}
