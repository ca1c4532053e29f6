package voucher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"voucherdesk/pkg/logger"
	"voucherdesk/pkg/model"
)

// ────────────────────────────────────────────────
// Fakes
// ────────────────────────────────────────────────

type fakeSubmitter struct {
	submitFunc func(ctx context.Context, req model.VoucherRequest) Outcome
}

func (f *fakeSubmitter) Submit(ctx context.Context, req model.VoucherRequest) Outcome {
	return f.submitFunc(ctx, req)
}

// blockingSubmitter holds every submission until release is closed so tests
// can observe the in-flight state.
type blockingSubmitter struct {
	started chan struct{}
	release chan struct{}
	outcome Outcome
}

func newBlockingSubmitter(out Outcome) *blockingSubmitter {
	return &blockingSubmitter{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
		outcome: out,
	}
}

func (b *blockingSubmitter) Submit(ctx context.Context, req model.VoucherRequest) Outcome {
	b.started <- struct{}{}
	<-b.release
	return b.outcome
}

type fakeRecorder struct {
	mu      sync.Mutex
	reports []Report
	err     error
}

func (f *fakeRecorder) Record(ctx context.Context, report Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, report)
	return f.err
}

func (f *fakeRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reports)
}

func fillForm(t *testing.T, s *Screen, req model.VoucherRequest) {
	t.Helper()
	values := map[string]string{
		FieldName:         req.CrewName,
		FieldID:           req.CrewID,
		FieldFlightNumber: req.FlightNumber,
		FieldDate:         req.FlightDate,
		FieldAircraft:     string(req.AircraftType),
	}
	for _, name := range Fields {
		if err := s.SetField(name, values[name]); err != nil {
			t.Fatalf("SetField(%q) failed: %v", name, err)
		}
	}
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("submission did not settle in time")
	}
}

func newControllerScreen(gw *fakeGateway) *Screen {
	return NewScreen(newTestController(gw), nil, logger.Discard())
}

// ────────────────────────────────────────────────
// Screen scenarios
// ────────────────────────────────────────────────

func TestScreen_MountState(t *testing.T) {
	s := newControllerScreen(&fakeGateway{})

	want := UIState{
		Form:          model.VoucherRequest{AircraftType: model.AircraftATR},
		AssignedSeats: []string{},
	}
	if diff := cmp.Diff(want, s.Snapshot()); diff != "" {
		t.Errorf("initial state mismatch (-want +got):\n%s", diff)
	}
	if s.ID() == "" {
		t.Error("expected screen id to be set")
	}
}

func TestScreen_HappyPath(t *testing.T) {
	gw := &fakeGateway{
		generateFunc: func(ctx context.Context, req model.GenerateRequest) (*model.GenerateResponse, error) {
			return &model.GenerateResponse{Success: true, Seats: []string{"1A", "1B"}}, nil
		},
	}
	s := newControllerScreen(gw)
	fillForm(t, s, validRequest())

	out, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.IsSuccess() {
		t.Fatalf("expected success, got %s", out.Kind)
	}

	want := UIState{
		Form:          validRequest(),
		AssignedSeats: []string{"1A", "1B"},
	}
	if diff := cmp.Diff(want, s.Snapshot()); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestScreen_ErrorPaths(t *testing.T) {
	tests := []struct {
		name    string
		request model.VoucherRequest
		gw      *fakeGateway
		wantMsg string
	}{
		{
			name:    "missing crew id",
			request: func() model.VoucherRequest { r := validRequest(); r.CrewID = ""; return r }(),
			gw:      &fakeGateway{},
			wantMsg: MsgRequiredFields,
		},
		{
			name:    "already generated",
			request: validRequest(),
			gw: &fakeGateway{checkFunc: func(ctx context.Context, req model.CheckRequest) (*model.CheckResponse, error) {
				return &model.CheckResponse{Exists: true}, nil
			}},
			wantMsg: MsgAlreadyGenerated,
		},
		{
			name:    "backend down",
			request: validRequest(),
			gw: &fakeGateway{checkFunc: func(ctx context.Context, req model.CheckRequest) (*model.CheckResponse, error) {
				return nil, errors.New("connection refused")
			}},
			wantMsg: MsgConnection,
		},
		{
			name:    "generation refused",
			request: validRequest(),
			gw: &fakeGateway{generateFunc: func(ctx context.Context, req model.GenerateRequest) (*model.GenerateResponse, error) {
				return &model.GenerateResponse{Success: false, Error: "Aircraft is full"}, nil
			}},
			wantMsg: "Aircraft is full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newControllerScreen(tt.gw)
			fillForm(t, s, tt.request)

			if _, err := s.Submit(context.Background()); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			want := UIState{
				Form:          tt.request,
				AssignedSeats: []string{},
				ErrorMessage:  tt.wantMsg,
			}
			if diff := cmp.Diff(want, s.Snapshot()); diff != "" {
				t.Errorf("state mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScreen_SubmissionClearsPreviousResult(t *testing.T) {
	exists := false
	gw := &fakeGateway{
		checkFunc: func(ctx context.Context, req model.CheckRequest) (*model.CheckResponse, error) {
			return &model.CheckResponse{Exists: exists}, nil
		},
	}
	s := newControllerScreen(gw)
	fillForm(t, s, validRequest())

	if _, err := s.Submit(context.Background()); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	if got := s.Snapshot(); len(got.AssignedSeats) == 0 || got.ErrorMessage != "" {
		t.Fatalf("expected seats only after first submit, got %+v", got)
	}

	exists = true
	if _, err := s.Submit(context.Background()); err != nil {
		t.Fatalf("second submit failed: %v", err)
	}
	got := s.Snapshot()
	if len(got.AssignedSeats) != 0 {
		t.Errorf("seats of the previous submission must be cleared, got %v", got.AssignedSeats)
	}
	if got.ErrorMessage != MsgAlreadyGenerated {
		t.Errorf("expected %q, got %q", MsgAlreadyGenerated, got.ErrorMessage)
	}
}

func TestScreen_IdempotentResubmission(t *testing.T) {
	gw := &fakeGateway{
		checkFunc: func(ctx context.Context, req model.CheckRequest) (*model.CheckResponse, error) {
			return &model.CheckResponse{Exists: true}, nil
		},
	}
	s := newControllerScreen(gw)
	fillForm(t, s, validRequest())

	_, _ = s.Submit(context.Background())
	first := s.Snapshot()
	_, _ = s.Submit(context.Background())
	second := s.Snapshot()

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("identical submissions should settle identically (-first +second):\n%s", diff)
	}
	if len(gw.generateCalls) != 0 {
		t.Errorf("expected no generate calls, got %d", len(gw.generateCalls))
	}
}

func TestScreen_SetFieldShallowMerge(t *testing.T) {
	s := newControllerScreen(&fakeGateway{})
	fillForm(t, s, validRequest())

	if err := s.SetField(FieldFlightNumber, "FL200"); err != nil {
		t.Fatalf("SetField failed: %v", err)
	}

	want := validRequest()
	want.FlightNumber = "FL200"
	if diff := cmp.Diff(want, s.Snapshot().Form); diff != "" {
		t.Errorf("form mismatch (-want +got):\n%s", diff)
	}
}

func TestScreen_SetFieldUnknownName(t *testing.T) {
	s := newControllerScreen(&fakeGateway{})
	before := s.Snapshot()

	err := s.SetField("seat", "1A")
	if !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	if diff := cmp.Diff(before, s.Snapshot()); diff != "" {
		t.Errorf("state changed after rejected field (-want +got):\n%s", diff)
	}
}

// ────────────────────────────────────────────────
// In-flight behaviour
// ────────────────────────────────────────────────

func TestScreen_StartReportsSubmitting(t *testing.T) {
	sub := newBlockingSubmitter(success(StepGenerate, []string{"3C"}))
	s := NewScreen(sub, nil, logger.Discard())
	fillForm(t, s, validRequest())

	done, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	<-sub.started

	if !s.Snapshot().IsSubmitting {
		t.Error("expected isSubmitting while the submission is in flight")
	}

	close(sub.release)
	waitDone(t, done)

	got := s.Snapshot()
	if got.IsSubmitting {
		t.Error("expected isSubmitting to clear after settling")
	}
	if diff := cmp.Diff([]string{"3C"}, got.AssignedSeats); diff != "" {
		t.Errorf("seats mismatch (-want +got):\n%s", diff)
	}
}

func TestScreen_RefusesConcurrentSubmission(t *testing.T) {
	sub := newBlockingSubmitter(success(StepGenerate, []string{"1A"}))
	s := NewScreen(sub, nil, logger.Discard())
	fillForm(t, s, validRequest())

	done, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	<-sub.started

	if _, err := s.Start(context.Background()); !errors.Is(err, ErrSubmissionInProgress) {
		t.Errorf("expected ErrSubmissionInProgress from Start, got %v", err)
	}
	if _, err := s.Submit(context.Background()); !errors.Is(err, ErrSubmissionInProgress) {
		t.Errorf("expected ErrSubmissionInProgress from Submit, got %v", err)
	}

	close(sub.release)
	waitDone(t, done)
}

func TestScreen_CloseDiscardsLateResult(t *testing.T) {
	sub := newBlockingSubmitter(success(StepGenerate, []string{"1A"}))
	rec := &fakeRecorder{}
	s := NewScreen(sub, rec, logger.Discard())
	fillForm(t, s, validRequest())

	done, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	<-sub.started

	s.Close()
	close(sub.release)
	waitDone(t, done)

	got := s.Snapshot()
	if len(got.AssignedSeats) != 0 || got.ErrorMessage != "" || got.IsSubmitting {
		t.Errorf("closed screen must not apply late results, got %+v", got)
	}
	if rec.count() != 0 {
		t.Errorf("discarded submissions must not be recorded, got %d reports", rec.count())
	}
	if _, err := s.Submit(context.Background()); !errors.Is(err, ErrScreenClosed) {
		t.Errorf("expected ErrScreenClosed, got %v", err)
	}
	if err := s.SetField(FieldName, "x"); !errors.Is(err, ErrScreenClosed) {
		t.Errorf("expected ErrScreenClosed from SetField, got %v", err)
	}
}

func TestScreen_CloseCancelsInFlightCall(t *testing.T) {
	cancelled := make(chan struct{})
	sub := &fakeSubmitter{submitFunc: func(ctx context.Context, req model.VoucherRequest) Outcome {
		<-ctx.Done()
		close(cancelled)
		return connectionError(StepCheck, KindConnection, ctx.Err())
	}}
	s := NewScreen(sub, nil, logger.Discard())
	fillForm(t, s, validRequest())

	done, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	s.Close()

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("expected Close to cancel the in-flight call")
	}
	waitDone(t, done)
}

func TestScreen_StartOutlivesRequestContext(t *testing.T) {
	sub := newBlockingSubmitter(success(StepGenerate, []string{"2B"}))
	s := NewScreen(sub, nil, logger.Discard())
	fillForm(t, s, validRequest())

	ctx, cancel := context.WithCancel(context.Background())
	done, err := s.Start(ctx)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	<-sub.started
	cancel()
	close(sub.release)
	waitDone(t, done)

	if diff := cmp.Diff([]string{"2B"}, s.Snapshot().AssignedSeats); diff != "" {
		t.Errorf("seats mismatch (-want +got):\n%s", diff)
	}
}

// ────────────────────────────────────────────────
// Recording
// ────────────────────────────────────────────────

func TestScreen_RecordsSettledSubmission(t *testing.T) {
	rec := &fakeRecorder{}
	gw := &fakeGateway{
		generateFunc: func(ctx context.Context, req model.GenerateRequest) (*model.GenerateResponse, error) {
			return &model.GenerateResponse{Success: true, Seats: []string{"1A", "1B"}}, nil
		},
	}
	s := NewScreen(newTestController(gw), rec, logger.Discard())
	fillForm(t, s, validRequest())

	if _, err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if rec.count() != 1 {
		t.Fatalf("expected 1 report, got %d", rec.count())
	}
	report := rec.reports[0]
	if report.ScreenID != s.ID() {
		t.Errorf("expected screen id %q, got %q", s.ID(), report.ScreenID)
	}
	if report.SubmissionID == "" {
		t.Error("expected submission id")
	}
	if report.Outcome.Kind != KindSuccess {
		t.Errorf("expected success outcome, got %s", report.Outcome.Kind)
	}
	if diff := cmp.Diff(validRequest(), report.Request); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}
	if report.SettledAt.Before(report.StartedAt) {
		t.Errorf("settled_at %v before started_at %v", report.SettledAt, report.StartedAt)
	}
}

func TestScreen_RecorderFailureLeavesStateAlone(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("broker unavailable")}
	s := NewScreen(newTestController(&fakeGateway{}), rec, logger.Discard())
	fillForm(t, s, validRequest())

	out, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("recorder failures must not surface, got %v", err)
	}
	if !out.IsSuccess() {
		t.Fatalf("expected success, got %s", out.Kind)
	}
	if got := s.Snapshot(); got.ErrorMessage != "" {
		t.Errorf("recorder failure leaked into UI state: %q", got.ErrorMessage)
	}
}
