package voucher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"voucherdesk/pkg/logger"
	"voucherdesk/pkg/model"
)

var (
	ErrSubmissionInProgress = errors.New("a submission is already in progress")
	ErrScreenClosed         = errors.New("screen is closed")
	// ErrDiscarded is returned when a response arrived after its submission
	// stopped being the active one. The screen state was left untouched.
	ErrDiscarded = errors.New("submission result discarded")
)

const recordTimeout = 5 * time.Second

// UIState is an immutable snapshot of a screen.
type UIState struct {
	Form          model.VoucherRequest `json:"form"`
	AssignedSeats []string             `json:"assignedSeats"`
	ErrorMessage  string               `json:"errorMessage"`
	IsSubmitting  bool                 `json:"isSubmitting"`
}

// Report describes a settled submission for audit recorders.
type Report struct {
	ScreenID     string
	SubmissionID string
	Request      model.VoucherRequest
	Outcome      Outcome
	StartedAt    time.Time
	SettledAt    time.Time
}

type Recorder interface {
	Record(ctx context.Context, report Report) error
}

// Screen owns the state of one mounted voucher form. Views read it through
// Snapshot and change it through SetField, Submit/Start and Close.
type Screen struct {
	id        string
	submitter Submitter
	recorder  Recorder
	log       *logger.Logger

	mu           sync.Mutex
	form         Form
	seats        []string
	errorMessage string
	submitting   bool
	active       string
	cancel       context.CancelFunc
	closed       bool
}

// NewScreen mounts a screen with an empty form. recorder may be nil.
func NewScreen(submitter Submitter, recorder Recorder, log *logger.Logger) *Screen {
	id := uuid.NewString()
	return &Screen{
		id:        id,
		submitter: submitter,
		recorder:  recorder,
		log:       log.With("screen_id", id),
		form:      NewForm(),
	}
}

func (s *Screen) ID() string {
	return s.id
}

func (s *Screen) Snapshot() UIState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return UIState{
		Form:          s.form.Request(),
		AssignedSeats: append([]string{}, s.seats...),
		ErrorMessage:  s.errorMessage,
		IsSubmitting:  s.submitting,
	}
}

func (s *Screen) SetField(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrScreenClosed
	}
	return s.form.SetField(name, value)
}

// Submit runs a submission of the current form and blocks until it settles.
func (s *Screen) Submit(ctx context.Context) (Outcome, error) {
	run, err := s.begin(ctx)
	if err != nil {
		return Outcome{}, err
	}
	return s.finish(run)
}

// Start begins a submission and settles it in the background. The screen
// reports IsSubmitting as soon as Start returns. The returned channel is
// closed once the outcome was applied or discarded.
func (s *Screen) Start(ctx context.Context) (<-chan struct{}, error) {
	run, err := s.begin(context.WithoutCancel(ctx))
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.finish(run)
	}()
	return done, nil
}

// Close unmounts the screen. An in-flight submission is cancelled and its
// late result, if any, is dropped.
func (s *Screen) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.active = ""
	s.submitting = false
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.log.Debug("Screen closed")
}

type run struct {
	ctx       context.Context
	token     string
	request   model.VoucherRequest
	startedAt time.Time
}

func (s *Screen) begin(ctx context.Context) (*run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrScreenClosed
	}
	if s.submitting {
		return nil, ErrSubmissionInProgress
	}

	s.seats = nil
	s.errorMessage = ""
	s.submitting = true
	s.active = uuid.NewString()

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	return &run{
		ctx:       runCtx,
		token:     s.active,
		request:   s.form.Request(),
		startedAt: time.Now().UTC(),
	}, nil
}

func (s *Screen) finish(r *run) (Outcome, error) {
	out := s.submitter.Submit(r.ctx, r.request)

	s.mu.Lock()
	if s.closed || s.active != r.token {
		s.mu.Unlock()
		s.log.Info("Discarding stale submission result", "submission_id", r.token, "kind", out.Kind)
		return out, ErrDiscarded
	}

	if out.IsSuccess() {
		s.seats = append([]string(nil), out.Seats...)
	} else {
		s.errorMessage = out.Message
	}
	s.submitting = false
	s.active = ""
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	s.log.Info("Submission settled",
		"submission_id", r.token,
		"kind", out.Kind,
		"step", out.Step,
		"flight_number", r.request.FlightNumber,
		"flight_date", r.request.FlightDate,
		"seats", out.Seats,
	)
	s.record(r, out)
	return out, nil
}

func (s *Screen) record(r *run, out Outcome) {
	if s.recorder == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	err := s.recorder.Record(ctx, Report{
		ScreenID:     s.id,
		SubmissionID: r.token,
		Request:      r.request,
		Outcome:      out,
		StartedAt:    r.startedAt,
		SettledAt:    time.Now().UTC(),
	})
	if err != nil {
		s.log.Warn("Failed to record submission outcome", "submission_id", r.token, "error", err)
	}
}
