package voucher

import (
	"context"
	"errors"

	"voucherdesk/pkg/client"
	"voucherdesk/pkg/logger"
	"voucherdesk/pkg/model"
)

// Gateway is the voucher backend as seen by the controller.
type Gateway interface {
	Check(ctx context.Context, req model.CheckRequest) (*model.CheckResponse, error)
	Generate(ctx context.Context, req model.GenerateRequest) (*model.GenerateResponse, error)
}

// Submitter maps a request to an outcome. It never returns an error: every
// failure is an Outcome.
type Submitter interface {
	Submit(ctx context.Context, req model.VoucherRequest) Outcome
}

type Controller struct {
	gateway   Gateway
	validator *RequestValidator
	log       *logger.Logger
	steps     []Step
}

func NewController(gateway Gateway, log *logger.Logger) *Controller {
	c := &Controller{
		gateway:   gateway,
		validator: NewRequestValidator(),
		log:       log,
	}
	c.steps = []Step{
		NewStep(StepValidate, c.validate),
		NewStep(StepCheck, c.checkExisting),
		NewStep(StepGenerate, c.generate),
	}
	return c
}

func (c *Controller) Submit(ctx context.Context, req model.VoucherRequest) Outcome {
	return runSteps(&submission{ctx: ctx, request: req}, c.steps)
}

func (c *Controller) validate(s *submission) *Outcome {
	if err := c.validator.Validate(&s.request); err != nil {
		c.log.Debug("Voucher request incomplete", "error", err)
		out := validationError(StepValidate, err)
		return &out
	}
	return nil
}

func (c *Controller) checkExisting(s *submission) *Outcome {
	resp, err := c.gateway.Check(s.ctx, model.CheckRequest{
		FlightNumber: s.request.FlightNumber,
		Date:         s.request.FlightDate,
	})
	if err != nil {
		c.log.Warn("Existence check failed",
			"flight_number", s.request.FlightNumber,
			"flight_date", s.request.FlightDate,
			"error", err,
		)
		out := connectionError(StepCheck, classify(err), err)
		return &out
	}

	if resp.Exists {
		out := businessError(StepCheck, MsgAlreadyGenerated)
		return &out
	}
	return nil
}

func (c *Controller) generate(s *submission) *Outcome {
	resp, err := c.gateway.Generate(s.ctx, model.NewGenerateRequest(s.request))
	if err != nil {
		c.log.Warn("Voucher generation failed",
			"flight_number", s.request.FlightNumber,
			"flight_date", s.request.FlightDate,
			"error", err,
		)
		out := connectionError(StepGenerate, classify(err), err)
		return &out
	}

	var out Outcome
	switch {
	case resp.Success && len(resp.Seats) > 0:
		out = success(StepGenerate, resp.Seats)
	case resp.Success:
		// Gateways other than the HTTP client may not enforce the schema.
		out = connectionError(StepGenerate, KindMalformed, client.ErrMalformedResponse)
	default:
		out = businessError(StepGenerate, resp.Error)
	}
	return &out
}

func classify(err error) Kind {
	if errors.Is(err, client.ErrMalformedResponse) {
		return KindMalformed
	}
	return KindConnection
}
