package voucher

import (
	"context"

	"voucherdesk/pkg/model"
)

const (
	StepValidate = "validate"
	StepCheck    = "check_existing"
	StepGenerate = "generate"
)

// submission carries one run of the step chain.
type submission struct {
	ctx     context.Context
	request model.VoucherRequest
}

// Step either lets the chain continue (nil) or settles the submission.
type Step struct {
	Name    string
	Execute func(s *submission) *Outcome
}

func NewStep(name string, execute func(s *submission) *Outcome) Step {
	return Step{Name: name, Execute: execute}
}

// runSteps executes steps strictly in order. A step only starts after the
// previous one has returned, so no request is issued before the response
// it depends on has been handled.
func runSteps(s *submission, steps []Step) Outcome {
	for _, step := range steps {
		if out := step.Execute(s); out != nil {
			if out.Step == "" {
				out.Step = step.Name
			}
			return *out
		}
	}
	return businessError("", MsgUnknown)
}
