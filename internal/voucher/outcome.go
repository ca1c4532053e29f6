package voucher

import "voucherdesk/pkg/sanitizer"

const (
	MsgRequiredFields   = "All fields are required."
	MsgConnection       = "Failed to connect to the server. Please ensure the backend is running."
	MsgAlreadyGenerated = "Vouchers have already been generated for this flight on this date."
	MsgUnknown          = "An unknown error occurred."
)

type Kind string

const (
	KindSuccess    Kind = "success"
	KindValidation Kind = "validation_error"
	KindConnection Kind = "connection_error"
	// KindMalformed is a connection error whose response arrived but could not
	// be understood. Users see MsgConnection; logs and audit keep the kind.
	KindMalformed Kind = "malformed_response"
	KindBusiness  Kind = "business_error"
)

// Outcome is how one submission settled. Exactly one of Seats or Message is
// set.
type Outcome struct {
	Kind    Kind     `json:"kind"`
	Message string   `json:"message,omitempty"`
	Seats   []string `json:"seats,omitempty"`
	Step    string   `json:"step"`
	Err     error    `json:"-"`
}

func (o Outcome) IsSuccess() bool {
	return o.Kind == KindSuccess
}

func success(step string, seats []string) Outcome {
	return Outcome{Kind: KindSuccess, Seats: append([]string(nil), seats...), Step: step}
}

func validationError(step string, err error) Outcome {
	return Outcome{Kind: KindValidation, Message: MsgRequiredFields, Step: step, Err: err}
}

func connectionError(step string, kind Kind, err error) Outcome {
	return Outcome{Kind: kind, Message: MsgConnection, Step: step, Err: err}
}

// businessError carries backend text as plain text. Text that is empty once
// markup is stripped falls back to MsgUnknown.
func businessError(step, message string) Outcome {
	message = sanitizer.BackendMessage(message)
	if message == "" {
		message = MsgUnknown
	}
	return Outcome{Kind: KindBusiness, Message: message, Step: step}
}
