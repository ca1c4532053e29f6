package voucher

import (
	"errors"
	"fmt"

	"voucherdesk/pkg/model"
)

const (
	FieldName         = "name"
	FieldID           = "id"
	FieldFlightNumber = "flightNumber"
	FieldDate         = "date"
	FieldAircraft     = "aircraft"
)

// Fields lists the form controls in display order.
var Fields = []string{FieldName, FieldID, FieldFlightNumber, FieldDate, FieldAircraft}

var ErrUnknownField = errors.New("unknown form field")

// Form is a plain value container for the voucher request. It never
// validates; that happens when a submission starts.
type Form struct {
	values model.VoucherRequest
}

func NewForm() Form {
	return Form{values: model.NewVoucherRequest()}
}

func (f Form) Request() model.VoucherRequest {
	return f.values
}

// SetField replaces a single field and leaves the rest untouched.
func (f *Form) SetField(name, value string) error {
	switch name {
	case FieldName:
		f.values.CrewName = value
	case FieldID:
		f.values.CrewID = value
	case FieldFlightNumber:
		f.values.FlightNumber = value
	case FieldDate:
		f.values.FlightDate = value
	case FieldAircraft:
		f.values.AircraftType = model.AircraftType(value)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return nil
}

func (f Form) Value(name string) string {
	return FieldValue(f.values, name)
}

// FieldValue reads the value of the form control name from req.
func FieldValue(req model.VoucherRequest, name string) string {
	switch name {
	case FieldName:
		return req.CrewName
	case FieldID:
		return req.CrewID
	case FieldFlightNumber:
		return req.FlightNumber
	case FieldDate:
		return req.FlightDate
	case FieldAircraft:
		return string(req.AircraftType)
	}
	return ""
}
