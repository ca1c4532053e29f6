package model

// AircraftType is the wire value sent to the backend in the "aircraft" field.
type AircraftType string

const (
	AircraftATR          AircraftType = "ATR"
	AircraftAirbus320    AircraftType = "Airbus 320"
	AircraftBoeing737Max AircraftType = "Boeing 737 Max"

	DefaultAircraft = AircraftATR
)

var AircraftTypes = []AircraftType{AircraftATR, AircraftAirbus320, AircraftBoeing737Max}

func (a AircraftType) Valid() bool {
	for _, known := range AircraftTypes {
		if a == known {
			return true
		}
	}
	return false
}

// VoucherRequest is the form the crew member fills in. Field names on the
// screen are the json tags.
type VoucherRequest struct {
	CrewName     string       `json:"name" validate:"required"`
	CrewID       string       `json:"id" validate:"required"`
	FlightNumber string       `json:"flightNumber" validate:"required"`
	FlightDate   string       `json:"date" validate:"required"`
	AircraftType AircraftType `json:"aircraft"`
}

func NewVoucherRequest() VoucherRequest {
	return VoucherRequest{AircraftType: DefaultAircraft}
}

type CheckRequest struct {
	FlightNumber string `json:"flightNumber"`
	Date         string `json:"date"`
}

type CheckResponse struct {
	Exists bool `json:"exists"`
}

type GenerateRequest struct {
	Name         string `json:"name"`
	ID           string `json:"id"`
	FlightNumber string `json:"flightNumber"`
	Date         string `json:"date"`
	Aircraft     string `json:"aircraft"`
}

func NewGenerateRequest(req VoucherRequest) GenerateRequest {
	return GenerateRequest{
		Name:         req.CrewName,
		ID:           req.CrewID,
		FlightNumber: req.FlightNumber,
		Date:         req.FlightDate,
		Aircraft:     string(req.AircraftType),
	}
}

type GenerateResponse struct {
	Success bool     `json:"success"`
	Seats   []string `json:"seats,omitempty"`
	Error   string   `json:"error,omitempty"`
}
