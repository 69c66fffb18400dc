package model

// Event is a time-bounded festival or gathering suppliers can list
// accommodation for. Reference data; rows are provisioned by the platform,
// never written by this service. StartDate <= EndDate holds by construction.
type Event struct {
	ID        int64
	Name      string
	Location  string
	StartDate Date
	EndDate   Date
}
