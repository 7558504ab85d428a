package model

import "time"

// VenueReport is the out-of-band status callback from the venue
// adapter. Applying it is the only way the replace-in-flight marker
// gets cleared.
type VenueReport struct {
	ClientOrderID string
	VenueOrderID  string
	Status        OrderStatus
	FilledQty     int64
	FillPrice     float64
	Reason        string
	TransactTime  time.Time
}
