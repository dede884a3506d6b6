package timetable

// Stop is one scheduled call of a train at a station
type Stop struct {
	Station   string `json:"station"`
	Scheduled string `json:"scheduled"` // wall-clock text as published, e.g. "5:05 AM"
}

// Schedule is the ordered list of stops for one train on one service day.
// Order is the physical stop order and is never re-sorted.
type Schedule []Stop

// Stations returns the station names in stop order
func (s Schedule) Stations() []string {
	names := make([]string, len(s))
	for i, stop := range s {
		names[i] = stop.Station
	}
	return names
}

// Direction identifies which way a timetable runs
type Direction int

const (
	DirectionOutbound Direction = 0
	DirectionInbound  Direction = 1
)

// AllDirections returns both directions in merge order
func AllDirections() []Direction {
	return []Direction{DirectionOutbound, DirectionInbound}
}

func (d Direction) String() string {
	switch d {
	case DirectionOutbound:
		return "outbound"
	case DirectionInbound:
		return "inbound"
	default:
		return "unknown"
	}
}
