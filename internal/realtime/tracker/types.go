package tracker

// vehiclesResponse is the body of GET /fetchvehicles
type vehiclesResponse struct {
	VehicleArr *struct {
		Trains []Vehicle `json:"trains"`
	} `json:"vehicleArr"`
}

// Vehicle is one running train as listed by the tracker
type Vehicle struct {
	TripName  string `json:"trip_name"` // "Train 401"
	RouteName string `json:"route_name,omitempty"`
	Direction string `json:"direction,omitempty"`
}

// tripsResponse is the body of GET /fetchtrips/{train}. Each stop event is a
// single-key object mapping the stop index to the actual time.
type tripsResponse struct {
	VehicleArr *struct {
		StopEvents []map[string]string `json:"stopevents"`
	} `json:"vehicleArr"`
}
