// Package car defines the vehicle attribute structure shared by the research
// graph (which mutates it) and the race simulator (which reads it).
// This package is PURE and must NOT import any infrastructure packages.
package car

// Aerodynamics affects cornering (downforce) and straight-line speed (drag).
type Aerodynamics struct {
	Downforce      int `json:"downforce" cbor:"downforce"`
	DragEfficiency int `json:"drag_efficiency" cbor:"drag_efficiency"`
}

// Chassis affects overall pace (weight) and tire wear.
type Chassis struct {
	WeightReduction  int `json:"weight_reduction" cbor:"weight_reduction"`
	TirePreservation int `json:"tire_preservation" cbor:"tire_preservation"`
}

// Powertrain affects acceleration and mechanical robustness.
type Powertrain struct {
	PowerOutput int `json:"power_output" cbor:"power_output"`
	Reliability int `json:"reliability" cbor:"reliability"`
}

// Car is the aggregate vehicle. Stats are nominally 0-100 but are not
// clamped: completed research may push them past the nominal ceiling.
type Car struct {
	Aero       Aerodynamics `json:"aero" cbor:"aero"`
	Chassis    Chassis      `json:"chassis" cbor:"chassis"`
	Powertrain Powertrain   `json:"powertrain" cbor:"powertrain"`
}

// New returns a car with the baseline stats of an undeveloped chassis.
func New() *Car {
	return &Car{
		Aero:       Aerodynamics{Downforce: 50, DragEfficiency: 50},
		Chassis:    Chassis{WeightReduction: 50, TirePreservation: 50},
		Powertrain: Powertrain{PowerOutput: 50, Reliability: 80},
	}
}

// NewWithStats builds a car from the six stats in table order.
func NewWithStats(downforce, drag, weight, tire, power, reliability int) *Car {
	return &Car{
		Aero:       Aerodynamics{Downforce: downforce, DragEfficiency: drag},
		Chassis:    Chassis{WeightReduction: weight, TirePreservation: tire},
		Powertrain: Powertrain{PowerOutput: power, Reliability: reliability},
	}
}

// Value returns the current value of a stat.
func (c *Car) Value(s Stat) int {
	return *s.field(c)
}

// Apply adds delta to a stat and returns the new value.
func (c *Car) Apply(s Stat, delta int) int {
	f := s.field(c)
	*f += delta
	return *f
}

// OverallPerformance is the unweighted mean of all six stats, used for
// display only.
func (c *Car) OverallPerformance() int {
	total := 0
	for _, s := range Stats() {
		total += c.Value(s)
	}
	return total / len(statTable)
}

// Clone returns an independent copy.
func (c *Car) Clone() *Car {
	cp := *c
	return &cp
}
