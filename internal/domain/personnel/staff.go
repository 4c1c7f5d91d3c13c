package personnel

import "math/rand"

// Driver carries the attributes the race simulator reads.
type Driver struct {
	Profile
	Speed          int `json:"speed" cbor:"speed"`                     // raw pace
	Consistency    int `json:"consistency" cbor:"consistency"`         // resistance to mistakes
	TireManagement int `json:"tire_management" cbor:"tire_management"` // reduces wear per lap
}

// NewDriver creates a driver at the default age of 25 on a two-year deal.
func NewDriver(name string, salary int64, rating, speed, consistency, tireManagement int) *Driver {
	return &Driver{
		Profile:        newProfile(name, salary, rating, 25, 2),
		Speed:          speed,
		Consistency:    consistency,
		TireManagement: tireManagement,
	}
}

func (d *Driver) Base() *Profile { return &d.Profile }
func (d *Driver) Role() Role     { return RoleDriver }

// AgeWeeks: young drivers occasionally find pace, veterans lose it.
func (d *Driver) AgeWeeks(weeks int, rng *rand.Rand) {
	for i := 0; i < weeks; i++ {
		d.ageLinear(1)
		switch {
		case d.Age < 26 && rng.Float64() < 0.04:
			d.Speed = clampStat(d.Speed + 1)
		case d.Age > 34 && rng.Float64() < 0.05:
			d.Speed = clampStat(d.Speed - 1)
		}
	}
}

// TechnicalDirector drives development bandwidth (resource point income).
type TechnicalDirector struct {
	Profile
	AeroExpertise       int `json:"aero_expertise" cbor:"aero_expertise"`
	ChassisExpertise    int `json:"chassis_expertise" cbor:"chassis_expertise"`
	PowertrainExpertise int `json:"powertrain_expertise" cbor:"powertrain_expertise"`
}

func NewTechnicalDirector(name string, salary int64, rating, aero, chassis, powertrain int, age float64, contract int) *TechnicalDirector {
	return &TechnicalDirector{
		Profile:             newProfile(name, salary, rating, age, contract),
		AeroExpertise:       aero,
		ChassisExpertise:    chassis,
		PowertrainExpertise: powertrain,
	}
}

func (td *TechnicalDirector) Base() *Profile { return &td.Profile }
func (td *TechnicalDirector) Role() Role     { return RoleTechnicalDirector }

func (td *TechnicalDirector) AgeWeeks(weeks int, _ *rand.Rand) {
	td.ageLinear(weeks)
}

// DepartmentLead heads the aero or powertrain department and adds a flat
// bonus to the beneficial effects of completed research in that area.
type DepartmentLead struct {
	Profile
	Dept      Role `json:"department" cbor:"department"` // RoleHeadOfAero or RolePowertrainLead
	Expertise int  `json:"expertise" cbor:"expertise"`
}

func NewHeadOfAero(name string, salary int64, rating, expertise int, age float64, contract int) *DepartmentLead {
	return &DepartmentLead{
		Profile:   newProfile(name, salary, rating, age, contract),
		Dept:      RoleHeadOfAero,
		Expertise: expertise,
	}
}

func NewPowertrainLead(name string, salary int64, rating, expertise int, age float64, contract int) *DepartmentLead {
	return &DepartmentLead{
		Profile:   newProfile(name, salary, rating, age, contract),
		Dept:      RolePowertrainLead,
		Expertise: expertise,
	}
}

func (l *DepartmentLead) Base() *Profile { return &l.Profile }
func (l *DepartmentLead) Role() Role     { return l.Dept }

// AgeWeeks: engineers peak late. Under 50 they may gain expertise, over 60
// they may lose it.
func (l *DepartmentLead) AgeWeeks(weeks int, rng *rand.Rand) {
	for i := 0; i < weeks; i++ {
		l.ageLinear(1)
		switch {
		case l.Age < 50 && rng.Float64() < 0.05:
			l.Expertise = clampStat(l.Expertise + 1)
		case l.Age > 60 && rng.Float64() < 0.07:
			l.Expertise = clampStat(l.Expertise - 1)
		}
	}
}

// RDBonus returns the flat bonus added to each positive research effect.
func (l *DepartmentLead) RDBonus() int {
	switch {
	case l.Expertise >= 100:
		return 5
	case l.Expertise >= 95:
		return 4
	case l.Expertise >= 86:
		return 3
	case l.Expertise >= 71:
		return 2
	case l.Expertise >= 51:
		return 1
	default:
		return 0
	}
}

// RaceEngineer is paired with a driver.
type RaceEngineer struct {
	Profile
}

func NewRaceEngineer(name string, salary int64, rating int, age float64, contract int) *RaceEngineer {
	return &RaceEngineer{Profile: newProfile(name, salary, rating, age, contract)}
}

func (e *RaceEngineer) Base() *Profile { return &e.Profile }
func (e *RaceEngineer) Role() Role     { return RoleRaceEngineer }

func (e *RaceEngineer) AgeWeeks(weeks int, _ *rand.Rand) {
	e.ageLinear(weeks)
}
