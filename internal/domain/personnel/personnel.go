// Package personnel defines team staff: drivers, the technical director,
// department leads and race engineers.
// This package is PURE and must NOT import any infrastructure packages.
package personnel

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

// Role tags a concrete staff variant for serialization.
type Role string

const (
	RoleDriver            Role = "driver"
	RoleTechnicalDirector Role = "technical_director"
	RoleHeadOfAero        Role = "head_of_aero"
	RolePowertrainLead    Role = "powertrain_lead"
	RoleRaceEngineer      Role = "race_engineer"
)

const weeksPerYear = 52.0

// Profile holds the attributes every staff member shares.
type Profile struct {
	ID            string  `json:"id" cbor:"id"`
	Name          string  `json:"name" cbor:"name"`
	Salary        int64   `json:"salary" cbor:"salary"`
	Rating        int     `json:"rating" cbor:"rating"` // 1-100 overall skill
	Age           float64 `json:"age" cbor:"age"`
	ContractYears int     `json:"contract_length_years" cbor:"contract_length_years"`
}

func newProfile(name string, salary int64, rating int, age float64, contract int) Profile {
	return Profile{
		ID:            uuid.NewString(),
		Name:          name,
		Salary:        salary,
		Rating:        rating,
		Age:           age,
		ContractYears: contract,
	}
}

// Member is the capability every staff variant implements.
type Member interface {
	Base() *Profile
	Role() Role
	// AgeWeeks advances the member's age and applies any stat drift.
	AgeWeeks(weeks int, rng *rand.Rand)
}

func (p *Profile) ageLinear(weeks int) {
	p.Age += float64(weeks) / weeksPerYear
}

func clampStat(v int) int {
	if v < 1 {
		return 1
	}
	if v > 100 {
		return 100
	}
	return v
}

// Record is the serialized form of any Member.
type Record struct {
	Role       Role           `json:"role" cbor:"role"`
	Profile    Profile        `json:"profile" cbor:"profile"`
	Attributes map[string]int `json:"attributes,omitempty" cbor:"attributes,omitempty"`
}

// ToRecord serializes a member.
func ToRecord(m Member) Record {
	rec := Record{Role: m.Role(), Profile: *m.Base()}
	switch v := m.(type) {
	case *Driver:
		rec.Attributes = map[string]int{
			"speed":           v.Speed,
			"consistency":     v.Consistency,
			"tire_management": v.TireManagement,
		}
	case *TechnicalDirector:
		rec.Attributes = map[string]int{
			"aero_expertise":       v.AeroExpertise,
			"chassis_expertise":    v.ChassisExpertise,
			"powertrain_expertise": v.PowertrainExpertise,
		}
	case *DepartmentLead:
		rec.Attributes = map[string]int{"expertise": v.Expertise}
	}
	return rec
}

// FromRecord rebuilds the concrete member a record describes.
func FromRecord(rec Record) (Member, error) {
	attr := func(key string, def int) int {
		if v, ok := rec.Attributes[key]; ok {
			return v
		}
		return def
	}

	switch rec.Role {
	case RoleDriver:
		return &Driver{
			Profile:        rec.Profile,
			Speed:          attr("speed", 70),
			Consistency:    attr("consistency", 70),
			TireManagement: attr("tire_management", 70),
		}, nil
	case RoleTechnicalDirector:
		return &TechnicalDirector{
			Profile:             rec.Profile,
			AeroExpertise:       attr("aero_expertise", 70),
			ChassisExpertise:    attr("chassis_expertise", 70),
			PowertrainExpertise: attr("powertrain_expertise", 70),
		}, nil
	case RoleHeadOfAero, RolePowertrainLead:
		return &DepartmentLead{
			Profile:   rec.Profile,
			Dept:      rec.Role,
			Expertise: attr("expertise", 70),
		}, nil
	case RoleRaceEngineer:
		return &RaceEngineer{Profile: rec.Profile}, nil
	default:
		return nil, fmt.Errorf("unknown staff role %q", rec.Role)
	}
}
