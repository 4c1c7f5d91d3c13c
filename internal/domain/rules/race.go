// Package rules contains the pure calculation logic for game mechanics.
// This package is PURE and must NOT import any infrastructure packages.
package rules

import (
	"github.com/teamprincipal/paddock/internal/domain/car"
	"github.com/teamprincipal/paddock/internal/domain/track"
)

// Lap model constants. Times are in seconds, wear in percent.
const (
	PerformanceDivisor   = 6.0
	CarAdvantageScale    = 4.75
	DriverAdvantageScale = 2.0
	MistakePenaltyMax    = 1.5
	TirePenaltyScale     = 1.8

	BaseWearPerLap     = 2.1
	PreservationFactor = 0.3
	MaxWear            = 100.0

	PitWearThreshold       = 70.0
	PitStopPenalty         = 22.0
	EmergencyWearThreshold = 95.0
	EmergencyPitPenalty    = 25.0
)

// WeightedPerformance scores a car against a track's module weights.
// The result is not clamped; a well-developed car may exceed 100.
func WeightedPerformance(c *car.Car, t track.Track) float64 {
	aero := float64(c.Aero.Downforce+c.Aero.DragEfficiency) * t.AeroWeight
	chassis := float64(c.Chassis.WeightReduction+c.Chassis.TirePreservation) * t.ChassisWeight
	power := float64(c.Powertrain.PowerOutput+c.Powertrain.Reliability) * t.PowertrainWeight
	return (aero + chassis + power) / PerformanceDivisor
}

// CarAdvantage converts weighted performance into seconds saved per lap.
func CarAdvantage(weighted float64) float64 {
	return weighted / 100 * CarAdvantageScale
}

// DriverAdvantage converts raw driver speed into seconds saved per lap.
func DriverAdvantage(speed int) float64 {
	return float64(speed) / 100 * DriverAdvantageScale
}

// MistakeChance is the per-lap probability of a driver error.
func MistakeChance(consistency int) float64 {
	return float64(100-consistency) / 100
}

// TirePenalty is the time lost to worn tires.
func TirePenalty(wear float64) float64 {
	return wear / 100 * TirePenaltyScale
}

// WearDelta is the wear added in one lap. Chassis tire preservation and the
// driver's tire management each remove up to 30% of the base wear.
func WearDelta(wearRate float64, tirePreservation, tireManagement int) float64 {
	chassis := 1 - float64(tirePreservation)/100*PreservationFactor
	driver := 1 - float64(tireManagement)/100*PreservationFactor
	return BaseWearPerLap * wearRate * chassis * driver
}

// AddWear applies a wear delta and keeps the result in [0, MaxWear].
func AddWear(wear, delta float64) float64 {
	wear += delta
	if wear > MaxWear {
		return MaxWear
	}
	if wear < 0 {
		return 0
	}
	return wear
}
