package rules

import "fmt"

// Difficulty scales the work rate of autonomously controlled research.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyNormal Difficulty = "Normal"
	DifficultyHard   Difficulty = "Hard"
)

// Multiplier returns the engineer effectiveness factor for AI teams.
func (d Difficulty) Multiplier() float64 {
	switch d {
	case DifficultyEasy:
		return 0.75
	case DifficultyHard:
		return 1.25
	default:
		return 1.0
	}
}

// ParseDifficulty accepts the three canonical names.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(s); d {
	case DifficultyEasy, DifficultyNormal, DifficultyHard:
		return d, nil
	}
	return "", fmt.Errorf("unknown difficulty %q", s)
}

const (
	BaseWeeklyRP        = 150
	AIDirectorRating    = 80
	DriverRPFactor      = 0.5
	DirectorRPFactor    = 1.5
	StandardEngineers   = 50
)

// WeeklyResourcePoints is the research income for one week. Driver
// feedback and the technical director both contribute; a team without a
// director passes 0.
func WeeklyResourcePoints(driverRatings []int, directorRating int) int {
	rp := float64(BaseWeeklyRP)
	for _, r := range driverRatings {
		rp += float64(r) * DriverRPFactor
	}
	rp += float64(directorRating) * DirectorRPFactor
	return int(rp)
}
