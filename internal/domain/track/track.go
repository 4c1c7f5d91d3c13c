// Package track defines racing circuits and the season calendar.
// This package is PURE and must NOT import any infrastructure packages.
package track

// Track is a circuit profile. The weights scale how much each car module
// matters here, e.g. Monza has a high powertrain weight.
type Track struct {
	Name             string  `json:"name"`
	Country          string  `json:"country"`
	Laps             int     `json:"laps"`
	BaseLapTime      float64 `json:"base_lap_time"` // seconds
	AeroWeight       float64 `json:"aero_weight"`
	ChassisWeight    float64 `json:"chassis_weight"`
	PowertrainWeight float64 `json:"powertrain_weight"`
}

func newTrack(name, country string, laps int, base, aero, chassis, power float64) Track {
	return Track{
		Name:             name,
		Country:          country,
		Laps:             laps,
		BaseLapTime:      base,
		AeroWeight:       aero,
		ChassisWeight:    chassis,
		PowertrainWeight: power,
	}
}

// Calendar returns the 24-round season in running order.
func Calendar() []Track {
	return []Track{
		newTrack("Bahrain International Circuit", "Bahrain", 57, 93.0, 1.0, 1.0, 1.0),
		newTrack("Jeddah Corniche Circuit", "Saudi Arabia", 50, 89.0, 0.8, 1.0, 1.3),
		newTrack("Albert Park Circuit", "Australia", 58, 81.0, 0.9, 1.1, 1.0),
		newTrack("Suzuka International Racing Course", "Japan", 53, 90.0, 1.2, 1.3, 1.0),
		newTrack("Shanghai International Circuit", "China", 56, 96.0, 1.1, 1.1, 1.0),
		newTrack("Miami International Autodrome", "USA", 57, 90.0, 0.9, 1.0, 1.2),
		newTrack("Autodromo Enzo e Dino Ferrari", "Italy", 63, 77.0, 1.0, 1.2, 1.0),
		newTrack("Circuit de Monaco", "Monaco", 78, 72.0, 1.5, 1.2, 0.4),
		newTrack("Circuit Gilles-Villeneuve", "Canada", 70, 73.0, 0.7, 1.1, 1.3),
		newTrack("Circuit de Barcelona-Catalunya", "Spain", 66, 76.0, 1.2, 1.1, 0.9),
		newTrack("Red Bull Ring", "Austria", 71, 66.0, 0.9, 1.0, 1.3),
		newTrack("Silverstone Circuit", "Great Britain", 52, 87.0, 1.3, 1.0, 1.1),
		newTrack("Hungaroring", "Hungary", 70, 79.0, 1.3, 1.2, 0.7),
		newTrack("Circuit de Spa-Francorchamps", "Belgium", 44, 105.0, 1.1, 0.9, 1.4),
		newTrack("Circuit Zandvoort", "Netherlands", 72, 72.0, 1.3, 1.1, 0.8),
		newTrack("Autodromo Nazionale Monza", "Italy", 53, 81.0, 0.5, 1.0, 1.5),
		newTrack("Baku City Circuit", "Azerbaijan", 51, 103.0, 0.6, 0.9, 1.4),
		newTrack("Marina Bay Street Circuit", "Singapore", 62, 91.0, 1.4, 1.3, 0.6),
		newTrack("Circuit of the Americas", "USA", 56, 95.0, 1.1, 1.1, 1.0),
		newTrack("Autodromo Hermanos Rodriguez", "Mexico", 71, 80.0, 0.9, 1.1, 1.0),
		newTrack("Autodromo Jose Carlos Pace", "Brazil", 71, 71.0, 1.1, 1.1, 0.8),
		newTrack("Las Vegas Strip Circuit", "USA", 50, 93.0, 0.6, 0.8, 1.5),
		newTrack("Lusail International Circuit", "Qatar", 57, 84.0, 1.2, 1.1, 0.9),
		newTrack("Yas Marina Circuit", "UAE", 58, 85.0, 1.0, 1.2, 1.2),
	}
}
