package team

import "github.com/teamprincipal/paddock/internal/domain/personnel"

// Market is the pool of unsigned staff.
type Market struct {
	Drivers            []*personnel.Driver
	TechnicalDirectors []*personnel.TechnicalDirector
	HeadsOfAero        []*personnel.DepartmentLead
	PowertrainLeads    []*personnel.DepartmentLead
	RaceEngineers      []*personnel.RaceEngineer
}

// FreeAgents returns the opening staff market.
func FreeAgents() Market {
	d := personnel.NewDriver
	td := personnel.NewTechnicalDirector
	aero := personnel.NewHeadOfAero
	pu := personnel.NewPowertrainLead
	re := personnel.NewRaceEngineer

	return Market{
		Drivers: []*personnel.Driver{
			d("Franco Colapinto", 1_800_000, 78, 80, 77, 75),
			d("Liam Lawson", 1_500_000, 78, 80, 75, 74),
			d("Oliver Bearman", 1_200_000, 76, 79, 72, 70),
			d("Kimi Antonelli", 1_800_000, 79, 83, 70, 71),
			d("Jack Doohan", 1_000_000, 75, 76, 74, 75),
			d("Theo Pourchaire", 1_100_000, 77, 78, 76, 74),
			d("Felipe Drugovich", 1_000_000, 76, 75, 78, 77),
			d("Mick Schumacher", 1_500_000, 77, 77, 78, 76),
			d("Isack Hadjar", 900_000, 74, 76, 70, 75),
			d("Paul Aron", 850_000, 73, 75, 72, 72),
			d("Zane Maloney", 800_000, 72, 74, 69, 73),
			d("Gabriel Bortoleto", 950_000, 76, 77, 71, 74),
			d("Alex Palou", 2_500_000, 81, 82, 85, 78),
			d("Pato O'Ward", 2_000_000, 80, 82, 78, 80),
			d("Colton Herta", 1_800_000, 79, 83, 75, 77),
			d("Robert Shwartzman", 1_200_000, 75, 75, 76, 74),
			d("Callum Ilott", 1_100_000, 76, 76, 77, 75),
		},
		TechnicalDirectors: []*personnel.TechnicalDirector{
			td("Adrian Newey", 15_000_000, 98, 96, 98, 85, 65, 3),
			td("James Allison", 12_000_000, 94, 94, 92, 88, 56, 3),
			td("Pierre Wache", 10_000_000, 92, 90, 95, 86, 49, 4),
			td("Dan Fallows", 8_000_000, 88, 92, 85, 80, 50, 4),
			td("Pat Fry", 6_000_000, 85, 84, 86, 82, 60, 2),
			td("Mattia Binotto", 9_000_000, 89, 85, 82, 95, 54, 3),
			td("James Key", 7_000_000, 86, 88, 84, 80, 52, 3),
			td("Jody Egginton", 5_500_000, 83, 85, 84, 78, 48, 4),
			td("Jan Monchaux", 6_500_000, 84, 86, 85, 79, 45, 3),
			td("Aldo Costa", 11_000_000, 93, 90, 94, 91, 62, 2),
			td("Paddy Lowe", 8_500_000, 87, 85, 88, 89, 61, 2),
		},
		HeadsOfAero: []*personnel.DepartmentLead{
			aero("Enrico Cardile", 5_000_000, 89, 90, 49, 3),
			aero("Diego Tondi", 4_000_000, 85, 87, 45, 4),
			aero("Dirk de Beer", 3_500_000, 82, 84, 55, 2),
			aero("Peter Prodromou", 6_000_000, 90, 92, 55, 3),
			aero("Simon Rennie", 4_500_000, 86, 88, 44, 4),
			aero("Eric Blandin", 5_500_000, 88, 89, 48, 3),
			aero("David Sanchez", 5_200_000, 87, 88, 43, 4),
			aero("Andrew Shovlin", 6_500_000, 91, 92, 50, 3),
			aero("Guillaume Rocquelin", 4_800_000, 85, 86, 52, 2),
		},
		PowertrainLeads: []*personnel.DepartmentLead{
			pu("Hywel Thomas", 6_000_000, 92, 95, 52, 3),
			pu("Enrico Gualtieri", 5_500_000, 88, 91, 50, 4),
			pu("Toyoharu Tanabe", 7_000_000, 93, 94, 63, 2),
			pu("Mario Illien", 4_000_000, 85, 85, 74, 1),
			pu("Gilles Simon", 4_500_000, 84, 86, 65, 2),
			pu("Benoit Poulet", 4_800_000, 86, 87, 48, 3),
			pu("Tetsushi Kakuda", 5_200_000, 89, 90, 55, 4),
			pu("Phil Prew", 6_200_000, 90, 92, 58, 2),
			pu("Andy Cowell", 9_000_000, 96, 98, 54, 2),
		},
		RaceEngineers: []*personnel.RaceEngineer{
			re("Gianpiero Lambiase", 1_200_000, 94, 44, 3),
			re("Peter Bonnington", 1_100_000, 92, 47, 2),
			re("Xavier Marcos Padros", 900_000, 88, 42, 3),
			re("Will Joseph", 850_000, 87, 38, 3),
			re("Riccardo Adami", 800_000, 85, 51, 2),
			re("Gaetan Jego", 700_000, 83, 40, 2),
			re("Tom Stallard", 750_000, 84, 41, 2),
		},
	}
}

// FindDriver returns an unsigned driver by name.
func (m Market) FindDriver(name string) (*personnel.Driver, bool) {
	for _, d := range m.Drivers {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}
