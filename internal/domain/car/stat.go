package car

import "fmt"

// Category groups stats by car module. Department leads are keyed by it.
type Category string

const (
	CategoryAero       Category = "aero"
	CategoryChassis    Category = "chassis"
	CategoryPowertrain Category = "powertrain"
)

// Stat addresses one numeric field of a Car. The zero value is not a valid
// stat; use ParseStat or the exported constants.
type Stat int

const (
	statInvalid Stat = iota
	Downforce
	DragEfficiency
	WeightReduction
	TirePreservation
	PowerOutput
	Reliability
)

type statEntry struct {
	path     string
	category Category
	field    func(*Car) *int
}

// statTable is the accessor table. Index is the Stat value.
var statTable = [...]statEntry{
	statInvalid:      {},
	Downforce:        {"aero.downforce", CategoryAero, func(c *Car) *int { return &c.Aero.Downforce }},
	DragEfficiency:   {"aero.drag_efficiency", CategoryAero, func(c *Car) *int { return &c.Aero.DragEfficiency }},
	WeightReduction:  {"chassis.weight_reduction", CategoryChassis, func(c *Car) *int { return &c.Chassis.WeightReduction }},
	TirePreservation: {"chassis.tire_preservation", CategoryChassis, func(c *Car) *int { return &c.Chassis.TirePreservation }},
	PowerOutput:      {"powertrain.power_output", CategoryPowertrain, func(c *Car) *int { return &c.Powertrain.PowerOutput }},
	Reliability:      {"powertrain.reliability", CategoryPowertrain, func(c *Car) *int { return &c.Powertrain.Reliability }},
}

var statsByPath = func() map[string]Stat {
	m := make(map[string]Stat, len(statTable)-1)
	for i := 1; i < len(statTable); i++ {
		m[statTable[i].path] = Stat(i)
	}
	return m
}()

// Stats returns every valid stat in table order.
func Stats() []Stat {
	out := make([]Stat, 0, len(statTable)-1)
	for i := 1; i < len(statTable); i++ {
		out = append(out, Stat(i))
	}
	return out
}

// ParseStat resolves a dotted path such as "aero.downforce".
func ParseStat(path string) (Stat, error) {
	s, ok := statsByPath[path]
	if !ok {
		return statInvalid, fmt.Errorf("unknown car stat %q", path)
	}
	return s, nil
}

// Valid reports whether s addresses a real field.
func (s Stat) Valid() bool {
	return s > statInvalid && int(s) < len(statTable)
}

// Category returns the module the stat belongs to.
func (s Stat) Category() Category {
	if !s.Valid() {
		return ""
	}
	return statTable[s].category
}

func (s Stat) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Stat(%d)", int(s))
	}
	return statTable[s].path
}

// MarshalText encodes the stat as its dotted path.
func (s Stat) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("cannot encode invalid stat %d", int(s))
	}
	return []byte(statTable[s].path), nil
}

// UnmarshalText decodes a dotted path. Unknown paths fail, which surfaces
// malformed research definitions at load time.
func (s *Stat) UnmarshalText(text []byte) error {
	parsed, err := ParseStat(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s Stat) field(c *Car) *int {
	if !s.Valid() {
		panic(fmt.Sprintf("car: invalid stat %d", int(s)))
	}
	return statTable[s].field(c)
}
