package data

// Sector is one of the 16 compass buckets, 22.5° wide, clockwise from north.
type Sector int8

// SectorUnknown marks a direction that could not be determined.
const SectorUnknown Sector = -1

const SectorCount = 16

var sectorNames = [SectorCount]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSO", "SO", "OSO", "O", "ONO", "NO", "NNO",
}

func (s Sector) Valid() bool {
	return s >= 0 && s < SectorCount
}

// Degrees converts the sector to degrees in [0,360).
func (s Sector) Degrees() (float64, bool) {
	if !s.Valid() {
		return 0, false
	}
	return float64(s) * 360.0 / SectorCount, true
}

// Name returns the Spanish compass abbreviation, or "" when unknown.
func (s Sector) Name() string {
	if !s.Valid() {
		return ""
	}
	return sectorNames[s]
}

func (s Sector) String() string {
	if !s.Valid() {
		return "unknown"
	}
	return sectorNames[s]
}

// Direction is an optional wind direction. The zero value is missing.
type Direction struct {
	sector Sector
	valid  bool
}

// DirectionOf wraps s. SectorUnknown and out of range sectors become missing.
func DirectionOf(s Sector) Direction {
	if !s.Valid() {
		return Direction{}
	}
	return Direction{sector: s, valid: true}
}

func (d Direction) Valid() bool {
	return d.valid
}

// Sector returns the sector, or SectorUnknown when missing.
func (d Direction) Sector() Sector {
	if !d.valid {
		return SectorUnknown
	}
	return d.sector
}

func (d Direction) Degrees() (float64, bool) {
	return d.Sector().Degrees()
}

func (d Direction) Name() string {
	return d.Sector().Name()
}

func (d Direction) String() string {
	return d.Sector().String()
}
