package sensors

import (
	"errors"
	"fmt"

	"github.com/gr-butler/estacion/data"
	"periph.io/x/conn/v3/gpio"
)

// GrayCodeTable maps the code of a 4-bit Gray-coded absolute encoder to its sector.
var GrayCodeTable = [16]data.Sector{
	0, 1, 3, 2, 7, 6, 4, 5,
	15, 14, 12, 13, 8, 9, 11, 10,
}

var errVaneLine = errors.New("vane line not available")

// VaneDecoder turns the four vane lines into a compass sector.
type VaneDecoder struct {
	table [16]data.Sector
}

// NewVaneDecoder uses the given code table; entries outside 0-15 become SectorUnknown.
func NewVaneDecoder(table [16]data.Sector) *VaneDecoder {
	v := &VaneDecoder{}
	for code, s := range table {
		if !s.Valid() {
			s = data.SectorUnknown
		}
		v.table[code] = s
	}
	return v
}

// VaneTableFromInts converts a configured table. An empty slice selects
// GrayCodeTable; entries outside 0..15 become SectorUnknown.
func VaneTableFromInts(entries []int) ([16]data.Sector, error) {
	if len(entries) == 0 {
		return GrayCodeTable, nil
	}
	var table [16]data.Sector
	if len(entries) != len(table) {
		return table, fmt.Errorf("vane table needs 16 entries, got %d", len(entries))
	}
	for code, s := range entries {
		table[code] = data.SectorUnknown
		if s >= 0 && s < data.SectorCount {
			table[code] = data.Sector(s)
		}
	}
	return table, nil
}

// Pack builds the code with bits[0] as the least significant bit.
func Pack(bits [4]bool) uint8 {
	var code uint8
	for i, b := range bits {
		if b {
			code |= 1 << i
		}
	}
	return code
}

func (v *VaneDecoder) Decode(bits [4]bool) data.Sector {
	return v.DecodeCode(Pack(bits))
}

func (v *VaneDecoder) DecodeCode(code uint8) data.Sector {
	if int(code) >= len(v.table) {
		return data.SectorUnknown
	}
	return v.table[code]
}

// Vane reads the four pulled-up encoder lines. A line pulled Low is a set bit.
type Vane struct {
	pins [4]gpio.PinIO
}

func NewVane(pins ...gpio.PinIO) (*Vane, error) {
	if len(pins) != 4 {
		return nil, fmt.Errorf("vane needs 4 lines, got %d", len(pins))
	}
	v := &Vane{}
	for i, p := range pins {
		if p == nil {
			return nil, fmt.Errorf("vane line D%d: %w", i, errVaneLine)
		}
		if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("vane line D%d: %w", i, err)
		}
		v.pins[i] = p
	}
	return v, nil
}

func (v *Vane) Bits() ([4]bool, error) {
	var bits [4]bool
	for i, p := range v.pins {
		if p == nil {
			return bits, errVaneLine
		}
		bits[i] = p.Read() == gpio.Low
	}
	return bits, nil
}
