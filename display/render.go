package display

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gr-butler/estacion/data"
)

// Degree is the internal degree sign; the LCD shows CGRAM glyph 0 for it.
const Degree = "\x00"

// Class is the geometry of a character display.
type Class struct {
	Name string
	Rows int
	Cols int
}

var (
	LCD2004 = Class{Name: "lcd2004", Rows: 4, Cols: 20}
	LCD1602 = Class{Name: "lcd1602", Rows: 2, Cols: 16}
)

func ClassByName(name string) (Class, error) {
	switch name {
	case LCD2004.Name:
		return LCD2004, nil
	case LCD1602.Name:
		return LCD1602, nil
	}
	return Class{}, fmt.Errorf("unknown display class %q", name)
}

// Renderer lays a SampleSet out as fixed-width rows.
type Renderer struct {
	class       Class
	placeholder string
	precision   map[string]int
}

func NewRenderer(class Class, placeholder string, precision map[string]int) *Renderer {
	return &Renderer{class: class, placeholder: placeholder, precision: precision}
}

func (r *Renderer) Class() Class {
	return r.class
}

// Render returns exactly Rows rows of exactly Cols characters. Every field
// has a fixed-width slot so only padding is ever cut by Fit.
func (r *Renderer) Render(s data.SampleSet) []string {
	if r.class == LCD1602 {
		return r.Fit([]string{
			"T" + r.slot("temperatura", s.Temperature, 3) + Degree +
				" S" + r.slot("sensacion", s.HeatIndex, 3) + Degree +
				" " + r.slot("humedad", s.Humidity, 3) + "%",
			r.direction(s.WindDirection) + " " + r.slot("viento", s.WindSpeed, 4) +
				" " + r.slot("presion", s.Pressure, 4) + "hPa",
		})
	}
	return r.Fit([]string{
		"PRESION " + r.slot("presion", s.Pressure, 6) + " hPa",
		"HUM " + r.slot("humedad", s.Humidity, 3) + "% LLUV " + r.slot("lluvia", s.Rainfall, 4) + "mm",
		"TEMP" + r.slot("temperatura", s.Temperature, 4) + Degree + "C  ST" + r.slot("sensacion", s.HeatIndex, 4) + Degree + "C",
		"VIENTO " + r.direction(s.WindDirection) + " " + r.slot("viento", s.WindSpeed, 5) + "Km/h",
	})
}

// Banner is shown while the station starts.
func (r *Renderer) Banner() []string {
	return r.Fit([]string{"ESTACION", "METEOROLOGICA"})
}

// Status lays out arbitrary lines with the same fit rules.
func (r *Renderer) Status(lines ...string) []string {
	return r.Fit(lines)
}

// Fit truncates or space-pads every line to the width and the row count.
func (r *Renderer) Fit(lines []string) []string {
	rows := make([]string, r.class.Rows)
	for i := range rows {
		line := ""
		if i < len(lines) {
			line = lines[i]
		}
		if len(line) > r.class.Cols {
			line = line[:r.class.Cols]
		}
		rows[i] = line + strings.Repeat(" ", r.class.Cols-len(line))
	}
	return rows
}

// slot right-aligns v in width columns. Decimals are dropped until the value
// fits; a value that cannot fit even as an integer shows as '*'.
func (r *Renderer) slot(field string, v data.Reading, width int) string {
	f, ok := v.Value()
	if !ok {
		return pad(r.placeholder, width)
	}
	for prec := max(r.precision[field], 0); prec >= 0; prec-- {
		if txt := strconv.FormatFloat(f, 'f', prec, 64); len(txt) <= width {
			return pad(txt, width)
		}
	}
	return strings.Repeat("*", width)
}

func pad(txt string, width int) string {
	if len(txt) >= width {
		return txt[:width]
	}
	return strings.Repeat(" ", width-len(txt)) + txt
}

// direction is the sector name, left-aligned in three columns.
func (r *Renderer) direction(s data.Direction) string {
	name := r.placeholder
	if s.Valid() {
		name = s.Name()
	}
	if len(name) > 3 {
		name = name[:3]
	}
	return name + strings.Repeat(" ", 3-len(name))
}
