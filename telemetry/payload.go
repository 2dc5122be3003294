package telemetry

import (
	"bytes"
	"strconv"

	"github.com/gr-butler/estacion/data"
)

// Payload field names, in the order they are sent.
const (
	Altitud     = "altitud"
	Rocio       = "rocio"
	Humedad     = "humedad"
	Lluvia      = "lluvia"
	Presion     = "presion"
	Sensacion   = "sensacion"
	Temperatura = "temperatura"
	Viento      = "viento"
	Direccion   = "direccion"
)

// Fields lists every payload field in canonical order.
var Fields = []string{Altitud, Rocio, Humedad, Lluvia, Presion, Sensacion, Temperatura, Viento, Direccion}

type Field struct {
	Name  string
	Value float64
}

// Payload is the ordered set of valid readings from one cycle.
type Payload struct {
	fields []Field
}

// Encode keeps only the valid readings of s.
func Encode(s data.SampleSet) Payload {
	p := Payload{fields: make([]Field, 0, len(Fields))}
	p.add(Altitud, s.Altitude)
	p.add(Rocio, s.DewPoint)
	p.add(Humedad, s.Humidity)
	p.add(Lluvia, s.Rainfall)
	p.add(Presion, s.Pressure)
	p.add(Sensacion, s.HeatIndex)
	p.add(Temperatura, s.Temperature)
	p.add(Viento, s.WindSpeed)
	if deg, ok := s.WindDirection.Degrees(); ok {
		p.fields = append(p.fields, Field{Name: Direccion, Value: deg})
	}
	return p
}

func (p *Payload) add(name string, r data.Reading) {
	if v, ok := r.Value(); ok {
		p.fields = append(p.fields, Field{Name: name, Value: v})
	}
}

func (p Payload) Fields() []Field {
	return append([]Field(nil), p.fields...)
}

func (p Payload) Len() int {
	return len(p.fields)
}

func (p Payload) Get(name string) (float64, bool) {
	for _, f := range p.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return 0, false
}

// MarshalJSON writes the fields in canonical order with the shortest number form.
func (p Payload) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, f := range p.fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(f.Name))
		b.WriteByte(':')
		b.WriteString(strconv.FormatFloat(f.Value, 'f', -1, 64))
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func (p Payload) String() string {
	j, _ := p.MarshalJSON()
	return string(j)
}
