package display

import (
	"fmt"
	"os"

	"github.com/gr-butler/estacion/config"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// Display shows a screen of rows.
type Display interface {
	Show(rows []string) error
	Close() error
}

// Discard is used when no display is attached.
type Discard struct{}

func (Discard) Show([]string) error { return nil }
func (Discard) Close() error        { return nil }

// Open returns the renderer and the display selected in cfg. The LCD needs
// the host drivers to be initialised already.
func Open(cfg config.DisplayConfig) (*Renderer, Display, error) {
	class, err := ClassByName(cfg.Class)
	if err != nil {
		return nil, nil, err
	}
	r := NewRenderer(class, cfg.Placeholder, cfg.Precision)
	switch cfg.Kind {
	case "lcd":
		p := cfg.Pins
		lcd, err := NewLCD(class,
			gpioreg.ByName(p.RS), gpioreg.ByName(p.E),
			gpioreg.ByName(p.D4), gpioreg.ByName(p.D5), gpioreg.ByName(p.D6), gpioreg.ByName(p.D7))
		if err != nil {
			return r, nil, fmt.Errorf("open lcd: %w", err)
		}
		return r, lcd, nil
	case "console":
		return r, NewConsole(os.Stdout), nil
	default:
		return r, Discard{}, nil
	}
}
