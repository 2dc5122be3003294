package display

import (
	"errors"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
)

// HD44780 instructions
const (
	cmdClear       = 0x01
	cmdEntryMode   = 0x06 // increment, no shift
	cmdDisplayOn   = 0x0C // display on, cursor off
	cmdFunctionSet = 0x28 // 4-bit, 2 lines, 5x8
	cmdSetCGRAM    = 0x40
	cmdSetDDRAM    = 0x80
)

// DegreeGlyph is the 5x8 pattern loaded into CGRAM slot 0.
var DegreeGlyph = [8]byte{0x06, 0x09, 0x09, 0x06, 0x00, 0x00, 0x00, 0x00}

var rowOffsets = [4]byte{0x00, 0x40, 0x14, 0x54}

var errNoPin = errors.New("lcd pin not available")

// LCD drives an HD44780 character display in 4-bit mode.
type LCD struct {
	class Class
	rs    gpio.PinOut
	e     gpio.PinOut
	d     [4]gpio.PinOut
	shown []string
	sleep func(time.Duration)
}

// NewLCD initialises the controller and loads the degree glyph.
func NewLCD(class Class, rs, e, d4, d5, d6, d7 gpio.PinOut) (*LCD, error) {
	return newLCD(class, time.Sleep, rs, e, d4, d5, d6, d7)
}

func newLCD(class Class, sleep func(time.Duration), rs, e gpio.PinOut, d ...gpio.PinOut) (*LCD, error) {
	l := &LCD{class: class, rs: rs, e: e, sleep: sleep}
	for i, p := range append([]gpio.PinOut{rs, e}, d...) {
		if p == nil {
			return nil, fmt.Errorf("lcd line %d: %w", i, errNoPin)
		}
	}
	copy(l.d[:], d)
	logger.Infof("Starting %v LCD", class.Name)
	if err := l.init(); err != nil {
		return nil, err
	}
	if err := l.DefineGlyph(0, DegreeGlyph); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *LCD) init() error {
	if err := l.rs.Out(gpio.Low); err != nil {
		return fmt.Errorf("lcd rs: %w", err)
	}
	if err := l.e.Out(gpio.Low); err != nil {
		return fmt.Errorf("lcd e: %w", err)
	}
	l.sleep(50 * time.Millisecond)
	// 8-bit reset three times, then switch to 4-bit
	for _, wait := range []time.Duration{4500 * time.Microsecond, 4500 * time.Microsecond, 150 * time.Microsecond} {
		if err := l.write4(0x03); err != nil {
			return err
		}
		l.sleep(wait)
	}
	if err := l.write4(0x02); err != nil {
		return err
	}
	for _, c := range []byte{cmdFunctionSet, cmdDisplayOn, cmdClear, cmdEntryMode} {
		if err := l.command(c); err != nil {
			return err
		}
	}
	return nil
}

// DefineGlyph loads a 5x8 pattern into one of the 8 CGRAM slots.
func (l *LCD) DefineGlyph(slot int, pattern [8]byte) error {
	if slot < 0 || slot > 7 {
		return fmt.Errorf("glyph slot %d out of range", slot)
	}
	if err := l.command(cmdSetCGRAM | byte(slot<<3)); err != nil {
		return err
	}
	for _, b := range pattern {
		if err := l.send(b, gpio.High); err != nil {
			return err
		}
	}
	return l.command(cmdSetDDRAM)
}

// Show writes the rows that changed since the previous call.
func (l *LCD) Show(rows []string) error {
	for i, row := range rows {
		if i >= l.class.Rows {
			break
		}
		if i < len(l.shown) && l.shown[i] == row {
			continue
		}
		if err := l.command(cmdSetDDRAM | rowOffsets[i]); err != nil {
			return err
		}
		for j := 0; j < len(row) && j < l.class.Cols; j++ {
			if err := l.send(row[j], gpio.High); err != nil {
				return err
			}
		}
	}
	l.shown = append(l.shown[:0], rows...)
	return nil
}

func (l *LCD) Close() error {
	err := l.command(cmdClear)
	for _, p := range append([]gpio.PinOut{l.rs, l.e}, l.d[:]...) {
		_ = p.Halt()
	}
	return err
}

func (l *LCD) command(c byte) error {
	if err := l.send(c, gpio.Low); err != nil {
		return err
	}
	if c == cmdClear {
		l.sleep(2 * time.Millisecond)
	}
	return nil
}

// send writes b as two nibbles, high first. rs Low selects instructions.
func (l *LCD) send(b byte, rs gpio.Level) error {
	if err := l.rs.Out(rs); err != nil {
		return fmt.Errorf("lcd rs: %w", err)
	}
	if err := l.write4(b >> 4); err != nil {
		return err
	}
	return l.write4(b & 0x0F)
}

func (l *LCD) write4(nibble byte) error {
	for i, p := range l.d {
		if err := p.Out(gpio.Level(nibble&(1<<i) != 0)); err != nil {
			return fmt.Errorf("lcd d%d: %w", i+4, err)
		}
	}
	if err := l.e.Out(gpio.High); err != nil {
		return fmt.Errorf("lcd e: %w", err)
	}
	l.sleep(time.Microsecond)
	if err := l.e.Out(gpio.Low); err != nil {
		return fmt.Errorf("lcd e: %w", err)
	}
	l.sleep(50 * time.Microsecond)
	return nil
}
