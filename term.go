package elmgauge

import (
	"fmt"
	"io"
	"log"
)

// TermDisplay renders readings and errors to a terminal. It stands in for
// the real LCD when running on a workstation against a bench adapter.
type TermDisplay struct {
	w io.Writer
}

func NewTermDisplay(w io.Writer) *TermDisplay {
	return &TermDisplay{w: w}
}

func (t *TermDisplay) ShowData(d DataPoint) error {
	_, err := fmt.Fprintln(t.w, d.ColorString())
	return err
}

func (t *TermDisplay) ShowError(f *TaggedFault) error {
	if f == nil {
		return nil
	}
	_, err := fmt.Fprintln(t.w, red("!! %s", f.Error()))
	return err
}

func (t *TermDisplay) SetBacklight(on bool) error {
	return nil
}

// LogActuator logs needle movements instead of driving hardware.
type LogActuator struct {
	Verbose bool
}

func (a *LogActuator) Seek(position float64) error {
	if a.Verbose {
		log.Printf("needle -> %5.1f%%", position*100)
	}
	return nil
}

func (a *LogActuator) SetBacklight(on bool) error {
	if a.Verbose {
		log.Printf("backlight -> %v", on)
	}
	return nil
}

func (a *LogActuator) Recalibrate() error {
	log.Println("recalibrating needle")
	return nil
}
