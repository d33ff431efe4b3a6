package elmgauge

import (
	"fmt"
	"time"

	"github.com/fatih/color"
)

// DatumKind identifies which engine channel a reading belongs to.
type DatumKind uint8

const (
	DatumRPM DatumKind = iota
	DatumBatteryVoltage
	DatumCoolantTemp
)

func (k DatumKind) String() string {
	switch k {
	case DatumRPM:
		return "RPM"
	case DatumBatteryVoltage:
		return "VBAT"
	case DatumCoolantTemp:
		return "COOLANT"
	default:
		return "UNKNOWN"
	}
}

// Unit returns the display unit for the channel.
func (k DatumKind) Unit() string {
	switch k {
	case DatumRPM:
		return "rpm"
	case DatumBatteryVoltage:
		return "V"
	case DatumCoolantTemp:
		return "°C"
	default:
		return ""
	}
}

// DataPoint is one validated reading with its capture time. It is created
// by the adapter session on a successful decode and consumed exactly once
// by the router.
type DataPoint struct {
	Kind  DatumKind
	Value float64
	Time  time.Time
}

func (d DataPoint) String() string {
	return fmt.Sprintf("%-7s || %8.2f %-3s || %s",
		d.Kind, d.Value, d.Kind.Unit(), d.Time.Format("15:04:05.000"))
}

var (
	green  = color.New(color.FgGreen).SprintfFunc()
	yellow = color.New(color.FgHiYellow).SprintfFunc()
	red    = color.New(color.FgRed).SprintfFunc()
)

func (d DataPoint) ColorString() string {
	return fmt.Sprintf("%s || %s || %s",
		green("%-7s", d.Kind.String()),
		yellow("%8.2f %-3s", d.Value, d.Kind.Unit()),
		d.Time.Format("15:04:05.000"))
}
