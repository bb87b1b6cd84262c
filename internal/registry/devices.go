// Package registry pulls in every fake device package so their kinds are
// registered before the CLI parses arguments.
package registry

import (
	_ "github.com/ramseymcgrath/guh/device/midi" // Register MIDI streaming device
	_ "github.com/ramseymcgrath/guh/device/msc"  // Register mass-storage device
)
