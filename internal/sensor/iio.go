package sensor

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Default IIO sysfs attributes for the optical and ambient channels.
const (
	DefaultChannelA = "/sys/bus/iio/devices/iio:device0/in_intensity_raw"
	DefaultChannelB = "/sys/bus/iio/devices/iio:device0/in_illuminance_raw"
)

// IIOChannel reads a raw value from an IIO sysfs attribute.
type IIOChannel struct {
	Path string
}

// Read returns the attribute's current value.
func (c IIOChannel) Read() (uint32, error) {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", c.Path, err)
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", c.Path, err)
	}
	return uint32(v), nil
}
