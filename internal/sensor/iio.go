package sensor

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultDevice is the IIO device the kernel dht11 driver registers first.
const DefaultDevice = "/sys/bus/iio/devices/iio:device0"

// IIO channel attribute files, values in milli-units.
const (
	tempFile     = "in_temp_input"
	humidityFile = "in_humidityrelative_input"
)

// IIOReader reads a DHT-style sensor through the Linux Industrial I/O sysfs
// interface. The kernel driver does the single-wire bit timing.
type IIOReader struct {
	dir string
	log zerolog.Logger
}

// NewIIOReader returns a reader for the IIO device directory dir.
// The device is not touched until the first read.
func NewIIOReader(dir string, log zerolog.Logger) *IIOReader {
	return &IIOReader{dir: dir, log: log}
}

// ReadTemperature returns degrees Celsius, or NaN on failure.
func (r *IIOReader) ReadTemperature() float64 {
	return r.readMilli(tempFile)
}

// ReadHumidity returns percent relative humidity, or NaN on failure.
func (r *IIOReader) ReadHumidity() float64 {
	return r.readMilli(humidityFile)
}

func (r *IIOReader) readMilli(name string) float64 {
	path := filepath.Join(r.dir, name)
	raw, err := os.ReadFile(path)
	if err != nil {
		// dht11 returns EIO on checksum or timing errors; common and transient
		r.log.Debug().Err(err).Str("path", path).Msg("sensor read failed")
		return math.NaN()
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	if err != nil {
		r.log.Debug().Err(err).Str("path", path).Msg("sensor value unparsable")
		return math.NaN()
	}
	return v / 1000
}
