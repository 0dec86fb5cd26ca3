// Package sensor reads temperature and humidity with hardware abstraction.
// A failed read is reported as NaN, never as an error.
package sensor

// Reader reads the climate sensor.
type Reader interface {
	// ReadTemperature returns degrees Celsius, or NaN on failure.
	ReadTemperature() float64

	// ReadHumidity returns percent relative humidity, or NaN on failure.
	ReadHumidity() float64
}
