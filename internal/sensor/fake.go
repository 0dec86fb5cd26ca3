package sensor

// FakeReader is a test double that returns scripted readings.
type FakeReader struct {
	// Temperature and Humidity are returned by every read.
	Temperature float64
	Humidity    float64

	// Reads counts calls to either method.
	Reads int
}

// NewFakeReader creates a FakeReader returning the given values.
func NewFakeReader(temperature, humidity float64) *FakeReader {
	return &FakeReader{Temperature: temperature, Humidity: humidity}
}

// ReadTemperature returns the scripted temperature.
func (f *FakeReader) ReadTemperature() float64 {
	f.Reads++
	return f.Temperature
}

// ReadHumidity returns the scripted humidity.
func (f *FakeReader) ReadHumidity() float64 {
	f.Reads++
	return f.Humidity
}
