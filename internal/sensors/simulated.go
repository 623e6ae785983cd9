package sensors

import "context"

// Simulated is a Sensor fake used by tests and the activation simulator.
type Simulated struct {
	SensorName string
	Value      Reading
	Err        error
	// FailFirst makes the first N reads fail before succeeding, to exercise
	// the retry path.
	FailFirst int
	Reads     int
}

func (s *Simulated) Name() string {
	if s.SensorName == "" {
		return "SIMULATED"
	}
	return s.SensorName
}

func (s *Simulated) Read(ctx context.Context) (Reading, error) {
	s.Reads++
	if s.Err != nil {
		return Reading{}, s.Err
	}
	if s.Reads <= s.FailFirst {
		return Reading{}, errTransient
	}
	return s.Value, nil
}

type simError string

func (e simError) Error() string { return string(e) }

const errTransient = simError("simulated transient read failure")

// Float returns a pointer to v, for populating optional reading fields.
func Float(v float64) *float64 {
	return &v
}
