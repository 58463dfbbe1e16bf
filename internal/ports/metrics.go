package ports

// Metrics receives lifecycle counters.
type Metrics interface {
	StateChanged(from, to string)
	Eliminated(cause string)
	ZoneRadius(radius float64)
	InvariantViolation()
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) StateChanged(string, string) {}
func (NoopMetrics) Eliminated(string)           {}
func (NoopMetrics) ZoneRadius(float64)          {}
func (NoopMetrics) InvariantViolation()         {}
