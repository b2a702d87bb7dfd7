package ports

import (
	"excelviz/domain/chart"
)

// ChartInstance is one live renderer resource (a canvas and its listeners)
type ChartInstance interface {
	// Destroy releases the instance. It is called exactly once.
	Destroy() error
}

// ChartRenderer materializes specs as live chart instances
type ChartRenderer interface {
	Create(key string, spec chart.Spec) (ChartInstance, error)
}
