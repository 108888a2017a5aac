package oplus

import (
	"errors"
	"fmt"

	"github.com/openergy/oplus/pkg/task"
)

var (
	// ErrEmptyGeometry is returned when downloading from a geometry that
	// holds no data, even after a reload.
	ErrEmptyGeometry = errors.New("geometry is empty")

	// ErrResultsUnavailable is returned when results are requested from a
	// simulation or group that did not finish successfully.
	ErrResultsUnavailable = errors.New("results are only available if the simulation finished successfully")

	// ErrFormatRequired is returned when importing a non-floorspace geometry
	// without a format.
	ErrFormatRequired = errors.New("for non-floorspace geometries, the format must be specified when importing")

	// ErrUnknownWeatherFormat is returned for a weather whose format has no
	// series collection.
	ErrUnknownWeatherFormat = errors.New("unknown weather format")

	// ErrNoTask is returned when an operation that must be asynchronous
	// answered without a user task.
	ErrNoTask = errors.New("server answered without a user task")

	// ErrUnsupportedGroup is returned when a simulation group kind does not
	// support the requested operation.
	ErrUnsupportedGroup = errors.New("operation not supported by this simulation group kind")
)

// SimulationStartError reports that the run task of a simulation group
// failed. It unwraps to the *task.OperationFailedError.
type SimulationStartError struct {
	GroupID string
	Err     error
}

func (e *SimulationStartError) Error() string {
	var failed *task.OperationFailedError
	if errors.As(e.Err, &failed) {
		return fmt.Sprintf("could not start simulation group %s. Message:\n%s", e.GroupID, failed.Message)
	}
	return fmt.Sprintf("could not start simulation group %s: %v", e.GroupID, e.Err)
}

func (e *SimulationStartError) Unwrap() error {
	return e.Err
}
