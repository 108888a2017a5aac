package oplus

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openergy/oplus/pkg/record"
	"github.com/openergy/oplus/pkg/task"
)

// Simulation statuses.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
)

// Simulation is one run of a simulation group.
type Simulation struct {
	*record.Record
	c     *Client
	group *SimulationGroup
}

// Group returns the group the simulation was obtained from.
func (s *Simulation) Group() *SimulationGroup {
	return s.group
}

// Status returns the simulation status, as last fetched.
func (s *Simulation) Status() (string, error) {
	return s.GetString("status")
}

// Obat resolves the simulated obat.
func (s *Simulation) Obat(ctx context.Context) (*Obat, error) {
	rec, err := resolveField(ctx, s.Record, "obat_id", s.c.Obats)
	if err != nil || rec == nil {
		return nil, err
	}
	return s.c.ObatOf(rec), nil
}

// Geometry resolves the simulated geometry.
func (s *Simulation) Geometry(ctx context.Context) (*Geometry, error) {
	rec, err := resolveField(ctx, s.Record, "geometry_id", s.c.Geometries)
	if err != nil || rec == nil {
		return nil, err
	}
	return s.c.GeometryOf(rec), nil
}

// Weather resolves the simulated weather.
func (s *Simulation) Weather(ctx context.Context) (*Weather, error) {
	rec, err := resolveField(ctx, s.Record, "weather_id", s.c.Weathers)
	if err != nil || rec == nil {
		return nil, err
	}
	return s.c.WeatherOf(rec), nil
}

// WaitForCompletion reloads the simulation until its status is no longer
// "running". When logs is not nil, log lines that changed since the previous
// reload are written to it.
func (s *Simulation) WaitForCompletion(ctx context.Context, logs io.Writer) error {
	return s.WaitForCompletionEvery(ctx, s.c.simPollInterval, logs)
}

// WaitForCompletionEvery is WaitForCompletion with an explicit period.
func (s *Simulation) WaitForCompletionEvery(ctx context.Context, interval time.Duration, logs io.Writer) error {
	var seen []string
	for {
		if err := s.Reload(ctx); err != nil {
			return err
		}

		if logs != nil {
			current, _ := s.GetString("logs")
			lines := strings.Split(current, "\n")
			if current == "" {
				lines = nil
			}
			if fresh := newLogLines(seen, lines); fresh != "" {
				if _, err := fmt.Fprintln(logs, fresh); err != nil {
					return fmt.Errorf("failed to write simulation logs: %w", err)
				}
			}
			seen = lines
		}

		status, err := s.Status()
		if err != nil {
			return err
		}
		if status != StatusRunning {
			s.c.logger.Info("simulation finished", "simulation", s.ID(), "status", status)
			return nil
		}
		if err := task.Sleep(ctx, interval); err != nil {
			return err
		}
	}
}

// newLogLines returns the lines of current that differ, ignoring
// surrounding blanks, from the line at the same position in previous.
func newLogLines(previous, current []string) string {
	var b strings.Builder
	for i, line := range current {
		old := ""
		if i < len(previous) {
			old = previous[i]
		}
		if strings.TrimSpace(line) != strings.TrimSpace(old) {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return ""
	}
	return strings.Trim(b.String(), "\n")
}

// Result downloads a result table of the simulation (see SimulationResults).
func (s *Simulation) Result(ctx context.Context, name string) ([]byte, error) {
	return fetchResult(ctx, s.c, s.Record, SimulationResults, name)
}

// ResultTable is Result parsed as CSV.
func (s *Simulation) ResultTable(ctx context.Context, name string) (*Table, error) {
	data, err := s.Result(ctx, name)
	if err != nil {
		return nil, err
	}
	return ParseTable(data)
}

// HourlyCSV downloads the hourly outputs and returns the CSV inside the
// zip archive served by the platform.
func (s *Simulation) HourlyCSV(ctx context.Context) ([]byte, error) {
	data, err := s.c.importExport(s.Record).download(ctx, "hourly_csv")
	if err != nil {
		return nil, err
	}
	return unzipFirst(data)
}

// HourlyTable is HourlyCSV parsed as CSV. The first column holds
// timestamps formatted as "2006-01-02 15:04:05".
func (s *Simulation) HourlyTable(ctx context.Context) (*Table, error) {
	data, err := s.HourlyCSV(ctx)
	if err != nil {
		return nil, err
	}
	return ParseTable(data)
}

// HourlyColumns describes the hourly output series of the simulation.
func (s *Simulation) HourlyColumns(ctx context.Context) ([]Series, error) {
	viz, err := s.DetailAction(ctx, "generic_viz", http.MethodGet, nil, nil)
	if err != nil {
		return nil, err
	}
	container, _ := viz["container_url"].(string)
	sas, _ := viz["sas_token"].(string)
	if container == "" {
		return nil, fmt.Errorf("%s/generic_viz answered without container_url", s.Path())
	}

	data, err := s.c.transport.Download(ctx, container+"metadata.json?"+sas)
	if err != nil {
		return nil, fmt.Errorf("failed to download hourly metadata of %s: %w", s.Path(), err)
	}
	return parseSeriesMetadata(data)
}
