package oplus

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/openergy/oplus/pkg/record"
)

// SimulationResults are the result tables served per simulation.
var SimulationResults = []string{
	"out_envelope",
	"out_monthly_comfort",
	"out_monthly_comfort_indicators",
	"out_monthly_consumption",
	"out_monthly_miscellaneous",
	"out_monthly_thermal_balance",
	"out_monthly_weather",
	"out_zones",
}

// GroupResults are the result tables aggregated over a multi simulation
// group.
var GroupResults = []string{
	"out_envelope",
	"out_monthly_comfort_all",
	"out_monthly_comfort_indicators",
	"out_monthly_comfort_occ",
	"out_monthly_consumption_ef",
	"out_monthly_consumption_ep",
	"out_monthly_weather",
	"out_zones",
}

// fetchResult downloads result name of rec, which must have finished
// successfully.
func fetchResult(ctx context.Context, c *Client, rec *record.Record, allowed []string, name string) ([]byte, error) {
	if !slices.Contains(allowed, name) {
		return nil, fmt.Errorf("unknown result %q, expected one of: %s", name, strings.Join(allowed, ", "))
	}
	status, err := rec.GetString("status")
	if err != nil {
		return nil, err
	}
	if status != StatusSuccess {
		return nil, fmt.Errorf("%w, however its status is %q", ErrResultsUnavailable, status)
	}
	return c.importExport(rec).download(ctx, name)
}

// Table is a CSV result.
type Table struct {
	Header []string
	Rows   [][]string
}

// ParseTable reads CSV data whose first row is the header.
func ParseTable(data []byte) (*Table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse result table: %w", err)
	}
	if len(rows) == 0 {
		return &Table{}, nil
	}
	return &Table{Header: rows[0], Rows: rows[1:]}, nil
}

// Column returns the values of column name.
func (t *Table) Column(name string) ([]string, error) {
	idx := slices.Index(t.Header, name)
	if idx < 0 {
		return nil, fmt.Errorf("column %q not found", name)
	}
	out := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		if idx < len(row) {
			out = append(out, row[idx])
		} else {
			out = append(out, "")
		}
	}
	return out, nil
}

func unzipFirst(data []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open hourly archive: %w", err)
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, errors.New("hourly archive is empty")
}

// Series describes one hourly output series.
type Series struct {
	Topic          string `json:"topic"`
	Name           string `json:"name"`
	OZG            string `json:"ozg"`
	AZG            string `json:"azg"`
	Zone           string `json:"zone"`
	Unit           string `json:"unit"`
	EnergyType     string `json:"energy_type"`
	EnergyCategory string `json:"energy_category"`
	Use            string `json:"use"`
}

// Ref identifies the series in hourly tables: its keys joined by "|", with
// absent keys left empty.
func (s Series) Ref() string {
	return strings.Join([]string{
		s.Topic, s.Name, s.OZG, s.AZG, s.Zone, s.Unit, s.EnergyType, s.EnergyCategory, s.Use,
	}, "|")
}

func parseSeriesMetadata(data []byte) ([]Series, error) {
	var meta struct {
		Series []Series `json:"series"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode hourly metadata: %w", err)
	}
	return meta.Series, nil
}
