package oplus

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/openergy/oplus/pkg/record"
)

// Weather formats.
const (
	WeatherFormatGeneric            = "generic"
	WeatherFormatHistorical         = "historical"
	WeatherFormatOpenergyHistorical = "openergy_historical"

	// WeatherFileOW is the native weather file format, imported on the
	// weather itself rather than on its series.
	WeatherFileOW = "ow"
)

// CSVOptions describes the layout of csv weather files. Zero values mean
// "," and ".".
type CSVOptions struct {
	Separator string
	Decimal   string
}

func (o CSVOptions) params() map[string]any {
	sep, dec := o.Separator, o.Decimal
	if sep == "" {
		sep = ","
	}
	if dec == "" {
		dec = "."
	}
	return map[string]any{"csv_separator": sep, "csv_decimal": dec}
}

// Weather is a weather file attached to a project.
type Weather struct {
	importExport
}

// WeatherOf returns a typed view of rec.
func (c *Client) WeatherOf(rec *record.Record) *Weather {
	return &Weather{importExport: c.importExport(rec)}
}

// Weather retrieves weather id.
func (c *Client) Weather(ctx context.Context, id string) (*Weather, error) {
	rec, err := c.Weathers.Retrieve(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	return c.WeatherOf(rec), nil
}

// WeatherSeries holds the time series of a weather.
type WeatherSeries struct {
	importExport
}

// Series resolves the series matching the weather format.
func (w *Weather) Series(ctx context.Context) (*WeatherSeries, error) {
	format, err := w.GetString("format")
	if err != nil {
		return nil, err
	}

	var (
		field string
		ep    *record.Endpoint
	)
	switch format {
	case WeatherFormatGeneric:
		field, ep = "generic_weather_series", w.c.GenericWeatherSeries
	case WeatherFormatHistorical:
		field, ep = "historical_weather_series", w.c.HistoricalWeatherSeries
	case WeatherFormatOpenergyHistorical:
		field, ep = "openergy_historical_weather_series", w.c.OpenergyHistoricalWeatherSeries
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownWeatherFormat, format)
	}

	ref, err := w.Ref(field)
	if err != nil {
		return nil, err
	}
	rec, err := ep.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("weather %s has no %s", w.ID(), field)
	}
	return &WeatherSeries{importExport: w.c.importExport(rec)}, nil
}

// ImportFile imports src, one of "ow", "csv" or "epw". csv is only used for
// the csv format.
func (w *Weather) ImportFile(ctx context.Context, src io.Reader, format string, csv CSVOptions) error {
	if format == "" {
		format = WeatherFileOW
	}
	if format == WeatherFileOW {
		if err := w.upload(ctx, src, actionUploadURL); err != nil {
			return err
		}
		return w.importData(ctx, format, nil)
	}

	series, err := w.Series(ctx)
	if err != nil {
		return err
	}
	if err := series.upload(ctx, src, actionUploadURL); err != nil {
		return err
	}
	return series.importData(ctx, format, csv.params())
}

// Export converts the weather to format ("ow", "csv" or "epw").
func (w *Weather) Export(ctx context.Context, format string, csv CSVOptions) ([]byte, error) {
	if format == WeatherFileOW {
		return w.export(ctx, format, nil)
	}
	series, err := w.Series(ctx)
	if err != nil {
		return nil, err
	}
	return series.export(ctx, format, csv.params())
}

// ClearSeries empties the weather series.
func (w *Weather) ClearSeries(ctx context.Context) error {
	series, err := w.Series(ctx)
	if err != nil {
		return err
	}
	_, err = series.DetailAction(ctx, "clear", http.MethodDelete, nil, nil)
	return err
}
