package transfer

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/openergy/oplus/internal/cmd/base"
	"github.com/openergy/oplus/pkg/oplus"
)

// Geometry exports.
const (
	GeometryOGW     = "ogw"
	GeometryThreeJS = "threejs"
	GeometrySource  = "source"
)

// ExportCommand downloads an asset into the configured artifact store.
type ExportCommand struct {
	*base.Command

	flagConfig       string
	flagKind         string
	flagDataFormat   string
	flagName         string
	flagCSVSeparator string
	flagCSVDecimal   string
}

func (c *ExportCommand) Synopsis() string {
	return "Export a geometry, floorspace, obat or weather"
}

func (c *ExportCommand) Help() string {
	return `Usage: oplus export [options] ID

  Exports the asset ID and writes it to the artifact store configured in
  the "artifacts" block (the current directory by default).

  Geometry formats are ogw, threejs and source. Obat formats are obat
  (JSON contents) and the platform export formats such as xlsx. Weather
  formats are epw, csv and ow.` + c.Flags().Help()
}

func (c *ExportCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("export", flag.ContinueOnError))
	f.StringVar(&c.flagConfig, "config", "", "Path to the HCL configuration file. Defaults to $OPLUS_CONFIG.")
	f.StringVar(&c.flagKind, "kind", KindGeometry, "Asset kind: geometry, floorspace, obat or weather.")
	f.StringVar(&c.flagDataFormat, "data-format", "", "Export format.")
	f.StringVar(&c.flagName, "name", "", "Artifact name. Defaults to ID.FORMAT.")
	f.StringVar(&c.flagCSVSeparator, "csv-separator", "", `Separator of csv weather exports (default ",").`)
	f.StringVar(&c.flagCSVDecimal, "csv-decimal", "", `Decimal mark of csv weather exports (default ".").`)
	return f
}

func (c *ExportCommand) Run(args []string) int {
	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		return c.Fail("error parsing flags: %v", err)
	}
	args = flags.Args()
	if len(args) != 1 {
		return c.Fail("expected ID\n\n%s", c.Help())
	}
	if err := checkKind(c.flagKind); err != nil {
		return c.Fail("%v", err)
	}
	id := args[0]

	client, cfg, err := c.Client(c.flagConfig)
	if err != nil {
		return c.Fail("%v", err)
	}
	defer client.Close()

	sink, err := c.Sink(cfg)
	if err != nil {
		return c.Fail("%v", err)
	}

	ctx, cancel := c.Context()
	defer cancel()

	data, ext, err := c.export(ctx, client, id)
	if err != nil {
		return c.Fail("error exporting %s %s: %v", c.flagKind, id, err)
	}

	name := c.flagName
	if name == "" {
		name = id + "." + ext
	}
	loc, err := sink.Put(ctx, name, data)
	if err != nil {
		return c.Fail("error writing %s: %v", name, err)
	}
	c.UI.Info(fmt.Sprintf("exported %s %s to %s", c.flagKind, id, loc))
	return 0
}

// export returns the exported bytes and a file extension for them.
func (c *ExportCommand) export(ctx context.Context, client *oplus.Client, id string) ([]byte, string, error) {
	format := c.flagDataFormat
	switch c.flagKind {
	case KindGeometry:
		g, err := client.Geometry(ctx, id)
		if err != nil {
			return nil, "", err
		}
		switch format {
		case GeometryOGW, "":
			data, err := g.DownloadOGW(ctx)
			return data, "json", err
		case GeometryThreeJS:
			data, err := g.DownloadThreeJS(ctx)
			return data, "json", err
		case GeometrySource:
			data, err := g.DownloadSource(ctx)
			return data, "source", err
		}
		return nil, "", fmt.Errorf("unknown geometry export %q", format)
	case KindFloorspace:
		f, err := floorspace(ctx, client, id)
		if err != nil {
			return nil, "", err
		}
		data, err := f.Download(ctx)
		return data, "json", err
	case KindObat:
		o, err := client.Obat(ctx, id)
		if err != nil {
			return nil, "", err
		}
		if format == "" || format == oplus.ObatFormatJSON {
			data, err := o.Download(ctx)
			return data, "json", err
		}
		data, err := o.Export(ctx, format)
		return data, format, err
	default:
		if format == "" {
			return nil, "", errors.New("a weather export format is required")
		}
		w, err := client.Weather(ctx, id)
		if err != nil {
			return nil, "", err
		}
		data, err := w.Export(ctx, format, oplus.CSVOptions{
			Separator: c.flagCSVSeparator,
			Decimal:   c.flagCSVDecimal,
		})
		return data, format, err
	}
}
