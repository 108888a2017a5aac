package transfer

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/openergy/oplus/internal/cmd/base"
	"github.com/openergy/oplus/pkg/oplus"
)

// ImportCommand uploads a local file into an asset.
type ImportCommand struct {
	*base.Command

	flagConfig       string
	flagKind         string
	flagDataFormat   string
	flagCSVSeparator string
	flagCSVDecimal   string
	flagFromStore    bool
}

func (c *ImportCommand) Synopsis() string {
	return "Import a file into a geometry, floorspace, obat or weather"
}

func (c *ImportCommand) Help() string {
	return `Usage: oplus import [options] ID FILE

  Uploads FILE and imports it into the asset ID, waiting for the import
  task when the platform creates one.

  With -from-store, FILE names an artifact of the configured stores: the
  artifacts local_dir first, then the S3 bucket.` + c.Flags().Help()
}

func (c *ImportCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("import", flag.ContinueOnError))
	f.StringVar(&c.flagConfig, "config", "", "Path to the HCL configuration file. Defaults to $OPLUS_CONFIG.")
	f.StringVar(&c.flagKind, "kind", KindGeometry, "Asset kind: geometry, floorspace, obat or weather.")
	f.StringVar(&c.flagDataFormat, "data-format", "", "Format of FILE, e.g. idf, gbxml, obat, xlsx, epw, csv, ow.")
	f.StringVar(&c.flagCSVSeparator, "csv-separator", "", `Separator of csv weather files (default ",").`)
	f.StringVar(&c.flagCSVDecimal, "csv-decimal", "", `Decimal mark of csv weather files (default ".").`)
	f.BoolVar(&c.flagFromStore, "from-store", false, "Read FILE from the configured artifact stores.")
	return f
}

func (c *ImportCommand) Run(args []string) int {
	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		return c.Fail("error parsing flags: %v", err)
	}
	args = flags.Args()
	if len(args) != 2 {
		return c.Fail("expected ID FILE\n\n%s", c.Help())
	}
	if err := checkKind(c.flagKind); err != nil {
		return c.Fail("%v", err)
	}
	id, path := args[0], args[1]

	client, cfg, err := c.Client(c.flagConfig)
	if err != nil {
		return c.Fail("%v", err)
	}
	defer client.Close()

	ctx, cancel := c.Context()
	defer cancel()

	var src io.ReadCloser
	if c.flagFromStore {
		src, err = c.OpenArtifact(ctx, cfg, path)
	} else {
		src, err = c.Open(path)
	}
	if err != nil {
		return c.Fail("%v", err)
	}
	defer src.Close()

	if err := c.importFile(ctx, client, id, src); err != nil {
		return c.Fail("error importing %s: %v", path, err)
	}
	c.UI.Info(fmt.Sprintf("imported %s into %s %s", path, c.flagKind, id))
	return 0
}

func (c *ImportCommand) importFile(ctx context.Context, client *oplus.Client, id string, src io.Reader) error {
	switch c.flagKind {
	case KindGeometry:
		g, err := client.Geometry(ctx, id)
		if err != nil {
			return err
		}
		return g.ImportFile(ctx, src, c.flagDataFormat)
	case KindFloorspace:
		f, err := floorspace(ctx, client, id)
		if err != nil {
			return err
		}
		return f.Upload(ctx, src)
	case KindObat:
		o, err := client.Obat(ctx, id)
		if err != nil {
			return err
		}
		return o.ImportFile(ctx, src, c.flagDataFormat)
	default:
		w, err := client.Weather(ctx, id)
		if err != nil {
			return err
		}
		return w.ImportFile(ctx, src, c.flagDataFormat, oplus.CSVOptions{
			Separator: c.flagCSVSeparator,
			Decimal:   c.flagCSVDecimal,
		})
	}
}
