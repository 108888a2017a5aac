package oplus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/openergy/oplus/pkg/record"
)

// ObatFormatJSON is the native obat format, sent as JSON content rather
// than through a blob.
const ObatFormatJSON = "obat"

// Obat is a building description (constructions, systems, schedules).
type Obat struct {
	importExport
}

// ObatOf returns a typed view of rec.
func (c *Client) ObatOf(rec *record.Record) *Obat {
	return &Obat{importExport: c.importExport(rec)}
}

// Obat retrieves obat id.
func (c *Client) Obat(ctx context.Context, id string) (*Obat, error) {
	rec, err := c.Obats.Retrieve(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	return c.ObatOf(rec), nil
}

// ImportFile imports src. The "obat" format replaces the obat contents
// directly; other formats ("xlsx") are uploaded and imported.
func (o *Obat) ImportFile(ctx context.Context, src io.Reader, format string) error {
	if format == "" {
		format = ObatFormatJSON
	}
	if format != ObatFormatJSON {
		if err := o.upload(ctx, src, actionUploadURL); err != nil {
			return err
		}
		return o.importData(ctx, format, nil)
	}

	var content map[string]any
	if err := json.NewDecoder(src).Decode(&content); err != nil {
		return fmt.Errorf("failed to decode obat content: %w", err)
	}
	contents := o.c.ObatContents.FromFields(map[string]any{"id": o.ID()})
	if err := contents.Replace(ctx, content); err != nil {
		return err
	}
	o.c.logger.Info("obat content replaced", "obat", o.ID())
	return nil
}

// Download returns the obat as JSON.
func (o *Obat) Download(ctx context.Context) ([]byte, error) {
	return o.download(ctx, actionBlobURL)
}

// Export converts the obat to format (only "xlsx" is served).
func (o *Obat) Export(ctx context.Context, format string) ([]byte, error) {
	return o.export(ctx, format, nil)
}
