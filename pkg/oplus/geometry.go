package oplus

import (
	"context"
	"fmt"
	"io"

	"github.com/openergy/oplus/pkg/record"
)

// Geometry is a building geometry, either drawn in a floorspace or imported
// from a file.
type Geometry struct {
	importExport
}

// GeometryOf returns a typed view of rec.
func (c *Client) GeometryOf(rec *record.Record) *Geometry {
	return &Geometry{importExport: c.importExport(rec)}
}

// Geometry retrieves geometry id.
func (c *Client) Geometry(ctx context.Context, id string) (*Geometry, error) {
	rec, err := c.Geometries.Retrieve(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	return c.GeometryOf(rec), nil
}

// Floorspace resolves the floorspace attached to the geometry, or nil.
func (g *Geometry) Floorspace(ctx context.Context) (*Floorspace, error) {
	ref, err := g.Ref("floorspace")
	if err != nil {
		return nil, err
	}
	rec, err := g.c.Floorspaces.Resolve(ctx, ref)
	if err != nil || rec == nil {
		return nil, err
	}
	return g.c.FloorspaceOf(rec), nil
}

// ImportFile uploads src and imports it. Floorspace geometries always go
// through their floorspace and ignore format; other geometries need one of
// "idf", "gbxml" or "ogw".
func (g *Geometry) ImportFile(ctx context.Context, src io.Reader, format string) error {
	kind, err := g.GetString("format")
	if err != nil {
		return err
	}

	if kind == GeometryFormatFloorspace {
		fs, err := g.Floorspace(ctx)
		if err != nil {
			return err
		}
		if fs == nil {
			return fmt.Errorf("geometry %s has no floorspace", g.ID())
		}
		if err := fs.Upload(ctx, src); err != nil {
			return err
		}
		return g.importData(ctx, GeometryFormatFloorspace, nil)
	}

	if format == "" {
		return ErrFormatRequired
	}
	if err := g.upload(ctx, src, actionUploadURL); err != nil {
		return err
	}
	return g.importData(ctx, format, nil)
}

// DownloadOGW returns the geometry in Openergy Geometry Wireframe format.
func (g *Geometry) DownloadOGW(ctx context.Context) ([]byte, error) {
	return g.downloadNonEmpty(ctx, actionBlobURL)
}

// DownloadThreeJS returns the geometry as a three.js scene.
func (g *Geometry) DownloadThreeJS(ctx context.Context) ([]byte, error) {
	return g.downloadNonEmpty(ctx, "threejs_blob_url")
}

// DownloadSource returns the file the geometry was imported from.
func (g *Geometry) DownloadSource(ctx context.Context) ([]byte, error) {
	return g.downloadNonEmpty(ctx, "source_blob_url")
}

func (g *Geometry) downloadNonEmpty(ctx context.Context, action string) ([]byte, error) {
	if err := g.checkEmpty(ctx); err != nil {
		return nil, err
	}
	return g.download(ctx, action)
}

// checkEmpty reloads once if the geometry looks empty, since an import may
// have completed since it was fetched.
func (g *Geometry) checkEmpty(ctx context.Context) error {
	empty, err := g.GetBool("empty")
	if err != nil || !empty {
		return err
	}
	if err := g.Reload(ctx); err != nil {
		return err
	}
	empty, err = g.GetBool("empty")
	if err != nil {
		return err
	}
	if empty {
		return fmt.Errorf("%w: %s", ErrEmptyGeometry, g.ID())
	}
	return nil
}

// Floorspace holds the drawing of a floorspace geometry.
type Floorspace struct {
	importExport
}

// FloorspaceOf returns a typed view of rec.
func (c *Client) FloorspaceOf(rec *record.Record) *Floorspace {
	return &Floorspace{importExport: c.importExport(rec)}
}

// Upload replaces the floorspace drawing.
func (f *Floorspace) Upload(ctx context.Context, src io.Reader) error {
	return f.upload(ctx, src, actionUploadURL)
}

// Download returns the floorspace drawing.
func (f *Floorspace) Download(ctx context.Context) ([]byte, error) {
	return f.download(ctx, "read_blob_url")
}
