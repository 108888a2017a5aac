package oplus

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/openergy/oplus/pkg/record"
	"github.com/openergy/oplus/pkg/task"
	"github.com/openergy/oplus/pkg/transport"
)

// Default detail actions of import/export capable records.
const (
	actionUploadURL  = "upload_url"
	actionBlobURL    = "blob_url"
	actionImportData = "import_data"
	actionExportData = "export_data"
)

// importExport adds blob transfer and import/export orchestration to a
// record.
type importExport struct {
	*record.Record
	c *Client
}

func (c *Client) importExport(rec *record.Record) importExport {
	return importExport{Record: rec, c: c}
}

// blobURL asks the record for a pre-signed URL through action.
func (r importExport) blobURL(ctx context.Context, action string) (string, error) {
	body, err := r.DetailAction(ctx, action, http.MethodGet, nil, nil)
	if err != nil {
		return "", err
	}
	u, ok := body["blob_url"].(string)
	if !ok || u == "" {
		return "", fmt.Errorf("%s/%s answered without blob_url", r.Path(), action)
	}
	return u, nil
}

func (r importExport) upload(ctx context.Context, src io.Reader, action string) error {
	u, err := r.blobURL(ctx, action)
	if err != nil {
		return err
	}
	if err := r.c.transport.Upload(ctx, u, src); err != nil {
		return fmt.Errorf("failed to upload to %s: %w", r.Path(), err)
	}
	r.c.logger.Debug("uploaded blob", "record", r.Path(), "action", action)
	return nil
}

func (r importExport) download(ctx context.Context, action string) ([]byte, error) {
	u, err := r.blobURL(ctx, action)
	if err != nil {
		return nil, err
	}
	data, err := r.c.transport.Download(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("failed to download from %s: %w", r.Path(), err)
	}
	return data, nil
}

// importData asks the server to ingest the uploaded blob. The server may
// answer synchronously, in which case nothing is polled.
func (r importExport) importData(ctx context.Context, format string, extra map[string]any) error {
	body := map[string]any{"import_format": format}
	for k, v := range extra {
		body[k] = v
	}

	resp, err := r.DetailAction(ctx, actionImportData, http.MethodPatch, body, nil)
	if err != nil {
		return err
	}
	taskID, ok := task.IDFromResponse(resp)
	if !ok {
		r.c.logger.Debug("import finished synchronously", "record", r.Path())
		return nil
	}

	r.c.logger.Info("waiting for import", "record", r.Path(), "format", format, "task_id", taskID)
	h := r.c.Task(taskID)
	if _, err := h.WaitForCompletion(ctx, r.c.pollInterval); err != nil {
		return err
	}
	return h.Err("import")
}

// export asks the server for an export, waits for it and downloads the
// produced blob.
func (r importExport) export(ctx context.Context, format string, params map[string]any) ([]byte, error) {
	query := transport.Params(params)
	if format != "" {
		query.Set("export_format", format)
	}

	resp, err := r.DetailAction(ctx, actionExportData, http.MethodGet, nil, query)
	if err != nil {
		return nil, err
	}
	taskID, ok := task.IDFromResponse(resp)
	if !ok {
		return nil, fmt.Errorf("export of %s: %w", r.Path(), ErrNoTask)
	}

	r.c.logger.Info("waiting for export", "record", r.Path(), "format", format, "task_id", taskID)
	h := r.c.Task(taskID)
	if _, err := h.WaitForCompletion(ctx, r.c.pollInterval); err != nil {
		return nil, err
	}
	if err := h.Err("export"); err != nil {
		return nil, err
	}

	u, err := h.ResultBlobURL()
	if err != nil {
		return nil, err
	}
	data, err := r.c.transport.Download(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("failed to download export of %s: %w", r.Path(), err)
	}
	return data, nil
}
