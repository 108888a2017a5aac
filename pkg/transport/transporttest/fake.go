// Package transporttest provides a scripted in-memory transport for tests of
// code built on transport.Requester and transport.BlobStore.
package transporttest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/openergy/oplus/pkg/transport"
)

// Reply is one scripted answer.
type Reply struct {
	Status int
	Body   any
	Err    error
}

// JSON answers 200 with body encoded as JSON.
func JSON(body any) Reply {
	return Reply{Status: http.StatusOK, Body: body}
}

// NoContent answers 204.
func NoContent() Reply {
	return Reply{Status: http.StatusNoContent}
}

// Status answers with an arbitrary status; non-2xx become *transport.HTTPError.
func Status(code int, body any) Reply {
	return Reply{Status: code, Body: body}
}

// Fail makes the request itself fail with err.
func Fail(err error) Reply {
	return Reply{Err: err}
}

// Call is a recorded request.
type Call struct {
	Method string
	Path   string
	Body   any
	Query  url.Values
}

// Fake implements transport.Requester and transport.BlobStore. Replies for a
// route are consumed in order; the last one repeats.
type Fake struct {
	mu        sync.Mutex
	routes    map[string][]Reply
	blobs     map[string][]byte
	calls     []Call
	uploads   []string
	downloads []string
}

var (
	_ transport.Requester = (*Fake)(nil)
	_ transport.BlobStore = (*Fake)(nil)
)

// New creates an empty fake.
func New() *Fake {
	return &Fake{
		routes: make(map[string][]Reply),
		blobs:  make(map[string][]byte),
	}
}

func key(method, path string) string {
	return strings.ToUpper(method) + " " + strings.Trim(path, "/")
}

// On scripts replies for method and path.
func (f *Fake) On(method, path string, replies ...Reply) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := key(method, path)
	f.routes[k] = append(f.routes[k], replies...)
	return f
}

// SetBlob stores content served by Download.
func (f *Fake) SetBlob(blobURL string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[blobURL] = data
}

// Blob returns content previously uploaded to blobURL.
func (f *Fake) Blob(blobURL string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.blobs[blobURL]
	return b, ok
}

// Calls returns recorded API calls.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Count returns how many times method and path were requested.
func (f *Fake) Count(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := key(method, path)
	n := 0
	for _, c := range f.calls {
		if key(c.Method, c.Path) == k {
			n++
		}
	}
	return n
}

// Uploads returns the blob URLs uploaded to, in order.
func (f *Fake) Uploads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.uploads...)
}

// Downloads returns the blob URLs downloaded from, in order.
func (f *Fake) Downloads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.downloads...)
}

// Request implements transport.Requester.
func (f *Fake) Request(ctx context.Context, method, path string, body any, query url.Values) (*transport.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, Call{Method: strings.ToUpper(method), Path: strings.Trim(path, "/"), Body: normalize(body), Query: query})

	k := key(method, path)
	replies := f.routes[k]
	if len(replies) == 0 {
		return nil, &transport.HTTPError{Method: strings.ToUpper(method), URL: path, StatusCode: http.StatusNotFound, Body: []byte(`{"detail":"no scripted reply"}`)}
	}
	reply := replies[0]
	if len(replies) > 1 {
		f.routes[k] = replies[1:]
	}

	if reply.Err != nil {
		return nil, reply.Err
	}

	var raw []byte
	switch b := reply.Body.(type) {
	case nil:
	case string:
		raw = []byte(b)
	case []byte:
		raw = b
	default:
		var err error
		raw, err = json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("transporttest: cannot encode reply: %w", err)
		}
	}

	if reply.Status < 200 || reply.Status >= 300 {
		return nil, &transport.HTTPError{Method: strings.ToUpper(method), URL: path, StatusCode: reply.Status, Body: raw}
	}

	return &transport.Response{StatusCode: reply.Status, Body: raw}, nil
}

// Upload implements transport.BlobStore.
func (f *Fake) Upload(ctx context.Context, blobURL string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[blobURL] = data
	f.uploads = append(f.uploads, blobURL)
	return nil
}

// Download implements transport.BlobStore.
func (f *Fake) Download(ctx context.Context, blobURL string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads = append(f.downloads, blobURL)
	data, ok := f.blobs[blobURL]
	if !ok {
		return nil, &transport.HTTPError{Method: http.MethodGet, URL: blobURL, StatusCode: http.StatusNotFound}
	}
	return bytes.Clone(data), nil
}

// normalize round-trips body through JSON so tests compare plain values.
func normalize(body any) any {
	if body == nil {
		return nil
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return body
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return body
	}
	return out
}
