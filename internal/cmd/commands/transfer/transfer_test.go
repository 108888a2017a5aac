package transfer

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openergy/oplus/internal/cmd/base/basetest"
	"github.com/openergy/oplus/pkg/transport/transporttest"
)

const (
	obatPath     = "ossbat/obats/o1"
	geometryPath = "ossgeometry/geometries/g1"
	blobIn       = "https://blob.example.com/in"
	blobOut      = "https://blob.example.com/out"
)

func TestImport_Obat(t *testing.T) {
	env := basetest.New(t)
	require.NoError(t, afero.WriteFile(env.Fs, "/data/building.xlsx", []byte("xlsx bytes"), 0o644))
	env.Fake.
		On(http.MethodGet, obatPath, transporttest.JSON(map[string]any{"id": "o1"})).
		On(http.MethodGet, obatPath+"/upload_url", transporttest.JSON(map[string]any{"blob_url": blobIn})).
		On(http.MethodPatch, obatPath+"/import_data", transporttest.JSON(map[string]any{"user_task": "t1"})).
		On(http.MethodGet, "osstasks/user_tasks/t1", transporttest.JSON(map[string]any{"finished": true, "status_code": 200}))

	code := (&ImportCommand{Command: env.Command}).Run([]string{
		"-kind", "obat", "-data-format", "xlsx", "o1", "/data/building.xlsx",
	})

	require.Equal(t, 0, code, env.Errors())
	data, ok := env.Fake.Blob(blobIn)
	require.True(t, ok)
	assert.Equal(t, "xlsx bytes", string(data))
	assert.Contains(t, env.Output(), "imported /data/building.xlsx into obat o1")
}

func TestImport_FromStore(t *testing.T) {
	env := basetest.New(t)
	cfgPath := filepath.Join(t.TempDir(), "oplus.hcl")
	require.NoError(t, os.WriteFile(cfgPath, []byte("artifacts {\n  local_dir = \"/store\"\n}\n"), 0o600))
	require.NoError(t, afero.WriteFile(env.Fs, "/store/plans/building.xlsx", []byte("stored xlsx"), 0o644))
	env.Fake.
		On(http.MethodGet, obatPath, transporttest.JSON(map[string]any{"id": "o1"})).
		On(http.MethodGet, obatPath+"/upload_url", transporttest.JSON(map[string]any{"blob_url": blobIn})).
		On(http.MethodPatch, obatPath+"/import_data", transporttest.NoContent())

	code := (&ImportCommand{Command: env.Command}).Run([]string{
		"-config", cfgPath, "-from-store", "-kind", "obat", "-data-format", "xlsx", "o1", "plans/building.xlsx",
	})

	require.Equal(t, 0, code, env.Errors())
	data, ok := env.Fake.Blob(blobIn)
	require.True(t, ok)
	assert.Equal(t, "stored xlsx", string(data))
}

func TestImport_FromStoreMissing(t *testing.T) {
	env := basetest.New(t)
	cfgPath := filepath.Join(t.TempDir(), "oplus.hcl")
	require.NoError(t, os.WriteFile(cfgPath, []byte("artifacts {\n  local_dir = \"/store\"\n}\n"), 0o600))
	require.NoError(t, afero.WriteFile(env.Fs, "plans/building.xlsx", []byte("cwd copy"), 0o644))

	code := (&ImportCommand{Command: env.Command}).Run([]string{
		"-config", cfgPath, "-from-store", "-kind", "obat", "o1", "plans/building.xlsx",
	})

	assert.Equal(t, 1, code)
	assert.Contains(t, env.Errors(), "/store/plans/building.xlsx")
	assert.Empty(t, env.Fake.Calls())
}

func TestImport_MissingFile(t *testing.T) {
	env := basetest.New(t)

	code := (&ImportCommand{Command: env.Command}).Run([]string{"-kind", "obat", "o1", "/nope.xlsx"})

	assert.Equal(t, 1, code)
	assert.Empty(t, env.Fake.Calls())
}

func TestImport_UnknownKind(t *testing.T) {
	env := basetest.New(t)

	code := (&ImportCommand{Command: env.Command}).Run([]string{"-kind", "building", "o1", "f"})

	assert.Equal(t, 1, code)
	assert.Contains(t, env.Errors(), `unknown kind "building"`)
}

func TestImport_GeometryNeedsFormat(t *testing.T) {
	env := basetest.New(t)
	require.NoError(t, afero.WriteFile(env.Fs, "model.idf", []byte("idf"), 0o644))
	env.Fake.On(http.MethodGet, geometryPath, transporttest.JSON(map[string]any{"id": "g1", "format": "import"}))

	code := (&ImportCommand{Command: env.Command}).Run([]string{"g1", "model.idf"})

	assert.Equal(t, 1, code)
	assert.Contains(t, env.Errors(), "format must be specified")
}

func TestExport_ObatToLocalDir(t *testing.T) {
	env := basetest.New(t)
	env.Fake.
		On(http.MethodGet, obatPath, transporttest.JSON(map[string]any{"id": "o1"})).
		On(http.MethodGet, obatPath+"/export_data", transporttest.JSON(map[string]any{"user_task": "t2"})).
		On(http.MethodGet, "osstasks/user_tasks/t2",
			transporttest.JSON(map[string]any{"finished": false}),
			transporttest.JSON(map[string]any{"finished": true, "status_code": 200, "data": map[string]any{"blob_url": blobOut}}),
		)
	env.Fake.SetBlob(blobOut, []byte("exported"))

	code := (&ExportCommand{Command: env.Command}).Run([]string{"-kind", "obat", "-data-format", "xlsx", "o1"})

	require.Equal(t, 0, code, env.Errors())
	data, err := afero.ReadFile(env.Fs, "o1.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "exported", string(data))
}

func TestExport_GeometryOGWWithName(t *testing.T) {
	env := basetest.New(t)
	env.Fake.
		On(http.MethodGet, geometryPath, transporttest.JSON(map[string]any{"id": "g1", "format": "import", "empty": false})).
		On(http.MethodGet, geometryPath+"/blob_url", transporttest.JSON(map[string]any{"blob_url": blobOut}))
	env.Fake.SetBlob(blobOut, []byte(`{"zones":[]}`))

	code := (&ExportCommand{Command: env.Command}).Run([]string{"-name", "house.ogw.json", "g1"})

	require.Equal(t, 0, code, env.Errors())
	data, err := afero.ReadFile(env.Fs, "house.ogw.json")
	require.NoError(t, err)
	assert.Equal(t, `{"zones":[]}`, string(data))
}

func TestExport_WeatherNeedsFormat(t *testing.T) {
	env := basetest.New(t)

	code := (&ExportCommand{Command: env.Command}).Run([]string{"-kind", "weather", "w1"})

	assert.Equal(t, 1, code)
	assert.Contains(t, env.Errors(), "weather export format is required")
	assert.Empty(t, env.Fake.Calls())
}
