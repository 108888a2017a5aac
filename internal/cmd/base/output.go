package base

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/cli"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Print writes v to ui in format.
func Print(ui cli.Ui, format string, v any) error {
	var (
		out []byte
		err error
	)
	switch format {
	case FormatJSON:
		out, err = json.MarshalIndent(v, "", "  ")
	case FormatYAML, "":
		out, err = yaml.Marshal(v)
	default:
		return fmt.Errorf("unknown output format %q (use %s or %s)", format, FormatJSON, FormatYAML)
	}
	if err != nil {
		return fmt.Errorf("error encoding output: %w", err)
	}
	ui.Output(strings.TrimRight(string(out), "\n"))
	return nil
}

// Writer adapts ui to io.Writer, one Output call per write.
type Writer struct {
	UI cli.Ui
}

func (w Writer) Write(p []byte) (int, error) {
	w.UI.Output(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
