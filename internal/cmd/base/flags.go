package base

import (
	"bytes"
	"flag"
	"fmt"
	"strings"
)

// FlagSet wraps a standard flag set with help rendering.
type FlagSet struct {
	*flag.FlagSet
}

// NewFlagSet wraps f. Errors are reported by the caller, not printed by the
// flag package.
func NewFlagSet(f *flag.FlagSet) *FlagSet {
	f.SetOutput(new(bytes.Buffer))
	f.Usage = func() {}
	return &FlagSet{FlagSet: f}
}

// Help renders the flags for a command's Help text.
func (f *FlagSet) Help() string {
	var b strings.Builder
	b.WriteString("\n\nOptions:\n")
	f.VisitAll(func(fl *flag.Flag) {
		fmt.Fprintf(&b, "\n  -%s", fl.Name)
		if name, _ := flag.UnquoteUsage(fl); name != "" {
			fmt.Fprintf(&b, "=<%s>", name)
		}
		fmt.Fprintf(&b, "\n      %s", fl.Usage)
		if fl.DefValue != "" && fl.DefValue != "false" {
			fmt.Fprintf(&b, " (default: %s)", fl.DefValue)
		}
		b.WriteString("\n")
	})
	return b.String()
}

// KeyValues collects repeated key=value flags.
type KeyValues []KeyValue

// KeyValue is one key=value pair.
type KeyValue struct {
	Key   string
	Value string
}

func (kv *KeyValues) String() string {
	parts := make([]string, 0, len(*kv))
	for _, p := range *kv {
		parts = append(parts, p.Key+"="+p.Value)
	}
	return strings.Join(parts, ",")
}

// Set implements flag.Value.
func (kv *KeyValues) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(k) == "" {
		return fmt.Errorf("expected key=value, got %q", s)
	}
	*kv = append(*kv, KeyValue{Key: strings.TrimSpace(k), Value: v})
	return nil
}

// CommonFlags are accepted by every command talking to the API.
type CommonFlags struct {
	Config string
	Format string
}

// Register adds the common flags to f.
func (c *CommonFlags) Register(f *FlagSet) {
	f.StringVar(&c.Config, "config", "", "Path to the HCL configuration file. Defaults to $OPLUS_CONFIG.")
	f.StringVar(&c.Format, "format", FormatYAML, "Output format: json or yaml.")
}
