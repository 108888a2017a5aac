package simulations

import (
	"encoding/json"
	"flag"
	"fmt"
	"time"

	"github.com/araddon/dateparse"

	"github.com/openergy/oplus/internal/cmd/base"
	"github.com/openergy/oplus/pkg/oplus"
)

// AddCommand adds a simulation to a multi or generic group.
type AddCommand struct {
	*base.Command

	common            base.CommonFlags
	flagKind          string
	flagName          string
	flagWeather       string
	flagGeometry      string
	flagObat          string
	flagStart         string
	flagEnd           string
	flagVariant       string
	flagModifications string
	flagNFEN12831     bool
	flagReport        bool
}

func (c *AddCommand) Synopsis() string {
	return "Add a simulation to a multi or generic simulation group"
}

func (c *AddCommand) Help() string {
	return `Usage: oplus add-simulation [options] GROUP_ID

  Dates accept most common layouts ("2024-01-31", "01/31/2024",
  "31 January 2024"). The end day is included in the simulation.` + c.Flags().Help()
}

func (c *AddCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("add-simulation", flag.ContinueOnError))
	c.common.Register(f)
	f.StringVar(&c.flagKind, "kind", KindMulti, "Group kind: multi or generic.")
	f.StringVar(&c.flagName, "name", "", "Simulation name.")
	f.StringVar(&c.flagWeather, "weather", "", "Weather ID.")
	f.StringVar(&c.flagGeometry, "geometry", "", "Geometry ID.")
	f.StringVar(&c.flagObat, "obat", "", "Obat ID.")
	f.StringVar(&c.flagStart, "start", "", "First simulated day.")
	f.StringVar(&c.flagEnd, "end", "", "Last simulated day.")
	f.StringVar(&c.flagVariant, "variant", "", "Obat variant.")
	f.StringVar(&c.flagModifications, "modifications", "", "Substitute modifications as a JSON object (generic groups).")
	f.BoolVar(&c.flagNFEN12831, "nfen12831", false, "Output the NF EN 12831 detail.")
	f.BoolVar(&c.flagReport, "report", false, "Output the simulation report.")
	return f
}

// spec builds the simulation from the parsed flags.
func (c *AddCommand) spec() (oplus.SimulationSpec, error) {
	spec := oplus.SimulationSpec{
		Name:                   c.flagName,
		WeatherID:              c.flagWeather,
		GeometryID:             c.flagGeometry,
		ObatID:                 c.flagObat,
		Variant:                c.flagVariant,
		OutputsDetailNFEN12831: c.flagNFEN12831,
		OutputsReport:          c.flagReport,
	}

	var err error
	if spec.Start, err = parseDay("start", c.flagStart); err != nil {
		return spec, err
	}
	if spec.End, err = parseDay("end", c.flagEnd); err != nil {
		return spec, err
	}

	if c.flagModifications != "" {
		if c.flagKind != KindGeneric {
			return spec, fmt.Errorf("-modifications only applies to generic groups")
		}
		if err := json.Unmarshal([]byte(c.flagModifications), &spec.SubstituteModifications); err != nil {
			return spec, fmt.Errorf("invalid -modifications: %w", err)
		}
	}
	return spec, nil
}

func parseDay(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("-%s is required", name)
	}
	t, err := dateparse.ParseAny(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid -%s: %w", name, err)
	}
	return t, nil
}

func (c *AddCommand) Run(args []string) int {
	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		return c.Fail("error parsing flags: %v", err)
	}
	args = flags.Args()
	if len(args) != 1 {
		return c.Fail("expected GROUP_ID\n\n%s", c.Help())
	}

	spec, err := c.spec()
	if err != nil {
		return c.Fail("%v", err)
	}

	client, _, err := c.Client(c.common.Config)
	if err != nil {
		return c.Fail("%v", err)
	}
	defer client.Close()

	ctx, cancel := c.Context()
	defer cancel()

	group, err := adderFor(ctx, client, c.flagKind, args[0])
	if err != nil {
		return c.Fail("%v", err)
	}
	sim, err := group.AddSimulation(ctx, spec)
	if err != nil {
		return c.Fail("error adding simulation: %v", err)
	}

	if err := base.Print(c.UI, c.common.Format, sim.Fields()); err != nil {
		return c.Fail("%v", err)
	}
	return 0
}
