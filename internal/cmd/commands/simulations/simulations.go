// Package simulations implements the commands driving simulation groups.
package simulations

import (
	"context"
	"fmt"

	"github.com/openergy/oplus/pkg/oplus"
)

// Group kinds accepted by -kind.
const (
	KindMono    = "mono"
	KindMulti   = "multi"
	KindGeneric = "generic"
)

// simulationAdder is satisfied by multi and generic groups.
type simulationAdder interface {
	AddSimulation(ctx context.Context, spec oplus.SimulationSpec) (*oplus.Simulation, error)
}

func adderFor(ctx context.Context, client *oplus.Client, kind, id string) (simulationAdder, error) {
	switch kind {
	case KindMulti:
		return client.MultiSimulationGroup(ctx, id)
	case KindGeneric:
		return client.GenericSimulationGroup(ctx, id)
	case KindMono:
		return nil, fmt.Errorf("adding simulations to %s groups: %w", kind, oplus.ErrUnsupportedGroup)
	}
	return nil, fmt.Errorf("unknown group kind %q", kind)
}
