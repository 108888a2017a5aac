// Package transfer implements the import and export commands for geometries,
// floorspaces, obats and weathers.
package transfer

import (
	"context"
	"fmt"
	"strings"

	"github.com/openergy/oplus/pkg/oplus"
)

// Asset kinds accepted by -kind.
const (
	KindGeometry   = "geometry"
	KindFloorspace = "floorspace"
	KindObat       = "obat"
	KindWeather    = "weather"
)

var kinds = []string{KindGeometry, KindFloorspace, KindObat, KindWeather}

func checkKind(kind string) error {
	for _, k := range kinds {
		if k == kind {
			return nil
		}
	}
	return fmt.Errorf("unknown kind %q, expected one of %s", kind, strings.Join(kinds, ", "))
}

// floorspace retrieves the floorspace record directly.
func floorspace(ctx context.Context, client *oplus.Client, id string) (*oplus.Floorspace, error) {
	rec, err := client.Floorspaces.Retrieve(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	return client.FloorspaceOf(rec), nil
}
