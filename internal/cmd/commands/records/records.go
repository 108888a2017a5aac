// Package records implements the generic get, update and delete commands.
package records

import (
	"encoding/json"
	"net/url"

	"github.com/iancoleman/strcase"

	"github.com/openergy/oplus/internal/cmd/base"
)

// fieldsFromFlags turns -set pairs into a PATCH body. Keys are snake_cased
// and values are read as JSON when they parse, as strings otherwise.
func fieldsFromFlags(kvs base.KeyValues) map[string]any {
	fields := make(map[string]any, len(kvs))
	for _, kv := range kvs {
		var v any
		if err := json.Unmarshal([]byte(kv.Value), &v); err != nil {
			v = kv.Value
		}
		fields[strcase.ToSnake(kv.Key)] = v
	}
	return fields
}

func filterFromFlags(kvs base.KeyValues) url.Values {
	if len(kvs) == 0 {
		return nil
	}
	filter := url.Values{}
	for _, kv := range kvs {
		filter.Add(strcase.ToSnake(kv.Key), kv.Value)
	}
	return filter
}
