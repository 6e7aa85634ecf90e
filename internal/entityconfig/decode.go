package entityconfig

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

var (
	fieldSetType = reflect.TypeOf(FieldSet{})
	policyType   = reflect.TypeOf(NestedPolicy{})
)

// allMarkers are the spellings accepted for "every field".
var allMarkers = map[string]bool{"all": true, "__all__": true}

// normalizeHook rewrites the shorthand forms of the fragment format into the shape of
// the target struct: a FieldSet may be a marker string or a list, and a NestedPolicy may
// be a plain boolean or a mapping whose enabled flag defaults to true.
func normalizeHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	switch to {
	case fieldSetType:
		switch v := data.(type) {
		case nil:
			return map[string]any{}, nil
		case string:
			if allMarkers[strings.ToLower(v)] {
				return map[string]any{"all": true}, nil
			}
			return map[string]any{"names": []any{v}}, nil
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok && allMarkers[strings.ToLower(s)] {
					return map[string]any{"all": true}, nil
				}
			}
			return map[string]any{"names": v}, nil
		case []string:
			return map[string]any{"names": v}, nil
		}
	case policyType:
		switch v := data.(type) {
		case nil:
			return map[string]any{"enabled": false}, nil
		case bool:
			return map[string]any{"enabled": v}, nil
		case map[string]any:
			if _, ok := v["enabled"]; ok {
				return v, nil
			}
			out := make(map[string]any, len(v)+1)
			for k, val := range v {
				out[k] = val
			}
			out["enabled"] = true
			return out, nil
		}
	}
	return data, nil
}

type decoder struct {
	validate *validator.Validate
}

func newDecoder() *decoder {
	return &decoder{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Decode turns a merged fragment into an EntityConfig and validates it.
func (d *decoder) Decode(raw map[string]any) (EntityConfig, error) {
	var cfg EntityConfig
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  mapstructure.DecodeHookFuncType(normalizeHook),
		ErrorUnused: true,
		Result:      &cfg,
	})
	if err != nil {
		return EntityConfig{}, fmt.Errorf("create decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return EntityConfig{}, fmt.Errorf("decode fragment: %w", err)
	}
	if err := d.validate.Struct(cfg); err != nil {
		return EntityConfig{}, fmt.Errorf("validate fragment: %w", err)
	}
	cfg.Relationships = foldLookupFields(cfg.Relationships)
	return cfg, nil
}

// foldLookupFields merges pk_lookup_fields and the pk lists of nested policies into each
// relationship's PK, keeping first-seen order.
func foldLookupFields(rels map[string]RelationshipConfig) map[string]RelationshipConfig {
	for name, rc := range rels {
		pk := slices.Clone(rc.PK)
		for _, extra := range [][]string{rc.PKLookupFields, rc.NestedCreation.PK, rc.NestedUpdates.PK} {
			for _, f := range extra {
				if !slices.Contains(pk, f) {
					pk = append(pk, f)
				}
			}
		}
		rc.PK = pk
		rc.PKLookupFields = nil
		rc.NestedCreation.Relationships = foldLookupFields(rc.NestedCreation.Relationships)
		rc.NestedUpdates.Relationships = foldLookupFields(rc.NestedUpdates.Relationships)
		rels[name] = rc
	}
	return rels
}
