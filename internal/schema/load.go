package schema

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/matthewbaird/sitecontent/internal/types"
)

//go:embed registry.cue
var registrySource []byte

// Default returns the registry built from the embedded definitions. It is
// decoded on first use and shared afterwards.
var Default = sync.OnceValues(func() (*Registry, error) {
	return Load(registrySource)
})

// MustDefault is Default for callers that cannot continue without a registry.
func MustDefault() *Registry {
	r, err := Default()
	if err != nil {
		panic(err)
	}
	return r
}

// Load compiles CUE source containing a top-level "kinds" list and builds a
// registry from it.
func Load(src []byte) (*Registry, error) {
	ctx := cuecontext.New()
	val := ctx.CompileBytes(src, cue.Filename("registry.cue"))
	if err := val.Err(); err != nil {
		return nil, fmt.Errorf("compiling registry: %w", err)
	}
	if err := val.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validating registry: %w", err)
	}

	var kinds []*KindSchema
	if err := val.LookupPath(cue.ParsePath("kinds")).Decode(&kinds); err != nil {
		return nil, fmt.Errorf("decoding kinds: %w", err)
	}

	reg := NewRegistry()
	for _, ks := range kinds {
		if err := check(ks); err != nil {
			return nil, err
		}
		reg.Register(ks)
	}
	for _, k := range types.Kinds {
		if reg.Kind(k) == nil {
			return nil, fmt.Errorf("registry: kind %q not defined", k)
		}
	}
	return reg, nil
}

func check(ks *KindSchema) error {
	if !ks.Kind.Valid() {
		return fmt.Errorf("registry: unknown kind %q", ks.Kind)
	}
	if ks.Resource != ks.Kind.Resource() {
		return fmt.Errorf("registry: kind %q has resource %q, want %q", ks.Kind, ks.Resource, ks.Kind.Resource())
	}
	seen := make(map[string]bool, len(ks.Fields))
	for _, f := range ks.Fields {
		if seen[f.Key] {
			return fmt.Errorf("registry: %s.%s declared twice", ks.Kind, f.Key)
		}
		seen[f.Key] = true
		if !f.Type.Valid() {
			return fmt.Errorf("registry: %s.%s has unknown type %q", ks.Kind, f.Key, f.Type)
		}
		if f.Type == FieldSelect && len(f.Options) == 0 {
			return fmt.Errorf("registry: select field %s.%s has no options", ks.Kind, f.Key)
		}
		if f.Validation != nil && f.Type != FieldNumber {
			return fmt.Errorf("registry: %s.%s: bounds only apply to number fields", ks.Kind, f.Key)
		}
	}
	return nil
}
