package config

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE []byte

var (
	schemaOnce  sync.Once
	schemaValue cue.Value
	schemaErr   error
)

// schema compiles the embedded schema once per process.
func schema() (cue.Value, error) {
	schemaOnce.Do(func() {
		ctx := cuecontext.New()
		v := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("config: compiling embedded schema: %w", err)
			return
		}
		schemaValue = v.LookupPath(cue.ParsePath("#Model"))
		if err := schemaValue.Err(); err != nil {
			schemaErr = fmt.Errorf("config: schema has no #Model: %w", err)
		}
	})
	return schemaValue, schemaErr
}

// Load reads, validates, and decodes one model document.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return LoadBytes(path, data)
}

// LoadBytes is Load for in-memory documents; filename is used only for
// error positions.
//
// The document is lifted into CUE and unified with the schema before the
// YAML decode, so every reported error carries the file position of the
// offending field rather than a post-hoc numeric complaint.
func LoadBytes(filename string, data []byte) (*Model, error) {
	sch, err := schema()
	if err != nil {
		return nil, err
	}

	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidModel, cueerrors.Details(err, nil))
	}

	doc := sch.Context().BuildFile(file)
	if err := doc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidModel, cueerrors.Details(err, nil))
	}

	unified := sch.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("%w:\n%s", ErrInvalidModel, cueerrors.Details(err, nil))
	}

	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	return &m, nil
}
