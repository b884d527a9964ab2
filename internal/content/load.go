package content

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaCUE []byte

//go:embed data/*.cue
var defaultFS embed.FS

var (
	defaultOnce   sync.Once
	defaultMatter *MatterData
	defaultErr    error
)

// Default returns the built-in catalog. The result is shared; callers must
// not mutate it.
func Default() (*MatterData, error) {
	defaultOnce.Do(func() {
		defaultMatter, defaultErr = LoadFS(defaultFS, "data")
	})
	return defaultMatter, defaultErr
}

// MustDefault is Default for tests and program initialisation.
func MustDefault() *MatterData {
	m, err := Default()
	if err != nil {
		panic(fmt.Sprintf("built-in catalog: %v", err))
	}
	return m
}

// LoadDir loads every .cue file in a directory on disk.
func LoadDir(dir string) (*MatterData, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("content directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content path is not a directory: %s", dir)
	}
	return LoadFS(os.DirFS(dir), ".")
}

// LoadFS compiles the .cue files in dir (in file name order), unifies them
// with the catalog schema, and decodes the result.
//
// Schema violations are returned as *LoadError with source position;
// referential problems are returned as a ValidationErrors value.
func LoadFS(fsys fs.FS, dir string) (*MatterData, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read content dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".cue") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no .cue files in %s", dir)
	}

	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	value := schema.LookupPath(cue.ParsePath("#Matter"))

	for _, name := range files {
		data, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		v := ctx.CompileBytes(data, cue.Filename(name))
		if err := v.Err(); err != nil {
			return nil, formatCUEError(err)
		}
		value = value.Unify(v)
	}

	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	m, err := decode(value)
	if err != nil {
		return nil, err
	}

	if errs := Validate(m); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return m, nil
}

// decode exports the unified value to JSON (resolving defaults) and
// unmarshals it into MatterData.
func decode(v cue.Value) (*MatterData, error) {
	raw, err := v.MarshalJSON()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var m MatterData
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	normalize(&m)
	return &m, nil
}

// normalize replaces absent maps with empty ones so lookups never need a
// nil check.
func normalize(m *MatterData) {
	if m.Topics == nil {
		m.Topics = map[string]Topic{}
	}
	if m.Items == nil {
		m.Items = map[string]Item{}
	}
	if m.Categories == nil {
		m.Categories = map[string]Category{}
	}
	if m.Scientists == nil {
		m.Scientists = map[string]Scientist{}
	}
	if m.Achievements == nil {
		m.Achievements = map[string]Achievement{}
	}
	if m.Generators == nil {
		m.Generators = map[string]Generator{}
	}
	if m.Upgrades == nil {
		m.Upgrades = map[string]Upgrade{}
	}
	for k, g := range m.Generators {
		if g.Cost == nil {
			g.Cost = map[string]float64{}
		}
		if g.Inputs == nil {
			g.Inputs = map[string]float64{}
		}
		if g.Outputs == nil {
			g.Outputs = map[string]float64{}
		}
		m.Generators[k] = g
	}
	for k, u := range m.Upgrades {
		if u.Cost == nil {
			u.Cost = map[string]float64{}
		}
		m.Upgrades[k] = u
	}
}

// ValidationErrors aggregates referential validation failures.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d validation error(s): %s", len(v), strings.Join(msgs, "; "))
}
