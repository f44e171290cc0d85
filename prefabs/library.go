package prefabs

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"slices"
	"sync"
)

var ErrUnknownPrefab = errors.New("prefabs: unknown prefab")

// Validator checks a spec before the library accepts it.
type Validator func(spec PrefabSpec) error

// Library holds the loaded prefab specs by name. It is safe for concurrent
// use; Get hands out copies.
type Library struct {
	mu       sync.RWMutex
	specs    map[string]PrefabSpec
	files    map[string]string
	validate Validator
}

func NewLibrary(validate Validator) *Library {
	return &Library{
		specs:    make(map[string]PrefabSpec),
		files:    make(map[string]string),
		validate: validate,
	}
}

// LoadAll loads every prefab file. Files that fail are logged and skipped;
// the joined error reports all of them.
func (l *Library) LoadAll() error {
	files, err := Files()
	if err != nil {
		return fmt.Errorf("prefabs: list: %w", err)
	}
	var errs []error
	for _, f := range files {
		if _, err := l.Load(f); err != nil {
			log.Printf("Prefabs: skipping %s: %v", f, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Load reads filename, validates it, and stores it under its name.
func (l *Library) Load(filename string) (PrefabSpec, error) {
	spec, err := LoadPrefab(filename)
	if err != nil {
		return PrefabSpec{}, err
	}
	return spec, l.Put(cleanPrefabPath(filename), spec)
}

// Put validates and stores spec as if it had been read from filename.
func (l *Library) Put(filename string, spec PrefabSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("prefabs: %s: prefab has no name", filename)
	}
	if l.validate != nil {
		if err := l.validate(spec); err != nil {
			return fmt.Errorf("prefabs: validate %s: %w", spec.Name, err)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if prev, ok := l.files[filename]; ok && prev != spec.Name {
		delete(l.specs, prev)
	}
	l.files[filename] = spec.Name
	l.specs[spec.Name] = spec.Clone()
	return nil
}

// Reload re-reads a changed file. A file gone from both disk and the
// embedded set drops its prefab.
func (l *Library) Reload(filename string) (PrefabSpec, error) {
	spec, err := l.Load(filename)
	if err == nil {
		log.Printf("Prefabs: reloaded %s from %s", spec.Name, filename)
		return spec, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		clean := cleanPrefabPath(filename)
		l.mu.Lock()
		if name, ok := l.files[clean]; ok {
			delete(l.specs, name)
			delete(l.files, clean)
			log.Printf("Prefabs: removed %s", name)
		}
		l.mu.Unlock()
	}
	return PrefabSpec{}, err
}

func (l *Library) Get(name string) (PrefabSpec, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	spec, ok := l.specs[name]
	if !ok {
		return PrefabSpec{}, fmt.Errorf("%w: %q", ErrUnknownPrefab, name)
	}
	return spec.Clone(), nil
}

func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.specs))
	for name := range l.specs {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
