package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	yaml "go.yaml.in/yaml/v3"
)

// fileDocument is the on-disk layout:
//
//	scopes:
//	  default:
//	    enabled: true
//	    messaging.templates:
//	      welcome: "Hi {{customer_name}}"
type fileDocument struct {
	Scopes map[string]map[string]any `yaml:"scopes"`
}

// File is a YAML backed store. Reads are served from memory; Upsert
// rewrites the whole file.
type File struct {
	path string
	mem  *Memory
	mu   sync.Mutex
}

// OpenFile loads path. A missing file yields an empty store that is created
// on the first Upsert.
func OpenFile(path string) (*File, error) {
	values := map[string]map[string]string{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		values, err = decodeFile(data)
		if err != nil {
			return nil, fmt.Errorf("settings file %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("settings file %s: %w", path, err)
	}
	return &File{path: path, mem: NewMemory(values)}, nil
}

func (f *File) Get(ctx context.Context, scope, key string) (string, bool, error) {
	return f.mem.Get(ctx, scope, key)
}

func (f *File) Upsert(ctx context.Context, scope, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mem.Upsert(ctx, scope, key, value); err != nil {
		return err
	}
	return f.flush()
}

func (f *File) flush() error {
	doc := fileDocument{Scopes: map[string]map[string]any{}}
	for scope, kv := range f.mem.Dump() {
		inner := make(map[string]any, len(kv))
		for k, v := range kv {
			inner[k] = v
		}
		doc.Scopes[scope] = inner
	}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("settings file: marshal: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".settings-*.yaml")
	if err != nil {
		return fmt.Errorf("settings file: temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("settings file: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("settings file: close: %w", err)
	}
	return os.Rename(tmp.Name(), f.path)
}

func decodeFile(data []byte) (map[string]map[string]string, error) {
	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("yaml unmarshal: %w", err)
	}
	out := make(map[string]map[string]string, len(doc.Scopes))
	for scope, kv := range doc.Scopes {
		inner := make(map[string]string, len(kv))
		for k, v := range kv {
			s, err := scalarString(v)
			if err != nil {
				return nil, fmt.Errorf("scope %s key %s: %w", scope, k, err)
			}
			inner[k] = s
		}
		out[scope] = inner
	}
	return out, nil
}

// scalarString flattens a YAML value into the string form the resolver
// reads. Mappings and sequences become JSON so templates can be written
// as nested YAML.
func scalarString(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case map[string]any, map[any]any, []any:
		j, err := json.Marshal(normalizeYAML(x))
		if err != nil {
			return "", fmt.Errorf("yaml->json marshal: %w", err)
		}
		return string(j), nil
	default:
		return fmt.Sprint(x), nil
	}
}

// normalizeYAML ensures all map keys are strings so the result can be JSON-marshaled.
func normalizeYAML(in any) any {
	switch x := in.(type) {
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[fmt.Sprint(k)] = normalizeYAML(v)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[k] = normalizeYAML(v)
		}
		return m
	case []any:
		for i := range x {
			x[i] = normalizeYAML(x[i])
		}
		return x
	default:
		return in
	}
}
