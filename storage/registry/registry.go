package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/spf13/pflag"

	"xdao.co/aqua/storage"
)

// Opener constructs a storage from flag values bound earlier. The returned
// close function may be nil.
type Opener func() (storage.Storage[string], func() error, error)

// Backend is a build-time plugin that can open a storage.Storage.
//
// Backends typically register themselves in init():
//
//	registry.MustRegister(registry.Backend{ ... })
type Backend struct {
	Name        string
	Description string
	Usage       Usage

	// Bind adds backend-specific flags to fs and returns an Opener reading
	// them. Flag names double as configuration keys for OpenWithConfig.
	Bind func(fs *pflag.FlagSet) Opener
}

var (
	mu       sync.RWMutex
	backends = map[string]Backend{}
)

// Register registers a backend.
func Register(b Backend) error {
	if b.Name == "" {
		return fmt.Errorf("registry: backend name is required")
	}
	if b.Bind == nil {
		return fmt.Errorf("registry: backend %q missing Bind", b.Name)
	}
	if b.Usage == 0 {
		return fmt.Errorf("registry: backend %q missing Usage", b.Name)
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := backends[b.Name]; exists {
		return fmt.Errorf("registry: backend %q already registered", b.Name)
	}
	backends[b.Name] = b
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister(b Backend) {
	if err := Register(b); err != nil {
		panic(err)
	}
}

// List returns backends matching usage, sorted by name.
func List(usage Usage) []Backend {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Backend, 0, len(backends))
	for _, b := range backends {
		if b.Usage.allows(usage) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns backend names matching usage, sorted.
func Names(usage Usage) []string {
	bs := List(usage)
	n := make([]string, 0, len(bs))
	for _, b := range bs {
		n = append(n, b.Name)
	}
	return n
}

func lookup(name string, usage Usage) (Backend, error) {
	mu.RLock()
	b, ok := backends[name]
	mu.RUnlock()
	if !ok {
		return Backend{}, fmt.Errorf("unknown backend %q", name)
	}
	if !b.Usage.allows(usage) {
		return Backend{}, fmt.Errorf("backend %q not supported in this binary", name)
	}
	return b, nil
}

// Binding holds the openers of every backend bound to one flag set.
type Binding struct {
	usage   Usage
	openers map[string]Opener
}

// RegisterFlags binds flags for all backends matching usage so a single
// parse covers every backend the binary links.
func RegisterFlags(fs *pflag.FlagSet, usage Usage) *Binding {
	bind := &Binding{usage: usage, openers: map[string]Opener{}}
	for _, b := range List(usage) {
		bind.openers[b.Name] = b.Bind(fs)
	}
	return bind
}

// Open opens the named backend using the parsed flag values.
func (b *Binding) Open(name string) (storage.Storage[string], func() error, error) {
	if _, err := lookup(name, b.usage); err != nil {
		return nil, nil, err
	}
	open, ok := b.openers[name]
	if !ok {
		return nil, nil, fmt.Errorf("backend %q registered after flags were bound", name)
	}
	return open()
}

// OpenWithConfig opens the named backend with cfg applied as flag values,
// keyed by flag name without dashes (e.g. "localfs-dir").
func OpenWithConfig(name string, usage Usage, cfg map[string]string) (storage.Storage[string], func() error, error) {
	b, err := lookup(name, usage)
	if err != nil {
		return nil, nil, err
	}
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	open := b.Bind(fs)

	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if fs.Lookup(k) == nil {
			return nil, nil, fmt.Errorf("backend %q: unknown config key %q", name, k)
		}
		if err := fs.Set(k, cfg[k]); err != nil {
			return nil, nil, fmt.Errorf("backend %q: config %q: %w", name, k, err)
		}
	}
	return open()
}
