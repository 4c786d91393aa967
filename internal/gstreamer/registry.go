package gstreamer

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
)

// ElementType is a registered factory: the metadata and property set every
// element made from it shares.
type ElementType struct {
	Name        string         `json:"name"`
	LongName    string         `json:"long_name"`
	Klass       string         `json:"klass"`
	Description string         `json:"description"`
	Properties  []PropertySpec `json:"properties"`
}

// Property returns the spec for name.
func (t *ElementType) Property(name string) (PropertySpec, bool) {
	for _, p := range t.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return PropertySpec{}, false
}

// Registry maps type names to element types and makes elements from them.
type Registry struct {
	logger *logrus.Entry

	mu       sync.RWMutex
	types    map[string]*ElementType
	counters map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:   logrus.WithField("component", "registry"),
		types:    make(map[string]*ElementType),
		counters: make(map[string]int),
	}
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the process-wide registry with the core element
// types registered.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
		for _, t := range CoreElementTypes() {
			if err := defaultRegistry.Register(t); err != nil {
				panic(err)
			}
		}
	})
	return defaultRegistry
}

// Register adds t. Registering a name twice is an error.
func (r *Registry) Register(t *ElementType) error {
	if t == nil || t.Name == "" {
		return fmt.Errorf("element type must have a name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[t.Name]; exists {
		return fmt.Errorf("element type %q: %w", t.Name, ErrAlreadyExists)
	}
	if _, ok := t.Property("name"); !ok {
		t.Properties = append([]PropertySpec{nameProperty()}, t.Properties...)
	}
	r.types[t.Name] = t

	r.logger.Debugf("Registered element type '%s'", t.Name)
	return nil
}

// Lookup returns the type registered under name.
func (r *Registry) Lookup(name string) (*ElementType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// Types returns all registered types sorted by name.
func (r *Registry) Types() []*ElementType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*ElementType, 0, len(r.types))
	for _, t := range r.types {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Make creates an element of type typeName called alias. An empty alias gets
// a generated "<type><n>" name. Missing or unknown types fail with an error
// matching ErrConstruction.
func (r *Registry) Make(typeName, alias string, opts ...Option) (*Element, error) {
	if typeName == "" {
		return nil, newConstructionError(typeName, alias, "element type name is required", nil)
	}

	t, ok := r.Lookup(typeName)
	if !ok {
		r.logger.Debugf("No such element type '%s'", typeName)
		return nil, newConstructionError(typeName, alias,
			fmt.Sprintf("no element type '%s' registered", typeName), ErrNotFound)
	}

	if alias == "" {
		alias = r.generateName(typeName)
	}

	element := newElement(t, alias, opts...)
	r.logger.Debugf("Created element '%s' with factory '%s'", alias, typeName)
	return element, nil
}

func (r *Registry) generateName(typeName string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.counters[typeName]
	r.counters[typeName] = n + 1
	return typeName + strconv.Itoa(n)
}

// NewElement creates an element from the default registry.
func NewElement(typeName, alias string, opts ...Option) (*Element, error) {
	return DefaultRegistry().Make(typeName, alias, opts...)
}

func nameProperty() PropertySpec {
	return PropertySpec{Name: "name", Kind: KindString, Writable: false, Blurb: "The name of the object"}
}

// CoreElementTypes returns the built-in element types.
func CoreElementTypes() []*ElementType {
	silent := PropertySpec{Name: "silent", Kind: KindBool, Default: true, Writable: true,
		Blurb: "Don't produce last-message events"}
	syncProp := PropertySpec{Name: "sync", Kind: KindBool, Default: false, Writable: true,
		Blurb: "Sync on the clock"}
	stateError := PropertySpec{Name: PropStateError, Kind: KindFault, Default: FaultNone, Writable: true,
		Blurb: "Generate a state change error"}
	location := PropertySpec{Name: "location", Kind: KindString, Default: "", Writable: true,
		Blurb: "Location of the file"}

	return []*ElementType{
		{
			Name: "fakesink", LongName: "Fake Sink", Klass: "Sink",
			Description: "Black hole for data",
			Properties: []PropertySpec{stateError, silent, syncProp,
				{Name: "num-buffers", Kind: KindInt, Default: -1, Writable: true,
					Blurb: "Number of buffers to accept going EOS"},
			},
		},
		{
			Name: "fakesrc", LongName: "Fake Source", Klass: "Source",
			Description: "Push empty (no data) buffers around",
			Properties: []PropertySpec{stateError, silent,
				{Name: "num-buffers", Kind: KindInt, Default: -1, Writable: true,
					Blurb: "Number of buffers to output before sending EOS"},
				{Name: "is-live", Kind: KindBool, Default: false, Writable: true,
					Blurb: "True if the element cannot produce data in PAUSED"},
			},
		},
		{
			Name: "filesrc", LongName: "File Source", Klass: "Source/File",
			Description: "Read from arbitrary point in a file",
			Properties: []PropertySpec{location,
				{Name: "blocksize", Kind: KindUint64, Default: uint64(4096), Writable: true,
					Blurb: "Size in bytes to read per buffer"},
			},
		},
		{
			Name: "filesink", LongName: "File Sink", Klass: "Sink/File",
			Description: "Write stream to a file",
			Properties: []PropertySpec{location, syncProp,
				{Name: "append", Kind: KindBool, Default: false, Writable: true,
					Blurb: "Append to an already existing file"},
			},
		},
		{
			Name: "identity", LongName: "Identity", Klass: "Generic",
			Description: "Pass data without modification",
			Properties: []PropertySpec{silent, syncProp,
				{Name: "error-after", Kind: KindInt, Default: -1, Writable: true,
					Blurb: "Error after N buffers"},
			},
		},
		{
			Name: "queue", LongName: "Queue", Klass: "Generic",
			Description: "Simple data queue",
			Properties: []PropertySpec{
				{Name: "max-size-buffers", Kind: KindInt, Default: 200, Writable: true,
					Blurb: "Max. number of buffers in the queue"},
				{Name: "current-level-buffers", Kind: KindInt, Default: 0, Writable: false,
					Blurb: "Current number of buffers in the queue"},
			},
		},
		{
			Name: "tee", LongName: "Tee pipe fitting", Klass: "Generic",
			Description: "1-to-N pipe fitting",
			Properties: []PropertySpec{
				{Name: "num-src-pads", Kind: KindInt, Default: 0, Writable: false,
					Blurb: "The number of source pads"},
				{Name: "allow-not-linked", Kind: KindBool, Default: false, Writable: true,
					Blurb: "Return GST_FLOW_OK even if there are no source pads or they are all unlinked"},
			},
		},
	}
}
