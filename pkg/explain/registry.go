package explain

import (
	"sort"
	"strings"
	"sync"

	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"
)

// Factory builds an explainer backend. Factories are registered under the
// method name they implement and invoked when an NLPExplainer is constructed.
type Factory func(logger *zap.Logger) (Explainer, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes an explainer factory available under the given method name.
// Names are case-insensitive. Registering the same name twice replaces the
// earlier factory, which lets applications override built-in backends.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(name)] = factory
}

// Unregister removes a method from the registry. Mostly useful in tests.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, strings.ToLower(name))
}

// Methods returns the registered method names, sorted.
func Methods() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	methods := make([]string, 0, len(registry))
	for name := range registry {
		methods = append(methods, name)
	}
	sort.Strings(methods)
	return methods
}

func lookup(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	factory, ok := registry[strings.ToLower(name)]
	return factory, ok
}

// suggest returns the closest registered method name for an unknown one,
// or "" when nothing is close enough to be a plausible typo.
func suggest(name string) string {
	matches := fuzzy.Find(strings.ToLower(name), Methods())
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Str
}
