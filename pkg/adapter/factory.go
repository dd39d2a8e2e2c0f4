package adapter

import (
	"fmt"

	"github.com/fabrik-dev/fabrik/pkg/registry"
)

// Constructor builds an Adapter from cfg. Registered per Kind so New can
// look up the concrete constructor by name instead of switching on it.
type Constructor func(cfg Config) (Adapter, error)

var constructors = registry.NewBaseRegistry[Constructor]()

func init() {
	mustRegister(KindHTTP, func(cfg Config) (Adapter, error) { return NewHTTPAdapter(cfg) })
	mustRegister(KindSubprocess, func(cfg Config) (Adapter, error) { return NewSubprocessAdapter(cfg) })
	mustRegister(KindOpenAIAssistant, func(cfg Config) (Adapter, error) { return NewOpenAIAssistantAdapter(cfg) })
	mustRegister(KindCustom, func(cfg Config) (Adapter, error) { return NewCustomAdapter(cfg) })
}

func mustRegister(kind Kind, ctor Constructor) {
	if err := constructors.Register(string(kind), ctor); err != nil {
		panic(err)
	}
}

// New constructs the concrete Adapter for cfg.Kind, looking up the
// constructor registered under that name.
func New(cfg Config) (Adapter, error) {
	ctor, ok := constructors.Get(string(cfg.Kind))
	if !ok {
		return nil, fmt.Errorf("adapter: unknown kind %q", cfg.Kind)
	}
	return ctor(cfg)
}
