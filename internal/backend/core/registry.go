package core

import (
	"github.com/yumesaki/arcanet"
	"github.com/yumesaki/arcanet/internal/domain"
)

// Factory builds a title instance for one model, or returns nil when
// the model is not one of its versions. parentModel is set when the
// request came through another version's code path (next-version
// stubs).
type Factory interface {
	Create(deps Deps, config *arcanet.Mapping, model arcanet.Model, parentModel *arcanet.Model) Title
}

// FactoryFunc adapts a bare function to Factory.
type FactoryFunc func(deps Deps, config *arcanet.Mapping, model arcanet.Model, parentModel *arcanet.Model) Title

func (f FactoryFunc) Create(deps Deps, config *arcanet.Mapping, model arcanet.Model, parentModel *arcanet.Model) Title {
	return f(deps, config, model, parentModel)
}

// Registry maps four-letter game codes to the factories that can serve
// them. A code may carry several factories; the first one that accepts
// the model wins.
type Registry struct {
	deps      Deps
	config    *domain.Config
	factories map[string][]registration
}

type registration struct {
	series  string
	factory Factory
}

func NewRegistry(deps Deps, config *domain.Config) *Registry {
	return &Registry{
		deps:      deps,
		config:    config,
		factories: map[string][]registration{},
	}
}

// Register binds a factory to a game code. series names the title's
// configuration section.
func (r *Registry) Register(gamecode, series string, factory Factory) {
	r.factories[gamecode] = append(r.factories[gamecode], registration{series: series, factory: factory})
}

// Resolve returns the title instance serving the model, or nil when no
// registered factory claims it.
func (r *Registry) Resolve(model arcanet.Model, parentModel *arcanet.Model) Title {
	for _, reg := range r.factories[model.GameCode] {
		title := reg.factory.Create(r.deps, r.config.TitleConfig(reg.series), model, parentModel)
		if title != nil {
			return title
		}
	}
	return nil
}
