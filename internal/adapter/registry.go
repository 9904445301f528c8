package adapter

import (
	"fmt"
	"sort"
)

// DefaultModels maps the Bedrock model ids served out of the box to their family.
var DefaultModels = map[string]Family{
	"anthropic.claude-v2:1":                     FamilyClaudeText,
	"anthropic.claude-3-5-sonnet-20240620-v1:0": FamilyClaudeMessages,
	"anthropic.claude-3-haiku-20240307-v1:0":    FamilyClaudeMessages,
	"amazon.titan-text-express-v1":              FamilyTitanText,
}

// Registry maps model ids to families. It is built once and never mutated.
type Registry struct {
	families map[string]Family
}

// NewRegistry merges DefaultModels with extra, where extra maps a model id to
// a family name (e.g. "claude-messages"). Unknown family names are rejected.
func NewRegistry(extra map[string]string) (*Registry, error) {
	families := make(map[string]Family, len(DefaultModels)+len(extra))
	for id, f := range DefaultModels {
		families[id] = f
	}
	for id, name := range extra {
		f, err := ParseFamily(name)
		if err != nil {
			return nil, fmt.Errorf("registry: model %s: %w", id, err)
		}
		families[id] = f
	}
	return &Registry{families: families}, nil
}

// Family returns the family registered for modelID.
func (r *Registry) Family(modelID string) (Family, bool) {
	f, ok := r.families[modelID]
	return f, ok
}

// Models lists every registered model sorted by id.
func (r *Registry) Models() []ModelInfo {
	models := make([]ModelInfo, 0, len(r.families))
	for id, f := range r.families {
		models = append(models, ModelInfo{ID: id, Family: f.String(), Provider: f.Provider()})
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models
}
