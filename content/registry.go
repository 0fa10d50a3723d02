// Package content holds the immutable reference templates the guild engine
// instantiates projects, raids and events from. Templates are loaded once at
// startup and passed by handle into the otherwise-stateless services.
package content

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/emberveil-online/guildserver/model"
)

// ProjectTemplate defines a collective build project.
type ProjectTemplate struct {
	Name             string                `json:"name"`
	Type             string                `json:"type"`
	MaxLevel         int                   `json:"max_level"`
	RequiredProgress int64                 `json:"required_progress"`
	Cost             model.Production      `json:"cost"`
	Benefits         model.ProjectBenefits `json:"benefits"`
}

// RaidTemplate defines a boss encounter. BaseStats are at level 1, normal
// difficulty; the raid coordinator scales them at instantiation.
type RaidTemplate struct {
	Name            string               `json:"name"`
	Type            string               `json:"type"`
	BossName        string               `json:"boss_name"`
	MaxParticipants int                  `json:"max_participants"`
	BaseStats       model.BossStats      `json:"base_stats"`
	Rewards         model.RewardSchedule `json:"rewards"`
}

// EventTemplate defines a schedulable guild activity.
type EventTemplate struct {
	Name            string                  `json:"name"`
	Type            string                  `json:"type"`
	Description     string                  `json:"description"`
	MaxParticipants int                     `json:"max_participants"`
	Duration        time.Duration           `json:"duration"`
	Requirements    model.EventRequirements `json:"requirements"`
	Rewards         model.RewardSchedule    `json:"rewards"`
}

// Registry is the read-only template catalog. It is never mutated after
// construction, so it is safe to share across concurrent requests.
type Registry struct {
	projects map[string]ProjectTemplate
	raids    map[string]RaidTemplate
	events   map[string]EventTemplate
}

func newRegistry(projects []ProjectTemplate, raids []RaidTemplate, events []EventTemplate) *Registry {
	r := &Registry{
		projects: make(map[string]ProjectTemplate, len(projects)),
		raids:    make(map[string]RaidTemplate, len(raids)),
		events:   make(map[string]EventTemplate, len(events)),
	}
	for _, p := range projects {
		r.projects[p.Name] = p
	}
	for _, rt := range raids {
		r.raids[rt.Name] = rt
	}
	for _, e := range events {
		r.events[e.Name] = e
	}
	return r
}

// Project looks up a project template by name.
func (r *Registry) Project(name string) (ProjectTemplate, bool) {
	t, ok := r.projects[name]
	return t, ok
}

// Raid looks up a raid template by name.
func (r *Registry) Raid(name string) (RaidTemplate, bool) {
	t, ok := r.raids[name]
	return t, ok
}

// Event looks up an event template by name.
func (r *Registry) Event(name string) (EventTemplate, bool) {
	t, ok := r.events[name]
	return t, ok
}

// ProjectNames returns all project template names.
func (r *Registry) ProjectNames() []string { return keys(r.projects) }

// RaidNames returns all raid template names.
func (r *Registry) RaidNames() []string { return keys(r.raids) }

// EventNames returns all event template names.
func (r *Registry) EventNames() []string { return keys(r.events) }

func keys[T any](m map[string]T) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

type registryFile struct {
	Projects []ProjectTemplate `json:"projects"`
	Raids    []RaidTemplate    `json:"raids"`
	Events   []EventTemplate   `json:"events"`
}

// Load reads a template catalog from a JSON file. An empty path returns the
// built-in defaults.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("content: read %s: %w", path, err)
	}
	var f registryFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("content: parse %s: %w", path, err)
	}
	return newRegistry(f.Projects, f.Raids, f.Events), nil
}
