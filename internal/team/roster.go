package team

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

type rosterKey struct {
	owner string
	name  string // lowercased
}

// Roster is the set of agents known to the process, indexed by owner and
// case-insensitive name. It is safe for concurrent use.
type Roster struct {
	mu     sync.RWMutex
	agents map[rosterKey]Agent
}

// NewRoster builds a roster, rejecting invalid or duplicate agents.
func NewRoster(agents []Agent) (*Roster, error) {
	r := &Roster{agents: make(map[rosterKey]Agent, len(agents))}
	for _, a := range agents {
		if err := r.Add(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func keyOf(owner, name string) rosterKey {
	return rosterKey{owner: owner, name: strings.ToLower(strings.TrimSpace(name))}
}

// Add registers an agent.
func (r *Roster) Add(a Agent) error {
	if err := a.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	k := keyOf(a.Owner, a.Name)
	if existing, ok := r.agents[k]; ok {
		return fmt.Errorf("%w: %q and %q (owner %s)", ErrDuplicateAgent, existing.Name, a.Name, a.Owner)
	}
	a.Tools = slices.Clone(a.Tools)
	r.agents[k] = a
	return nil
}

// Replace swaps the whole roster for agents. On error the roster is left
// unchanged.
func (r *Roster) Replace(agents []Agent) error {
	next, err := NewRoster(agents)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents = next.agents
	return nil
}

// Get returns the owner's agent whose name matches case-insensitively.
func (r *Roster) Get(owner, name string) (Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[keyOf(owner, name)]
	if !ok {
		return Agent{}, fmt.Errorf("%w: %s", ErrAgentNotFound, name)
	}
	return a, nil
}

// SetStatus changes an agent's status.
func (r *Roster) SetStatus(owner, name string, status Status) (Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := keyOf(owner, name)
	a, ok := r.agents[k]
	if !ok {
		return Agent{}, fmt.Errorf("%w: %s", ErrAgentNotFound, name)
	}
	a.Status = status
	if err := a.Validate(); err != nil {
		return Agent{}, err
	}
	r.agents[k] = a
	return a, nil
}

// List returns the owner's agents sorted by name.
func (r *Roster) List(owner string) []Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Agent
	for k, a := range r.agents {
		if k.owner == owner {
			out = append(out, a)
		}
	}
	sortByName(out)
	return out
}

// Names returns the names of the owner's agents, sorted.
func (r *Roster) Names(owner string) []string {
	agents := r.List(owner)
	names := make([]string, len(agents))
	for i, a := range agents {
		names[i] = a.Name
	}
	return names
}

// All returns every agent, sorted by owner then name.
func (r *Roster) All() []Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Agent, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b Agent) int {
		if c := strings.Compare(a.Owner, b.Owner); c != 0 {
			return c
		}
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return out
}

func sortByName(agents []Agent) {
	slices.SortFunc(agents, func(a, b Agent) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
}
