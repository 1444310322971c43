package resolver

import (
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/rome/tools-sub007/internal/config"
)

// Projects is an in-memory ProjectRegistry.
type Projects struct {
	mu      sync.RWMutex
	byRoot  map[string]*config.Project
	entries map[string]string
}

var _ ProjectRegistry = (*Projects)(nil)

func NewProjects() *Projects {
	return &Projects{
		byRoot:  make(map[string]*config.Project),
		entries: make(map[string]string),
	}
}

func (p *Projects) RegisterProject(entry string, project *config.Project) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byRoot[project.Root] = project
	p.entries[entry] = project.Root
}

// Owner returns the registered project with the deepest root containing file.
func (p *Projects) Owner(file string) (*config.Project, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if root, ok := p.entries[file]; ok {
		return p.byRoot[root], true
	}
	var best *config.Project
	for root, project := range p.byRoot {
		if file != root && !strings.HasPrefix(file, strings.TrimSuffix(root, "/")+"/") {
			continue
		}
		if best == nil || len(root) > len(best.Root) {
			best = project
		}
	}
	return best, best != nil
}

// Entries returns the registered entry paths, sorted.
func (p *Projects) Entries() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.entries))
	for entry := range p.entries {
		out = append(out, path.Clean(entry))
	}
	sort.Strings(out)
	return out
}
