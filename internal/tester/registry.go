package tester

import (
	_ "embed"
	"encoding/json"
	"os"
	"strings"

	"github.com/juparave/cotestpilot/internal/domain"
	"go.uber.org/zap"
)

//go:embed testers.json
var embeddedCatalog []byte

// fallbackName is the persona selected when no tester is requested or no
// requested name matches.
const fallbackName = "jason"

type catalogFile struct {
	Testers []domain.Tester `json:"testers"`
}

// Registry holds the persona catalog, loaded once at construction and
// read-only afterwards.
type Registry struct {
	testers []domain.Tester
	log     *zap.SugaredLogger
}

// NewRegistry loads the built-in catalog.
func NewRegistry(log *zap.SugaredLogger) *Registry {
	r := &Registry{log: log}
	r.testers = parseCatalog(embeddedCatalog, "built-in catalog", log)
	return r
}

// NewRegistryFromFile loads a catalog from path. A missing, unreadable, or
// malformed file degrades to an empty catalog with a logged warning; startup
// is never blocked by a bad catalog.
func NewRegistryFromFile(path string, log *zap.SugaredLogger) *Registry {
	r := &Registry{log: log}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warnw("testers catalog not readable, no testing agents will be available", "path", path, "error", err)
		return r
	}
	r.testers = parseCatalog(data, path, log)
	return r
}

func parseCatalog(data []byte, source string, log *zap.SugaredLogger) []domain.Tester {
	var catalog catalogFile
	if err := json.Unmarshal(data, &catalog); err != nil {
		log.Errorw("testers catalog is invalid, no testing agents will be available", "source", source, "error", err)
		return nil
	}
	if catalog.Testers == nil {
		log.Errorw("testers catalog missing 'testers' key, no testing agents will be available", "source", source)
		return nil
	}
	log.Infow("loaded testers", "count", len(catalog.Testers), "source", source)
	return catalog.Testers
}

// Testers returns a copy of the catalog in load order.
func (r *Registry) Testers() []domain.Tester {
	out := make([]domain.Tester, len(r.testers))
	copy(out, r.testers)
	return out
}

// Len returns the catalog size.
func (r *Registry) Len() int {
	return len(r.testers)
}

// Select resolves requested tester names against the catalog. With no names
// the default persona is returned. Otherwise every catalog tester whose name
// contains any requested name, case-insensitively, is selected in catalog
// order. If nothing matches, selection falls back to the default persona, so
// a non-empty catalog never yields an empty selection.
func (r *Registry) Select(names []string) []domain.Tester {
	if len(names) == 0 {
		return r.fallback()
	}

	var selected []domain.Tester
	for _, t := range r.testers {
		lower := strings.ToLower(t.Name)
		for _, requested := range names {
			if strings.Contains(lower, strings.ToLower(requested)) {
				selected = append(selected, t)
				break
			}
		}
	}

	if len(selected) == 0 {
		r.log.Warnw("no matching testers found, using default tester", "requested", names, "default", fallbackName)
		return r.fallback()
	}
	return selected
}

func (r *Registry) fallback() []domain.Tester {
	var selected []domain.Tester
	for _, t := range r.testers {
		if strings.ToLower(t.Name) == fallbackName {
			selected = append(selected, t)
		}
	}
	return selected
}
