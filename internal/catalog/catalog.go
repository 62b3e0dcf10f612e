// Package catalog serves the read-only annulment concept lists offered for
// each decree kind.
package catalog

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"parishregistry/pkg/domain"

	"gopkg.in/yaml.v3"
)

// DefaultScope holds the diocese-wide concepts used when a parish defines none.
const DefaultScope = "*"

// Catalog lists the annulment concepts available to a parish or diocese.
type Catalog interface {
	ListConcepts(ctx context.Context, scopeID string, kind domain.DecreeKind) ([]domain.AnnulmentConcept, error)
}

// Static is an immutable in-memory catalog.
type Static struct {
	byScope map[string][]domain.AnnulmentConcept
}

// NewStatic indexes concepts by scope. A blank scope is treated as DefaultScope.
func NewStatic(concepts []domain.AnnulmentConcept) (*Static, error) {
	s := &Static{byScope: make(map[string][]domain.AnnulmentConcept)}
	seen := make(map[string]struct{}, len(concepts))
	for _, c := range concepts {
		if strings.TrimSpace(c.ID) == "" {
			return nil, fmt.Errorf("concept %q: id required", c.Code)
		}
		if !c.Kind.Valid() {
			return nil, fmt.Errorf("concept %s: unknown kind %q", c.ID, c.Kind)
		}
		if c.ScopeID == "" {
			c.ScopeID = DefaultScope
		}
		key := c.ScopeID + "/" + c.ID
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("concept %s duplicated in scope %s", c.ID, c.ScopeID)
		}
		seen[key] = struct{}{}
		s.byScope[c.ScopeID] = append(s.byScope[c.ScopeID], c)
	}
	for scope := range s.byScope {
		list := s.byScope[scope]
		sort.SliceStable(list, func(i, j int) bool { return list[i].Code < list[j].Code })
	}
	return s, nil
}

// ListConcepts returns the scope's concepts of the given kind ordered by code.
// A scope with no concepts at all falls back to DefaultScope. An empty result
// is not an error.
func (s *Static) ListConcepts(ctx context.Context, scopeID string, kind domain.DecreeKind) ([]domain.AnnulmentConcept, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	list, ok := s.byScope[scopeID]
	if !ok {
		list = s.byScope[DefaultScope]
	}
	out := make([]domain.AnnulmentConcept, 0, len(list))
	for _, c := range list {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out, nil
}

// Contains reports whether conceptID is offered to scopeID for kind.
func Contains(ctx context.Context, c Catalog, scopeID string, kind domain.DecreeKind, conceptID string) (bool, error) {
	concepts, err := c.ListConcepts(ctx, scopeID, kind)
	if err != nil {
		return false, err
	}
	for _, concept := range concepts {
		if concept.ID == conceptID {
			return true, nil
		}
	}
	return false, nil
}

type fileFormat struct {
	Concepts []domain.AnnulmentConcept `yaml:"concepts"`
}

// Parse reads a YAML catalog document.
func Parse(r io.Reader) (*Static, error) {
	var doc fileFormat
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return NewStatic(doc.Concepts)
}

// LoadFile reads a YAML catalog from disk.
func LoadFile(path string) (*Static, error) {
	// #nosec G304 -- operator-supplied catalog path
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Default returns the built-in diocese-wide concept set.
func Default() *Static {
	s, err := NewStatic(defaultConcepts)
	if err != nil {
		panic(err)
	}
	return s
}

var defaultConcepts = []domain.AnnulmentConcept{
	{ID: "cor-nombre", Code: "C01", Label: "Error en el nombre del inscrito", Kind: domain.DecreeCorrection},
	{ID: "cor-padres", Code: "C02", Label: "Error en los datos de los padres", Kind: domain.DecreeCorrection},
	{ID: "cor-fecha", Code: "C03", Label: "Error en fechas", Kind: domain.DecreeCorrection},
	{ID: "cor-lugar", Code: "C04", Label: "Error en el lugar", Kind: domain.DecreeCorrection},
	{ID: "rep-deterioro", Code: "R01", Label: "Partida deteriorada o ilegible", Kind: domain.DecreeReplacement},
	{ID: "rep-extravio", Code: "R02", Label: "Libro extraviado", Kind: domain.DecreeReplacement},
	{ID: "rep-siniestro", Code: "R03", Label: "Libro destruido por siniestro", Kind: domain.DecreeReplacement},
	{ID: "repo-omision", Code: "P01", Label: "Partida nunca asentada", Kind: domain.DecreeReposition},
	{ID: "repo-perdida", Code: "P02", Label: "Partida perdida sin registro de ubicación", Kind: domain.DecreeReposition},
}
