package core

import (
	"go/types"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/packages"
)

// TestPersistentStoreImplementationsStayInPersistence keeps concrete register
// backends inside the persistence packages. Adding a backend elsewhere must
// extend the allowed list.
func TestPersistentStoreImplementationsStayInPersistence(t *testing.T) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedTypes, Tests: true}
	pkgs, err := packages.Load(cfg, "parishregistry/...")
	require.NoError(t, err)

	var persistentStore *types.Interface
	for _, p := range pkgs {
		if p.PkgPath != "parishregistry/pkg/domain" || p.Types == nil {
			continue
		}
		obj := p.Types.Scope().Lookup("PersistentStore")
		require.NotNil(t, obj, "domain.PersistentStore not found")
		iface, ok := obj.Type().Underlying().(*types.Interface)
		require.True(t, ok, "domain.PersistentStore is not an interface")
		persistentStore = iface
	}
	require.NotNil(t, persistentStore)

	allowed := map[string]struct{}{
		"parishregistry/internal/infra/persistence/memory":   {},
		"parishregistry/internal/infra/persistence/sqlite":   {},
		"parishregistry/internal/infra/persistence/postgres": {},
		"parishregistry/internal/core":                       {}, // test doubles wrapping a real store
	}
	var unexpected []string
	for _, p := range pkgs {
		if p.Types == nil || p.Types.Scope() == nil {
			continue
		}
		for _, name := range p.Types.Scope().Names() {
			named, ok := p.Types.Scope().Lookup(name).Type().(*types.Named)
			if !ok {
				continue
			}
			if _, ok := named.Underlying().(*types.Struct); !ok {
				continue
			}
			if types.Implements(types.NewPointer(named), persistentStore) {
				if _, ok := allowed[p.PkgPath]; !ok {
					unexpected = append(unexpected, p.PkgPath+"."+name)
				}
			}
		}
	}
	require.Empty(t, unexpected, "unexpected PersistentStore implementations")
}
