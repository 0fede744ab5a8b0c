package registry

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/medleyfm/medley/internal/config"
	"github.com/medleyfm/medley/internal/domain"
	"github.com/medleyfm/medley/internal/source/local"
	"github.com/medleyfm/medley/internal/store"
)

func newTestRegistry(t *testing.T) (*Registry, *store.Store) {
	t.Helper()
	dir := t.TempDir()

	st, err := store.Open(filepath.Join(dir, "store.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	index, err := local.OpenIndex(filepath.Join(dir, "index.db"))
	if err != nil {
		t.Fatalf("OpenIndex() error = %v", err)
	}
	t.Cleanup(func() { index.Close() })

	registry, err := New(st, local.NewSource(index, st, config.NullLogger()), 5*time.Second, config.NullLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return registry, st
}

func subsonicArgs(server string) domain.ProviderArguments {
	return domain.ProviderArguments{
		domain.ArgServer:   server,
		domain.ArgUsername: "alice",
		domain.ArgPassword: "secret",
	}
}

func TestLocalProviderIsAlwaysFirst(t *testing.T) {
	registry, _ := newTestRegistry(t)

	providers := registry.Providers()
	if len(providers) != 1 {
		t.Fatalf("providers = %d, want 1", len(providers))
	}
	if providers[0].Type != domain.ProviderTypeLocal || providers[0].TypeID != domain.LocalProviderID {
		t.Errorf("first provider = %+v", providers[0])
	}
}

func TestAddProviderValidation(t *testing.T) {
	registry, _ := newTestRegistry(t)

	tests := []struct {
		name string
		args domain.ProviderArguments
	}{
		{"missing server", domain.ProviderArguments{domain.ArgUsername: "alice", domain.ArgPassword: "x"}},
		{"malformed server", domain.ProviderArguments{domain.ArgServer: "not a url", domain.ArgUsername: "alice", domain.ArgPassword: "x"}},
		{"missing username", domain.ProviderArguments{domain.ArgServer: "https://music.example", domain.ArgPassword: "x"}},
		{"unknown key", domain.ProviderArguments{domain.ArgServer: "https://music.example", domain.ArgUsername: "alice", domain.ArgPassword: "x", "bogus": "y"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := registry.AddProvider(domain.ProviderTypeSubsonic, "Bad", test.args); err == nil {
				t.Error("AddProvider() accepted invalid arguments")
			}
		})
	}

	// Nothing invalid may reach the snapshot
	if got := len(registry.Providers()); got != 1 {
		t.Errorf("providers = %d, want only local", got)
	}
}

func TestAddProviderPublishesEntry(t *testing.T) {
	registry, st := newTestRegistry(t)

	provider, err := registry.AddProvider(domain.ProviderTypeSubsonic, "Navi", subsonicArgs("https://navi.example/"))
	if err != nil {
		t.Fatalf("AddProvider() error = %v", err)
	}
	if provider.Type != domain.ProviderTypeSubsonic || provider.Name != "Navi" {
		t.Errorf("provider = %+v", provider)
	}

	if _, ok := registry.SourceFor(domain.ProviderTypeSubsonic, provider.TypeID); !ok {
		t.Error("no live source for the new provider")
	}

	// Trailing slash is stripped from the owned namespace
	entries := registry.Entries().Get()
	if entries[len(entries)-1].BaseURI != "https://navi.example" {
		t.Errorf("base URI = %q", entries[len(entries)-1].BaseURI)
	}

	row, found, err := st.GetProvider(domain.ProviderTypeSubsonic, provider.TypeID)
	if err != nil || !found {
		t.Fatalf("GetProvider() = %v, %v", found, err)
	}
	if row.DeviceID == "" {
		t.Error("persisted provider has no device ID")
	}
}

func TestNamespaceExclusivity(t *testing.T) {
	registry, _ := newTestRegistry(t)

	if _, err := registry.AddProvider(domain.ProviderTypeSubsonic, "Navi", subsonicArgs("https://music.example")); err != nil {
		t.Fatalf("AddProvider() error = %v", err)
	}

	tests := []struct {
		name   string
		server string
	}{
		{"identical", "https://music.example"},
		{"trailing slash", "https://music.example/"},
		{"nested path", "https://music.example/subsonic"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := registry.AddProvider(domain.ProviderTypeJellyfin, "Clash", map[string]string{
				domain.ArgServer:   test.server,
				domain.ArgUsername: "bob",
				domain.ArgPassword: "pw",
			})
			if !errors.Is(err, domain.ErrAlreadyExists) {
				t.Errorf("AddProvider(%q) error = %v, want ErrAlreadyExists", test.server, err)
			}
		})
	}

	// A sibling host is fine
	if _, err := registry.AddProvider(domain.ProviderTypeJellyfin, "Other", map[string]string{
		domain.ArgServer:   "https://other.example",
		domain.ArgUsername: "bob",
		domain.ArgPassword: "pw",
	}); err != nil {
		t.Errorf("AddProvider(sibling) error = %v", err)
	}
}

func TestUpdateProviderKeepsIdentityAndNamespace(t *testing.T) {
	registry, st := newTestRegistry(t)

	provider, err := registry.AddProvider(domain.ProviderTypeSubsonic, "Navi", subsonicArgs("https://navi.example"))
	if err != nil {
		t.Fatal(err)
	}
	before, _, err := st.GetProvider(domain.ProviderTypeSubsonic, provider.TypeID)
	if err != nil {
		t.Fatal(err)
	}

	// Updating in place may keep its own namespace
	updated, err := registry.UpdateProvider(domain.ProviderTypeSubsonic, provider.TypeID, "Navi 2", subsonicArgs("https://navi.example"))
	if err != nil {
		t.Fatalf("UpdateProvider() error = %v", err)
	}
	if updated.TypeID != provider.TypeID || updated.Name != "Navi 2" {
		t.Errorf("updated = %+v", updated)
	}

	after, _, err := st.GetProvider(domain.ProviderTypeSubsonic, provider.TypeID)
	if err != nil {
		t.Fatal(err)
	}
	if after.DeviceID != before.DeviceID {
		t.Error("update rotated the device ID")
	}

	if got := registry.Providers(); len(got) != 2 || got[1].Name != "Navi 2" {
		t.Errorf("providers = %+v", got)
	}
}

func TestUpdateMissingProvider(t *testing.T) {
	registry, _ := newTestRegistry(t)
	_, err := registry.UpdateProvider(domain.ProviderTypeSubsonic, 99, "Ghost", subsonicArgs("https://ghost.example"))
	if domain.KindOf(err) != domain.ErrNotFound {
		t.Errorf("KindOf = %v, want ErrNotFound", domain.KindOf(err))
	}
}

func TestDeleteProviderCascades(t *testing.T) {
	registry, st := newTestRegistry(t)

	provider, err := registry.AddProvider(domain.ProviderTypeJellyfin, "Fin", map[string]string{
		domain.ArgServer:   "https://fin.example",
		domain.ArgUsername: "alice",
		domain.ArgPassword: "secret",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := st.SetToken(domain.ProviderTypeJellyfin, provider.TypeID, "cached-token"); err != nil {
		t.Fatal(err)
	}

	if err := registry.DeleteProvider(domain.ProviderTypeJellyfin, provider.TypeID); err != nil {
		t.Fatalf("DeleteProvider() error = %v", err)
	}

	if _, ok := registry.SourceFor(domain.ProviderTypeJellyfin, provider.TypeID); ok {
		t.Error("deleted provider still has a live source")
	}
	if token, err := st.GetToken(domain.ProviderTypeJellyfin, provider.TypeID); err != nil || token != "" {
		t.Errorf("token after delete = %q, %v", token, err)
	}

	// The freed namespace is reusable
	if _, err := registry.AddProvider(domain.ProviderTypeSubsonic, "Reuse", subsonicArgs("https://fin.example")); err != nil {
		t.Errorf("AddProvider(freed namespace) error = %v", err)
	}
}

func TestConcurrentAddProviderLosesNoEntry(t *testing.T) {
	registry, _ := newTestRegistry(t)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("Navi %d", i)
			server := fmt.Sprintf("https://navi%d.example", i)
			if _, err := registry.AddProvider(domain.ProviderTypeSubsonic, name, subsonicArgs(server)); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("AddProvider() error = %v", err)
	}

	// Every add must survive into the snapshot, plus the local provider
	if got := len(registry.Providers()); got != workers+1 {
		t.Errorf("providers = %d, want %d", got, workers+1)
	}
}

func TestLocalProviderMutationRejected(t *testing.T) {
	registry, _ := newTestRegistry(t)

	if _, err := registry.AddProvider(domain.ProviderTypeLocal, "x", nil); !errors.Is(err, domain.ErrNotImplemented) {
		t.Errorf("add error = %v, want ErrNotImplemented", err)
	}
	if _, err := registry.UpdateProvider(domain.ProviderTypeLocal, domain.LocalProviderID, "x", nil); !errors.Is(err, domain.ErrNotImplemented) {
		t.Errorf("update error = %v, want ErrNotImplemented", err)
	}
	if err := registry.DeleteProvider(domain.ProviderTypeLocal, domain.LocalProviderID); !errors.Is(err, domain.ErrNotImplemented) {
		t.Errorf("delete error = %v, want ErrNotImplemented", err)
	}
}

func TestProviderArgumentsReadBack(t *testing.T) {
	registry, _ := newTestRegistry(t)

	provider, err := registry.AddProvider(domain.ProviderTypeSubsonic, "Navi", subsonicArgs("https://navi.example"))
	if err != nil {
		t.Fatal(err)
	}

	args, err := registry.ProviderArguments(domain.ProviderTypeSubsonic, provider.TypeID)
	if err != nil {
		t.Fatalf("ProviderArguments() error = %v", err)
	}
	if args[domain.ArgServer] != "https://navi.example" || args[domain.ArgUsername] != "alice" || args[domain.ArgPassword] != "secret" {
		t.Errorf("args = %v", args)
	}

	if _, err := registry.ProviderArguments(domain.ProviderTypeSubsonic, 99); domain.KindOf(err) != domain.ErrNotFound {
		t.Errorf("missing provider KindOf = %v, want ErrNotFound", domain.KindOf(err))
	}
}

func TestRegistryRehydratesPersistedProviders(t *testing.T) {
	dir := t.TempDir()

	st, err := store.Open(filepath.Join(dir, "store.db"))
	if err != nil {
		t.Fatal(err)
	}
	index, err := local.OpenIndex(filepath.Join(dir, "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	localSource := local.NewSource(index, st, config.NullLogger())

	first, err := New(st, localSource, 5*time.Second, config.NullLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := first.AddProvider(domain.ProviderTypeSubsonic, "Navi", subsonicArgs("https://navi.example")); err != nil {
		t.Fatal(err)
	}

	// A fresh registry over the same store sees the provider again
	second, err := New(st, localSource, 5*time.Second, config.NullLogger())
	if err != nil {
		t.Fatalf("New() after restart error = %v", err)
	}
	providers := second.Providers()
	if len(providers) != 2 || providers[1].Name != "Navi" {
		t.Errorf("providers after restart = %+v", providers)
	}

	st.Close()
	index.Close()
}
