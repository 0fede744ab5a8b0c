// Package registry owns the set of configured providers and the live data
// source instance behind each one. The current set is published as an
// immutable snapshot so routing decisions never race with configuration
// changes.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/medleyfm/medley/internal/domain"
	"github.com/medleyfm/medley/internal/flow"
	"github.com/medleyfm/medley/internal/source"
	"github.com/medleyfm/medley/internal/source/jellyfin"
	"github.com/medleyfm/medley/internal/source/local"
	"github.com/medleyfm/medley/internal/source/subsonic"
	"github.com/medleyfm/medley/internal/store"
)

const localProviderName = "On this device"

// Entry pairs a provider identity with its data source and the URI
// namespace the source owns.
type Entry struct {
	Provider domain.Provider
	Source   source.MediaDataSource
	BaseURI  string
}

// Registry materializes persisted provider rows into data sources and keeps
// the published snapshot in sync with configuration changes.
type Registry struct {
	store       *store.Store
	localSource *local.Source
	logger      *slog.Logger
	httpTimeout time.Duration

	validate *validator.Validate

	// mu serializes configuration changes; the namespace check and the
	// snapshot rewrite must see the same entry set
	mu      sync.Mutex
	entries *flow.State[[]Entry]
}

// New creates a registry, rebuilding the data sources of every persisted
// provider. A provider row that cannot be materialized is skipped with a
// log entry rather than failing startup.
func New(st *store.Store, localSource *local.Source, httpTimeout time.Duration, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		store:       st,
		localSource: localSource,
		logger:      logger.With("component", "registry"),
		httpTimeout: httpTimeout,
		validate:    validator.New(),
	}

	entries := []Entry{r.localEntry()}
	for _, providerType := range domain.ProviderTypes {
		if providerType == domain.ProviderTypeLocal {
			continue
		}
		rows, err := st.ListProviders(providerType)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s providers: %w", providerType, err)
		}
		for _, row := range rows {
			entry, err := r.materialize(row)
			if err != nil {
				r.logger.Error("provider disabled", "type", row.Type, "id", row.ID, "error", err)
				entry = r.disabledEntry(row)
			}
			entries = append(entries, entry)
		}
	}
	r.entries = flow.NewState(entries)
	return r, nil
}

func (r *Registry) localEntry() Entry {
	return Entry{
		Provider: domain.Provider{
			Type:    domain.ProviderTypeLocal,
			TypeID:  domain.LocalProviderID,
			Name:    localProviderName,
			Visible: true,
		},
		Source:  r.localSource,
		BaseURI: strings.TrimRight(local.BaseURI, "/"),
	}
}

// disabledEntry keeps an unmaterializable provider row in the snapshot,
// hidden and backed by a no-op source, so it can still be edited or deleted
func (r *Registry) disabledEntry(row store.ProviderRow) Entry {
	return Entry{
		Provider: domain.Provider{
			Type:   row.Type,
			TypeID: row.ID,
			Name:   row.Name,
		},
		Source: source.Noop{},
	}
}

// tokenStore adapts the key-value store to the per-provider token interface
// the Jellyfin authenticator expects
type tokenStore struct {
	store *store.Store
	id    int64
}

func (t tokenStore) Token() (string, error) {
	return t.store.GetToken(domain.ProviderTypeJellyfin, t.id)
}

func (t tokenStore) SetToken(token string) error {
	return t.store.SetToken(domain.ProviderTypeJellyfin, t.id, token)
}

// materialize builds the live data source for one persisted provider row
func (r *Registry) materialize(row store.ProviderRow) (Entry, error) {
	server := strings.TrimRight(row.Arguments[domain.ArgServer], "/")
	provider := domain.Provider{
		Type:    row.Type,
		TypeID:  row.ID,
		Name:    row.Name,
		Visible: true,
	}

	switch row.Type {
	case domain.ProviderTypeJellyfin:
		auth := jellyfin.NewAuthenticator(
			server,
			row.Arguments[domain.ArgUsername],
			row.Arguments[domain.ArgPassword],
			row.DeviceID,
			tokenStore{store: r.store, id: row.ID},
			r.logger,
		)
		client := jellyfin.NewClient(server, auth, r.httpTimeout, r.logger)
		return Entry{Provider: provider, Source: jellyfin.NewSource(server, client, r.logger), BaseURI: server}, nil

	case domain.ProviderTypeSubsonic:
		legacy := row.Arguments[domain.ArgUseLegacyAuth] == domain.ArgUseLegacyAuthEnabled
		client := subsonic.NewClient(
			server,
			row.Arguments[domain.ArgUsername],
			row.Arguments[domain.ArgPassword],
			legacy,
			r.httpTimeout,
			r.logger,
		)
		return Entry{Provider: provider, Source: subsonic.NewSource(server, client, r.logger), BaseURI: server}, nil

	default:
		return Entry{}, fmt.Errorf("unknown provider type %q", row.Type)
	}
}

// validateArguments checks the supplied values against the type's argument
// schema before anything is persisted
func (r *Registry) validateArguments(providerType domain.ProviderType, args domain.ProviderArguments) error {
	schema := providerType.Arguments()
	if schema == nil {
		return fmt.Errorf("provider type %q takes no arguments", providerType)
	}
	known := make(map[string]bool, len(schema))
	for _, arg := range schema {
		known[arg.Key] = true
		value := args[arg.Key]
		if value == "" && !arg.Required {
			continue
		}
		if err := r.validate.Var(value, arg.Rules); err != nil {
			return fmt.Errorf("invalid argument %q: %w", arg.Key, err)
		}
	}
	for key := range args {
		if !known[key] {
			return fmt.Errorf("unknown argument %q for provider type %q", key, providerType)
		}
	}
	return nil
}

// checkNamespace enforces URI exclusivity: no two providers may own
// overlapping namespaces. self excludes a provider's own entry during
// updates.
func (r *Registry) checkNamespace(baseURI string, self *domain.Provider) error {
	for _, entry := range r.entries.Get() {
		if self != nil && entry.Provider.Is(self.Type, self.TypeID) {
			continue
		}
		if strings.HasPrefix(baseURI+"/", entry.BaseURI+"/") || strings.HasPrefix(entry.BaseURI+"/", baseURI+"/") {
			return fmt.Errorf("%w: namespace %q conflicts with provider %q", domain.ErrAlreadyExists, baseURI, entry.Provider.Name)
		}
	}
	return nil
}

// AddProvider validates, persists and activates a new remote provider
func (r *Registry) AddProvider(providerType domain.ProviderType, name string, args domain.ProviderArguments) (domain.Provider, error) {
	if providerType == domain.ProviderTypeLocal {
		return domain.Provider{}, fmt.Errorf("%w: the local provider cannot be added", domain.ErrNotImplemented)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.validateArguments(providerType, args); err != nil {
		return domain.Provider{}, err
	}
	server := strings.TrimRight(args[domain.ArgServer], "/")
	if err := r.checkNamespace(server, nil); err != nil {
		return domain.Provider{}, err
	}

	row := store.ProviderRow{
		Type:      providerType,
		Name:      name,
		Arguments: args,
		DeviceID:  uuid.New().String(),
	}
	id, err := r.store.CreateProvider(row)
	if err != nil {
		return domain.Provider{}, err
	}
	row.ID = id

	entry, err := r.materialize(row)
	if err != nil {
		return domain.Provider{}, err
	}
	r.publish(append(r.snapshot(), entry))

	r.logger.Info("provider added", "type", providerType, "id", id, "name", name)
	return entry.Provider, nil
}

// UpdateProvider rewrites an existing provider's name and arguments and
// swaps in a freshly built data source
func (r *Registry) UpdateProvider(providerType domain.ProviderType, id int64, name string, args domain.ProviderArguments) (domain.Provider, error) {
	if providerType == domain.ProviderTypeLocal {
		return domain.Provider{}, fmt.Errorf("%w: the local provider cannot be updated", domain.ErrNotImplemented)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.validateArguments(providerType, args); err != nil {
		return domain.Provider{}, err
	}
	self := domain.Provider{Type: providerType, TypeID: id}
	server := strings.TrimRight(args[domain.ArgServer], "/")
	if err := r.checkNamespace(server, &self); err != nil {
		return domain.Provider{}, err
	}

	if err := r.store.UpdateProvider(store.ProviderRow{
		ID:        id,
		Type:      providerType,
		Name:      name,
		Arguments: args,
	}); err != nil {
		return domain.Provider{}, err
	}
	row, found, err := r.store.GetProvider(providerType, id)
	if err != nil {
		return domain.Provider{}, err
	}
	if !found {
		return domain.Provider{}, domain.ErrNotFound
	}

	entry, err := r.materialize(row)
	if err != nil {
		return domain.Provider{}, err
	}

	entries := r.snapshot()
	for i := range entries {
		if entries[i].Provider.Is(providerType, id) {
			entries[i] = entry
			break
		}
	}
	r.publish(entries)

	r.logger.Info("provider updated", "type", providerType, "id", id, "name", name)
	return entry.Provider, nil
}

// DeleteProvider removes a provider, its cached token and its live source
func (r *Registry) DeleteProvider(providerType domain.ProviderType, id int64) error {
	if providerType == domain.ProviderTypeLocal {
		return fmt.Errorf("%w: the local provider cannot be deleted", domain.ErrNotImplemented)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.DeleteProvider(providerType, id); err != nil {
		return err
	}

	entries := r.snapshot()
	for i := range entries {
		if entries[i].Provider.Is(providerType, id) {
			entries = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	r.publish(entries)

	r.logger.Info("provider deleted", "type", providerType, "id", id)
	return nil
}

// Provider looks up one configured provider by identity
func (r *Registry) Provider(providerType domain.ProviderType, id int64) (domain.Provider, bool) {
	for _, entry := range r.entries.Get() {
		if entry.Provider.Is(providerType, id) {
			return entry.Provider, true
		}
	}
	return domain.Provider{}, false
}

// SourceFor returns the live data source of one provider
func (r *Registry) SourceFor(providerType domain.ProviderType, id int64) (source.MediaDataSource, bool) {
	for _, entry := range r.entries.Get() {
		if entry.Provider.Is(providerType, id) {
			return entry.Source, true
		}
	}
	return nil, false
}

// ProviderArguments reads back the stored argument values of a provider,
// for prefilling an edit form. Secret values are included; redaction is a
// presentation concern.
func (r *Registry) ProviderArguments(providerType domain.ProviderType, id int64) (domain.ProviderArguments, error) {
	if providerType == domain.ProviderTypeLocal {
		return domain.ProviderArguments{}, nil
	}
	row, found, err := r.store.GetProvider(providerType, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrNotFound
	}
	return row.Arguments, nil
}

// Entries exposes the live snapshot state for routing and switching
func (r *Registry) Entries() *flow.State[[]Entry] {
	return r.entries
}

// Providers returns the providers of the current snapshot, local first
func (r *Registry) Providers() []domain.Provider {
	entries := r.entries.Get()
	providers := make([]domain.Provider, 0, len(entries))
	for _, entry := range entries {
		providers = append(providers, entry.Provider)
	}
	return providers
}

// AllProviders streams the provider list, re-emitting on every snapshot
// change
func (r *Registry) AllProviders() *flow.Stream[[]domain.Provider] {
	return flow.New(func(ctx context.Context, emit func([]domain.Provider)) {
		sub := r.entries.Watch(ctx)
		defer sub.Cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case entries := <-sub.C:
				providers := make([]domain.Provider, 0, len(entries))
				for _, entry := range entries {
					providers = append(providers, entry.Provider)
				}
				emit(providers)
			}
		}
	})
}

// snapshot copies the current entry slice so published values stay immutable
func (r *Registry) snapshot() []Entry {
	current := r.entries.Get()
	entries := make([]Entry, len(current))
	copy(entries, current)
	return entries
}

func (r *Registry) publish(entries []Entry) {
	r.entries.Set(entries)
}
