// Package repository is the unified access layer over every configured
// provider. Browse operations follow the selected navigation provider;
// item operations route by URI ownership. Either way the routing decision
// is re-evaluated against the live provider snapshot, so open streams
// follow configuration changes without re-subscription.
package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/medleyfm/medley/internal/domain"
	"github.com/medleyfm/medley/internal/flow"
	"github.com/medleyfm/medley/internal/metrics"
	"github.com/medleyfm/medley/internal/registry"
	"github.com/medleyfm/medley/internal/source"
)

// Default listing orders. Albums, artists and playlists surface the
// freshest content first; genres read best alphabetically.
var (
	DefaultAlbumsSorting    = domain.SortingRule{Strategy: domain.SortByCreationDate, Reverse: true}
	DefaultArtistsSorting   = domain.SortingRule{Strategy: domain.SortByModificationDate, Reverse: true}
	DefaultGenresSorting    = domain.SortingRule{Strategy: domain.SortByName}
	DefaultPlaylistsSorting = domain.SortingRule{Strategy: domain.SortByModificationDate, Reverse: true}
)

// selection is the user's navigation choice. It names a provider identity
// rather than holding the source so a deleted provider degrades cleanly.
type selection struct {
	providerType domain.ProviderType
	typeID       int64
}

var localSelection = selection{providerType: domain.ProviderTypeLocal, typeID: domain.LocalProviderID}

// MediaRepository multiplexes every configured data source behind one
// query and mutation surface.
type MediaRepository struct {
	registry *registry.Registry
	logger   *slog.Logger

	selected *flow.State[selection]
}

// New creates a repository over a provider registry. Navigation starts on
// the local provider.
func New(reg *registry.Registry, logger *slog.Logger) *MediaRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &MediaRepository{
		registry: reg,
		logger:   logger.With("component", "repository"),
		selected: flow.NewState(localSelection),
	}
}

// SetNavigationProvider switches the provider that browse operations read
// from. Unknown identities are accepted; resolution falls back to local
// until the provider appears.
func (r *MediaRepository) SetNavigationProvider(providerType domain.ProviderType, typeID int64) {
	r.selected.Set(selection{providerType: providerType, typeID: typeID})
}

// NavigationProvider streams the effective navigation provider: the selected
// one while it exists, the local provider otherwise. Re-emits when either
// the selection or the provider set changes.
func (r *MediaRepository) NavigationProvider() *flow.Stream[domain.Provider] {
	return flow.SwitchMap(r.registry.Entries(), func(entries []registry.Entry) *flow.Stream[domain.Provider] {
		return flow.SwitchMap(r.selected, func(sel selection) *flow.Stream[domain.Provider] {
			return flow.Of(resolveNavigation(entries, sel).Provider)
		})
	})
}

// resolveNavigation picks the entry the selection names, or the local entry
// when the selection no longer resolves. The local entry is always present.
func resolveNavigation(entries []registry.Entry, sel selection) registry.Entry {
	var local registry.Entry
	for _, entry := range entries {
		if entry.Provider.Is(sel.providerType, sel.typeID) {
			return entry
		}
		if entry.Provider.Type == domain.ProviderTypeLocal {
			local = entry
		}
	}
	return local
}

// navigate builds a browse stream that re-routes across snapshot and
// selection changes
func navigate[T any](r *MediaRepository, operation string, op func(source.MediaDataSource) *flow.Stream[T]) *flow.Stream[T] {
	return flow.SwitchMap(r.registry.Entries(), func(entries []registry.Entry) *flow.Stream[T] {
		return flow.SwitchMap(r.selected, func(sel selection) *flow.Stream[T] {
			entry := resolveNavigation(entries, sel)
			metrics.Requests.WithLabelValues(string(entry.Provider.Type), operation).Inc()
			return op(entry.Source)
		})
	})
}

// Activity returns the navigation provider's personalized shelves
func (r *MediaRepository) Activity() *flow.Stream[domain.RequestStatus[[]domain.ActivityTab]] {
	return navigate(r, "activity", func(s source.MediaDataSource) *flow.Stream[domain.RequestStatus[[]domain.ActivityTab]] {
		return s.Activity()
	})
}

// Albums lists the navigation provider's albums
func (r *MediaRepository) Albums(rule domain.SortingRule) *flow.Stream[domain.RequestStatus[[]domain.Album]] {
	return navigate(r, "albums", func(s source.MediaDataSource) *flow.Stream[domain.RequestStatus[[]domain.Album]] {
		return s.Albums(rule)
	})
}

// Artists lists the navigation provider's artists
func (r *MediaRepository) Artists(rule domain.SortingRule) *flow.Stream[domain.RequestStatus[[]domain.Artist]] {
	return navigate(r, "artists", func(s source.MediaDataSource) *flow.Stream[domain.RequestStatus[[]domain.Artist]] {
		return s.Artists(rule)
	})
}

// Genres lists the navigation provider's genres
func (r *MediaRepository) Genres(rule domain.SortingRule) *flow.Stream[domain.RequestStatus[[]domain.Genre]] {
	return navigate(r, "genres", func(s source.MediaDataSource) *flow.Stream[domain.RequestStatus[[]domain.Genre]] {
		return s.Genres(rule)
	})
}

// Playlists lists the navigation provider's playlists
func (r *MediaRepository) Playlists(rule domain.SortingRule) *flow.Stream[domain.RequestStatus[[]domain.Playlist]] {
	return navigate(r, "playlists", func(s source.MediaDataSource) *flow.Stream[domain.RequestStatus[[]domain.Playlist]] {
		return s.Playlists(rule)
	})
}

// Search searches within the navigation provider
func (r *MediaRepository) Search(query string) *flow.Stream[domain.RequestStatus[[]domain.Item]] {
	return navigate(r, "search", func(s source.MediaDataSource) *flow.Stream[domain.RequestStatus[[]domain.Item]] {
		return s.Search(query)
	})
}

// ownerOf resolves the single provider whose namespace contains the URI
func ownerOf(entries []registry.Entry, uri string) (registry.Entry, bool) {
	for _, entry := range entries {
		if entry.Source.IsMediaItemCompatible(uri) {
			return entry, true
		}
	}
	return registry.Entry{}, false
}

// routeByURI builds an item stream owned by whichever provider claims the
// URI. An unclaimed URI is a stable not-found error, not a panic or a guess.
func routeByURI[T any](r *MediaRepository, operation, uri string, op func(source.MediaDataSource) *flow.Stream[T], notFound func() T) *flow.Stream[T] {
	return flow.SwitchMap(r.registry.Entries(), func(entries []registry.Entry) *flow.Stream[T] {
		entry, ok := ownerOf(entries, uri)
		if !ok {
			metrics.RoutingMisses.Inc()
			r.logger.Warn("no provider owns uri", "operation", operation, "uri", uri)
			return flow.Of(notFound())
		}
		metrics.Requests.WithLabelValues(string(entry.Provider.Type), operation).Inc()
		return op(entry.Source)
	})
}

// Audio resolves a single track by URI
func (r *MediaRepository) Audio(audioURI string) *flow.Stream[domain.RequestStatus[domain.Audio]] {
	return routeByURI(r, "audio", audioURI, func(s source.MediaDataSource) *flow.Stream[domain.RequestStatus[domain.Audio]] {
		return s.Audio(audioURI)
	}, notFoundStatus[domain.Audio])
}

// Album resolves an album and its tracks by URI
func (r *MediaRepository) Album(albumURI string) *flow.Stream[domain.RequestStatus[domain.AlbumDetail]] {
	return routeByURI(r, "album", albumURI, func(s source.MediaDataSource) *flow.Stream[domain.RequestStatus[domain.AlbumDetail]] {
		return s.Album(albumURI)
	}, notFoundStatus[domain.AlbumDetail])
}

// Artist resolves an artist and their works by URI
func (r *MediaRepository) Artist(artistURI string) *flow.Stream[domain.RequestStatus[domain.ArtistWorks]] {
	return routeByURI(r, "artist", artistURI, func(s source.MediaDataSource) *flow.Stream[domain.RequestStatus[domain.ArtistWorks]] {
		return s.Artist(artistURI)
	}, notFoundStatus[domain.ArtistWorks])
}

// Genre resolves a genre and its content by URI
func (r *MediaRepository) Genre(genreURI string) *flow.Stream[domain.RequestStatus[domain.GenreContent]] {
	return routeByURI(r, "genre", genreURI, func(s source.MediaDataSource) *flow.Stream[domain.RequestStatus[domain.GenreContent]] {
		return s.Genre(genreURI)
	}, notFoundStatus[domain.GenreContent])
}

// Playlist resolves a playlist and its tracks by URI
func (r *MediaRepository) Playlist(playlistURI string) *flow.Stream[domain.RequestStatus[domain.PlaylistDetail]] {
	return routeByURI(r, "playlist", playlistURI, func(s source.MediaDataSource) *flow.Stream[domain.RequestStatus[domain.PlaylistDetail]] {
		return s.Playlist(playlistURI)
	}, notFoundStatus[domain.PlaylistDetail])
}

// AudioPlaylistsStatus reports, playlist by playlist, whether the track is a
// member. Scoped to the track's owning provider; cross-provider membership
// is only meaningful for local playlists and is answered there.
func (r *MediaRepository) AudioPlaylistsStatus(audioURI string) *flow.Stream[domain.RequestStatus[[]domain.PlaylistStatus]] {
	return routeByURI(r, "audio_playlists_status", audioURI, func(s source.MediaDataSource) *flow.Stream[domain.RequestStatus[[]domain.PlaylistStatus]] {
		return s.AudioPlaylistsStatus(audioURI)
	}, notFoundStatus[[]domain.PlaylistStatus])
}

func notFoundStatus[T any]() domain.RequestStatus[T] {
	return domain.Failure[T](domain.ErrNotFound, nil)
}

// ProviderOfMediaItems resolves the single provider hosting every one of
// the given items. Items spanning providers, or any unclaimed item, resolve
// to not-found.
func (r *MediaRepository) ProviderOfMediaItems(uris ...string) (domain.Provider, error) {
	if len(uris) == 0 {
		return domain.Provider{}, domain.ErrNotFound
	}
	entries := r.registry.Entries().Get()
	first, ok := ownerOf(entries, uris[0])
	if !ok {
		metrics.RoutingMisses.Inc()
		return domain.Provider{}, domain.ErrNotFound
	}
	for _, uri := range uris[1:] {
		entry, ok := ownerOf(entries, uri)
		if !ok {
			metrics.RoutingMisses.Inc()
			return domain.Provider{}, domain.ErrNotFound
		}
		if !entry.Provider.Is(first.Provider.Type, first.Provider.TypeID) {
			return domain.Provider{}, fmt.Errorf("%w: items span more than one provider", domain.ErrNotFound)
		}
	}
	return first.Provider, nil
}

// MediaTypeOf classifies a URI through its owning provider
func (r *MediaRepository) MediaTypeOf(mediaItemURI string) (domain.MediaType, error) {
	entry, ok := ownerOf(r.registry.Entries().Get(), mediaItemURI)
	if !ok {
		metrics.RoutingMisses.Inc()
		return 0, domain.ErrNotFound
	}
	return entry.Source.MediaTypeOf(mediaItemURI)
}

// CreatePlaylist creates a playlist on the named provider and returns the
// new playlist's URI
func (r *MediaRepository) CreatePlaylist(ctx context.Context, providerType domain.ProviderType, typeID int64, name string) (string, error) {
	src, ok := r.registry.SourceFor(providerType, typeID)
	if !ok {
		return "", fmt.Errorf("%w: no such provider %s/%d", domain.ErrNotFound, providerType, typeID)
	}
	metrics.Requests.WithLabelValues(string(providerType), "create_playlist").Inc()
	return src.CreatePlaylist(ctx, name)
}

// RenamePlaylist renames the playlist through its owning provider
func (r *MediaRepository) RenamePlaylist(ctx context.Context, playlistURI, name string) error {
	entry, ok := ownerOf(r.registry.Entries().Get(), playlistURI)
	if !ok {
		metrics.RoutingMisses.Inc()
		return domain.ErrNotFound
	}
	metrics.Requests.WithLabelValues(string(entry.Provider.Type), "rename_playlist").Inc()
	return entry.Source.RenamePlaylist(ctx, playlistURI, name)
}

// DeletePlaylist deletes the playlist through its owning provider
func (r *MediaRepository) DeletePlaylist(ctx context.Context, playlistURI string) error {
	entry, ok := ownerOf(r.registry.Entries().Get(), playlistURI)
	if !ok {
		metrics.RoutingMisses.Inc()
		return domain.ErrNotFound
	}
	metrics.Requests.WithLabelValues(string(entry.Provider.Type), "delete_playlist").Inc()
	return entry.Source.DeletePlaylist(ctx, playlistURI)
}

// playlistMutationSource resolves the provider that owns both the playlist
// and the track. Membership never crosses providers: a mismatch on either
// URI is not-found.
func (r *MediaRepository) playlistMutationSource(playlistURI, audioURI string) (registry.Entry, error) {
	entry, ok := ownerOf(r.registry.Entries().Get(), playlistURI)
	if !ok {
		metrics.RoutingMisses.Inc()
		return registry.Entry{}, domain.ErrNotFound
	}
	if !entry.Source.IsMediaItemCompatible(audioURI) {
		return registry.Entry{}, fmt.Errorf("%w: track %q is not hosted by the playlist's provider", domain.ErrNotFound, audioURI)
	}
	return entry, nil
}

// AddAudioToPlaylist adds a track to a playlist through the provider that
// owns them both
func (r *MediaRepository) AddAudioToPlaylist(ctx context.Context, playlistURI, audioURI string) error {
	entry, err := r.playlistMutationSource(playlistURI, audioURI)
	if err != nil {
		return err
	}
	metrics.Requests.WithLabelValues(string(entry.Provider.Type), "add_audio_to_playlist").Inc()
	return entry.Source.AddAudioToPlaylist(ctx, playlistURI, audioURI)
}

// RemoveAudioFromPlaylist removes a track from a playlist through the
// provider that owns them both
func (r *MediaRepository) RemoveAudioFromPlaylist(ctx context.Context, playlistURI, audioURI string) error {
	entry, err := r.playlistMutationSource(playlistURI, audioURI)
	if err != nil {
		return err
	}
	metrics.Requests.WithLabelValues(string(entry.Provider.Type), "remove_audio_from_playlist").Inc()
	return entry.Source.RemoveAudioFromPlaylist(ctx, playlistURI, audioURI)
}
