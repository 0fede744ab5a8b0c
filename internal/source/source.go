// Package source defines the capability contract every media backend
// implements. The repository layer routes to these interfaces and never to a
// concrete backend type.
package source

import (
	"context"

	"github.com/medleyfm/medley/internal/domain"
	"github.com/medleyfm/medley/internal/flow"
)

// MediaDataSource is the unified interface for one backend: URI ownership,
// type classification, live listings, single-item lookup, search, and
// playlist mutations. Listing and lookup results are live streams that
// re-emit when the backend's data changes; mutations are one-shot calls
// with explicit error returns.
//
// Implementations must guarantee URI-namespace exclusivity: no URI may be
// declared compatible by two distinct configured sources.
type MediaDataSource interface {
	// IsMediaItemCompatible reports whether this source owns the URI.
	// Must be a cheap prefix test against the source's base URIs.
	IsMediaItemCompatible(mediaItemURI string) bool

	// MediaTypeOf classifies an owned URI. Returns ErrNotFound for a URI
	// this source does not own.
	MediaTypeOf(mediaItemURI string) (domain.MediaType, error)

	// Activity returns personalized content shelves. Sources with no such
	// concept emit an empty success.
	Activity() *flow.Stream[domain.RequestStatus[[]domain.ActivityTab]]

	// Albums lists all albums, best-effort sorted per the rule
	Albums(rule domain.SortingRule) *flow.Stream[domain.RequestStatus[[]domain.Album]]

	// Artists lists all artists, best-effort sorted per the rule
	Artists(rule domain.SortingRule) *flow.Stream[domain.RequestStatus[[]domain.Artist]]

	// Genres lists all genres, best-effort sorted per the rule
	Genres(rule domain.SortingRule) *flow.Stream[domain.RequestStatus[[]domain.Genre]]

	// Playlists lists all playlists, best-effort sorted per the rule.
	// The stream re-emits after any playlist mutation on this source.
	Playlists(rule domain.SortingRule) *flow.Stream[domain.RequestStatus[[]domain.Playlist]]

	// Search returns items matching the query across all media types
	Search(query string) *flow.Stream[domain.RequestStatus[[]domain.Item]]

	// Audio looks up a single track by URI
	Audio(audioURI string) *flow.Stream[domain.RequestStatus[domain.Audio]]

	// Album looks up an album and its tracks by URI
	Album(albumURI string) *flow.Stream[domain.RequestStatus[domain.AlbumDetail]]

	// Artist looks up an artist and their works by URI
	Artist(artistURI string) *flow.Stream[domain.RequestStatus[domain.ArtistWorks]]

	// Genre looks up a genre and its content by URI
	Genre(genreURI string) *flow.Stream[domain.RequestStatus[domain.GenreContent]]

	// Playlist looks up a playlist and its tracks by URI. The stream
	// re-emits after any playlist mutation on this source.
	Playlist(playlistURI string) *flow.Stream[domain.RequestStatus[domain.PlaylistDetail]]

	// AudioPlaylistsStatus reports, for every playlist on this source,
	// whether the given audio is a member
	AudioPlaylistsStatus(audioURI string) *flow.Stream[domain.RequestStatus[[]domain.PlaylistStatus]]

	// CreatePlaylist creates a playlist and returns its URI
	CreatePlaylist(ctx context.Context, name string) (string, error)

	// RenamePlaylist renames an existing playlist
	RenamePlaylist(ctx context.Context, playlistURI, name string) error

	// DeletePlaylist deletes a playlist
	DeletePlaylist(ctx context.Context, playlistURI string) error

	// AddAudioToPlaylist appends a track to a playlist
	AddAudioToPlaylist(ctx context.Context, playlistURI, audioURI string) error

	// RemoveAudioFromPlaylist removes a track from a playlist
	RemoveAudioFromPlaylist(ctx context.Context, playlistURI, audioURI string) error
}
