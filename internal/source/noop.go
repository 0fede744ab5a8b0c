package source

import (
	"context"

	"github.com/medleyfm/medley/internal/domain"
	"github.com/medleyfm/medley/internal/flow"
)

// Noop is a data source that owns no URI: listings are empty successes,
// lookups fail with ErrNotFound and writes with ErrNotImplemented. It stands
// in wherever a real source is momentarily unavailable.
type Noop struct{}

func (Noop) IsMediaItemCompatible(string) bool { return false }

func (Noop) MediaTypeOf(string) (domain.MediaType, error) {
	return 0, domain.ErrNotFound
}

func (Noop) Activity() *flow.Stream[domain.RequestStatus[[]domain.ActivityTab]] {
	return flow.Of(domain.Success([]domain.ActivityTab{}))
}

func (Noop) Albums(domain.SortingRule) *flow.Stream[domain.RequestStatus[[]domain.Album]] {
	return flow.Of(domain.Success([]domain.Album{}))
}

func (Noop) Artists(domain.SortingRule) *flow.Stream[domain.RequestStatus[[]domain.Artist]] {
	return flow.Of(domain.Success([]domain.Artist{}))
}

func (Noop) Genres(domain.SortingRule) *flow.Stream[domain.RequestStatus[[]domain.Genre]] {
	return flow.Of(domain.Success([]domain.Genre{}))
}

func (Noop) Playlists(domain.SortingRule) *flow.Stream[domain.RequestStatus[[]domain.Playlist]] {
	return flow.Of(domain.Success([]domain.Playlist{}))
}

func (Noop) Search(string) *flow.Stream[domain.RequestStatus[[]domain.Item]] {
	return flow.Of(domain.Success([]domain.Item{}))
}

func (Noop) Audio(string) *flow.Stream[domain.RequestStatus[domain.Audio]] {
	return flow.Of(domain.Failure[domain.Audio](domain.ErrNotFound, nil))
}

func (Noop) Album(string) *flow.Stream[domain.RequestStatus[domain.AlbumDetail]] {
	return flow.Of(domain.Failure[domain.AlbumDetail](domain.ErrNotFound, nil))
}

func (Noop) Artist(string) *flow.Stream[domain.RequestStatus[domain.ArtistWorks]] {
	return flow.Of(domain.Failure[domain.ArtistWorks](domain.ErrNotFound, nil))
}

func (Noop) Genre(string) *flow.Stream[domain.RequestStatus[domain.GenreContent]] {
	return flow.Of(domain.Failure[domain.GenreContent](domain.ErrNotFound, nil))
}

func (Noop) Playlist(string) *flow.Stream[domain.RequestStatus[domain.PlaylistDetail]] {
	return flow.Of(domain.Failure[domain.PlaylistDetail](domain.ErrNotFound, nil))
}

func (Noop) AudioPlaylistsStatus(string) *flow.Stream[domain.RequestStatus[[]domain.PlaylistStatus]] {
	return flow.Of(domain.Failure[[]domain.PlaylistStatus](domain.ErrNotFound, nil))
}

func (Noop) CreatePlaylist(context.Context, string) (string, error) {
	return "", domain.ErrNotImplemented
}

func (Noop) RenamePlaylist(context.Context, string, string) error {
	return domain.ErrNotImplemented
}

func (Noop) DeletePlaylist(context.Context, string) error {
	return domain.ErrNotImplemented
}

func (Noop) AddAudioToPlaylist(context.Context, string, string) error {
	return domain.ErrNotImplemented
}

func (Noop) RemoveAudioFromPlaylist(context.Context, string, string) error {
	return domain.ErrNotImplemented
}
