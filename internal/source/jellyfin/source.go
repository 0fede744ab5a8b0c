// Package jellyfin implements the media data source contract against a
// Jellyfin-compatible server.
package jellyfin

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/medleyfm/medley/internal/domain"
	"github.com/medleyfm/medley/internal/flow"
	"github.com/medleyfm/medley/internal/source"
)

// URI path segments under the server base URI. The base URI doubles as the
// source's ownership namespace: any URI prefixed by it belongs here.
const (
	albumsPath    = "albums"
	artistsPath   = "artists"
	audiosPath    = "audio"
	genresPath    = "genres"
	playlistsPath = "playlists"
)

// Source is the Jellyfin-backed media data source for one configured
// provider.
type Source struct {
	client *Client
	logger *slog.Logger

	baseURI string

	playlistsChanged *flow.Signal
}

var _ source.MediaDataSource = (*Source)(nil)

// NewSource creates a data source on top of an authenticated client.
// serverURL is both the API endpoint and the URI namespace this source
// declares ownership of.
func NewSource(serverURL string, client *Client, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		client:           client,
		logger:           logger.With("source", "jellyfin"),
		baseURI:          strings.TrimRight(serverURL, "/"),
		playlistsChanged: flow.NewSignal(),
	}
}

// BaseURI returns the namespace this source owns
func (s *Source) BaseURI() string { return s.baseURI }

func (s *Source) albumURI(id string) string    { return s.baseURI + "/" + albumsPath + "/" + id }
func (s *Source) artistURI(id string) string   { return s.baseURI + "/" + artistsPath + "/" + id }
func (s *Source) audioURI(id string) string    { return s.baseURI + "/" + audiosPath + "/" + id }
func (s *Source) genreURI(id string) string    { return s.baseURI + "/" + genresPath + "/" + id }
func (s *Source) playlistURI(id string) string { return s.baseURI + "/" + playlistsPath + "/" + id }

func (s *Source) thumbnailURL(id string) string {
	return s.baseURI + "/Items/" + url.PathEscape(id) + "/Images/Primary"
}

// idFromURI strips the namespace and type segment, leaving the server ID
func idFromURI(uri string) string {
	return uri[strings.LastIndex(uri, "/")+1:]
}

func (s *Source) IsMediaItemCompatible(mediaItemURI string) bool {
	return strings.HasPrefix(mediaItemURI, s.baseURI+"/")
}

func (s *Source) MediaTypeOf(mediaItemURI string) (domain.MediaType, error) {
	rest, ok := strings.CutPrefix(mediaItemURI, s.baseURI+"/")
	if !ok {
		return 0, domain.ErrNotFound
	}
	switch {
	case strings.HasPrefix(rest, albumsPath+"/"):
		return domain.MediaTypeAlbum, nil
	case strings.HasPrefix(rest, artistsPath+"/"):
		return domain.MediaTypeArtist, nil
	case strings.HasPrefix(rest, audiosPath+"/"):
		return domain.MediaTypeAudio, nil
	case strings.HasPrefix(rest, genresPath+"/"):
		return domain.MediaTypeGenre, nil
	case strings.HasPrefix(rest, playlistsPath+"/"):
		return domain.MediaTypePlaylist, nil
	default:
		return 0, domain.ErrNotFound
	}
}

// Activity is unsupported by Jellyfin-style servers; it defaults to an
// empty success.
func (s *Source) Activity() *flow.Stream[domain.RequestStatus[[]domain.ActivityTab]] {
	return flow.Of(domain.Success([]domain.ActivityTab{}))
}

func (s *Source) Albums(rule domain.SortingRule) *flow.Stream[domain.RequestStatus[[]domain.Album]] {
	return source.Fetch(func(ctx context.Context) ([]domain.Album, error) {
		result, err := s.client.GetAlbums(ctx, rule)
		if err != nil {
			return nil, err
		}
		albums := make([]domain.Album, 0, len(result.Items))
		for _, it := range result.Items {
			albums = append(albums, s.mapAlbum(it))
		}
		return albums, nil
	})
}

func (s *Source) Artists(rule domain.SortingRule) *flow.Stream[domain.RequestStatus[[]domain.Artist]] {
	return source.Fetch(func(ctx context.Context) ([]domain.Artist, error) {
		result, err := s.client.GetArtists(ctx, rule)
		if err != nil {
			return nil, err
		}
		artists := make([]domain.Artist, 0, len(result.Items))
		for _, it := range result.Items {
			artists = append(artists, s.mapArtist(it))
		}
		return artists, nil
	})
}

func (s *Source) Genres(rule domain.SortingRule) *flow.Stream[domain.RequestStatus[[]domain.Genre]] {
	return source.Fetch(func(ctx context.Context) ([]domain.Genre, error) {
		result, err := s.client.GetGenres(ctx, rule)
		if err != nil {
			return nil, err
		}
		genres := make([]domain.Genre, 0, len(result.Items))
		for _, it := range result.Items {
			genres = append(genres, s.mapGenre(it))
		}
		return genres, nil
	})
}

func (s *Source) Playlists(rule domain.SortingRule) *flow.Stream[domain.RequestStatus[[]domain.Playlist]] {
	return source.Refetch(s.playlistsChanged, func(ctx context.Context) ([]domain.Playlist, error) {
		result, err := s.client.GetPlaylists(ctx, rule)
		if err != nil {
			return nil, err
		}
		playlists := make([]domain.Playlist, 0, len(result.Items))
		for _, it := range result.Items {
			playlists = append(playlists, s.mapPlaylist(it))
		}
		return playlists, nil
	})
}

func (s *Source) Search(query string) *flow.Stream[domain.RequestStatus[[]domain.Item]] {
	return source.Fetch(func(ctx context.Context) ([]domain.Item, error) {
		result, err := s.client.Search(ctx, query)
		if err != nil {
			return nil, err
		}
		items := make([]domain.Item, 0, len(result.Items))
		for _, it := range result.Items {
			if mapped := s.mapItem(it); mapped != nil {
				items = append(items, mapped)
			}
		}
		return items, nil
	})
}

func (s *Source) Audio(audioURI string) *flow.Stream[domain.RequestStatus[domain.Audio]] {
	return source.Fetch(func(ctx context.Context) (domain.Audio, error) {
		it, err := s.client.GetItem(ctx, idFromURI(audioURI))
		if err != nil {
			return domain.Audio{}, err
		}
		return s.mapAudio(it), nil
	})
}

func (s *Source) Album(albumURI string) *flow.Stream[domain.RequestStatus[domain.AlbumDetail]] {
	return source.Fetch(func(ctx context.Context) (domain.AlbumDetail, error) {
		id := idFromURI(albumURI)
		it, err := s.client.GetItem(ctx, id)
		if err != nil {
			return domain.AlbumDetail{}, err
		}
		tracks, err := s.client.GetAlbumTracks(ctx, id)
		if err != nil {
			return domain.AlbumDetail{}, err
		}
		detail := domain.AlbumDetail{Album: s.mapAlbum(it)}
		for _, track := range tracks.Items {
			detail.Tracks = append(detail.Tracks, s.mapAudio(track))
		}
		return detail, nil
	})
}

func (s *Source) Artist(artistURI string) *flow.Stream[domain.RequestStatus[domain.ArtistWorks]] {
	return source.Fetch(func(ctx context.Context) (domain.ArtistWorks, error) {
		id := idFromURI(artistURI)
		it, err := s.client.GetItem(ctx, id)
		if err != nil {
			return domain.ArtistWorks{}, err
		}
		albums, err := s.client.GetArtistWorks(ctx, id)
		if err != nil {
			return domain.ArtistWorks{}, err
		}
		works := domain.ArtistWorks{Artist: s.mapArtist(it)}
		for _, album := range albums.Items {
			works.Albums = append(works.Albums, s.mapAlbum(album))
		}
		return works, nil
	})
}

func (s *Source) Genre(genreURI string) *flow.Stream[domain.RequestStatus[domain.GenreContent]] {
	return source.Fetch(func(ctx context.Context) (domain.GenreContent, error) {
		id := idFromURI(genreURI)
		it, err := s.client.GetItem(ctx, id)
		if err != nil {
			return domain.GenreContent{}, err
		}
		mixed, err := s.client.GetGenreContent(ctx, id)
		if err != nil {
			return domain.GenreContent{}, err
		}
		content := domain.GenreContent{Genre: s.mapGenre(it)}
		for _, entry := range mixed.Items {
			switch entry.Type {
			case "MusicAlbum":
				content.Albums = append(content.Albums, s.mapAlbum(entry))
			case "Audio":
				content.Audios = append(content.Audios, s.mapAudio(entry))
			}
		}
		return content, nil
	})
}

func (s *Source) Playlist(playlistURI string) *flow.Stream[domain.RequestStatus[domain.PlaylistDetail]] {
	return source.Refetch(s.playlistsChanged, func(ctx context.Context) (domain.PlaylistDetail, error) {
		id := idFromURI(playlistURI)
		it, err := s.client.GetItem(ctx, id)
		if err != nil {
			return domain.PlaylistDetail{}, err
		}
		tracks, err := s.client.GetPlaylistTracks(ctx, id)
		if err != nil {
			return domain.PlaylistDetail{}, err
		}
		detail := domain.PlaylistDetail{Playlist: s.mapPlaylist(it)}
		for _, track := range tracks.Items {
			detail.Tracks = append(detail.Tracks, s.mapAudio(track))
		}
		return detail, nil
	})
}

func (s *Source) AudioPlaylistsStatus(audioURI string) *flow.Stream[domain.RequestStatus[[]domain.PlaylistStatus]] {
	return source.Refetch(s.playlistsChanged, func(ctx context.Context) ([]domain.PlaylistStatus, error) {
		audioID := idFromURI(audioURI)
		playlists, err := s.client.GetPlaylists(ctx, domain.SortingRule{Strategy: domain.SortByName})
		if err != nil {
			return nil, err
		}
		statuses := make([]domain.PlaylistStatus, 0, len(playlists.Items))
		for _, it := range playlists.Items {
			entries, err := s.client.GetPlaylistItemIDs(ctx, it.ID)
			if err != nil {
				return nil, err
			}
			contains := false
			for _, entryID := range entries.ItemIDs {
				if entryID == audioID {
					contains = true
					break
				}
			}
			statuses = append(statuses, domain.PlaylistStatus{
				Playlist:      s.mapPlaylist(it),
				ContainsAudio: contains,
			})
		}
		return statuses, nil
	})
}

func (s *Source) CreatePlaylist(ctx context.Context, name string) (string, error) {
	id, err := s.client.CreatePlaylist(ctx, name)
	if err != nil {
		return "", err
	}
	s.playlistsChanged.Raise()
	return s.playlistURI(id), nil
}

func (s *Source) RenamePlaylist(ctx context.Context, playlistURI, name string) error {
	if err := s.client.RenamePlaylist(ctx, idFromURI(playlistURI), name); err != nil {
		return err
	}
	s.playlistsChanged.Raise()
	return nil
}

func (s *Source) DeletePlaylist(ctx context.Context, playlistURI string) error {
	if err := s.client.DeletePlaylist(ctx, idFromURI(playlistURI)); err != nil {
		return err
	}
	s.playlistsChanged.Raise()
	return nil
}

func (s *Source) AddAudioToPlaylist(ctx context.Context, playlistURI, audioURI string) error {
	if err := s.client.AddItemToPlaylist(ctx, idFromURI(playlistURI), idFromURI(audioURI)); err != nil {
		return err
	}
	s.playlistsChanged.Raise()
	return nil
}

func (s *Source) RemoveAudioFromPlaylist(ctx context.Context, playlistURI, audioURI string) error {
	if err := s.client.RemoveItemFromPlaylist(ctx, idFromURI(playlistURI), idFromURI(audioURI)); err != nil {
		return err
	}
	s.playlistsChanged.Raise()
	return nil
}
