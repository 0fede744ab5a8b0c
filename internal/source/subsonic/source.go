// Package subsonic implements the media data source contract against a
// Subsonic-compatible server.
package subsonic

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/medleyfm/medley/internal/domain"
	"github.com/medleyfm/medley/internal/flow"
	"github.com/medleyfm/medley/internal/source"
)

const (
	albumsPath    = "albums"
	artistsPath   = "artists"
	audiosPath    = "audio"
	genresPath    = "genres"
	playlistsPath = "playlists"

	// getAlbumList2 and getSongsByGenre are paged; one page this large
	// covers the libraries these servers typically hold
	listPageSize = 500
)

// Source is the Subsonic-backed media data source for one configured
// provider.
type Source struct {
	client *Client
	logger *slog.Logger

	baseURI string

	playlistsChanged *flow.Signal
}

var _ source.MediaDataSource = (*Source)(nil)

// NewSource creates a data source on top of a client. serverURL is both the
// API endpoint and the URI namespace this source declares ownership of.
func NewSource(serverURL string, client *Client, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		client:           client,
		logger:           logger.With("source", "subsonic"),
		baseURI:          strings.TrimRight(serverURL, "/"),
		playlistsChanged: flow.NewSignal(),
	}
}

// BaseURI returns the namespace this source owns
func (s *Source) BaseURI() string { return s.baseURI }

func (s *Source) albumURI(id string) string  { return s.baseURI + "/" + albumsPath + "/" + id }
func (s *Source) artistURI(id string) string { return s.baseURI + "/" + artistsPath + "/" + id }
func (s *Source) audioURI(id string) string  { return s.baseURI + "/" + audiosPath + "/" + id }

// genreURI addresses genres by name, since Subsonic has no genre IDs
func (s *Source) genreURI(name string) string {
	return s.baseURI + "/" + genresPath + "/" + url.PathEscape(name)
}

func (s *Source) playlistURI(id string) string { return s.baseURI + "/" + playlistsPath + "/" + id }

func idFromURI(uri string) string {
	return uri[strings.LastIndex(uri, "/")+1:]
}

func genreNameFromURI(uri string) string {
	name, err := url.PathUnescape(idFromURI(uri))
	if err != nil {
		return idFromURI(uri)
	}
	return name
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

// Activity is unsupported by Subsonic-style servers; it defaults to an
// empty success.
func (s *Source) Activity() *flow.Stream[domain.RequestStatus[[]domain.ActivityTab]] {
	return flow.Of(domain.Success([]domain.ActivityTab{}))
}

func (s *Source) Albums(rule domain.SortingRule) *flow.Stream[domain.RequestStatus[[]domain.Album]] {
	return source.Fetch(func(ctx context.Context) ([]domain.Album, error) {
		result, err := s.client.GetAlbums(ctx, "alphabeticalByName", listPageSize)
		if err != nil {
			return nil, err
		}
		albums := make([]domain.Album, 0, len(result))
		for _, a := range result {
			albums = append(albums, s.mapAlbum(a))
		}
		sortAlbums(albums, rule)
		return albums, nil
	})
}

func (s *Source) Artists(rule domain.SortingRule) *flow.Stream[domain.RequestStatus[[]domain.Artist]] {
	return source.Fetch(func(ctx context.Context) ([]domain.Artist, error) {
		result, err := s.client.GetArtists(ctx)
		if err != nil {
			return nil, err
		}
		artists := make([]domain.Artist, 0, len(result))
		for _, a := range result {
			artists = append(artists, s.mapArtist(a))
		}
		sortArtists(artists, rule)
		return artists, nil
	})
}

func (s *Source) Genres(rule domain.SortingRule) *flow.Stream[domain.RequestStatus[[]domain.Genre]] {
	return source.Fetch(func(ctx context.Context) ([]domain.Genre, error) {
		result, err := s.client.GetGenres(ctx)
		if err != nil {
			return nil, err
		}
		genres := make([]domain.Genre, 0, len(result))
		for _, g := range result {
			genres = append(genres, s.mapGenre(g))
		}
		sortGenres(genres, rule)
		return genres, nil
	})
}

func (s *Source) Playlists(rule domain.SortingRule) *flow.Stream[domain.RequestStatus[[]domain.Playlist]] {
	return source.Refetch(s.playlistsChanged, func(ctx context.Context) ([]domain.Playlist, error) {
		result, err := s.client.GetPlaylists(ctx)
		if err != nil {
			return nil, err
		}
		playlists := make([]domain.Playlist, 0, len(result))
		for _, p := range result {
			playlists = append(playlists, s.mapPlaylist(p))
		}
		sortPlaylists(playlists, rule)
		return playlists, nil
	})
}

func (s *Source) Search(query string) *flow.Stream[domain.RequestStatus[[]domain.Item]] {
	return source.Fetch(func(ctx context.Context) ([]domain.Item, error) {
		result, err := s.client.Search(ctx, query)
		if err != nil {
			return nil, err
		}
		items := make([]domain.Item, 0, len(result.Artist)+len(result.Album)+len(result.Song))
		for _, a := range result.Artist {
			items = append(items, s.mapArtist(a))
		}
		for _, a := range result.Album {
			items = append(items, s.mapAlbum(a))
		}
		for _, c := range result.Song {
			items = append(items, s.mapAudio(c))
		}
		return items, nil
	})
}

func (s *Source) Audio(audioURI string) *flow.Stream[domain.RequestStatus[domain.Audio]] {
	return source.Fetch(func(ctx context.Context) (domain.Audio, error) {
		c, err := s.client.GetSong(ctx, idFromURI(audioURI))
		if err != nil {
			return domain.Audio{}, err
		}
		return s.mapAudio(c), nil
	})
}

func (s *Source) Album(albumURI string) *flow.Stream[domain.RequestStatus[domain.AlbumDetail]] {
	return source.Fetch(func(ctx context.Context) (domain.AlbumDetail, error) {
		full, err := s.client.GetAlbum(ctx, idFromURI(albumURI))
		if err != nil {
			return domain.AlbumDetail{}, err
		}
		detail := domain.AlbumDetail{Album: s.mapAlbum(full.albumID3)}
		for _, track := range full.Song {
			detail.Tracks = append(detail.Tracks, s.mapAudio(track))
		}
		return detail, nil
	})
}

func (s *Source) Artist(artistURI string) *flow.Stream[domain.RequestStatus[domain.ArtistWorks]] {
	return source.Fetch(func(ctx context.Context) (domain.ArtistWorks, error) {
		full, err := s.client.GetArtist(ctx, idFromURI(artistURI))
		if err != nil {
			return domain.ArtistWorks{}, err
		}
		works := domain.ArtistWorks{Artist: s.mapArtist(full.artistID3)}
		for _, album := range full.Album {
			works.Albums = append(works.Albums, s.mapAlbum(album))
		}
		return works, nil
	})
}

// Genre resolves a genre by name. Subsonic only enumerates genres, so the
// name is checked against getGenres before its tracks are fetched, and the
// album shelf is derived from the tracks' album references.
func (s *Source) Genre(genreURI string) *flow.Stream[domain.RequestStatus[domain.GenreContent]] {
	return source.Fetch(func(ctx context.Context) (domain.GenreContent, error) {
		name := genreNameFromURI(genreURI)

		genres, err := s.client.GetGenres(ctx)
		if err != nil {
			return domain.GenreContent{}, err
		}
		var found *genre
		for i, g := range genres {
			if g.Value == name {
				found = &genres[i]
				break
			}
		}
		if found == nil {
			return domain.GenreContent{}, domain.ErrNotFound
		}

		songs, err := s.client.GetSongsByGenre(ctx, name, listPageSize)
		if err != nil {
			return domain.GenreContent{}, err
		}

		content := domain.GenreContent{Genre: s.mapGenre(*found)}
		seenAlbums := make(map[string]bool)
		for _, song := range songs {
			audio := s.mapAudio(song)
			content.Audios = append(content.Audios, audio)
			if song.AlbumID != "" && !seenAlbums[song.AlbumID] {
				seenAlbums[song.AlbumID] = true
				content.Albums = append(content.Albums, domain.Album{
					URI:        s.albumURI(song.AlbumID),
					Title:      song.Album,
					ArtistName: song.Artist,
					Thumbnail:  s.client.GetCoverArtURL(song.CoverArt),
				})
			}
		}
		return content, nil
	})
}

func (s *Source) Playlist(playlistURI string) *flow.Stream[domain.RequestStatus[domain.PlaylistDetail]] {
	return source.Refetch(s.playlistsChanged, func(ctx context.Context) (domain.PlaylistDetail, error) {
		full, err := s.client.GetPlaylist(ctx, idFromURI(playlistURI))
		if err != nil {
			return domain.PlaylistDetail{}, err
		}
		detail := domain.PlaylistDetail{Playlist: s.mapPlaylist(full.playlist)}
		for _, track := range full.Entry {
			detail.Tracks = append(detail.Tracks, s.mapAudio(track))
		}
		return detail, nil
	})
}

func (s *Source) AudioPlaylistsStatus(audioURI string) *flow.Stream[domain.RequestStatus[[]domain.PlaylistStatus]] {
	return source.Refetch(s.playlistsChanged, func(ctx context.Context) ([]domain.PlaylistStatus, error) {
		audioID := idFromURI(audioURI)
		playlists, err := s.client.GetPlaylists(ctx)
		if err != nil {
			return nil, err
		}
		statuses := make([]domain.PlaylistStatus, 0, len(playlists))
		for _, p := range playlists {
			full, err := s.client.GetPlaylist(ctx, p.ID)
			if err != nil {
				return nil, err
			}
			contains := false
			for _, entry := range full.Entry {
				if entry.ID == audioID {
					contains = true
					break
				}
			}
			statuses = append(statuses, domain.PlaylistStatus{
				Playlist:      s.mapPlaylist(p),
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
	if err := s.client.AddSongToPlaylist(ctx, idFromURI(playlistURI), idFromURI(audioURI)); err != nil {
		return err
	}
	s.playlistsChanged.Raise()
	return nil
}

// RemoveAudioFromPlaylist removes the first entry matching the track.
// updatePlaylist removes by position, so the playlist is read first to find
// the entry index.
func (s *Source) RemoveAudioFromPlaylist(ctx context.Context, playlistURI, audioURI string) error {
	playlistID := idFromURI(playlistURI)
	audioID := idFromURI(audioURI)

	full, err := s.client.GetPlaylist(ctx, playlistID)
	if err != nil {
		return err
	}
	index := -1
	for i, entry := range full.Entry {
		if entry.ID == audioID {
			index = i
			break
		}
	}
	if index < 0 {
		return domain.ErrNotFound
	}
	if err := s.client.RemoveSongFromPlaylist(ctx, playlistID, index); err != nil {
		return err
	}
	s.playlistsChanged.Raise()
	return nil
}
