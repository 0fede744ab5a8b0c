// Package local implements the media data source contract on top of the
// on-device library: a SQLite metadata index plus locally stored playlists.
package local

import (
	"context"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/medleyfm/medley/internal/domain"
	"github.com/medleyfm/medley/internal/flow"
	"github.com/medleyfm/medley/internal/source"
	"github.com/medleyfm/medley/internal/store"
)

// BaseURI is the namespace owned by the local library
const BaseURI = "local://"

const (
	albumsPath    = "albums"
	artistsPath   = "artists"
	audiosPath    = "audio"
	genresPath    = "genres"
	playlistsPath = "playlists"

	activityShelfSize = 20
)

// Source is the local library data source. It is always available and never
// requires authentication.
type Source struct {
	index  *Index
	store  *store.Store
	logger *slog.Logger

	playlistsChanged *flow.Signal
}

var _ source.MediaDataSource = (*Source)(nil)

// NewSource creates the local data source over an opened index and store
func NewSource(index *Index, st *store.Store, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		index:            index,
		store:            st,
		logger:           logger.With("source", "local"),
		playlistsChanged: flow.NewSignal(),
	}
}

func albumURI(id string) string    { return BaseURI + albumsPath + "/" + id }
func artistURI(id string) string   { return BaseURI + artistsPath + "/" + id }
func audioURI(id string) string    { return BaseURI + audiosPath + "/" + id }
func playlistURI(id string) string { return BaseURI + playlistsPath + "/" + id }

func genreURI(name string) string {
	return BaseURI + genresPath + "/" + url.PathEscape(name)
}

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
	return strings.HasPrefix(mediaItemURI, BaseURI)
}

func (s *Source) MediaTypeOf(mediaItemURI string) (domain.MediaType, error) {
	rest, ok := strings.CutPrefix(mediaItemURI, BaseURI)
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

func mapAlbum(row AlbumRow) domain.Album {
	album := domain.Album{
		URI:        albumURI(row.ID),
		Title:      row.Title,
		ArtistName: row.ArtistName,
		Year:       row.Year,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
		PlayCount:  row.PlayCount,
	}
	if row.ArtistID != "" {
		album.ArtistURI = artistURI(row.ArtistID)
	}
	return album
}

func mapArtist(row ArtistRow) domain.Artist {
	return domain.Artist{
		URI:       artistURI(row.ID),
		Name:      row.Name,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
		PlayCount: row.PlayCount,
	}
}

func mapAudio(row AudioRow) domain.Audio {
	audio := domain.Audio{
		URI:         audioURI(row.ID),
		PlaybackURI: "file://" + row.Path,
		Title:       row.Title,
		GenreName:   row.Genre,
		Year:        row.Year,
		TrackNumber: row.TrackNumber,
		DiscNumber:  row.DiscNumber,
		Duration:    row.Duration,
		MimeType:    row.MimeType,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
		PlayCount:   row.PlayCount,
	}
	if row.AlbumID != "" {
		audio.AlbumURI = albumURI(row.AlbumID)
	}
	if row.ArtistID != "" {
		audio.ArtistURI = artistURI(row.ArtistID)
	}
	return audio
}

func mapPlaylist(row store.PlaylistRow) domain.Playlist {
	return domain.Playlist{
		URI:        playlistURI(row.ID),
		Name:       row.Name,
		TrackCount: len(row.TrackURIs),
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}

// Activity returns the personalized shelves of the local library
func (s *Source) Activity() *flow.Stream[domain.RequestStatus[[]domain.ActivityTab]] {
	return source.Fetch(func(ctx context.Context) ([]domain.ActivityTab, error) {
		recent, err := s.index.ListRecentAlbums(ctx, activityShelfSize)
		if err != nil {
			return nil, err
		}
		recentlyPlayed, err := s.index.ListRecentlyPlayedAudios(ctx, activityShelfSize)
		if err != nil {
			return nil, err
		}
		mostPlayed, err := s.index.ListMostPlayedAudios(ctx, activityShelfSize)
		if err != nil {
			return nil, err
		}

		var tabs []domain.ActivityTab
		if len(recent) > 0 {
			tab := domain.ActivityTab{ID: "recently_added", Title: "Recently added"}
			for _, row := range recent {
				tab.Items = append(tab.Items, mapAlbum(row))
			}
			tabs = append(tabs, tab)
		}
		if len(recentlyPlayed) > 0 {
			tab := domain.ActivityTab{ID: "recently_played", Title: "Recently played"}
			for _, row := range recentlyPlayed {
				tab.Items = append(tab.Items, mapAudio(row))
			}
			tabs = append(tabs, tab)
		}
		if len(mostPlayed) > 0 {
			tab := domain.ActivityTab{ID: "most_played", Title: "Most played"}
			for _, row := range mostPlayed {
				tab.Items = append(tab.Items, mapAudio(row))
			}
			tabs = append(tabs, tab)
		}
		return tabs, nil
	})
}

func (s *Source) Albums(rule domain.SortingRule) *flow.Stream[domain.RequestStatus[[]domain.Album]] {
	return source.Fetch(func(ctx context.Context) ([]domain.Album, error) {
		rows, err := s.index.ListAlbums(ctx, rule)
		if err != nil {
			return nil, err
		}
		albums := make([]domain.Album, 0, len(rows))
		for _, row := range rows {
			albums = append(albums, mapAlbum(row))
		}
		return albums, nil
	})
}

func (s *Source) Artists(rule domain.SortingRule) *flow.Stream[domain.RequestStatus[[]domain.Artist]] {
	return source.Fetch(func(ctx context.Context) ([]domain.Artist, error) {
		rows, err := s.index.ListArtists(ctx, rule)
		if err != nil {
			return nil, err
		}
		artists := make([]domain.Artist, 0, len(rows))
		for _, row := range rows {
			artists = append(artists, mapArtist(row))
		}
		return artists, nil
	})
}

func (s *Source) Genres(rule domain.SortingRule) *flow.Stream[domain.RequestStatus[[]domain.Genre]] {
	return source.Fetch(func(ctx context.Context) ([]domain.Genre, error) {
		names, err := s.index.ListGenres(ctx, rule)
		if err != nil {
			return nil, err
		}
		genres := make([]domain.Genre, 0, len(names))
		for _, name := range names {
			genres = append(genres, domain.Genre{URI: genreURI(name), Name: name})
		}
		return genres, nil
	})
}

func (s *Source) Playlists(rule domain.SortingRule) *flow.Stream[domain.RequestStatus[[]domain.Playlist]] {
	return source.Refetch(s.playlistsChanged, func(ctx context.Context) ([]domain.Playlist, error) {
		rows, err := s.store.ListLocalPlaylists()
		if err != nil {
			return nil, err
		}
		playlists := make([]domain.Playlist, 0, len(rows))
		for _, row := range rows {
			playlists = append(playlists, mapPlaylist(row))
		}
		sortPlaylists(playlists, rule)
		return playlists, nil
	})
}

func sortPlaylists(playlists []domain.Playlist, rule domain.SortingRule) {
	sort.SliceStable(playlists, func(i, j int) bool {
		a, b := playlists[i], playlists[j]
		if rule.Reverse {
			a, b = b, a
		}
		switch rule.Strategy {
		case domain.SortByCreationDate:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		case domain.SortByModificationDate:
			if !a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.UpdatedAt.Before(b.UpdatedAt)
			}
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
}

type rankedItem struct {
	item domain.Item
	rank int
}

// Search fuzzy-matches the query against every title in the library
func (s *Source) Search(query string) *flow.Stream[domain.RequestStatus[[]domain.Item]] {
	return source.Fetch(func(ctx context.Context) ([]domain.Item, error) {
		var candidates []domain.Item

		albums, err := s.index.ListAlbums(ctx, domain.SortingRule{Strategy: domain.SortByName})
		if err != nil {
			return nil, err
		}
		for _, row := range albums {
			candidates = append(candidates, mapAlbum(row))
		}

		artists, err := s.index.ListArtists(ctx, domain.SortingRule{Strategy: domain.SortByName})
		if err != nil {
			return nil, err
		}
		for _, row := range artists {
			candidates = append(candidates, mapArtist(row))
		}

		audios, err := s.index.ListAudios(ctx)
		if err != nil {
			return nil, err
		}
		for _, row := range audios {
			candidates = append(candidates, mapAudio(row))
		}

		genres, err := s.index.ListGenres(ctx, domain.SortingRule{Strategy: domain.SortByName})
		if err != nil {
			return nil, err
		}
		for _, name := range genres {
			candidates = append(candidates, domain.Genre{URI: genreURI(name), Name: name})
		}

		playlistRows, err := s.store.ListLocalPlaylists()
		if err != nil {
			return nil, err
		}
		for _, row := range playlistRows {
			candidates = append(candidates, mapPlaylist(row))
		}

		var ranked []rankedItem
		for _, candidate := range candidates {
			rank := fuzzy.RankMatchNormalizedFold(query, candidate.ItemTitle())
			if rank < 0 {
				continue
			}
			ranked = append(ranked, rankedItem{item: candidate, rank: rank})
		}
		sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].rank < ranked[j].rank })

		items := make([]domain.Item, 0, len(ranked))
		for _, r := range ranked {
			items = append(items, r.item)
		}
		return items, nil
	})
}

func (s *Source) Audio(audioURI string) *flow.Stream[domain.RequestStatus[domain.Audio]] {
	return source.Fetch(func(ctx context.Context) (domain.Audio, error) {
		row, err := s.index.GetAudio(ctx, idFromURI(audioURI))
		if err != nil {
			return domain.Audio{}, err
		}
		return mapAudio(row), nil
	})
}

func (s *Source) Album(albumURI string) *flow.Stream[domain.RequestStatus[domain.AlbumDetail]] {
	return source.Fetch(func(ctx context.Context) (domain.AlbumDetail, error) {
		id := idFromURI(albumURI)
		row, err := s.index.GetAlbum(ctx, id)
		if err != nil {
			return domain.AlbumDetail{}, err
		}
		tracks, err := s.index.ListAlbumTracks(ctx, id)
		if err != nil {
			return domain.AlbumDetail{}, err
		}
		detail := domain.AlbumDetail{Album: mapAlbum(row)}
		for _, track := range tracks {
			detail.Tracks = append(detail.Tracks, mapAudio(track))
		}
		return detail, nil
	})
}

func (s *Source) Artist(artistURI string) *flow.Stream[domain.RequestStatus[domain.ArtistWorks]] {
	return source.Fetch(func(ctx context.Context) (domain.ArtistWorks, error) {
		id := idFromURI(artistURI)
		row, err := s.index.GetArtist(ctx, id)
		if err != nil {
			return domain.ArtistWorks{}, err
		}
		albums, err := s.index.ListArtistAlbums(ctx, id)
		if err != nil {
			return domain.ArtistWorks{}, err
		}
		appearances, err := s.index.ListArtistAppearances(ctx, id)
		if err != nil {
			return domain.ArtistWorks{}, err
		}
		works := domain.ArtistWorks{Artist: mapArtist(row)}
		for _, album := range albums {
			works.Albums = append(works.Albums, mapAlbum(album))
		}
		for _, album := range appearances {
			works.Appearances = append(works.Appearances, mapAlbum(album))
		}
		return works, nil
	})
}

func (s *Source) Genre(uri string) *flow.Stream[domain.RequestStatus[domain.GenreContent]] {
	return source.Fetch(func(ctx context.Context) (domain.GenreContent, error) {
		name := genreNameFromURI(uri)
		exists, err := s.index.GenreExists(ctx, name)
		if err != nil {
			return domain.GenreContent{}, err
		}
		if !exists {
			return domain.GenreContent{}, domain.ErrNotFound
		}
		albums, err := s.index.ListGenreAlbums(ctx, name)
		if err != nil {
			return domain.GenreContent{}, err
		}
		tracks, err := s.index.ListGenreTracks(ctx, name)
		if err != nil {
			return domain.GenreContent{}, err
		}
		content := domain.GenreContent{Genre: domain.Genre{URI: genreURI(name), Name: name}}
		for _, album := range albums {
			content.Albums = append(content.Albums, mapAlbum(album))
		}
		for _, track := range tracks {
			content.Audios = append(content.Audios, mapAudio(track))
		}
		return content, nil
	})
}

func (s *Source) Playlist(uri string) *flow.Stream[domain.RequestStatus[domain.PlaylistDetail]] {
	return source.Refetch(s.playlistsChanged, func(ctx context.Context) (domain.PlaylistDetail, error) {
		row, found, err := s.store.GetLocalPlaylist(idFromURI(uri))
		if err != nil {
			return domain.PlaylistDetail{}, err
		}
		if !found {
			return domain.PlaylistDetail{}, domain.ErrNotFound
		}
		detail := domain.PlaylistDetail{Playlist: mapPlaylist(row)}
		for _, trackURI := range row.TrackURIs {
			audio, err := s.resolveTrack(ctx, trackURI)
			if err != nil {
				if domain.KindOf(err) == domain.ErrNotFound {
					s.logger.Warn("playlist references missing track", "uri", trackURI)
					continue
				}
				return domain.PlaylistDetail{}, err
			}
			detail.Tracks = append(detail.Tracks, audio)
		}
		return detail, nil
	})
}

// resolveTrack expands a playlist member URI. A member outside the local
// namespace or no longer present in the index resolves to not-found; the
// caller skips such rows.
func (s *Source) resolveTrack(ctx context.Context, trackURI string) (domain.Audio, error) {
	if !s.IsMediaItemCompatible(trackURI) {
		return domain.Audio{}, domain.ErrNotFound
	}
	row, err := s.index.GetAudio(ctx, idFromURI(trackURI))
	if err != nil {
		return domain.Audio{}, err
	}
	return mapAudio(row), nil
}

func (s *Source) AudioPlaylistsStatus(audioURI string) *flow.Stream[domain.RequestStatus[[]domain.PlaylistStatus]] {
	return source.Refetch(s.playlistsChanged, func(ctx context.Context) ([]domain.PlaylistStatus, error) {
		rows, err := s.store.ListLocalPlaylists()
		if err != nil {
			return nil, err
		}
		statuses := make([]domain.PlaylistStatus, 0, len(rows))
		for _, row := range rows {
			contains := false
			for _, trackURI := range row.TrackURIs {
				if trackURI == audioURI {
					contains = true
					break
				}
			}
			statuses = append(statuses, domain.PlaylistStatus{
				Playlist:      mapPlaylist(row),
				ContainsAudio: contains,
			})
		}
		return statuses, nil
	})
}

func (s *Source) CreatePlaylist(ctx context.Context, name string) (string, error) {
	id, err := s.store.CreateLocalPlaylist(name)
	if err != nil {
		return "", err
	}
	s.playlistsChanged.Raise()
	return playlistURI(id), nil
}

func (s *Source) RenamePlaylist(ctx context.Context, uri, name string) error {
	if err := s.store.RenameLocalPlaylist(idFromURI(uri), name); err != nil {
		return err
	}
	s.playlistsChanged.Raise()
	return nil
}

func (s *Source) DeletePlaylist(ctx context.Context, uri string) error {
	if err := s.store.DeleteLocalPlaylist(idFromURI(uri)); err != nil {
		return err
	}
	s.playlistsChanged.Raise()
	return nil
}

func (s *Source) AddAudioToPlaylist(ctx context.Context, playlistURI, audioURI string) error {
	if !s.IsMediaItemCompatible(audioURI) {
		return domain.ErrNotFound
	}
	if err := s.store.AddTrackToLocalPlaylist(idFromURI(playlistURI), audioURI); err != nil {
		return err
	}
	s.playlistsChanged.Raise()
	return nil
}

func (s *Source) RemoveAudioFromPlaylist(ctx context.Context, playlistURI, audioURI string) error {
	if err := s.store.RemoveTrackFromLocalPlaylist(idFromURI(playlistURI), audioURI); err != nil {
		return err
	}
	s.playlistsChanged.Raise()
	return nil
}

// MarkAudioPlayed records a completed playback so the play-count sort and
// the most-played activity shelf stay current
func (s *Source) MarkAudioPlayed(ctx context.Context, uri string) error {
	if !s.IsMediaItemCompatible(uri) {
		return domain.ErrNotFound
	}
	return s.index.MarkAudioPlayed(ctx, idFromURI(uri))
}
