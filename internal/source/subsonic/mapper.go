package subsonic

import (
	"sort"
	"strings"
	"time"

	"github.com/medleyfm/medley/internal/domain"
)

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

func (s *Source) mapAlbum(a albumID3) domain.Album {
	album := domain.Album{
		URI:        s.albumURI(a.ID),
		Title:      a.Name,
		ArtistName: a.Artist,
		Year:       a.Year,
		TrackCount: a.SongCount,
		Thumbnail:  s.client.GetCoverArtURL(a.CoverArt),
		CreatedAt:  a.Created,
		PlayCount:  a.PlayCount,
	}
	if a.ArtistID != "" {
		album.ArtistURI = s.artistURI(a.ArtistID)
	}
	return album
}

func (s *Source) mapArtist(a artistID3) domain.Artist {
	return domain.Artist{
		URI:       s.artistURI(a.ID),
		Name:      a.Name,
		Thumbnail: s.client.GetCoverArtURL(a.CoverArt),
	}
}

func (s *Source) mapAudio(c child) domain.Audio {
	audio := domain.Audio{
		URI:         s.audioURI(c.ID),
		PlaybackURI: s.client.GetAudioPlaybackURL(c.ID),
		Title:       c.Title,
		ArtistName:  c.Artist,
		AlbumTitle:  c.Album,
		GenreName:   c.Genre,
		Year:        c.Year,
		TrackNumber: c.Track,
		DiscNumber:  c.DiscNumber,
		Duration:    secondsToDuration(c.Duration),
		MimeType:    c.ContentType,
		CreatedAt:   c.Created,
		PlayCount:   c.PlayCount,
	}
	if c.AlbumID != "" {
		audio.AlbumURI = s.albumURI(c.AlbumID)
	}
	if c.ArtistID != "" {
		audio.ArtistURI = s.artistURI(c.ArtistID)
	}
	return audio
}

func (s *Source) mapGenre(g genre) domain.Genre {
	return domain.Genre{
		URI:  s.genreURI(g.Value),
		Name: g.Value,
	}
}

func (s *Source) mapPlaylist(p playlist) domain.Playlist {
	return domain.Playlist{
		URI:        s.playlistURI(p.ID),
		Name:       p.Name,
		TrackCount: p.SongCount,
		Duration:   secondsToDuration(p.Duration),
		CreatedAt:  p.Created,
		UpdatedAt:  p.Changed,
	}
}

// Subsonic's native list orders cannot express a reverse direction, so every
// listing is sorted locally. The sorts are stable and key ties break on name
// so repeated calls see the same order.

func sortAlbums(albums []domain.Album, rule domain.SortingRule) {
	sort.SliceStable(albums, func(i, j int) bool {
		a, b := albums[i], albums[j]
		if rule.Reverse {
			a, b = b, a
		}
		switch rule.Strategy {
		case domain.SortByArtistName:
			if a.ArtistName != b.ArtistName {
				return lessFold(a.ArtistName, b.ArtistName)
			}
		case domain.SortByCreationDate, domain.SortByModificationDate:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		case domain.SortByPlayCount:
			if a.PlayCount != b.PlayCount {
				return a.PlayCount < b.PlayCount
			}
		}
		return lessFold(a.Title, b.Title)
	})
}

func sortArtists(artists []domain.Artist, rule domain.SortingRule) {
	sort.SliceStable(artists, func(i, j int) bool {
		a, b := artists[i], artists[j]
		if rule.Reverse {
			a, b = b, a
		}
		if rule.Strategy == domain.SortByPlayCount && a.PlayCount != b.PlayCount {
			return a.PlayCount < b.PlayCount
		}
		return lessFold(a.Name, b.Name)
	})
}

func sortGenres(genres []domain.Genre, rule domain.SortingRule) {
	sort.SliceStable(genres, func(i, j int) bool {
		a, b := genres[i], genres[j]
		if rule.Reverse {
			a, b = b, a
		}
		return lessFold(a.Name, b.Name)
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
		return lessFold(a.Name, b.Name)
	})
}

func lessFold(a, b string) bool {
	return strings.ToLower(a) < strings.ToLower(b)
}
