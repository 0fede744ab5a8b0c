package jellyfin

import (
	"time"

	"github.com/medleyfm/medley/internal/domain"
)

// RunTimeTicks are 100ns units
func ticksToDuration(ticks int64) time.Duration {
	return time.Duration(ticks) * 100 * time.Nanosecond
}

func (s *Source) mapAlbum(it item) domain.Album {
	album := domain.Album{
		URI:        s.albumURI(it.ID),
		Title:      it.Name,
		ArtistName: it.AlbumArtist,
		Year:       it.ProductionYear,
		TrackCount: it.ChildCount,
		Thumbnail:  s.thumbnailURL(it.ID),
		CreatedAt:  it.DateCreated,
	}
	if len(it.AlbumArtists) > 0 {
		album.ArtistURI = s.artistURI(it.AlbumArtists[0].ID)
		if album.ArtistName == "" {
			album.ArtistName = it.AlbumArtists[0].Name
		}
	}
	if it.UserData != nil {
		album.PlayCount = it.UserData.PlayCount
	}
	return album
}

func (s *Source) mapArtist(it item) domain.Artist {
	artist := domain.Artist{
		URI:       s.artistURI(it.ID),
		Name:      it.Name,
		Thumbnail: s.thumbnailURL(it.ID),
		CreatedAt: it.DateCreated,
	}
	if it.UserData != nil {
		artist.PlayCount = it.UserData.PlayCount
	}
	return artist
}

func (s *Source) mapAudio(it item) domain.Audio {
	audio := domain.Audio{
		URI:         s.audioURI(it.ID),
		PlaybackURI: s.client.GetAudioPlaybackURL(it.ID),
		Title:       it.Name,
		AlbumTitle:  it.Album,
		Year:        it.ProductionYear,
		TrackNumber: it.IndexNumber,
		DiscNumber:  it.ParentIndexNumber,
		Duration:    ticksToDuration(it.RunTimeTicks),
		CreatedAt:   it.DateCreated,
	}
	if it.AlbumID != "" {
		audio.AlbumURI = s.albumURI(it.AlbumID)
	}
	if len(it.ArtistItems) > 0 {
		audio.ArtistURI = s.artistURI(it.ArtistItems[0].ID)
		audio.ArtistName = it.ArtistItems[0].Name
	}
	if len(it.Genres) > 0 {
		audio.GenreName = it.Genres[0]
	}
	if it.UserData != nil {
		audio.PlayCount = it.UserData.PlayCount
	}
	return audio
}

func (s *Source) mapGenre(it item) domain.Genre {
	return domain.Genre{
		URI:  s.genreURI(it.ID),
		Name: it.Name,
	}
}

func (s *Source) mapPlaylist(it item) domain.Playlist {
	return domain.Playlist{
		URI:        s.playlistURI(it.ID),
		Name:       it.Name,
		TrackCount: it.ChildCount,
		Duration:   ticksToDuration(it.RunTimeTicks),
		CreatedAt:  it.DateCreated,
		UpdatedAt:  it.DateLastMediaAdd,
	}
}

// mapItem maps a mixed search result entry by its server item type.
// Unknown types map to nil and are dropped.
func (s *Source) mapItem(it item) domain.Item {
	switch it.Type {
	case "MusicAlbum":
		return s.mapAlbum(it)
	case "MusicArtist":
		return s.mapArtist(it)
	case "Audio":
		return s.mapAudio(it)
	case "MusicGenre":
		return s.mapGenre(it)
	case "Playlist":
		return s.mapPlaylist(it)
	default:
		return nil
	}
}
