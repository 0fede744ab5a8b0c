package jellyfin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/medleyfm/medley/internal/domain"
)

const defaultTimeout = 60 * time.Second

// Client is a Jellyfin REST API client for one configured provider. Every
// request attaches the current cached token, if any; a 401 triggers the
// authenticator's single-flight refresh and exactly one retry with the
// refreshed token.
type Client struct {
	baseURL    string
	httpClient *http.Client
	auth       *Authenticator
	logger     *slog.Logger
}

// NewClient creates a Jellyfin API client
func NewClient(baseURL string, auth *Authenticator, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		auth:       auth,
		logger:     logger,
	}
}

// doRequest performs one API call, handling auth headers, the 401 refresh
// path, and translation of transport/status/parse failures into MediaError
// kinds. out may be nil for calls with no interesting response body.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body, out any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	token := c.auth.Token()
	resp, respBody, err := c.send(ctx, method, reqURL, token, body)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		newToken, ok := c.auth.OnUnauthorized(token)
		if !ok {
			return fmt.Errorf("%w: token refresh failed", domain.ErrAuthenticationRequired)
		}
		// One retry with the refreshed token; a second 401 is terminal
		resp, respBody, err = c.send(ctx, method, reqURL, newToken, body)
		if err != nil {
			return err
		}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return domain.ErrAuthenticationRequired
	case resp.StatusCode == http.StatusForbidden:
		return domain.ErrInvalidCredentials
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.logger.Error("jellyfin request error", "status", resp.StatusCode, "path", path)
		return fmt.Errorf("%w: unexpected status %d", domain.ErrIO, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrDeserialization, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, reqURL, token string, body any) (*http.Response, []byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", bearerHeader(token))
	}

	c.logger.Debug("jellyfin request", "method", method, "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, fmt.Errorf("%w: %s", domain.ErrCancelled, err)
		}
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrIO, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrIO, err)
	}
	return resp, respBody, nil
}

// GetAlbums returns all music albums, sorted server-side
func (c *Client) GetAlbums(ctx context.Context, rule domain.SortingRule) (queryResult, error) {
	query := url.Values{}
	query.Set("IncludeItemTypes", "MusicAlbum")
	query.Set("Recursive", "true")
	setSortParameters(query, rule)

	var result queryResult
	err := c.doRequest(ctx, http.MethodGet, "/Items", query, nil, &result)
	return result, err
}

// GetArtists returns all music artists, sorted server-side
func (c *Client) GetArtists(ctx context.Context, rule domain.SortingRule) (queryResult, error) {
	query := url.Values{}
	query.Set("IncludeItemTypes", "Audio")
	query.Set("Recursive", "true")
	setSortParameters(query, rule)

	var result queryResult
	err := c.doRequest(ctx, http.MethodGet, "/Artists", query, nil, &result)
	return result, err
}

// GetGenres returns all music genres, sorted server-side
func (c *Client) GetGenres(ctx context.Context, rule domain.SortingRule) (queryResult, error) {
	query := url.Values{}
	query.Set("IncludeItemTypes", "Audio")
	query.Set("Recursive", "true")
	setSortParameters(query, rule)

	var result queryResult
	err := c.doRequest(ctx, http.MethodGet, "/Genres", query, nil, &result)
	return result, err
}

// GetPlaylists returns all playlists, sorted server-side
func (c *Client) GetPlaylists(ctx context.Context, rule domain.SortingRule) (queryResult, error) {
	query := url.Values{}
	query.Set("IncludeItemTypes", "Playlist")
	query.Set("Recursive", "true")
	setSortParameters(query, rule)

	var result queryResult
	err := c.doRequest(ctx, http.MethodGet, "/Items", query, nil, &result)
	return result, err
}

// Search returns items of every music type matching the query
func (c *Client) Search(ctx context.Context, searchTerm string) (queryResult, error) {
	query := url.Values{}
	query.Set("SearchTerm", searchTerm)
	query.Set("IncludeItemTypes", "Playlist,MusicAlbum,MusicArtist,MusicGenre,Audio")
	query.Set("Recursive", "true")

	var result queryResult
	err := c.doRequest(ctx, http.MethodGet, "/Items", query, nil, &result)
	return result, err
}

// GetItem returns one item by server-assigned ID
func (c *Client) GetItem(ctx context.Context, id string) (item, error) {
	var result item
	err := c.doRequest(ctx, http.MethodGet, "/Items/"+url.PathEscape(id), nil, nil, &result)
	return result, err
}

// GetAlbumTracks returns the audio items of an album
func (c *Client) GetAlbumTracks(ctx context.Context, id string) (queryResult, error) {
	query := url.Values{}
	query.Set("ParentId", id)
	query.Set("IncludeItemTypes", "Audio")
	query.Set("Recursive", "true")

	var result queryResult
	err := c.doRequest(ctx, http.MethodGet, "/Items", query, nil, &result)
	return result, err
}

// GetArtistWorks returns the albums credited to an artist
func (c *Client) GetArtistWorks(ctx context.Context, id string) (queryResult, error) {
	query := url.Values{}
	query.Set("ArtistIds", id)
	query.Set("IncludeItemTypes", "MusicAlbum")
	query.Set("Recursive", "true")

	var result queryResult
	err := c.doRequest(ctx, http.MethodGet, "/Items", query, nil, &result)
	return result, err
}

// GetGenreContent returns the albums and audio items tagged with a genre
func (c *Client) GetGenreContent(ctx context.Context, id string) (queryResult, error) {
	query := url.Values{}
	query.Set("GenreIds", id)
	query.Set("IncludeItemTypes", "MusicAlbum,Audio")
	query.Set("Recursive", "true")

	var result queryResult
	err := c.doRequest(ctx, http.MethodGet, "/Items", query, nil, &result)
	return result, err
}

// GetPlaylistItemIDs returns the IDs of a playlist's entries
func (c *Client) GetPlaylistItemIDs(ctx context.Context, id string) (playlistItems, error) {
	var result playlistItems
	err := c.doRequest(ctx, http.MethodGet, "/Playlists/"+url.PathEscape(id), nil, nil, &result)
	return result, err
}

// GetPlaylistTracks returns a playlist's audio items in playlist order
func (c *Client) GetPlaylistTracks(ctx context.Context, id string) (queryResult, error) {
	var result queryResult
	err := c.doRequest(ctx, http.MethodGet, "/Playlists/"+url.PathEscape(id)+"/Items", nil, nil, &result)
	return result, err
}

// GetAudioPlaybackURL builds the direct stream URL for a track
func (c *Client) GetAudioPlaybackURL(id string) string {
	return c.baseURL + "/Audio/" + url.PathEscape(id) + "/stream?static=true"
}

// CreatePlaylist creates a playlist and returns its server-assigned ID
func (c *Client) CreatePlaylist(ctx context.Context, name string) (string, error) {
	var result createPlaylistResult
	err := c.doRequest(ctx, http.MethodPost, "/Playlists", nil, createPlaylist{
		Name:     name,
		IDs:      []string{},
		Users:    []string{},
		IsPublic: true,
	}, &result)
	if err != nil {
		return "", err
	}
	return result.ID, nil
}

// RenamePlaylist renames a playlist
func (c *Client) RenamePlaylist(ctx context.Context, id, name string) error {
	return c.doRequest(ctx, http.MethodPost, "/Playlists/"+url.PathEscape(id), nil, updatePlaylist{Name: name}, nil)
}

// DeletePlaylist deletes a playlist
func (c *Client) DeletePlaylist(ctx context.Context, id string) error {
	return c.doRequest(ctx, http.MethodDelete, "/Items/"+url.PathEscape(id), nil, nil, nil)
}

// AddItemToPlaylist appends a track to a playlist
func (c *Client) AddItemToPlaylist(ctx context.Context, id, audioID string) error {
	query := url.Values{}
	query.Set("Ids", audioID)
	return c.doRequest(ctx, http.MethodPost, "/Playlists/"+url.PathEscape(id)+"/Items", query, nil, nil)
}

// RemoveItemFromPlaylist removes a playlist entry by item ID
func (c *Client) RemoveItemFromPlaylist(ctx context.Context, id, audioID string) error {
	query := url.Values{}
	query.Set("EntryIds", audioID)
	return c.doRequest(ctx, http.MethodDelete, "/Playlists/"+url.PathEscape(id)+"/Items", query, nil, nil)
}

// setSortParameters maps a SortingRule onto Jellyfin's native ordering.
// Strategies the server cannot express fall back to name order, which is
// stable across calls.
func setSortParameters(query url.Values, rule domain.SortingRule) {
	var sortBy string
	switch rule.Strategy {
	case domain.SortByArtistName:
		sortBy = "AlbumArtist,SortName"
	case domain.SortByCreationDate:
		sortBy = "DateCreated"
	case domain.SortByModificationDate:
		sortBy = "DateLastContentAdded"
	case domain.SortByPlayCount:
		sortBy = "PlayCount"
	default:
		sortBy = "SortName"
	}
	query.Set("sortBy", sortBy)
	if rule.Reverse {
		query.Set("sortOrder", "Descending")
	} else {
		query.Set("sortOrder", "Ascending")
	}
}
