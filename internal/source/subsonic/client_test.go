package subsonic

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/medleyfm/medley/internal/config"
	"github.com/medleyfm/medley/internal/domain"
)

func okEnvelope(payload string) string {
	return fmt.Sprintf(`{"subsonic-response":{"status":"ok"%s}}`, payload)
}

func errEnvelope(code int, message string) string {
	return fmt.Sprintf(`{"subsonic-response":{"status":"failed","error":{"code":%d,"message":%q}}}`, code, message)
}

func newTestClient(t *testing.T, legacy bool, handler func(w http.ResponseWriter, r *http.Request)) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(server.Close)
	return NewClient(server.URL, "alice", "secret", legacy, 5*time.Second, config.NullLogger())
}

func TestTokenAuthParams(t *testing.T) {
	var got url.Values
	client := newTestClient(t, false, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		w.Write([]byte(okEnvelope("")))
	})

	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	if got.Get("u") != "alice" || got.Get("f") != "json" || got.Get("v") != apiVersion || got.Get("c") != clientName {
		t.Errorf("common params = %v", got)
	}
	if got.Get("p") != "" {
		t.Error("token mode leaked a cleartext password parameter")
	}

	// The token must be md5(password + salt) for the salt actually sent
	salt := got.Get("s")
	if salt == "" {
		t.Fatal("no salt sent")
	}
	want := md5.Sum([]byte("secret" + salt))
	if got.Get("t") != hex.EncodeToString(want[:]) {
		t.Errorf("token = %q, want md5(password+salt)", got.Get("t"))
	}
}

func TestLegacyAuthParams(t *testing.T) {
	var got url.Values
	client := newTestClient(t, true, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		w.Write([]byte(okEnvelope("")))
	})

	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if got.Get("p") != "secret" {
		t.Errorf("legacy password param = %q", got.Get("p"))
	}
	if got.Get("t") != "" || got.Get("s") != "" {
		t.Error("legacy mode sent token parameters")
	}
}

func TestAPIErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		code int
		want domain.MediaError
	}{
		{"wrong credentials", 40, domain.ErrInvalidCredentials},
		{"token unsupported", 41, domain.ErrAuthenticationRequired},
		{"not found", 70, domain.ErrNotFound},
		{"generic failure", 0, domain.ErrIO},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			client := newTestClient(t, false, func(w http.ResponseWriter, r *http.Request) {
				// Subsonic reports failures with HTTP 200 and an error element
				w.Write([]byte(errEnvelope(test.code, "failure")))
			})
			err := client.Ping(context.Background())
			if domain.KindOf(err) != test.want {
				t.Errorf("KindOf = %v, want %v", domain.KindOf(err), test.want)
			}
		})
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   domain.MediaError
	}{
		{"unauthorized", http.StatusUnauthorized, domain.ErrAuthenticationRequired},
		{"forbidden", http.StatusForbidden, domain.ErrInvalidCredentials},
		{"not found", http.StatusNotFound, domain.ErrNotFound},
		{"server error", http.StatusInternalServerError, domain.ErrIO},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			client := newTestClient(t, false, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(test.status)
			})
			err := client.Ping(context.Background())
			if domain.KindOf(err) != test.want {
				t.Errorf("KindOf = %v, want %v", domain.KindOf(err), test.want)
			}
		})
	}
}

func TestMalformedEnvelope(t *testing.T) {
	client := newTestClient(t, false, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<xml>nope</xml>"))
	})
	err := client.Ping(context.Background())
	if domain.KindOf(err) != domain.ErrDeserialization {
		t.Errorf("KindOf = %v, want ErrDeserialization", domain.KindOf(err))
	}
}

func TestGetArtistsFlattensIndexes(t *testing.T) {
	client := newTestClient(t, false, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(okEnvelope(`,"artists":{"index":[
			{"name":"A","artist":[{"id":"1","name":"Abba"}]},
			{"name":"B","artist":[{"id":"2","name":"Beck"},{"id":"3","name":"Bjork"}]}
		]}`)))
	})

	artists, err := client.GetArtists(context.Background())
	if err != nil {
		t.Fatalf("GetArtists() error = %v", err)
	}
	if len(artists) != 3 {
		t.Fatalf("artists = %d, want 3", len(artists))
	}
	if artists[2].Name != "Bjork" {
		t.Errorf("artists[2] = %+v", artists[2])
	}
}

func TestGetPlaylistMissingPayload(t *testing.T) {
	client := newTestClient(t, false, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(okEnvelope("")))
	})
	_, err := client.GetPlaylist(context.Background(), "pl-1")
	if domain.KindOf(err) != domain.ErrNotFound {
		t.Errorf("KindOf = %v, want ErrNotFound", domain.KindOf(err))
	}
}

func TestUpdatePlaylistParams(t *testing.T) {
	var got url.Values
	client := newTestClient(t, false, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		w.Write([]byte(okEnvelope("")))
	})
	ctx := context.Background()

	if err := client.AddSongToPlaylist(ctx, "pl-1", "song-9"); err != nil {
		t.Fatal(err)
	}
	if got.Get("playlistId") != "pl-1" || got.Get("songIdToAdd") != "song-9" {
		t.Errorf("add params = %v", got)
	}

	if err := client.RemoveSongFromPlaylist(ctx, "pl-1", 4); err != nil {
		t.Fatal(err)
	}
	if got.Get("songIndexToRemove") != "4" {
		t.Errorf("remove params = %v", got)
	}
}
