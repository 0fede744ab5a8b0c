package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/medleyfm/medley/internal/config"
	"github.com/medleyfm/medley/internal/domain"
	"github.com/medleyfm/medley/internal/flow"
	"github.com/medleyfm/medley/internal/registry"
	"github.com/medleyfm/medley/internal/source/local"
	"github.com/medleyfm/medley/internal/store"
)

func newTestRepository(t *testing.T) (*MediaRepository, *registry.Registry, *local.Source, *local.Index) {
	t.Helper()
	dir := t.TempDir()

	st, err := store.Open(filepath.Join(dir, "store.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	index, err := local.OpenIndex(filepath.Join(dir, "index.db"))
	if err != nil {
		t.Fatalf("OpenIndex() error = %v", err)
	}
	t.Cleanup(func() { index.Close() })

	localSource := local.NewSource(index, st, config.NullLogger())
	reg, err := registry.New(st, localSource, 5*time.Second, config.NullLogger())
	if err != nil {
		t.Fatalf("registry.New() error = %v", err)
	}
	return New(reg, config.NullLogger()), reg, localSource, index
}

// newSubsonicServer serves a minimal always-empty library
func newSubsonicServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"subsonic-response":{"status":"ok","albumList2":{"album":[]},"playlists":{"playlist":[]}}}`)
	}))
	t.Cleanup(server.Close)
	return server
}

func addSubsonicProvider(t *testing.T, reg *registry.Registry, server *httptest.Server) domain.Provider {
	t.Helper()
	provider, err := reg.AddProvider(domain.ProviderTypeSubsonic, "Navi", domain.ProviderArguments{
		domain.ArgServer:   server.URL,
		domain.ArgUsername: "alice",
		domain.ArgPassword: "secret",
	})
	if err != nil {
		t.Fatalf("AddProvider() error = %v", err)
	}
	return provider
}

func seedAlbum(t *testing.T, index *local.Index, id, title string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	if err := index.AddArtist(ctx, local.ArtistRow{ID: "ar-" + id, Name: "Artist " + id, CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatal(err)
	}
	if err := index.AddAlbum(ctx, local.AlbumRow{ID: id, Title: title, ArtistID: "ar-" + id, ArtistName: "Artist " + id, CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatal(err)
	}
}

func awaitTerminal[T any](t *testing.T, stream *flow.Stream[domain.RequestStatus[T]]) domain.RequestStatus[T] {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := stream.Subscribe(ctx)
	defer sub.Cancel()
	for {
		select {
		case <-ctx.Done():
			t.Fatal("timed out waiting for a terminal status")
		case status := <-sub.C:
			if status.State == domain.StateLoading {
				continue
			}
			return status
		}
	}
}

func TestNavigationDefaultsToLocal(t *testing.T) {
	repo, _, _, index := newTestRepository(t)
	seedAlbum(t, index, "al1", "Harbor Lights")

	status := awaitTerminal(t, repo.Albums(DefaultAlbumsSorting))
	if status.State != domain.StateSuccess || len(status.Data) != 1 || status.Data[0].Title != "Harbor Lights" {
		t.Errorf("status = %v, data = %+v", status.State, status.Data)
	}
}

func TestSetNavigationProviderSwitchesBrowse(t *testing.T) {
	repo, reg, _, index := newTestRepository(t)
	seedAlbum(t, index, "al1", "Harbor Lights")
	provider := addSubsonicProvider(t, reg, newSubsonicServer(t))

	repo.SetNavigationProvider(provider.Type, provider.TypeID)

	// The remote library is empty, so a switched browse sees no albums
	status := awaitTerminal(t, repo.Albums(DefaultAlbumsSorting))
	if status.State != domain.StateSuccess || len(status.Data) != 0 {
		t.Errorf("remote albums = %+v (%v)", status.Data, status.Err)
	}
}

func TestNavigationFallsBackAfterProviderDelete(t *testing.T) {
	repo, reg, _, index := newTestRepository(t)
	seedAlbum(t, index, "al1", "Harbor Lights")
	provider := addSubsonicProvider(t, reg, newSubsonicServer(t))
	repo.SetNavigationProvider(provider.Type, provider.TypeID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sub := repo.NavigationProvider().Subscribe(ctx)
	defer sub.Cancel()

	waitFor := func(want domain.ProviderType) {
		t.Helper()
		for {
			select {
			case <-ctx.Done():
				t.Fatalf("timed out waiting for navigation provider %s", want)
			case provider := <-sub.C:
				if provider.Type == want {
					return
				}
			}
		}
	}

	waitFor(domain.ProviderTypeSubsonic)

	// Deleting the selected provider degrades the open stream to local
	if err := reg.DeleteProvider(provider.Type, provider.TypeID); err != nil {
		t.Fatal(err)
	}
	waitFor(domain.ProviderTypeLocal)

	status := awaitTerminal(t, repo.Albums(DefaultAlbumsSorting))
	if len(status.Data) != 1 {
		t.Errorf("albums after fallback = %+v", status.Data)
	}
}

func TestRouteByURIToLocal(t *testing.T) {
	repo, reg, _, index := newTestRepository(t)
	seedAlbum(t, index, "al1", "Harbor Lights")
	provider := addSubsonicProvider(t, reg, newSubsonicServer(t))

	// Item routing ignores the navigation selection
	repo.SetNavigationProvider(provider.Type, provider.TypeID)

	status := awaitTerminal(t, repo.Album("local://albums/al1"))
	if status.State != domain.StateSuccess || status.Data.Album.Title != "Harbor Lights" {
		t.Errorf("status = %v, album = %+v", status.State, status.Data.Album)
	}
}

func TestUnclaimedURIIsNotFound(t *testing.T) {
	repo, _, _, _ := newTestRepository(t)

	status := awaitTerminal(t, repo.Audio("https://nobody.example/audio/1"))
	if status.State != domain.StateError || status.Err != domain.ErrNotFound {
		t.Errorf("status = %v, err = %v", status.State, status.Err)
	}

	if _, err := repo.MediaTypeOf("https://nobody.example/audio/1"); domain.KindOf(err) != domain.ErrNotFound {
		t.Errorf("MediaTypeOf KindOf = %v, want ErrNotFound", domain.KindOf(err))
	}
}

func TestMediaTypeOfRoutesByOwner(t *testing.T) {
	repo, reg, _, _ := newTestRepository(t)
	server := newSubsonicServer(t)
	addSubsonicProvider(t, reg, server)

	tests := []struct {
		uri  string
		want domain.MediaType
	}{
		{"local://albums/al1", domain.MediaTypeAlbum},
		{"local://playlists/p1", domain.MediaTypePlaylist},
		{server.URL + "/artists/ar1", domain.MediaTypeArtist},
	}

	for _, test := range tests {
		got, err := repo.MediaTypeOf(test.uri)
		if err != nil || got != test.want {
			t.Errorf("MediaTypeOf(%q) = %v, %v, want %v", test.uri, got, err, test.want)
		}
	}
}

func TestProviderOfMediaItems(t *testing.T) {
	repo, reg, _, index := newTestRepository(t)
	seedAlbum(t, index, "al1", "Harbor Lights")
	server := newSubsonicServer(t)
	remote := addSubsonicProvider(t, reg, server)

	provider, err := repo.ProviderOfMediaItems("local://audio/t1", "local://audio/t2")
	if err != nil || provider.Type != domain.ProviderTypeLocal {
		t.Errorf("ProviderOfMediaItems(local) = %+v, %v", provider, err)
	}

	provider, err = repo.ProviderOfMediaItems(server.URL + "/audio/s1")
	if err != nil || !provider.Is(remote.Type, remote.TypeID) {
		t.Errorf("ProviderOfMediaItems(remote) = %+v, %v", provider, err)
	}

	// Items spanning providers have no single owner
	if _, err := repo.ProviderOfMediaItems("local://audio/t1", server.URL+"/audio/s1"); domain.KindOf(err) != domain.ErrNotFound {
		t.Errorf("mixed items KindOf = %v, want ErrNotFound", domain.KindOf(err))
	}
	if _, err := repo.ProviderOfMediaItems("https://nobody.example/audio/1"); domain.KindOf(err) != domain.ErrNotFound {
		t.Errorf("unclaimed item KindOf = %v, want ErrNotFound", domain.KindOf(err))
	}
	if _, err := repo.ProviderOfMediaItems(); domain.KindOf(err) != domain.ErrNotFound {
		t.Errorf("empty list KindOf = %v, want ErrNotFound", domain.KindOf(err))
	}
}

func TestCreatePlaylistRouting(t *testing.T) {
	repo, _, _, _ := newTestRepository(t)
	ctx := context.Background()

	uri, err := repo.CreatePlaylist(ctx, domain.ProviderTypeLocal, domain.LocalProviderID, "Focus")
	if err != nil {
		t.Fatalf("CreatePlaylist() error = %v", err)
	}
	if mediaType, err := repo.MediaTypeOf(uri); err != nil || mediaType != domain.MediaTypePlaylist {
		t.Errorf("MediaTypeOf(%q) = %v, %v", uri, mediaType, err)
	}

	if _, err := repo.CreatePlaylist(ctx, domain.ProviderTypeSubsonic, 42, "Ghost"); domain.KindOf(err) != domain.ErrNotFound {
		t.Errorf("KindOf = %v, want ErrNotFound", domain.KindOf(err))
	}
}

func TestAddAudioToPlaylistCrossProviderGuard(t *testing.T) {
	repo, reg, _, index := newTestRepository(t)
	seedAlbum(t, index, "al1", "Harbor Lights")
	ctx := context.Background()

	now := time.Now().UTC()
	if err := index.AddAudio(ctx, local.AudioRow{
		ID: "t1", Path: "/music/01.flac", Title: "First Light", AlbumID: "al1", ArtistID: "ar-al1",
		Duration: time.Minute, MimeType: "audio/flac", CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatal(err)
	}

	server := newSubsonicServer(t)
	addSubsonicProvider(t, reg, server)

	uri, err := repo.CreatePlaylist(ctx, domain.ProviderTypeLocal, domain.LocalProviderID, "Commute")
	if err != nil {
		t.Fatal(err)
	}

	if err := repo.AddAudioToPlaylist(ctx, uri, "local://audio/t1"); err != nil {
		t.Errorf("local track: %v", err)
	}

	// Membership never crosses providers, in either direction
	remoteAudio := server.URL + "/audio/s1"
	err = repo.AddAudioToPlaylist(ctx, uri, remoteAudio)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("AddAudioToPlaylist(local playlist, remote audio) = %v, want ErrNotFound", err)
	}
	err = repo.RemoveAudioFromPlaylist(ctx, uri, remoteAudio)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("RemoveAudioFromPlaylist(local playlist, remote audio) = %v, want ErrNotFound", err)
	}

	remotePlaylist := server.URL + "/playlists/p1"
	err = repo.AddAudioToPlaylist(ctx, remotePlaylist, "local://audio/t1")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("AddAudioToPlaylist(remote playlist, local audio) = %v, want ErrNotFound", err)
	}
	err = repo.RemoveAudioFromPlaylist(ctx, remotePlaylist, "local://audio/t1")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("RemoveAudioFromPlaylist(remote playlist, local audio) = %v, want ErrNotFound", err)
	}

	// The guard rejects mismatches before any provider call; the playlist
	// keeps only its own track
	detail := awaitTerminal(t, repo.Playlist(uri))
	if detail.State != domain.StateSuccess || len(detail.Data.Tracks) != 1 {
		t.Errorf("playlist after rejected mutations = %v (%d tracks)", detail.State, len(detail.Data.Tracks))
	}

	// An unclaimed playlist URI cannot be mutated
	if err := repo.RenamePlaylist(ctx, "https://nobody.example/playlists/1", "x"); domain.KindOf(err) != domain.ErrNotFound {
		t.Errorf("rename unclaimed KindOf = %v", domain.KindOf(err))
	}
}

func TestPlaylistsStreamFollowsMutations(t *testing.T) {
	repo, _, _, _ := newTestRepository(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sub := repo.Playlists(DefaultPlaylistsSorting).Subscribe(ctx)
	defer sub.Cancel()

	waitFor := func(count int) {
		t.Helper()
		for {
			select {
			case <-ctx.Done():
				t.Fatalf("timed out waiting for %d playlists", count)
			case status := <-sub.C:
				if status.State == domain.StateSuccess && len(status.Data) == count {
					return
				}
			}
		}
	}

	waitFor(0)
	uri, err := repo.CreatePlaylist(context.Background(), domain.ProviderTypeLocal, domain.LocalProviderID, "Commute")
	if err != nil {
		t.Fatal(err)
	}
	waitFor(1)

	if err := repo.DeletePlaylist(context.Background(), uri); err != nil {
		t.Fatal(err)
	}
	waitFor(0)
}
