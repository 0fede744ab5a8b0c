package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/medleyfm/medley/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestProviderLifecycle(t *testing.T) {
	s := openTestStore(t)

	id, err := s.CreateProvider(ProviderRow{
		Type: domain.ProviderTypeJellyfin,
		Name: "Home server",
		Arguments: domain.ProviderArguments{
			domain.ArgServer:   "https://media.example.com",
			domain.ArgUsername: "alice",
			domain.ArgPassword: "secret",
		},
		DeviceID: "device-1",
	})
	if err != nil {
		t.Fatalf("CreateProvider() error = %v", err)
	}
	if id == 0 {
		t.Fatal("CreateProvider() returned zero ID")
	}

	row, found, err := s.GetProvider(domain.ProviderTypeJellyfin, id)
	if err != nil || !found {
		t.Fatalf("GetProvider() = found=%v, err=%v", found, err)
	}
	if row.Name != "Home server" || row.DeviceID != "device-1" {
		t.Errorf("row = %+v", row)
	}
	if row.CreatedAt.IsZero() || row.UpdatedAt.IsZero() {
		t.Error("timestamps not set on create")
	}

	// Update must preserve the device ID and creation time
	err = s.UpdateProvider(ProviderRow{
		ID:   id,
		Type: domain.ProviderTypeJellyfin,
		Name: "Renamed server",
		Arguments: domain.ProviderArguments{
			domain.ArgServer:   "https://media.example.com",
			domain.ArgUsername: "alice",
			domain.ArgPassword: "rotated",
		},
	})
	if err != nil {
		t.Fatalf("UpdateProvider() error = %v", err)
	}
	updated, _, err := s.GetProvider(domain.ProviderTypeJellyfin, id)
	if err != nil {
		t.Fatalf("GetProvider() error = %v", err)
	}
	if updated.Name != "Renamed server" {
		t.Errorf("updated name = %q", updated.Name)
	}
	if updated.DeviceID != "device-1" {
		t.Errorf("device ID not preserved: %q", updated.DeviceID)
	}
	if !updated.CreatedAt.Equal(row.CreatedAt) {
		t.Error("creation time not preserved across update")
	}

	if err := s.DeleteProvider(domain.ProviderTypeJellyfin, id); err != nil {
		t.Fatalf("DeleteProvider() error = %v", err)
	}
	_, found, err = s.GetProvider(domain.ProviderTypeJellyfin, id)
	if err != nil {
		t.Fatalf("GetProvider() error = %v", err)
	}
	if found {
		t.Error("provider still present after delete")
	}
}

func TestUpdateMissingProvider(t *testing.T) {
	s := openTestStore(t)
	err := s.UpdateProvider(ProviderRow{ID: 99, Type: domain.ProviderTypeSubsonic, Name: "ghost"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("UpdateProvider() error = %v, want ErrNotFound", err)
	}
}

func TestListProvidersIsolatesTypes(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.CreateProvider(ProviderRow{Type: domain.ProviderTypeJellyfin, Name: "jf"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateProvider(ProviderRow{Type: domain.ProviderTypeSubsonic, Name: "ss"}); err != nil {
		t.Fatal(err)
	}

	rows, err := s.ListProviders(domain.ProviderTypeSubsonic)
	if err != nil {
		t.Fatalf("ListProviders() error = %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "ss" {
		t.Errorf("ListProviders(subsonic) = %+v", rows)
	}
}

func TestTokenRoundTripAndDeleteCascade(t *testing.T) {
	s := openTestStore(t)

	id, err := s.CreateProvider(ProviderRow{Type: domain.ProviderTypeJellyfin, Name: "jf"})
	if err != nil {
		t.Fatal(err)
	}

	token, err := s.GetToken(domain.ProviderTypeJellyfin, id)
	if err != nil {
		t.Fatalf("GetToken() error = %v", err)
	}
	if token != "" {
		t.Errorf("fresh provider token = %q, want empty", token)
	}

	if err := s.SetToken(domain.ProviderTypeJellyfin, id, "abc123"); err != nil {
		t.Fatalf("SetToken() error = %v", err)
	}
	token, err = s.GetToken(domain.ProviderTypeJellyfin, id)
	if err != nil || token != "abc123" {
		t.Fatalf("GetToken() = %q, %v", token, err)
	}

	// Deleting the provider must drop its token too
	if err := s.DeleteProvider(domain.ProviderTypeJellyfin, id); err != nil {
		t.Fatal(err)
	}
	token, err = s.GetToken(domain.ProviderTypeJellyfin, id)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		t.Errorf("token survived provider delete: %q", token)
	}
}

func TestLocalPlaylistLifecycle(t *testing.T) {
	s := openTestStore(t)

	id, err := s.CreateLocalPlaylist("Morning")
	if err != nil {
		t.Fatalf("CreateLocalPlaylist() error = %v", err)
	}

	if _, err := s.CreateLocalPlaylist("Morning"); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("duplicate name error = %v, want ErrAlreadyExists", err)
	}

	if err := s.AddTrackToLocalPlaylist(id, "local://audio/1"); err != nil {
		t.Fatalf("AddTrackToLocalPlaylist() error = %v", err)
	}
	if err := s.AddTrackToLocalPlaylist(id, "local://audio/1"); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("duplicate track error = %v, want ErrAlreadyExists", err)
	}
	if err := s.AddTrackToLocalPlaylist(id, "local://audio/2"); err != nil {
		t.Fatal(err)
	}

	row, found, err := s.GetLocalPlaylist(id)
	if err != nil || !found {
		t.Fatalf("GetLocalPlaylist() = found=%v, err=%v", found, err)
	}
	if len(row.TrackURIs) != 2 || row.TrackURIs[0] != "local://audio/1" {
		t.Errorf("track URIs = %v", row.TrackURIs)
	}

	if err := s.RenameLocalPlaylist(id, "Evening"); err != nil {
		t.Fatal(err)
	}
	row, _, _ = s.GetLocalPlaylist(id)
	if row.Name != "Evening" {
		t.Errorf("renamed playlist name = %q", row.Name)
	}

	if err := s.RemoveTrackFromLocalPlaylist(id, "local://audio/1"); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveTrackFromLocalPlaylist(id, "local://audio/1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("removing absent track error = %v, want ErrNotFound", err)
	}

	if err := s.DeleteLocalPlaylist(id); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteLocalPlaylist(id); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("deleting absent playlist error = %v, want ErrNotFound", err)
	}
}

func TestListLocalPlaylistsOrdering(t *testing.T) {
	s := openTestStore(t)

	first, err := s.CreateLocalPlaylist("first")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateLocalPlaylist("second"); err != nil {
		t.Fatal(err)
	}

	// Touching the older playlist moves it to the front
	if err := s.AddTrackToLocalPlaylist(first, "local://audio/1"); err != nil {
		t.Fatal(err)
	}

	rows, err := s.ListLocalPlaylists()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if rows[0].Name != "first" {
		t.Errorf("most recently updated = %q, want %q", rows[0].Name, "first")
	}
}
