package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"musecrate/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createSongRequest(t *testing.T, env *testEnv, albumID int64, title, audioName string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartForm(t, map[string]string{
		"title": title,
	}, "audio_file", audioName)
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/albums/%d/songs/create", albumID), body)
	req.Header.Set("Content-Type", contentType)
	return env.do(req)
}

func TestCreateSongWithMp3(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "ada", "ada@example.com", "secret12")
	album := env.addAlbum(t, user.ID, "Live", "X")

	rec := createSongRequest(t, env, album.ID, "Intro", "intro.mp3")

	assert.Equal(t, http.StatusOK, rec.Code)
	call := env.renderer.last(t)
	assert.Equal(t, "detail.html", call.name)

	songs, ok := call.data["songs"].([]*model.Song)
	require.True(t, ok)
	require.Len(t, songs, 1)
	assert.Equal(t, "Intro", songs[0].Title)
	assert.Equal(t, 1, env.store.count(), "audio should be stored")
}

func TestCreateSongRejectsDuplicateTitle(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "ada", "ada@example.com", "secret12")
	album := env.addAlbum(t, user.ID, "Live", "X")
	env.addSong(t, album.ID, "Intro", false)

	createSongRequest(t, env, album.ID, "Intro", "intro.mp3")

	call := env.renderer.last(t)
	assert.Equal(t, "create_song.html", call.name)
	assert.Equal(t, errDuplicateSong, call.data["errorMessage"])

	songs, err := env.songs.GetSongsByAlbumID(context.Background(), album.ID)
	require.NoError(t, err)
	assert.Len(t, songs, 1, "second copy should not be added")
	assert.Equal(t, 0, env.store.count())
}

func TestCreateSongAllowsSameTitleOnAnotherAlbum(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "ada", "ada@example.com", "secret12")
	first := env.addAlbum(t, user.ID, "Live", "X")
	second := env.addAlbum(t, user.ID, "Studio", "X")
	env.addSong(t, first.ID, "Intro", false)

	createSongRequest(t, env, second.ID, "Intro", "intro.mp3")

	assert.Equal(t, "detail.html", env.renderer.last(t).name)
	songs, err := env.songs.GetSongsByAlbumID(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Len(t, songs, 1)
}

func TestCreateSongRejectsFlacUpload(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "ada", "ada@example.com", "secret12")
	album := env.addAlbum(t, user.ID, "Live", "X")

	createSongRequest(t, env, album.ID, "Intro", "intro.flac")

	call := env.renderer.last(t)
	assert.Equal(t, "create_song.html", call.name)
	assert.Equal(t, errAudioFileType, call.data["errorMessage"])

	songs, err := env.songs.GetSongsByAlbumID(context.Background(), album.ID)
	require.NoError(t, err)
	assert.Empty(t, songs)
	assert.Equal(t, 0, env.store.count())
}

func TestCreateSongUnknownAlbumIsNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := createSongRequest(t, env, 999, "Intro", "intro.mp3")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteSongRemovesRowAndAudio(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "ada", "ada@example.com", "secret12")
	album := env.addAlbum(t, user.ID, "Live", "X")

	createSongRequest(t, env, album.ID, "Intro", "intro.mp3")
	songs, err := env.songs.GetSongsByAlbumID(context.Background(), album.ID)
	require.NoError(t, err)
	require.Len(t, songs, 1)

	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/albums/%d/songs/%d/delete", album.ID, songs[0].ID), nil)
	rec := env.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
	call := env.renderer.last(t)
	assert.Equal(t, "detail.html", call.name)
	remaining, ok := call.data["songs"].([]*model.Song)
	require.True(t, ok)
	assert.Empty(t, remaining)
	assert.Equal(t, 0, env.store.count(), "audio object should be removed")
}

func TestDeleteSongUnknownIDIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "ada", "ada@example.com", "secret12")
	album := env.addAlbum(t, user.ID, "Live", "X")

	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/albums/%d/songs/999/delete", album.ID), nil)
	rec := env.do(req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFavoriteSongToggles(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "ada", "ada@example.com", "secret12")
	album := env.addAlbum(t, user.ID, "Live", "X")
	song := env.addSong(t, album.ID, "Intro", false)

	toggle := func() map[string]bool {
		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/songs/%d/favorite", song.ID), nil)
		rec := env.do(req)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]bool
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp
	}

	assert.Equal(t, map[string]bool{"success": true}, toggle())
	stored, _ := env.songs.GetSongByID(context.Background(), song.ID)
	assert.True(t, stored.IsFavorite)

	assert.Equal(t, map[string]bool{"success": true}, toggle())
	stored, _ = env.songs.GetSongByID(context.Background(), song.ID)
	assert.False(t, stored.IsFavorite)
}

func TestFavoriteSongUnknownIDReturnsFailure(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/songs/999/favorite", nil)
	rec := env.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, map[string]bool{"success": false}, resp)
}
