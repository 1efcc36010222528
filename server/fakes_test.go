package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"musecrate/config"
	"musecrate/core/auth"
	"musecrate/model"
	"musecrate/repository"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

// In-memory repository fakes backing the handler tests.

type memUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*model.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[int64]*model.User)}
}

func (r *memUserRepo) CreateUser(user *model.User) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return 0, repository.ErrDuplicateUser
		}
	}
	r.nextID++
	stored := *user
	stored.ID = r.nextID
	r.users[stored.ID] = &stored
	return stored.ID, nil
}

func (r *memUserRepo) GetUserByID(id int64) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

func (r *memUserRepo) GetUserByUsername(username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) GetUserByEmail(email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

type memAlbumRepo struct {
	mu     sync.Mutex
	nextID int64
	albums map[int64]*model.Album
}

func newMemAlbumRepo() *memAlbumRepo {
	return &memAlbumRepo{albums: make(map[int64]*model.Album)}
}

func (r *memAlbumRepo) CreateAlbum(ctx context.Context, album *model.Album) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	stored := *album
	stored.ID = r.nextID
	r.albums[stored.ID] = &stored
	return stored.ID, nil
}

func (r *memAlbumRepo) GetAlbumByID(ctx context.Context, id int64) (*model.Album, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.albums[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, nil
}

func (r *memAlbumRepo) GetAlbumsByUserID(ctx context.Context, userID int64) ([]*model.Album, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var albums []*model.Album
	for _, a := range r.albums {
		if a.UserID == userID {
			copied := *a
			albums = append(albums, &copied)
		}
	}
	return albums, nil
}

func (r *memAlbumRepo) SearchAlbums(ctx context.Context, userID int64, query string) ([]*model.Album, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := strings.ToLower(query)
	var albums []*model.Album
	for _, a := range r.albums {
		if a.UserID != userID {
			continue
		}
		if strings.Contains(strings.ToLower(a.Title), q) || strings.Contains(strings.ToLower(a.Artist), q) {
			copied := *a
			albums = append(albums, &copied)
		}
	}
	return albums, nil
}

func (r *memAlbumRepo) SetAlbumFavorite(ctx context.Context, id int64, favorite bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.albums[id]; ok {
		a.IsFavorite = favorite
		return nil
	}
	return fmt.Errorf("album %d not found", id)
}

func (r *memAlbumRepo) DeleteAlbum(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.albums, id)
	return nil
}

type memSongRepo struct {
	mu     sync.Mutex
	nextID int64
	songs  map[int64]*model.Song
	albums *memAlbumRepo
}

func newMemSongRepo(albums *memAlbumRepo) *memSongRepo {
	return &memSongRepo{songs: make(map[int64]*model.Song), albums: albums}
}

func (r *memSongRepo) CreateSong(ctx context.Context, song *model.Song) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	stored := *song
	stored.ID = r.nextID
	r.songs[stored.ID] = &stored
	return stored.ID, nil
}

func (r *memSongRepo) GetSongByID(ctx context.Context, id int64) (*model.Song, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.songs[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, nil
}

func (r *memSongRepo) GetSongsByAlbumID(ctx context.Context, albumID int64) ([]*model.Song, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var songs []*model.Song
	for _, s := range r.songs {
		if s.AlbumID == albumID {
			copied := *s
			songs = append(songs, &copied)
		}
	}
	return songs, nil
}

func (r *memSongRepo) GetSongsByUserID(ctx context.Context, userID int64, favoritesOnly bool) ([]*model.Song, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var songs []*model.Song
	for _, s := range r.songs {
		album, _ := r.albums.GetAlbumByID(ctx, s.AlbumID)
		if album == nil || album.UserID != userID {
			continue
		}
		if favoritesOnly && !s.IsFavorite {
			continue
		}
		copied := *s
		songs = append(songs, &copied)
	}
	return songs, nil
}

func (r *memSongRepo) SearchSongs(ctx context.Context, query string) ([]*model.Song, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := strings.ToLower(query)
	var songs []*model.Song
	for _, s := range r.songs {
		if strings.Contains(strings.ToLower(s.Title), q) {
			copied := *s
			songs = append(songs, &copied)
		}
	}
	return songs, nil
}

func (r *memSongRepo) SetSongFavorite(ctx context.Context, id int64, favorite bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.songs[id]; ok {
		s.IsFavorite = favorite
		return nil
	}
	return fmt.Errorf("song %d not found", id)
}

func (r *memSongRepo) DeleteSong(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.songs, id)
	return nil
}

type fakeSessions struct {
	mu     sync.Mutex
	nextID int
	active map[string]int64
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{active: make(map[string]int64)}
}

func (s *fakeSessions) Create(ctx context.Context, userID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := fmt.Sprintf("sess-%d", s.nextID)
	s.active[id] = userID
	return id, nil
}

func (s *fakeSessions) IsActive(ctx context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[sessionID]
	return ok, nil
}

func (s *fakeSessions) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, sessionID)
	return nil
}

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (s *fakeStore) Put(ctx context.Context, objectPath string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objectPath] = data
	return nil
}

func (s *fakeStore) Remove(ctx context.Context, objectPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, objectPath)
	return nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// stubRenderer records rendered pages and writes the template name so tests
// can assert on both the selected view and its context.
type renderCall struct {
	name string
	data map[string]interface{}
}

type stubRenderer struct {
	mu    sync.Mutex
	calls []renderCall
}

func (r *stubRenderer) Render(w http.ResponseWriter, name string, data map[string]interface{}) error {
	r.mu.Lock()
	r.calls = append(r.calls, renderCall{name: name, data: data})
	r.mu.Unlock()
	_, err := fmt.Fprintf(w, "template:%s", name)
	return err
}

func (r *stubRenderer) last(t *testing.T) renderCall {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.calls, "expected at least one rendered page")
	return r.calls[len(r.calls)-1]
}

// testEnv wires an APIHandler onto fakes plus a real router.
type testEnv struct {
	users    *memUserRepo
	albums   *memAlbumRepo
	songs    *memSongRepo
	sessions *fakeSessions
	store    *fakeStore
	renderer *stubRenderer
	handler  *APIHandler
	router   *mux.Router
	cfg      *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		JWTSecret:     "test-secret",
		SessionTTL:    time.Hour,
		MaxUploadSize: 8 << 20,
	}

	users := newMemUserRepo()
	albums := newMemAlbumRepo()
	songs := newMemSongRepo(albums)
	sessions := newFakeSessions()
	store := newFakeStore()
	renderer := &stubRenderer{}

	handler := NewAPIHandler(users, albums, songs, sessions, store, renderer, NewEventHub(), cfg)
	router := mux.NewRouter()
	handler.RegisterRoutes(router)

	return &testEnv{
		users:    users,
		albums:   albums,
		songs:    songs,
		sessions: sessions,
		store:    store,
		renderer: renderer,
		handler:  handler,
		router:   router,
		cfg:      cfg,
	}
}

func (e *testEnv) addUser(t *testing.T, username, email, password string) *model.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	user := &model.User{Username: username, Email: email, PasswordHash: hash}
	id, err := e.users.CreateUser(user)
	require.NoError(t, err)
	user.ID = id
	return user
}

func (e *testEnv) addAlbum(t *testing.T, userID int64, title, artist string) *model.Album {
	t.Helper()
	album := &model.Album{UserID: userID, Title: title, Artist: artist, CoverPath: "covers/" + title + ".jpg"}
	id, err := e.albums.CreateAlbum(context.Background(), album)
	require.NoError(t, err)
	album.ID = id
	return album
}

func (e *testEnv) addSong(t *testing.T, albumID int64, title string, favorite bool) *model.Song {
	t.Helper()
	song := &model.Song{AlbumID: albumID, Title: title, AudioPath: "audio/" + title + ".mp3", IsFavorite: favorite}
	id, err := e.songs.CreateSong(context.Background(), song)
	require.NoError(t, err)
	song.ID = id
	return song
}

// sessionCookie logs the user in at the session layer and returns the cookie
// a browser would carry afterwards.
func (e *testEnv) sessionCookie(t *testing.T, user *model.User) *http.Cookie {
	t.Helper()
	sessionID, err := e.sessions.Create(context.Background(), user.ID)
	require.NoError(t, err)
	token, err := auth.GenerateToken(e.cfg.JWTSecret, user.ID, user.Username, sessionID, e.cfg.SessionTTL)
	require.NoError(t, err)
	return &http.Cookie{Name: sessionCookieName, Value: token}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// multipartForm builds a multipart body with the given fields and one file.
func multipartForm(t *testing.T, fields map[string]string, fileField, filename string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if fileField != "" {
		part, err := writer.CreateFormFile(fileField, filename)
		require.NoError(t, err)
		_, err = part.Write([]byte("file-content"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}
