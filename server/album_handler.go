package server

import (
	"net/http"
	"strconv"

	"musecrate/logger"
	"musecrate/model"
	"musecrate/storage"

	"github.com/gorilla/mux"
)

// CreateAlbumHandler shows the album form and creates albums for the
// session user.
func (h *APIHandler) CreateAlbumHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.renderPage(w, "create_album.html", nil)
		return
	}

	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		h.renderPage(w, "login.html", nil)
		return
	}

	if err := r.ParseMultipartForm(h.cfg.MaxUploadSize); err != nil {
		logger.Warn("[CreateAlbum] Failed to parse multipart form", logger.ErrorField(err))
		http.Error(w, "Failed to parse upload form", http.StatusBadRequest)
		return
	}

	form := &AlbumForm{
		Title:  r.FormValue("title"),
		Artist: r.FormValue("artist"),
	}
	if errs := form.Validate(); errs != nil {
		h.renderPage(w, "create_album.html", map[string]interface{}{
			"errors":       errs,
			"errorMessage": firstMessage(errs),
			"form":         form,
		})
		return
	}

	file, header, err := r.FormFile("album_logo")
	if err != nil {
		h.renderPage(w, "create_album.html", map[string]interface{}{
			"errorMessage": errMissingUpload,
			"form":         form,
		})
		return
	}
	defer file.Close()

	// The allow-list is checked at the boundary, before anything is stored.
	if !AllowedImageType(header.Filename) {
		h.renderPage(w, "create_album.html", map[string]interface{}{
			"errorMessage": errImageFileType,
			"form":         form,
		})
		return
	}

	objectPath := "covers/" + storage.SafeObjectName(header.Filename)
	contentType := header.Header.Get("Content-Type")
	if err := h.store.Put(r.Context(), objectPath, file, header.Size, contentType); err != nil {
		logger.Error("[CreateAlbum] Failed to store cover",
			logger.String("objectPath", objectPath),
			logger.ErrorField(err))
		http.Error(w, "Failed to store uploaded file", http.StatusInternalServerError)
		return
	}

	album := &model.Album{
		UserID:    userID,
		Title:     form.Title,
		Artist:    form.Artist,
		CoverPath: objectPath,
	}

	albumID, err := h.albumRepo.CreateAlbum(r.Context(), album)
	if err != nil {
		logger.Error("[CreateAlbum] Failed to create album", logger.ErrorField(err))
		http.Error(w, "Failed to create album", http.StatusInternalServerError)
		return
	}
	album.ID = albumID

	logger.Info("[CreateAlbum] Album created",
		logger.Int64("albumId", albumID),
		logger.Int64("userId", userID),
		logger.String("title", album.Title))

	h.events.Publish(userID, Event{Type: EventAlbumCreated, AlbumID: albumID, Title: album.Title})

	h.renderPage(w, "detail.html", map[string]interface{}{
		"album": album,
		"songs": []*model.Song{},
	})
}

// AlbumDetailHandler renders an album's detail page.
func (h *APIHandler) AlbumDetailHandler(w http.ResponseWriter, r *http.Request) {
	albumID, err := albumIDFromRequest(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	album, err := h.albumRepo.GetAlbumByID(r.Context(), albumID)
	if err != nil {
		logger.Error("[AlbumDetail] Failed to load album", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if album == nil {
		http.NotFound(w, r)
		return
	}

	songs, err := h.songRepo.GetSongsByAlbumID(r.Context(), albumID)
	if err != nil {
		logger.Error("[AlbumDetail] Failed to load songs", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.renderPage(w, "detail.html", map[string]interface{}{
		"album": album,
		"songs": songs,
	})
}

// DeleteAlbumHandler deletes an album, its songs, and their stored media,
// then renders the requester's remaining albums.
func (h *APIHandler) DeleteAlbumHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		h.renderPage(w, "login.html", nil)
		return
	}

	albumID, err := albumIDFromRequest(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	album, err := h.albumRepo.GetAlbumByID(r.Context(), albumID)
	if err != nil {
		logger.Error("[DeleteAlbum] Failed to load album", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if album == nil {
		http.NotFound(w, r)
		return
	}

	songs, err := h.songRepo.GetSongsByAlbumID(r.Context(), albumID)
	if err != nil {
		logger.Error("[DeleteAlbum] Failed to load songs", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	for _, song := range songs {
		if err := h.songRepo.DeleteSong(r.Context(), song.ID); err != nil {
			logger.Error("[DeleteAlbum] Failed to delete song",
				logger.Int64("songId", song.ID),
				logger.ErrorField(err))
			http.Error(w, "Failed to delete album", http.StatusInternalServerError)
			return
		}
	}

	if err := h.albumRepo.DeleteAlbum(r.Context(), albumID); err != nil {
		logger.Error("[DeleteAlbum] Failed to delete album", logger.ErrorField(err))
		http.Error(w, "Failed to delete album", http.StatusInternalServerError)
		return
	}

	// Media cleanup is best effort; the rows are already gone.
	if album.CoverPath != "" {
		if err := h.store.Remove(r.Context(), album.CoverPath); err != nil {
			logger.Warn("[DeleteAlbum] Failed to remove cover object", logger.ErrorField(err))
		}
	}
	for _, song := range songs {
		if song.AudioPath == "" {
			continue
		}
		if err := h.store.Remove(r.Context(), song.AudioPath); err != nil {
			logger.Warn("[DeleteAlbum] Failed to remove audio object", logger.ErrorField(err))
		}
	}

	logger.Info("[DeleteAlbum] Album deleted",
		logger.Int64("albumId", albumID),
		logger.Int64("requestedBy", userID))

	h.events.Publish(album.UserID, Event{Type: EventAlbumDeleted, AlbumID: albumID, Title: album.Title})

	albums, err := h.albumRepo.GetAlbumsByUserID(r.Context(), userID)
	if err != nil {
		logger.Error("[DeleteAlbum] Failed to load remaining albums", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.renderPage(w, "index.html", map[string]interface{}{
		"albums": albums,
	})
}

// FavoriteAlbumHandler flips an album's favorite flag and acknowledges
// with JSON.
func (h *APIHandler) FavoriteAlbumHandler(w http.ResponseWriter, r *http.Request) {
	albumID, err := albumIDFromRequest(r)
	if err != nil {
		writeJSON(w, map[string]bool{"success": false})
		return
	}

	album, err := h.albumRepo.GetAlbumByID(r.Context(), albumID)
	if err != nil || album == nil {
		writeJSON(w, map[string]bool{"success": false})
		return
	}

	if err := h.albumRepo.SetAlbumFavorite(r.Context(), albumID, !album.IsFavorite); err != nil {
		logger.Error("[FavoriteAlbum] Failed to update favorite flag",
			logger.Int64("albumId", albumID),
			logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.events.Publish(album.UserID, Event{Type: EventAlbumFavorited, AlbumID: albumID, Favorite: !album.IsFavorite})

	writeJSON(w, map[string]bool{"success": true})
}

// albumIDFromRequest parses the album id route variable.
func albumIDFromRequest(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}
