package server

import (
	"net/http"
	"strconv"

	"musecrate/logger"
	"musecrate/model"
	"musecrate/storage"

	"github.com/gorilla/mux"
)

// CreateSongHandler shows the song form and adds songs to an album.
func (h *APIHandler) CreateSongHandler(w http.ResponseWriter, r *http.Request) {
	albumID, err := albumIDFromRequest(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	album, err := h.albumRepo.GetAlbumByID(r.Context(), albumID)
	if err != nil {
		logger.Error("[CreateSong] Failed to load album", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if album == nil {
		http.NotFound(w, r)
		return
	}

	if r.Method != http.MethodPost {
		h.renderPage(w, "create_song.html", map[string]interface{}{
			"album": album,
		})
		return
	}

	if err := r.ParseMultipartForm(h.cfg.MaxUploadSize); err != nil {
		logger.Warn("[CreateSong] Failed to parse multipart form", logger.ErrorField(err))
		http.Error(w, "Failed to parse upload form", http.StatusBadRequest)
		return
	}

	form := &SongForm{
		Title: r.FormValue("title"),
	}
	if errs := form.Validate(); errs != nil {
		h.renderPage(w, "create_song.html", map[string]interface{}{
			"album":        album,
			"errors":       errs,
			"errorMessage": firstMessage(errs),
			"form":         form,
		})
		return
	}

	// A title may appear once per album; the comparison is exact.
	existing, err := h.songRepo.GetSongsByAlbumID(r.Context(), albumID)
	if err != nil {
		logger.Error("[CreateSong] Failed to load album songs", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	for _, song := range existing {
		if song.Title == form.Title {
			h.renderPage(w, "create_song.html", map[string]interface{}{
				"album":        album,
				"errorMessage": errDuplicateSong,
				"form":         form,
			})
			return
		}
	}

	file, header, err := r.FormFile("audio_file")
	if err != nil {
		h.renderPage(w, "create_song.html", map[string]interface{}{
			"album":        album,
			"errorMessage": errMissingUpload,
			"form":         form,
		})
		return
	}
	defer file.Close()

	if !AllowedAudioType(header.Filename) {
		h.renderPage(w, "create_song.html", map[string]interface{}{
			"album":        album,
			"errorMessage": errAudioFileType,
			"form":         form,
		})
		return
	}

	objectPath := "audio/" + storage.SafeObjectName(header.Filename)
	contentType := header.Header.Get("Content-Type")
	if err := h.store.Put(r.Context(), objectPath, file, header.Size, contentType); err != nil {
		logger.Error("[CreateSong] Failed to store audio",
			logger.String("objectPath", objectPath),
			logger.ErrorField(err))
		http.Error(w, "Failed to store uploaded file", http.StatusInternalServerError)
		return
	}

	song := &model.Song{
		AlbumID:   albumID,
		Title:     form.Title,
		AudioPath: objectPath,
	}

	songID, err := h.songRepo.CreateSong(r.Context(), song)
	if err != nil {
		logger.Error("[CreateSong] Failed to create song", logger.ErrorField(err))
		http.Error(w, "Failed to create song", http.StatusInternalServerError)
		return
	}
	song.ID = songID

	logger.Info("[CreateSong] Song created",
		logger.Int64("songId", songID),
		logger.Int64("albumId", albumID),
		logger.String("title", song.Title))

	h.events.Publish(album.UserID, Event{Type: EventSongCreated, AlbumID: albumID, SongID: songID, Title: song.Title})

	songs, err := h.songRepo.GetSongsByAlbumID(r.Context(), albumID)
	if err != nil {
		logger.Error("[CreateSong] Failed to reload songs", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.renderPage(w, "detail.html", map[string]interface{}{
		"album": album,
		"songs": songs,
	})
}

// DeleteSongHandler removes a song from an album and renders the album's
// detail page.
func (h *APIHandler) DeleteSongHandler(w http.ResponseWriter, r *http.Request) {
	albumID, err := albumIDFromRequest(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	songID, err := songIDFromRequest(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	album, err := h.albumRepo.GetAlbumByID(r.Context(), albumID)
	if err != nil {
		logger.Error("[DeleteSong] Failed to load album", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if album == nil {
		http.NotFound(w, r)
		return
	}

	song, err := h.songRepo.GetSongByID(r.Context(), songID)
	if err != nil {
		logger.Error("[DeleteSong] Failed to load song", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if song == nil {
		http.NotFound(w, r)
		return
	}

	if err := h.songRepo.DeleteSong(r.Context(), songID); err != nil {
		logger.Error("[DeleteSong] Failed to delete song", logger.ErrorField(err))
		http.Error(w, "Failed to delete song", http.StatusInternalServerError)
		return
	}

	if song.AudioPath != "" {
		if err := h.store.Remove(r.Context(), song.AudioPath); err != nil {
			logger.Warn("[DeleteSong] Failed to remove audio object", logger.ErrorField(err))
		}
	}

	logger.Info("[DeleteSong] Song deleted",
		logger.Int64("songId", songID),
		logger.Int64("albumId", albumID))

	h.events.Publish(album.UserID, Event{Type: EventSongDeleted, AlbumID: albumID, SongID: songID, Title: song.Title})

	songs, err := h.songRepo.GetSongsByAlbumID(r.Context(), albumID)
	if err != nil {
		logger.Error("[DeleteSong] Failed to reload songs", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.renderPage(w, "detail.html", map[string]interface{}{
		"album": album,
		"songs": songs,
	})
}

// FavoriteSongHandler flips a song's favorite flag and acknowledges
// with JSON.
func (h *APIHandler) FavoriteSongHandler(w http.ResponseWriter, r *http.Request) {
	songID, err := songIDFromRequest(r)
	if err != nil {
		writeJSON(w, map[string]bool{"success": false})
		return
	}

	song, err := h.songRepo.GetSongByID(r.Context(), songID)
	if err != nil || song == nil {
		writeJSON(w, map[string]bool{"success": false})
		return
	}

	if err := h.songRepo.SetSongFavorite(r.Context(), songID, !song.IsFavorite); err != nil {
		logger.Error("[FavoriteSong] Failed to update favorite flag",
			logger.Int64("songId", songID),
			logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Owner lookup for the event feed is best effort.
	if album, err := h.albumRepo.GetAlbumByID(r.Context(), song.AlbumID); err == nil && album != nil {
		h.events.Publish(album.UserID, Event{Type: EventSongFavorited, AlbumID: album.ID, SongID: songID, Favorite: !song.IsFavorite})
	}

	writeJSON(w, map[string]bool{"success": true})
}

// songIDFromRequest parses the song id route variable.
func songIDFromRequest(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["song_id"], 10, 64)
}
