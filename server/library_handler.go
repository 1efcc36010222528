package server

import (
	"net/http"

	"musecrate/logger"

	"github.com/gorilla/mux"
)

// IndexHandler renders the session user's albums, or search results when a
// query is present.
func (h *APIHandler) IndexHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		h.renderPage(w, "login.html", nil)
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		albums, err := h.albumRepo.GetAlbumsByUserID(r.Context(), userID)
		if err != nil {
			logger.Error("[Index] Failed to load albums", logger.ErrorField(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		h.renderPage(w, "index.html", map[string]interface{}{
			"albums": albums,
		})
		return
	}

	albums, err := h.albumRepo.SearchAlbums(r.Context(), userID, query)
	if err != nil {
		logger.Error("[Index] Album search failed",
			logger.String("query", query),
			logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Song matches are not scoped to the user's own albums.
	songs, err := h.songRepo.SearchSongs(r.Context(), query)
	if err != nil {
		logger.Error("[Index] Song search failed",
			logger.String("query", query),
			logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.renderPage(w, "index.html", map[string]interface{}{
		"albums": albums,
		"songs":  songs,
		"query":  query,
	})
}

// SongsHandler renders the songs of the session user's albums, optionally
// restricted to favorites. Unknown filter values mean no filter.
func (h *APIHandler) SongsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		h.renderPage(w, "login.html", nil)
		return
	}

	filterBy := mux.Vars(r)["filter"]
	favoritesOnly := filterBy == "favorites"

	songs, err := h.songRepo.GetSongsByUserID(r.Context(), userID, favoritesOnly)
	if err != nil {
		logger.Error("[Songs] Failed to load songs",
			logger.Int64("userId", userID),
			logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.renderPage(w, "songs.html", map[string]interface{}{
		"songs":    songs,
		"filterBy": filterBy,
	})
}
