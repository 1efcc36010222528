package server

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"musecrate/cache"
	"musecrate/config"
	"musecrate/db"
	"musecrate/logger"
	"musecrate/model"
	"musecrate/render"
	"musecrate/repository"
	"musecrate/storage"

	"github.com/gorilla/mux"
	"github.com/minio/minio-go/v7"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if err := storage.InitMinio(cfg); err != nil {
		log.Fatalf("Failed to initialize MinIO: %v", err)
	}

	if err := db.ConnectDB(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.DB.Close()

	// The raw schema owns table creation; it must run first so the FK
	// cascades exist before GORM sees the tables.
	if err := db.InitDB(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if err := db.ConnectGormDB(cfg); err != nil {
		log.Fatalf("Failed to connect to database with GORM: %v", err)
	}
	defer db.CloseGormDB()

	if err := db.AutoMigrateModels(&model.User{}, &model.Album{}, &model.Song{}); err != nil {
		log.Fatalf("Failed to migrate models: %v", err)
	}

	if err := db.ConnectRedis(cfg); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer db.CloseRedis()
	log.Println("Successfully connected to Redis")

	renderer, err := render.New(cfg.TemplateDir)
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}
	defer renderer.Close()

	userRepo := repository.NewMySQLUserRepository(db.DB)
	albumRepo := repository.NewMySQLAlbumRepository(db.DB)
	songRepo := repository.NewMySQLSongRepository(db.DB)
	sessions := cache.NewSessionStore(db.RedisClient, cfg.SessionTTL)
	objectStore := storage.NewMinioStore(cfg.MinioBucket)
	events := NewEventHub()

	apiHandler := NewAPIHandler(userRepo, albumRepo, songRepo, sessions, objectStore, renderer, events, cfg)

	router := mux.NewRouter()

	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	apiHandler.RegisterRoutes(router)
	server.Handler = router

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s...", cfg.ServerAddr)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// RegisterRoutes wires the handler's routes into the router.
func (h *APIHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/register", h.RegisterHandler).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/login", h.LoginHandler).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/logout", h.LogoutHandler).Methods(http.MethodGet, http.MethodPost)

	router.HandleFunc("/albums/create", h.AuthMiddleware(h.CreateAlbumHandler)).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/albums/{id:[0-9]+}", h.AuthMiddleware(h.AlbumDetailHandler)).Methods(http.MethodGet)
	router.HandleFunc("/albums/{id:[0-9]+}/delete", h.AuthMiddleware(h.DeleteAlbumHandler)).Methods(http.MethodPost)
	router.HandleFunc("/albums/{id:[0-9]+}/favorite", h.FavoriteAlbumHandler).Methods(http.MethodPost)

	router.HandleFunc("/albums/{id:[0-9]+}/songs/create", h.CreateSongHandler).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/albums/{id:[0-9]+}/songs/{song_id:[0-9]+}/delete", h.DeleteSongHandler).Methods(http.MethodPost)
	router.HandleFunc("/songs/{song_id:[0-9]+}/favorite", h.FavoriteSongHandler).Methods(http.MethodPost)
	router.HandleFunc("/songs/{filter}", h.AuthMiddleware(h.SongsHandler)).Methods(http.MethodGet)

	router.HandleFunc("/ws/events", h.EventsHandler)
	router.PathPrefix("/media/").HandlerFunc(h.MediaHandler).Methods(http.MethodGet)

	router.HandleFunc("/", h.AuthMiddleware(h.IndexHandler)).Methods(http.MethodGet)
}

// MediaHandler serves stored cover and audio objects out of MinIO.
func (h *APIHandler) MediaHandler(w http.ResponseWriter, r *http.Request) {
	objectPath := strings.TrimPrefix(r.URL.Path, "/media/")

	client := storage.GetMinioClient()
	if client == nil {
		http.Error(w, "Object storage not available", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	object, err := client.GetObject(ctx, h.cfg.MinioBucket, objectPath, minio.GetObjectOptions{})
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer object.Close()

	w.Header().Set("Content-Type", mediaContentType(objectPath))
	w.Header().Set("Cache-Control", "public, max-age=31536000")

	if _, err := io.Copy(w, object); err != nil {
		logger.Warn("Error serving media object",
			logger.String("objectPath", objectPath),
			logger.ErrorField(err))
	}
}

func mediaContentType(objectPath string) string {
	switch fileExtension(objectPath) {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "mp3":
		return "audio/mpeg"
	case "wav":
		return "audio/wav"
	case "ogg":
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}
