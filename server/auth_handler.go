package server

import (
	"errors"
	"net/http"

	"musecrate/core/auth"
	"musecrate/logger"
	"musecrate/model"
	"musecrate/repository"
)

// RegisterHandler shows the registration form and creates new users.
func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.renderPage(w, "register.html", nil)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	form := &RegisterForm{
		FirstName: r.PostFormValue("first_name"),
		LastName:  r.PostFormValue("last_name"),
		Username:  r.PostFormValue("username"),
		Password1: r.PostFormValue("password1"),
		Password2: r.PostFormValue("password2"),
		Email:     r.PostFormValue("email"),
	}

	if errs := form.Validate(); errs != nil {
		h.renderPage(w, "register.html", map[string]interface{}{
			"errors":       errs,
			"errorMessage": firstMessage(errs),
			"form":         form,
		})
		return
	}

	// The unique constraints are the final word, but checking first gives
	// the user a specific message instead of a generic conflict.
	if existing, err := h.userRepo.GetUserByUsername(form.Username); err != nil {
		logger.Error("[Register] Failed to check username", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	} else if existing != nil {
		h.renderPage(w, "register.html", map[string]interface{}{
			"errorMessage": errUsernameTaken,
			"form":         form,
		})
		return
	}

	if existing, err := h.userRepo.GetUserByEmail(form.Email); err != nil {
		logger.Error("[Register] Failed to check email", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	} else if existing != nil {
		h.renderPage(w, "register.html", map[string]interface{}{
			"errorMessage": errEmailTaken,
			"form":         form,
		})
		return
	}

	hashedPassword, err := auth.HashPassword(form.Password1)
	if err != nil {
		logger.Error("[Register] Failed to hash password", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	user := &model.User{
		Username:     form.Username,
		Email:        form.Email,
		PasswordHash: hashedPassword,
		FirstName:    form.FirstName,
		LastName:     form.LastName,
	}

	if _, err := h.userRepo.CreateUser(user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			h.renderPage(w, "register.html", map[string]interface{}{
				"errorMessage": errUsernameTaken,
				"form":         form,
			})
			return
		}
		logger.Error("[Register] Failed to create user", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	logger.Info("[Register] User created", logger.String("username", form.Username))

	// No session is started; the new user logs in explicitly.
	h.renderPage(w, "login.html", nil)
}

// LoginHandler shows the login form and starts sessions.
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.renderPage(w, "login.html", nil)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	form := &LoginForm{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}
	if errs := form.Validate(); errs != nil {
		h.renderPage(w, "login.html", map[string]interface{}{
			"errorMessage": errInvalidLogin,
		})
		return
	}

	user, err := h.userRepo.GetUserByUsername(form.Username)
	if err != nil {
		logger.Error("[Login] Failed to look up user", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if user == nil || !auth.CheckPasswordHash(form.Password, user.PasswordHash) {
		logger.Warn("[Login] Invalid credentials", logger.String("username", form.Username))
		h.renderPage(w, "login.html", map[string]interface{}{
			"errorMessage": errInvalidLogin,
		})
		return
	}

	sessionID, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		logger.Error("[Login] Failed to create session", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	token, err := auth.GenerateToken(h.cfg.JWTSecret, user.ID, user.Username, sessionID, h.cfg.SessionTTL)
	if err != nil {
		logger.Error("[Login] Failed to generate token", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   int(h.cfg.SessionTTL.Seconds()),
	})

	albums, err := h.albumRepo.GetAlbumsByUserID(r.Context(), user.ID)
	if err != nil {
		logger.Error("[Login] Failed to load albums", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	logger.Info("[Login] Login successful", logger.String("username", user.Username))
	h.renderPage(w, "index.html", map[string]interface{}{
		"albums": albums,
	})
}

// LogoutHandler terminates the current session unconditionally.
func (h *APIHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if token := tokenFromRequest(r); token != "" {
		if claims, err := auth.ParseToken(h.cfg.JWTSecret, token); err == nil {
			if err := h.sessions.Delete(r.Context(), claims.SessionID); err != nil {
				logger.Warn("[Logout] Failed to delete session", logger.ErrorField(err))
			}
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	h.renderPage(w, "login.html", nil)
}

// firstMessage picks a message to surface when a form has several errors.
func firstMessage(errs map[string]string) string {
	for _, msg := range errs {
		return msg
	}
	return ""
}
