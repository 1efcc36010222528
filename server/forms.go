package server

import (
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Allowed upload extensions, matched case-insensitively against the
// uploaded file's declared name.
var (
	ImageFileTypes = []string{"png", "jpg", "jpeg"}
	AudioFileTypes = []string{"wav", "mp3", "ogg"}
)

const (
	errImageFileType = "Image file must be PNG, JPG, or JPEG"
	errAudioFileType = "Audio file must be WAV, MP3, or OGG"
	errDuplicateSong = "You already added that song"
	errPasswordMatch = "Passwords do not match"
	errUsernameTaken = "Username Already Taken..."
	errEmailTaken    = "Email Already Taken..."
	errInvalidLogin  = "Invalid Credential"
	errMissingUpload = "Please choose a file to upload"
)

var validate = validator.New()

// fileExtension returns the lowercased extension of a filename without the dot.
func fileExtension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// AllowedImageType reports whether the declared filename has an allowed
// image extension.
func AllowedImageType(filename string) bool {
	return containsType(ImageFileTypes, fileExtension(filename))
}

// AllowedAudioType reports whether the declared filename has an allowed
// audio extension.
func AllowedAudioType(filename string) bool {
	return containsType(AudioFileTypes, fileExtension(filename))
}

func containsType(allowed []string, ext string) bool {
	for _, t := range allowed {
		if ext == t {
			return true
		}
	}
	return false
}

// fieldErrors turns validator output into field-level messages.
func fieldErrors(err error) map[string]string {
	errs := map[string]string{}
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errs["form"] = "Invalid form data"
		return errs
	}
	for _, fe := range validationErrs {
		switch fe.Tag() {
		case "required":
			errs[fe.Field()] = "This field is required"
		case "email":
			errs[fe.Field()] = "Enter a valid email address"
		default:
			errs[fe.Field()] = "Invalid value"
		}
	}
	return errs
}

// RegisterForm carries the registration fields.
type RegisterForm struct {
	FirstName string `validate:"required"`
	LastName  string `validate:"required"`
	Username  string `validate:"required"`
	Password1 string `validate:"required"`
	Password2 string `validate:"required"`
	Email     string `validate:"required,email"`
}

// Validate returns field-level error messages, or nil if the form is valid.
func (f *RegisterForm) Validate() map[string]string {
	if err := validate.Struct(f); err != nil {
		return fieldErrors(err)
	}
	if f.Password1 != f.Password2 {
		return map[string]string{"Password2": errPasswordMatch}
	}
	return nil
}

// LoginForm carries the login credentials.
type LoginForm struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

// Validate returns field-level error messages, or nil if the form is valid.
func (f *LoginForm) Validate() map[string]string {
	if err := validate.Struct(f); err != nil {
		return fieldErrors(err)
	}
	return nil
}

// AlbumForm carries the album metadata fields.
type AlbumForm struct {
	Title  string `validate:"required"`
	Artist string `validate:"required"`
}

// Validate returns field-level error messages, or nil if the form is valid.
func (f *AlbumForm) Validate() map[string]string {
	if err := validate.Struct(f); err != nil {
		return fieldErrors(err)
	}
	return nil
}

// SongForm carries the song metadata fields.
type SongForm struct {
	Title string `validate:"required"`
}

// Validate returns field-level error messages, or nil if the form is valid.
func (f *SongForm) Validate() map[string]string {
	if err := validate.Struct(f); err != nil {
		return fieldErrors(err)
	}
	return nil
}
