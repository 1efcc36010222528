package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowedImageType(t *testing.T) {
	assert.True(t, AllowedImageType("cover.png"))
	assert.True(t, AllowedImageType("cover.jpg"))
	assert.True(t, AllowedImageType("cover.jpeg"))
	assert.True(t, AllowedImageType("COVER.JPG"), "extension match is case-insensitive")

	assert.False(t, AllowedImageType("cover.gif"))
	assert.False(t, AllowedImageType("cover.mp3"))
	assert.False(t, AllowedImageType("cover"))
	assert.False(t, AllowedImageType("cover.jpg.exe"))
}

func TestAllowedAudioType(t *testing.T) {
	assert.True(t, AllowedAudioType("intro.wav"))
	assert.True(t, AllowedAudioType("intro.mp3"))
	assert.True(t, AllowedAudioType("intro.OGG"))

	assert.False(t, AllowedAudioType("intro.flac"))
	assert.False(t, AllowedAudioType("intro.jpg"))
	assert.False(t, AllowedAudioType("intro"))
}

func TestRegisterFormValidate(t *testing.T) {
	valid := RegisterForm{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Username:  "ada",
		Password1: "secret12",
		Password2: "secret12",
		Email:     "ada@example.com",
	}
	assert.Nil(t, valid.Validate())

	mismatch := valid
	mismatch.Password2 = "different"
	errs := mismatch.Validate()
	assert.Equal(t, map[string]string{"Password2": errPasswordMatch}, errs)

	missing := valid
	missing.Username = ""
	errs = missing.Validate()
	assert.Contains(t, errs, "Username")

	badEmail := valid
	badEmail.Email = "not-an-email"
	errs = badEmail.Validate()
	assert.Equal(t, "Enter a valid email address", errs["Email"])
}

func TestLoginFormValidate(t *testing.T) {
	valid := LoginForm{Username: "ada", Password: "secret12"}
	assert.Nil(t, valid.Validate())

	assert.NotNil(t, (&LoginForm{Username: "ada"}).Validate())
	assert.NotNil(t, (&LoginForm{Password: "secret12"}).Validate())
}

func TestAlbumFormValidate(t *testing.T) {
	valid := AlbumForm{Title: "Live", Artist: "X"}
	assert.Nil(t, valid.Validate())

	errs := (&AlbumForm{Artist: "X"}).Validate()
	assert.Contains(t, errs, "Title")

	errs = (&AlbumForm{Title: "Live"}).Validate()
	assert.Contains(t, errs, "Artist")
}

func TestSongFormValidate(t *testing.T) {
	assert.Nil(t, (&SongForm{Title: "Intro"}).Validate())
	assert.Contains(t, (&SongForm{}).Validate(), "Title")
}
