package utils

import (
	"mime/multipart"
	"net/textproto"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewULIDFromTimestamp(t *testing.T) {
	u := New()
	a, err := u.NewULIDFromTimestamp(time.Now())
	require.NoError(t, err)
	assert.Len(t, a, 26)
}

func TestNewUUID(t *testing.T) {
	u := New()
	id := u.NewUUID()
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.NotEqual(t, id, u.NewUUID())
}

func TestValidateImageFile(t *testing.T) {
	u := New()
	header := func(size int64, contentType string) *multipart.FileHeader {
		h := textproto.MIMEHeader{}
		h.Set("Content-Type", contentType)
		return &multipart.FileHeader{Filename: "frame.jpg", Size: size, Header: h}
	}

	assert.NoError(t, u.ValidateImageFile(header(1024, "image/jpeg")))
	assert.ErrorIs(t, u.ValidateImageFile(nil), ErrNoFile)
	assert.ErrorIs(t, u.ValidateImageFile(header(6*1024*1024, "image/png")), ErrFileTooLarge)
	assert.ErrorIs(t, u.ValidateImageFile(header(10, "text/plain")), ErrNotAnImage)
}
