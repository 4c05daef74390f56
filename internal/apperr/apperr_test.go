package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("failed to update vlog: %w", NotFound("vlog not found"))

	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, Is(err, KindNotFound))
	assert.False(t, Is(err, KindNetwork))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.False(t, Is(nil, KindUnknown))
}

func TestClassify(t *testing.T) {
	cause := errors.New("connection refused")

	err := Classify("failed to load categories", cause)
	assert.Equal(t, KindNetwork, KindOf(err))
	assert.ErrorIs(t, err, cause)

	upload := Upload("image upload failed", cause)
	assert.Same(t, upload, Classify("ignored", upload))

	assert.NoError(t, Classify("nothing", nil))
}

func TestMessageFallback(t *testing.T) {
	assert.Equal(t, "vlog not found", Message(NotFound("vlog not found"), "oops"))
	assert.Equal(t, "oops", Message(errors.New("sql: database is closed"), "oops"))
}

func TestValidationFields(t *testing.T) {
	err := Validation(map[string]string{"title": "Title is required", "url": "URL is required"})

	assert.Equal(t, "Title is required", FieldErrors(err)["title"])
	assert.Equal(t, "validation: please fix the highlighted fields (title: Title is required, url: URL is required)", err.Error())
	assert.Nil(t, FieldErrors(errors.New("plain")))
}

func TestKindStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, KindValidation.Status())
	assert.Equal(t, http.StatusBadGateway, KindUpload.Status())
	assert.Equal(t, http.StatusNotFound, KindNotFound.Status())
	assert.Equal(t, http.StatusServiceUnavailable, KindNetwork.Status())
	assert.Equal(t, http.StatusInternalServerError, KindUnknown.Status())
}
