package web

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vbonduro/vlogadmin/internal/service"
)

func TestSlotKeys(t *testing.T) {
	got := slotKeys([]string{"2", "0", "2", "", "../x", "7f3a-1c", "UPPER"})
	assert.Equal(t, []string{"2", "0", "7f3a-1c"}, got)
}

func TestSlotKeysCapped(t *testing.T) {
	raw := make([]string, maxGallerySlots+5)
	for i := range raw {
		raw[i] = strconv.Itoa(i)
	}
	got := slotKeys(raw)
	assert.Len(t, got, maxGallerySlots)
	assert.Equal(t, "0", got[0])
}

func TestIndexedSlots(t *testing.T) {
	assert.Equal(t, []gallerySlot{{Key: "0"}}, indexedSlots(nil))

	slots := indexedSlots([]service.ImageSlot{service.ExistingImage("u1"), service.ExistingImage("u2")})
	assert.Equal(t, "1", slots[1].Key)
	assert.Equal(t, "u2", slots[1].Slot.URL)
}
