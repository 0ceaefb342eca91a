package renditions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estore/internal/models"
)

func TestResolveSlotByUploadID(t *testing.T) {
	t.Parallel()

	slots := []models.RenditionSlot{
		{UploadID: "a"},
		{UploadID: "b"},
		{UploadID: "c"},
	}

	// The slice was reordered since the job was enqueued; uploadId wins
	// over the stale index.
	resolved, idx := ResolveSlot(slots, "c", 0)
	assert.Equal(t, 2, idx)
	assert.Len(t, resolved, 3)
}

func TestResolveSlotIndexFallback(t *testing.T) {
	t.Parallel()

	slots := []models.RenditionSlot{{}, {}}

	resolved, idx := ResolveSlot(slots, "missing", 1)
	// Index 1 has no uploadId claim, so the fallback may take it.
	assert.Equal(t, 1, idx)
	assert.Len(t, resolved, 2)
}

func TestResolveSlotAppends(t *testing.T) {
	t.Parallel()

	slots := []models.RenditionSlot{{UploadID: "a"}}

	resolved, idx := ResolveSlot(slots, "b", 0)
	require.Len(t, resolved, 2)
	assert.Equal(t, 1, idx)
	assert.Equal(t, "b", resolved[1].UploadID)
}

func TestResolveSlotIdempotentOnRedelivery(t *testing.T) {
	t.Parallel()

	slots := []models.RenditionSlot{{UploadID: "a", Medium: "done"}}

	// Redelivering the same job targets the same slot, never a duplicate.
	resolved, idx := ResolveSlot(slots, "a", 0)
	assert.Equal(t, 0, idx)
	assert.Len(t, resolved, 1)
}

func TestFillSlotFormatsUseFullSize(t *testing.T) {
	t.Parallel()

	urls := map[string]map[string]string{
		SizeOriginal:  {FormatWebP: "orig.webp", FormatAVIF: "orig.avif"},
		SizeMedium:    {FormatWebP: "med.webp", FormatAVIF: "med.avif"},
		SizeThumbnail: {FormatWebP: "thumb.webp", FormatAVIF: "thumb.avif"},
	}

	var slot models.RenditionSlot
	FillSlot(&slot, urls)

	assert.Equal(t, "orig.webp", slot.Original)
	assert.Equal(t, "med.webp", slot.Medium)
	assert.Equal(t, "thumb.webp", slot.Thumbnail)
	// The format copies are the full-size image, not the resized medium.
	assert.Equal(t, "orig.webp", slot.WebP)
	assert.Equal(t, "orig.avif", slot.AVIF)
}

func TestStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		slots []models.RenditionSlot
		want  string
	}{
		{"no slots", nil, models.ImageStatusPending},
		{
			"two of three processed",
			[]models.RenditionSlot{{Medium: "m1"}, {Medium: "m2"}, {}},
			models.ImageStatusPending,
		},
		{
			"all processed",
			[]models.RenditionSlot{{Medium: "m1"}, {Medium: "m2"}, {Medium: "m3"}},
			models.ImageStatusCompleted,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Status(tc.slots))
		})
	}
}

func TestSyncImageURLsStaysAligned(t *testing.T) {
	t.Parallel()

	slots := []models.RenditionSlot{
		{Medium: "medium-1"},
		{Original: "staged-2"},
		{},
	}
	urls := SyncImageURLs([]string{"old-1", "old-2"}, slots)

	require.Len(t, urls, len(slots))
	assert.Equal(t, "medium-1", urls[0])
	assert.Equal(t, "old-2", urls[1])
	assert.Equal(t, "", urls[2])
}
