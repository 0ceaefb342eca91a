package renditions

import "estore/internal/models"

// ResolveSlot locates the rendition slot a finished job should write into.
// Slots are matched by uploadId first; imageIndex is only a fallback because
// concurrent jobs for sibling images may have reordered or appended slots
// since this job was enqueued. If neither resolves, a new slot is appended.
// The possibly grown slice and the resolved index are returned.
func ResolveSlot(slots []models.RenditionSlot, uploadID string, imageIndex int) ([]models.RenditionSlot, int) {
	if uploadID != "" {
		for i := range slots {
			if slots[i].UploadID == uploadID {
				return slots, i
			}
		}
	}
	if imageIndex >= 0 && imageIndex < len(slots) && slots[imageIndex].UploadID == "" {
		return slots, imageIndex
	}
	slots = append(slots, models.RenditionSlot{UploadID: uploadID})
	return slots, len(slots) - 1
}

// FillSlot writes a finished job's uploaded URLs into a slot. Original,
// Medium and Thumbnail carry the webp rendition at each size; WebP and AVIF
// hold the full-size copy in each format.
func FillSlot(slot *models.RenditionSlot, urls map[string]map[string]string) {
	slot.Original = urls[SizeOriginal][FormatWebP]
	slot.Medium = urls[SizeMedium][FormatWebP]
	slot.Thumbnail = urls[SizeThumbnail][FormatWebP]
	slot.WebP = urls[SizeOriginal][FormatWebP]
	slot.AVIF = urls[SizeOriginal][FormatAVIF]
}

// Status derives the product-level processing status from its slots.
// Completed requires every slot to be processed; a product with no slots is
// still pending.
func Status(slots []models.RenditionSlot) string {
	if len(slots) == 0 {
		return models.ImageStatusPending
	}
	for _, slot := range slots {
		if !slot.Processed() {
			return models.ImageStatusPending
		}
	}
	return models.ImageStatusCompleted
}

// SyncImageURLs rebuilds the imageUrls array from the slots so the two arrays
// stay index-aligned: processed slots expose their medium rendition, pending
// ones keep whatever URL they had (or the raw original upload).
func SyncImageURLs(urls []string, slots []models.RenditionSlot) []string {
	synced := make([]string, len(slots))
	for i, slot := range slots {
		switch {
		case slot.Processed():
			synced[i] = slot.Medium
		case i < len(urls) && urls[i] != "":
			synced[i] = urls[i]
		default:
			synced[i] = slot.Original
		}
	}
	return synced
}
