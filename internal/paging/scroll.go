package paging

// NearBottom reports whether the visible window ends within threshold units of the end of the
// content. Units are whatever the caller measures in (rows, pixels).
//
// Content that fits entirely in the viewport is always near the bottom.
func NearBottom(offset, viewport, content, threshold int) bool {
	if viewport <= 0 {
		return false
	}
	if content <= viewport {
		return true
	}
	remaining := content - (max(offset, 0) + viewport)
	return remaining <= max(threshold, 0)
}
