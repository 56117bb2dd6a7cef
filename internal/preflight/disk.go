package preflight

import (
	"fmt"
	"syscall"
)

const (
	// MinDiskSpaceBytes is the free space below which nothing will fit (100MB).
	MinDiskSpaceBytes = 100 * 1024 * 1024

	// BytesPerBook approximates one book across raw text, processed JSON and
	// its share of the search index.
	BytesPerBook = 2 * 1024 * 1024
)

// CheckDiskSpace fails below MinDiskSpaceBytes and warns when the free space
// will not hold expectedBooks.
func (c *Checker) CheckDiskSpace(path string, expectedBooks int) CheckResult {
	result := CheckResult{
		Name:     "disk_space",
		Required: true,
	}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("failed to check disk space: %v", err)
		return result
	}

	available := stat.Bavail * uint64(stat.Bsize)
	estimate := uint64(max(expectedBooks, 0)) * BytesPerBook

	switch {
	case available < MinDiskSpaceBytes:
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s free (minimum: 100 MB)", formatBytes(available))
	case available < estimate:
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s free, %d books need about %s", formatBytes(available), expectedBooks, formatBytes(estimate))
		result.Details = "Lower catalog.target or free some space"
	default:
		result.Status = StatusPass
		result.Message = fmt.Sprintf("%s free", formatBytes(available))
	}
	return result
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(bytes uint64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
		TB = 1024 * GB
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/TB)
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}
