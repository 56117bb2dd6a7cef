package preflight

import (
	"fmt"
	"syscall"
)

const (
	// MinFileDescriptors is the floor for the open-file limit.
	MinFileDescriptors = 256

	// descriptorsPerWorker covers a download's socket and its output file.
	descriptorsPerWorker = 4
)

// CheckFileDescriptors checks the open-file limit against the worker count.
func (c *Checker) CheckFileDescriptors(workers int) CheckResult {
	result := CheckResult{
		Name:     "file_descriptors",
		Required: true,
	}

	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("failed to check file descriptor limit: %v", err)
		return result
	}

	need := uint64(max(MinFileDescriptors, workers*descriptorsPerWorker))
	if rLimit.Cur < need {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%d (need %d for %d workers)", rLimit.Cur, need, workers)
		result.Details = fmt.Sprintf("Run 'ulimit -n %d' or lower retriever.workers", need)
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d (need %d)", rLimit.Cur, need)
	return result
}
