package app

import "syscall"

// DiskUsage describes the filesystem holding the data root.
type DiskUsage struct {
	TotalBytes     uint64 `json:"total_bytes"`
	UsedBytes      uint64 `json:"used_bytes"`
	AvailableBytes uint64 `json:"available_bytes"`
}

// diskUsage returns usage for the filesystem containing path, or nil.
func diskUsage(path string) *DiskUsage {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return nil
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	return &DiskUsage{
		TotalBytes:     total,
		UsedBytes:      total - stat.Bfree*uint64(stat.Bsize),
		AvailableBytes: free,
	}
}
