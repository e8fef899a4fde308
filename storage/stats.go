package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
)

// BucketStats summarises the objects under a prefix.
type BucketStats struct {
	Bucket       string
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
	ByFolder     map[string]int64 // top level folder -> object count
	ByExtension  map[string]int64
}

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ListObjects lists every object under prefix.
func (m *MinioStore) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	for object := range m.client.ListObjects(ctx, m.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", object.Err)
		}
		out = append(out, ObjectInfo{Key: object.Key, Size: object.Size, LastModified: object.LastModified})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Stats walks the bucket under prefix and aggregates sizes.
func (m *MinioStore) Stats(ctx context.Context, prefix string) (*BucketStats, error) {
	objects, err := m.ListObjects(ctx, prefix)
	if err != nil {
		return nil, err
	}
	stats := Summarise(objects)
	stats.Bucket = m.bucketName
	return stats, nil
}

// Summarise aggregates a listing.
func Summarise(objects []ObjectInfo) *BucketStats {
	stats := &BucketStats{
		ByFolder:    make(map[string]int64),
		ByExtension: make(map[string]int64),
	}
	for _, o := range objects {
		stats.TotalObjects++
		stats.TotalSize += o.Size
		if o.LastModified.After(stats.LastModified) {
			stats.LastModified = o.LastModified
		}
		folder := "/"
		if i := strings.Index(o.Key, "/"); i > 0 {
			folder = o.Key[:i]
		}
		stats.ByFolder[folder]++

		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(o.Key)), ".")
		if ext == "" {
			ext = "unknown"
		}
		stats.ByExtension[ext]++
	}
	return stats
}

// FormatSize renders a byte count with a binary unit.
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
