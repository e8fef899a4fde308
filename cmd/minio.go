package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"Melodia/config"
	"Melodia/storage"

	"github.com/spf13/cobra"
)

var (
	minioPrefix string
	minioStats  bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "Inspect the media bucket",
	Long:  `List the objects in the MinIO bucket that holds uploaded audio, lyrics, covers and hero images, or print a summary.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		fmt.Printf("MinIO: %s, bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		store, err := storage.NewMinioStore(ctx, cfg)
		if err != nil {
			log.Fatalf("Cannot connect to MinIO: %v", err)
		}

		if minioStats {
			stats, err := store.Stats(ctx, minioPrefix)
			if err != nil {
				log.Fatalf("Failed to read bucket stats: %v", err)
			}
			printStats(stats)
			return
		}

		objects, err := store.ListObjects(ctx, minioPrefix)
		if err != nil {
			log.Fatalf("Failed to list objects: %v", err)
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tSIZE\tMODIFIED")
		for _, o := range objects {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", o.Key, storage.FormatSize(o.Size), o.LastModified.Format(time.DateTime))
		}
		tw.Flush()
		fmt.Printf("%d objects\n", len(objects))
	},
}

func printStats(stats *storage.BucketStats) {
	fmt.Printf("Bucket:        %s\n", stats.Bucket)
	fmt.Printf("Objects:       %d\n", stats.TotalObjects)
	fmt.Printf("Total size:    %s\n", storage.FormatSize(stats.TotalSize))
	if !stats.LastModified.IsZero() {
		fmt.Printf("Last modified: %s\n", stats.LastModified.Format(time.DateTime))
	}
	for _, group := range []struct {
		title  string
		counts map[string]int64
	}{{"By folder", stats.ByFolder}, {"By extension", stats.ByExtension}} {
		if len(group.counts) == 0 {
			continue
		}
		fmt.Println(group.title + ":")
		keys := make([]string, 0, len(group.counts))
		for k := range group.counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %-16s %d\n", k, group.counts[k])
		}
	}
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "only objects under this prefix, e.g. audio/")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "print a summary instead of the listing")

	minioCmd.Example = `  # list everything
  melodia minio

  # list uploaded covers
  melodia minio -p covers/

  # bucket summary
  melodia minio -s`
}
