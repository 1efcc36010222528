package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"musecrate/config"
	"musecrate/storage"

	"github.com/minio/minio-go/v7"
	"github.com/spf13/cobra"
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "Test the MinIO connection",
	Long:  `Connect to MinIO with the configured credentials and list the media bucket contents.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		if err := storage.InitMinio(cfg); err != nil {
			log.Fatalf("Failed to initialize MinIO: %v", err)
		}
		fmt.Printf("MinIO connection OK, bucket: %s\n", cfg.MinioBucket)

		client := storage.GetMinioClient()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var count int
		var totalSize int64
		for object := range client.ListObjects(ctx, cfg.MinioBucket, minio.ListObjectsOptions{Recursive: true}) {
			if object.Err != nil {
				log.Fatalf("Failed to list objects: %v", object.Err)
			}
			count++
			totalSize += object.Size
		}
		fmt.Printf("Bucket holds %d objects, %d bytes total.\n", count, totalSize)
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)
}
