package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"Melodia/config"
	"Melodia/db"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Check the Redis connection",
	Long:  `Connect to Redis with the configured address and run a set/get/del round trip. Use it before switching PLAY_REGISTRY to redis.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		fmt.Printf("Redis: %s:%s, DB: %d\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)

		if err := db.ConnectRedis(cfg); err != nil {
			log.Fatalf("Cannot connect to Redis: %v", err)
		}
		defer func() {
			if err := db.CloseRedis(); err != nil {
				log.Printf("Error closing Redis: %v", err)
			}
		}()
		fmt.Println("Connected.")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.CheckRedis(ctx, db.RedisClient); err != nil {
			log.Fatalf("Redis round trip failed: %v", err)
		}
		fmt.Println("Round trip OK.")
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
