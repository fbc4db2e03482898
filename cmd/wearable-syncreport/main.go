package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/analytics"
	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/common/config"
	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/common/database"
	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/repository"

	"go.uber.org/zap"
)

// 打印所有已授权设备的同步状态与最近佩戴时长
func main() {
	cfg := &config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "wearables",
		SSLMode:  "disable",
	}
	cfg.LoadFromEnv("DB")

	days := parseInt(getEnv("REPORT_DAYS", "7"), 7)

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	ctx := context.Background()
	logger := zap.NewNop()
	devices := repository.NewPostgresDevicesRepository(db, logger)
	stats := analytics.NewService(repository.NewPostgresMetricsRepository(db), analytics.DefaultMaxGap, logger)

	authorized, err := devices.GetAllAuthorized(ctx)
	if err != nil {
		log.Fatalf("Failed to query devices: %v", err)
	}

	fmt.Printf("%-6s %-32s %-16s %-17s %-13s %-9s %-10s %-10s\n",
		"id", "email_address", "device_type", "last_synch", "status", "gap_days", "hours", "avg/day")
	fmt.Println(strings.Repeat("=", 120))

	for _, d := range authorized {
		sync := stats.SyncData(d)
		usage, err := stats.LastUsage(ctx, d, days)
		if err != nil {
			log.Printf("Failed to compute usage for device %d: %v", d.ID, err)
			continue
		}
		fmt.Printf("%-6d %-32s %-16s %-17s %-13s %-9d %-10.2f %-10.2f\n",
			d.ID, d.EmailAddress, orNull(d.DeviceType), formatTime(d.LastSynch), sync.Status,
			sync.GapDays, usage.TotalHours, usage.AverageHoursPerDay)
	}

	if len(authorized) == 0 {
		fmt.Println("No authorized devices")
	} else {
		fmt.Printf("\n%d devices, usage over the last %d days\n", len(authorized), days)
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "NULL"
	}
	return t.Format("2006-01-02 15:04")
}

func orNull(s string) string {
	if s == "" {
		return "NULL"
	}
	return s
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil || i <= 0 {
		return def
	}
	return i
}
