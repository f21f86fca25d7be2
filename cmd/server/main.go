package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"

	"filesrus/internal/api"
	"filesrus/internal/files"
	"filesrus/internal/logging"
	"filesrus/internal/preview"
	"filesrus/internal/store"
)

func serveIndex(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, "web/index.html")
}

func printStats(st *store.SQLiteStore) {
	ctx := context.Background()
	stats, err := st.GetStats(ctx)
	if err != nil {
		logging.Internal.Fatalf("failed to get stats: %v", err)
	}

	fmt.Println("╔══════════════════════════════════════════╗")
	fmt.Println("║           Files R Us Statistics          ║")
	fmt.Println("╠══════════════════════════════════════════╣")
	fmt.Printf("║  Total Files:     %-22d║\n", stats.TotalFiles)
	fmt.Printf("║  Total Storage:   %-22s║\n", humanize.IBytes(uint64(stats.TotalBytes)))
	if len(stats.ByType) > 0 {
		fmt.Println("╠══════════════════════════════════════════╣")
		for _, ft := range []store.FileType{store.TypeImage, store.TypeGIF, store.TypeAudio, store.TypeVideo, store.TypeM3U8, store.TypeOther} {
			if count := stats.ByType[ft]; count > 0 {
				fmt.Printf("║  %-16s %3d files%13s║\n", ft+":", count, "")
			}
		}
	}
	fmt.Println("╠══════════════════════════════════════════╣")
	if stats.OldestMs > 0 {
		fmt.Printf("║  Oldest File:     %-22s║\n", time.UnixMilli(stats.OldestMs).Format("2006-01-02 15:04"))
		fmt.Printf("║  Newest File:     %-22s║\n", time.UnixMilli(stats.NewestMs).Format("2006-01-02 15:04"))
	} else {
		fmt.Println("║  No files in database                    ║")
	}
	fmt.Println("╚══════════════════════════════════════════╝")
}

func defaultSettings() *store.StorageSettings {
	return &store.StorageSettings{
		AppName:              "Files R Us",
		MaxStorageBytes:      10 << 30,
		MaxUploadSizeBytes:   1 << 30,
		CloudEnabled:         true,
		CloudMaxStorageBytes: 5 << 30,
		DefaultSortOrder:     files.SortNameAsc,
		DefaultPlaybackMode:  files.DefaultPlaybackMode,
	}
}

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	dbPath := flag.String("db", "filesrus.db", "SQLite database path")
	storagePath := flag.String("storage", "./uploads", "Local blob storage directory")
	mediaBase := flag.String("media-base", "/api/media", "Public base URL for locally stored blobs")
	showStats := flag.Bool("stats", false, "Show vault statistics and exit")
	seedSettings := flag.Bool("seed-settings", false, "Insert default storage settings if none exist")
	devMode := flag.Bool("dev", false, "Development mode: disables CORS restrictions and rate limiting")
	corsOrigins := flag.String("cors-origins", "https://files-r-us.xyz", "Comma-separated list of allowed CORS origins")
	flag.Parse()

	// Optional .env file for storage credentials
	if err := godotenv.Load(); err == nil {
		logging.Internal.Println("loaded configuration from .env")
	}

	// Initialize metadata store
	st, err := store.NewSQLiteStore(*dbPath)
	if err != nil {
		logging.Internal.Fatalf("failed to open database: %v", err)
	}
	defer st.Close()

	// Show stats and exit if requested
	if *showStats {
		printStats(st)
		return
	}

	if *seedSettings {
		if _, err := st.FindSettings(context.Background()); err == store.ErrNotFound {
			settings := defaultSettings()
			if err := st.SaveSettings(context.Background(), settings); err != nil {
				logging.Internal.Fatalf("failed to seed settings: %v", err)
			}
			logging.Internal.Printf("seeded default settings (max storage %s, max upload %s)",
				humanize.IBytes(uint64(settings.MaxStorageBytes)), humanize.IBytes(uint64(settings.MaxUploadSizeBytes)))
		}
	}

	// Initialize blob storage - use S3 if configured, otherwise local filesystem
	var storage files.Storage
	s3Bucket := os.Getenv("S3_BUCKET")
	if s3Bucket != "" {
		s3Storage, err := files.NewS3Storage(files.S3Config{
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			KeyID:     os.Getenv("S3_KEY_ID"),
			AppKey:    os.Getenv("S3_APP_KEY"),
			Bucket:    s3Bucket,
			Prefix:    os.Getenv("S3_PREFIX"),
			PublicURL: os.Getenv("S3_PUBLIC_URL"),
			ImgixURL:  os.Getenv("S3_IMGIX_URL"),
		})
		if err != nil {
			logging.Internal.Fatalf("failed to initialize S3 storage: %v", err)
		}
		storage = s3Storage
		logging.Internal.Printf("using S3 storage (bucket: %s)", s3Bucket)
	} else {
		fsStorage, err := files.NewFSStorage(*storagePath, *mediaBase)
		if err != nil {
			logging.Internal.Fatalf("failed to initialize storage: %v", err)
		}
		storage = fsStorage
		logging.Internal.Printf("using local filesystem storage (%s)", *storagePath)
	}

	// Initialize services
	filesSvc := files.NewService(storage, st)
	previews := preview.NewManager()

	// Setup HTTP handler
	handler := api.NewHandler(filesSvc, previews)

	// Serve static files for the frontend
	fs := http.FileServer(http.Dir("web"))

	mux := http.NewServeMux()
	mux.Handle("/api/", handler)

	// SPA routes - serve index.html for client-side routing
	mux.HandleFunc("/file/", serveIndex)

	mux.Handle("/", fs)

	// Configure CORS
	var corsConfig api.CORSConfig
	if *devMode {
		logging.Internal.Println("development mode: CORS allowing all origins")
	} else {
		origins := strings.Split(*corsOrigins, ",")
		for i, o := range origins {
			origins[i] = strings.TrimSpace(o)
		}
		corsConfig.AllowedOrigins = origins
		logging.Internal.Printf("CORS restricted to origins: %v", origins)
	}

	// Apply middleware (order: Logger -> RateLimit -> CORS -> handler)
	var finalHandler http.Handler = mux
	finalHandler = api.CORS(corsConfig)(finalHandler)
	var rateLimiter *api.RateLimiterMiddleware
	if !*devMode {
		rateLimiter = api.NewRateLimiter(api.DefaultRateLimitConfig())
		finalHandler = rateLimiter.Middleware(finalHandler)
		logging.Internal.Println("rate limiting enabled")
	}
	finalHandler = api.Logger(finalHandler)

	server := &http.Server{
		Addr:    *addr,
		Handler: finalHandler,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logging.Internal.Println("shutting down...")

		if rateLimiter != nil {
			rateLimiter.Stop()
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logging.Internal.Printf("shutdown error: %v", err)
		}
	}()

	logging.Internal.Printf("starting server on %s", *addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logging.Internal.Fatalf("server error: %v", err)
	}
}
