package main

import (
    "flag"
    "fmt"
    "net/http"
    "os"
    "strings"
    "time"

    "github.com/gin-gonic/gin"
    "github.com/kiliankoe/dixit/internal/api"
    "github.com/kiliankoe/dixit/internal/cards"
    "github.com/kiliankoe/dixit/internal/config"
    "github.com/kiliankoe/dixit/internal/game"
    "github.com/kiliankoe/dixit/internal/store"
    "github.com/kiliankoe/dixit/internal/ws"
    "github.com/kiliankoe/dixit/static"
    "github.com/rs/zerolog"
    zerologlog "github.com/rs/zerolog/log"
)

const version = "v0.3.0-dev"

func main() {
    var (
        showHelp    = flag.Bool("help", false, "Show help message")
        showVersion = flag.Bool("version", false, "Show version information")
        portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
    )
    flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
    flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
    flag.Parse()

    if *showHelp {
        fmt.Printf(`Dixit - storytelling card game server

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)

Environment Variables:
  PORT                Port to listen on (default: 8080)
  LOG_LEVEL           zerolog level: debug, info, warn, error (default: info)
  DATABASE_PATH       SQLite file for games; empty keeps games in memory
  CARD_DIR            Directory of card images; served under /cards/
  CARD_COUNT          Numbered placeholder cards when CARD_DIR is unset (default: 84)
  WINNING_SCORE       Default winning score: 25, 30 or 35 (default: 30)
  ADMIN_USER          Admin username for basic auth
  ADMIN_PASS          Admin password for basic auth
  EXPORT_ENABLED      Append round results to a file (default: false)
  EXPORT_FILE         Path for round results (default: ./dixit-results.txt)

Examples:
  %s                  Start server with default settings
  %s --port 3000      Start server on port 3000
`, os.Args[0], os.Args[0], os.Args[0])
        return
    }

    if *showVersion {
        fmt.Printf("Dixit %s\n", version)
        return
    }

    // zerolog setup (human-friendly console)
    zerolog.TimeFieldFormat = time.RFC3339
    cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
    zerologlog.Logger = zerologlog.Output(cw)

    // Config
    cfg, err := config.FromEnv()
    if err != nil {
        zerologlog.Fatal().Err(err).Msg("invalid configuration")
    }
    if *portFlag != "" {
        cfg.Port = *portFlag
    }
    level, err := zerolog.ParseLevel(cfg.LogLevel)
    if err != nil {
        zerologlog.Fatal().Err(err).Str("level", cfg.LogLevel).Msg("invalid LOG_LEVEL")
    }
    zerolog.SetGlobalLevel(level)

    // Storage
    var repo game.Repository
    if cfg.DatabasePath != "" {
        db, err := store.OpenSQLite(cfg.DatabasePath)
        if err != nil {
            zerologlog.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("failed to open database")
        }
        defer db.Close()
        repo = db
        zerologlog.Info().Str("path", cfg.DatabasePath).Msg("using sqlite store")
    } else {
        repo = store.NewMemory()
        zerologlog.Info().Msg("using in-memory store")
    }

    // Cards
    set := cards.Numbered(cfg.CardCount)
    if cfg.CardDir != "" {
        set, err = cards.FromDir(cfg.CardDir)
        if err != nil {
            zerologlog.Fatal().Err(err).Str("dir", cfg.CardDir).Msg("failed to load cards")
        }
    }
    zerologlog.Info().Int("cards", len(set)).Msg("card set loaded")

    // Gin setup with custom logger (skip /socket.io noise)
    gin.SetMode(gin.ReleaseMode)
    r := gin.New()
    r.Use(gin.Recovery())
    r.Use(func(c *gin.Context) {
        start := time.Now()
        c.Next()
        path := c.Request.URL.Path
        if strings.HasPrefix(path, "/socket.io") || strings.HasPrefix(path, "/cards/") {
            return
        }
        status := c.Writer.Status()
        dur := time.Since(start)
        zerologlog.Info().Str("method", c.Request.Method).Str("path", path).Int("status", status).Dur("dur", dur).Msg("http")
    })

    // Healthcheck
    r.GET("/health", func(c *gin.Context) {
        c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
    })

    // Socket server + game manager
    m := game.NewManager(repo, cards.Source(set))
    if cfg.ExportEnabled {
        m.SetExportFile(cfg.ExportFile)
        zerologlog.Info().Str("file", cfg.ExportFile).Msg("round export enabled")
    }
    sock := ws.New(m, cfg.WinningScore)
    m.SetNotifier(sock)
    io := sock.Mount(r)
    defer io.Close()
    defer sock.Close()

    var admin gin.Accounts
    if cfg.AdminEnabled() {
        admin = gin.Accounts{cfg.AdminUser: cfg.AdminPass}
    }
    h := &api.Handler{M: m, WinningScore: cfg.WinningScore}
    h.Mount(r, admin)

    if cfg.CardDir != "" {
        images := gin.WrapH(static.Handler(os.DirFS(cfg.CardDir), "/cards/"))
        r.GET("/cards/*any", images)
        r.HEAD("/cards/*any", images)
    }

    zerologlog.Info().Str("port", cfg.Port).Msg("listening")
    if err := r.Run(":" + cfg.Port); err != nil {
        zerologlog.Fatal().Err(err).Msg("server stopped")
    }
}
