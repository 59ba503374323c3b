package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/campushunt/server/internal/blob"
	"github.com/campushunt/server/internal/config"
	"github.com/campushunt/server/internal/game"
	"github.com/campushunt/server/internal/identity"
	"github.com/campushunt/server/internal/ws"
)

const releaseVersion = "0.2.0"

// maxPhotoBytes caps a single photo upload.
const maxPhotoBytes = 8 << 20

func main() {
	_ = godotenv.Load()
	cfg := config.Default()
	cobra.CheckErr(newCmd(&cfg).Execute())
}

func newCmd(cfg *config.Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("CAMPUSHUNT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "campushunt-server",
		Short:         "Coordinator for the campus hide-and-seek game.",
		Args:          cobra.ExactArgs(0),
		Version:       releaseVersion,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cfg)
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Bind, "bind", "b", cfg.Bind, "address to bind to (env: CAMPUSHUNT_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to listen on (env: CAMPUSHUNT_PORT)")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for uploaded media and server state (env: CAMPUSHUNT_DATA_DIR)")
	fs.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "externally reachable base URL for media links and QR codes (env: CAMPUSHUNT_BASE_URL)")
	fs.DurationVar(&cfg.RoundDuration, "round-duration", cfg.RoundDuration, "length of a round (env: CAMPUSHUNT_ROUND_DURATION)")
	fs.DurationVar(&cfg.QuestionCooldown, "question-cooldown", cfg.QuestionCooldown, "per-seeker wait between questions (env: CAMPUSHUNT_QUESTION_COOLDOWN)")
	fs.DurationVar(&cfg.PositionInterval, "position-interval", cfg.PositionInterval, "advertised location publish cadence (env: CAMPUSHUNT_POSITION_INTERVAL)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "display additional output (env: CAMPUSHUNT_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("campushunt-server v{{.Version}}\n")

	return cmd
}

func run(cfg *config.Config) error {
	// zerolog setup (human-friendly console)
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	osFs := afero.NewOsFs()

	// Stable instance identity, persisted under the data dir the same
	// way clients persist their device id.
	resolver := identity.NewResolver(identity.NewFileStore(osFs, cfg.DataDir))
	instanceID := resolver.DeviceID()
	zerologlog.Info().Str("instance", instanceID).Msg("starting coordinator")

	reg := game.NewRegistry(game.Settings{
		RoundDuration:    cfg.RoundDuration,
		QuestionCooldown: cfg.QuestionCooldown,
		PositionInterval: cfg.PositionInterval,
	})
	mediaRoot := filepath.Join(cfg.DataDir, "media")
	blobs := blob.NewStore(osFs, mediaRoot, cfg.ExternalURL()+"/media")

	// Gin setup with custom logger (skip /socket.io noise)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") {
			return
		}
		zerologlog.Info().Str("path", path).Int("status", c.Writer.Status()).Dur("dur", time.Since(start)).Msg("http")
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "instance": instanceID, "time": time.Now().UTC()})
	})

	sock := ws.New(reg, *cfg)
	sio := sock.Mount(r)
	defer sio.Close()

	registerAPI(r, reg, blobs, cfg)
	r.Static("/media", mediaRoot)

	zerologlog.Info().Str("addr", cfg.Addr()).Msg("listening")
	return r.Run(cfg.Addr())
}

func registerAPI(r *gin.Engine, reg *game.Registry, blobs *blob.Store, cfg *config.Config) {
	// Open-session discovery. Ended sessions are filtered, not erased.
	r.GET("/api/sessions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sessions": reg.ListOpen()})
	})

	// HTTP session creation for clients that set up the lobby before
	// opening their socket.
	r.POST("/api/sessions", func(c *gin.Context) {
		var req struct {
			Name     string `json:"name"`
			HostName string `json:"hostName"`
			DeviceID string `json:"deviceId"`
		}
		if err := c.BindJSON(&req); err != nil || req.Name == "" || req.HostName == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_session"})
			return
		}
		deviceID := req.DeviceID
		if deviceID == "" {
			deviceID = identity.Synthesize()
		}
		sess, host := reg.Create(req.Name, req.HostName, deviceID)
		c.JSON(http.StatusOK, gin.H{"sessionCode": sess.Code, "playerId": host.ID, "deviceId": deviceID})
	})

	r.GET("/api/sessions/:code", func(c *gin.Context) {
		sess, err := reg.Get(c.Param("code"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "session_not_found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"session": sess.Summary(),
			"players": sess.Players(),
		})
	})

	// QR handler: a PNG encoding the join link for a session.
	r.GET("/api/sessions/:code/qr", func(c *gin.Context) {
		code := c.Param("code")
		if _, err := reg.Get(code); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "session_not_found"})
			return
		}
		png, err := qrcode.Encode(cfg.ExternalURL()+"/join?code="+code, qrcode.Medium, 256)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "qr_failed"})
			return
		}
		c.Data(http.StatusOK, "image/png", png)
	})

	// Photo upload: stores the blob and returns the durable URL. The
	// client then records it via photo:share or answer:submit.
	r.POST("/api/sessions/:code/photos", func(c *gin.Context) {
		code := c.Param("code")
		if _, err := reg.Get(code); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "session_not_found"})
			return
		}
		deviceID := c.PostForm("deviceId")
		if deviceID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing_device_id"})
			return
		}
		kind := blob.KindPhoto
		if c.PostForm("kind") == "answer" {
			kind = blob.KindAnswer
		}
		file, err := c.FormFile("photo")
		if err != nil || file.Size > maxPhotoBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_photo"})
			return
		}
		f, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_photo"})
			return
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_photo"})
			return
		}
		url, err := blobs.Save(kind, code, deviceID, data)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "upload_failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": url})
	})
}
