package dashboard

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Luca-vn/coinhub/config"
	"github.com/Luca-vn/coinhub/internal/series"
	"github.com/Luca-vn/coinhub/logger"
)

//go:embed templates/*.tmpl
var embeddedFS embed.FS

// Server hosts the Gin-powered market dashboard: a latest-per-asset table
// and a per-asset chart of the minute price/volume history. It is a pure
// consumer of the snapshot and window readers and never mutates the store.
type Server struct {
	cfg        config.DashboardConfig
	assets     []string
	snapshots  *series.SnapshotReader
	windows    *series.WindowReader
	displayLoc *time.Location
	log        *logger.Log
	httpServer *http.Server
}

// NewServer constructs the dashboard server when the feature is enabled.
// When disabled the returned server is nil.
func NewServer(cfg config.DashboardConfig, assets []string, snapshots *series.SnapshotReader, windows *series.WindowReader, log *logger.Log) (*Server, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	cfg.Address = normalizeAddress(cfg.Address)
	if cfg.ChartPoints <= 0 {
		cfg.ChartPoints = series.DefaultWindowLimit
	}

	loc, err := time.LoadLocation(cfg.DisplayTimezone)
	if err != nil {
		log.WithComponent("dashboard").WithError(err).WithFields(logger.Fields{
			"timezone": cfg.DisplayTimezone,
		}).Warn("unknown display timezone, falling back to UTC")
		loc = time.UTC
	}

	return &Server{
		cfg:        cfg,
		assets:     assets,
		snapshots:  snapshots,
		windows:    windows,
		displayLoc: loc,
		log:        log,
	}, nil
}

// Address returns the normalized listen address.
func (s *Server) Address() string {
	return s.cfg.Address
}

// Run starts the dashboard HTTP server and blocks until the provided context
// is cancelled or the underlying HTTP server exits with an error.
func (s *Server) Run(ctx context.Context, appName string) error {
	if s == nil {
		return nil
	}

	router, err := s.buildRouter(appName)
	if err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Addr:    s.cfg.Address,
		Handler: router,
	}

	s.log.WithComponent("dashboard").WithFields(logger.Fields{
		"address": s.cfg.Address,
	}).Info("dashboard listening")

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		if err == nil {
			return nil
		}
		return err
	}
}

func (s *Server) buildRouter(appName string) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, err
	}

	tmpl := template.Must(template.New("dashboard").ParseFS(embeddedFS, "templates/index.tmpl"))
	router.SetHTMLTemplate(tmpl)

	router.GET("/", s.handleIndex(appName))
	router.GET("/chart1m/:asset", s.handleChart)
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return router, nil
}

func (s *Server) handleIndex(appName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows := buildRows(s.assets,
			s.latest(series.LongShort),
			s.latest(series.OpenInterest),
			s.latest(series.Volume),
			s.latest(series.AvgPrice),
		)
		c.HTML(http.StatusOK, "index.tmpl", gin.H{
			"AppName":     appName,
			"Rows":        rows,
			"GeneratedAt": time.Now().In(s.displayLoc).Format("2006-01-02 15:04:05"),
		})
	}
}

// latest degrades a read failure to an empty snapshot; the table then shows
// the absent sentinel for every cell of that family.
func (s *Server) latest(fam *series.Family) map[string]series.Observation {
	snap, err := s.snapshots.Latest(fam)
	if err != nil {
		s.log.WithComponent("dashboard").WithError(err).WithFields(logger.Fields{
			"family": fam.Name,
		}).Warn("failed to read snapshot")
		return map[string]series.Observation{}
	}
	return snap
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)

	if addr == "" {
		return "0.0.0.0:8080"
	}

	if strings.Contains(addr, "://") {
		if parsed, err := url.Parse(addr); err == nil {
			if host := parsed.Host; host != "" {
				addr = host
			} else if parsed.Opaque != "" {
				addr = parsed.Opaque
			}
		}
	}

	if strings.HasPrefix(addr, ":") {
		if len(addr) > 1 && addr[1] >= '0' && addr[1] <= '9' {
			return "0.0.0.0" + addr
		}
	}

	host, port, err := net.SplitHostPort(addr)
	if err == nil {
		if host == "" || host == "*" {
			host = "0.0.0.0"
		}
		if port == "" {
			port = "8080"
		}
		return net.JoinHostPort(host, port)
	}

	if ip := net.ParseIP(addr); ip != nil {
		return net.JoinHostPort(addr, "8080")
	}

	if !strings.Contains(addr, ":") {
		return net.JoinHostPort(addr, "8080")
	}

	return addr
}
