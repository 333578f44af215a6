package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/juicy-forest/server/pkg/config"
	"github.com/juicy-forest/server/pkg/health"
	"github.com/juicy-forest/server/pkg/logger"
	"github.com/juicy-forest/server/pkg/resilience"

	"github.com/gin-gonic/gin"
)

// upstream is one proxied backend service
type upstream struct {
	name    string
	prefix  string
	proxy   *httputil.ReverseProxy
	breaker *resilience.CircuitBreaker
}

// Gateway fronts the backend services behind a single origin so the browser
// only talks to one host and cookies flow everywhere
type Gateway struct {
	cfg       *config.Config
	log       *logger.Logger
	upstreams []*upstream
	checker   *health.Checker
	server    *http.Server
}

// New builds the gateway from configuration. A bad upstream URL is a
// deployment error and fails construction.
func New(cfg *config.Config, log *logger.Logger) (*Gateway, error) {
	g := &Gateway{cfg: cfg, log: log}

	routes := []struct {
		name   string
		prefix string
		target string
	}{
		{"auth", "/auth", cfg.Gateway.AuthURL},
		{"chat", "/chat", cfg.Gateway.ChatURL},
		{"sensors", "/sensors", cfg.Gateway.SensorURL},
	}

	g.checker = health.NewChecker(log, 30*time.Second)
	probeClient := &http.Client{Timeout: 5 * time.Second}

	for _, route := range routes {
		up, err := g.newUpstream(route.name, route.prefix, route.target)
		if err != nil {
			return nil, err
		}
		g.upstreams = append(g.upstreams, up)
		g.checker.RegisterUpstreamCheck(route.name, route.target+"/", probeClient)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(g.cors())

	router.GET("/health", g.health)

	for _, up := range g.upstreams {
		router.Any(up.prefix+"/*path", g.forward(up))
		router.Any(up.prefix, g.forward(up))
	}

	g.server = &http.Server{
		Addr:        ":" + cfg.Gateway.Port,
		Handler:     router,
		ReadTimeout: cfg.Server.Timeout,
	}

	return g, nil
}

func (g *Gateway) newUpstream(name, prefix, target string) (*upstream, error) {
	targetURL, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("gateway: invalid %s upstream %q: %w", name, target, err)
	}

	proxy := httputil.NewSingleHostReverseProxy(targetURL)

	// The upstream services mount their routes at the root, so the gateway
	// prefix is stripped before forwarding
	baseDirector := proxy.Director
	proxy.Director = func(r *http.Request) {
		baseDirector(r)
		r.URL.Path = strings.TrimPrefix(r.URL.Path, prefix)
		if r.URL.Path == "" {
			r.URL.Path = "/"
		}
	}

	breaker := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig(name), g.log)

	up := &upstream{name: name, prefix: prefix, proxy: proxy, breaker: breaker}

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		g.log.LogError(err, "upstream proxy failed", "service", name, "path", r.URL.Path)
		writeUnavailable(w, name)
	}

	return up, nil
}

// forward proxies one request through the upstream's circuit breaker. An
// open circuit answers immediately with the same unavailable response a
// connect failure would produce.
func (g *Gateway) forward(up *upstream) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := up.breaker.Execute(func() error {
			recorder := &statusRecorder{ResponseWriter: c.Writer}
			up.proxy.ServeHTTP(recorder, c.Request)
			if recorder.status == http.StatusBadGateway {
				return fmt.Errorf("upstream %s unavailable", up.name)
			}
			return nil
		})

		if err == resilience.ErrCircuitOpen {
			writeUnavailable(c.Writer, up.name)
		}
	}
}

// statusRecorder remembers the proxied status so breaker failures can be
// detected without buffering the response
type statusRecorder struct {
	gin.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeUnavailable(w http.ResponseWriter, name string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadGateway)
	fmt.Fprintf(w, `{"error":"Service %s unavailable"}`, name)
}

// cors allows the browser client's origin with credentials so the session
// cookie travels on every request, including websocket upgrades
func (g *Gateway) cors() gin.HandlerFunc {
	origin := g.cfg.Gateway.ClientOrigin
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// health reports each upstream's circuit state and counters alongside the
// periodic probe results
func (g *Gateway) health(c *gin.Context) {
	services := make(map[string]gin.H, len(g.upstreams))
	for _, up := range g.upstreams {
		services[up.name] = gin.H{
			"circuit": string(up.breaker.GetState()),
			"metrics": up.breaker.GetMetrics(),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "Gateway is running",
		"services":  services,
		"upstreams": g.checker.GetStatus(),
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (g *Gateway) Run(ctx context.Context) error {
	g.checker.Start()

	errCh := make(chan error, 1)
	go func() {
		g.log.Info("gateway listening", "addr", g.server.Addr)
		if err := g.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := g.server.Shutdown(shutdownCtx); err != nil {
		g.log.LogError(err, "gateway shutdown failed")
	}

	g.log.Info("gateway stopped")
	return nil
}
