package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
	"github.com/miretskiy/bloombudget/filterbits"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for development
		return true
	},
}

// ClientMessage is sent by websocket clients. Params fields that are
// omitted keep their default values.
type ClientMessage struct {
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params,omitempty"`
}

// ServerMessage is sent back to websocket clients.
type ServerMessage struct {
	Type   string             `json:"type"`
	Report *filterbits.Report `json:"report,omitempty"`
	Lines  []string           `json:"lines,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// safeConn wraps a WebSocket connection with a mutex to prevent concurrent writes
type safeConn struct {
	*websocket.Conn
	writeMu sync.Mutex
}

func (sc *safeConn) WriteJSON(v interface{}) error {
	sc.writeMu.Lock()
	defer sc.writeMu.Unlock()
	return sc.Conn.WriteJSON(v)
}

type server struct {
	logger *zap.Logger

	// mu serializes metric updates so a report's gauges are set together.
	mu      sync.Mutex
	metrics *promMetrics

	quit chan struct{}
	once sync.Once
}

func newServer(logger *zap.Logger, reg prometheus.Registerer) *server {
	return &server{
		logger:  logger,
		metrics: newPromMetrics(reg),
		quit:    make(chan struct{}),
	}
}

func (s *server) routes(gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/calc", s.handleCalc)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/quitquitquit", s.quitHandler)
	return mux
}

// calculate runs one comparison and publishes it to the metrics.
func (s *server) calculate(p filterbits.Params) (*filterbits.Report, error) {
	r, err := filterbits.Compare(p)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.metrics.failed()
		return nil, err
	}
	s.metrics.update(r)
	return r, nil
}

// paramsFromQuery overlays query parameters onto the default parameters.
func paramsFromQuery(q map[string][]string) (filterbits.Params, error) {
	p := filterbits.DefaultParams()
	get := func(name string) (string, bool) {
		v, ok := q[name]
		if !ok || len(v) == 0 {
			return "", false
		}
		return v[0], true
	}
	parseInt := func(name string, dst *int64) error {
		if v, ok := get(name); ok {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return errors.Wrapf(err, "parameter %s", name)
			}
			*dst = n
		}
		return nil
	}
	parseFloat := func(name string, dst *float64) error {
		if v, ok := get(name); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return errors.Wrapf(err, "parameter %s", name)
			}
			*dst = f
		}
		return nil
	}

	sizeRatio := int64(p.SizeRatio)
	for _, err := range []error{
		parseInt("memtableCapacity", &p.MemtableCapacity),
		parseInt("entryCount", &p.EntryCount),
		parseInt("sizeRatio", &sizeRatio),
		parseFloat("uniformBits", &p.UniformBits),
		parseFloat("topLevelBits", &p.TopLevelBits),
	} {
		if err != nil {
			return filterbits.Params{}, err
		}
	}
	p.SizeRatio = int(sizeRatio)

	if v, ok := get("decrement"); ok {
		d, err := filterbits.ParseDecrement(v)
		if err != nil {
			return filterbits.Params{}, err
		}
		p.Decrement = d
	}
	if v, ok := get("unit"); ok {
		u, err := filterbits.ParseUnit(v)
		if err != nil {
			return filterbits.Params{}, err
		}
		p.Unit = u
	}
	return p, nil
}

func (s *server) handleCalc(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	p, err := paramsFromQuery(r.URL.Query())
	if err == nil {
		var report *filterbits.Report
		if report, err = s.calculate(p); err == nil {
			if err := json.NewEncoder(w).Encode(report); err != nil {
				s.logger.Warn("error writing report", zap.Error(err))
			}
			return
		}
	}
	s.logger.Info("rejected calculation", zap.Error(err))
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(ServerMessage{Type: "error", Error: err.Error()})
}

func (s *server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("error upgrading connection", zap.Error(err))
		return
	}
	defer conn.Close()

	// Wrap connection with mutex for safe concurrent writes
	sc := &safeConn{Conn: conn}
	logger := s.logger.With(zap.String("remote", r.RemoteAddr))
	logger.Info("client connected")

	for {
		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("error reading message", zap.Error(err))
			}
			break
		}
		logger.Debug("received command", zap.String("type", msg.Type))

		var reply ServerMessage
		switch msg.Type {
		case "calculate":
			reply = s.calculateMessage(msg.Params)
		default:
			reply = ServerMessage{Type: "error", Error: fmt.Sprintf("unknown message type %q", msg.Type)}
		}
		if err := sc.WriteJSON(reply); err != nil {
			logger.Warn("error sending reply", zap.Error(err))
			break
		}
	}
	logger.Info("client disconnected")
}

func (s *server) calculateMessage(raw json.RawMessage) ServerMessage {
	p := filterbits.DefaultParams()
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return ServerMessage{Type: "error", Error: errors.Wrap(err, "decoding params").Error()}
		}
	}
	report, err := s.calculate(p)
	if err != nil {
		return ServerMessage{Type: "error", Error: err.Error()}
	}
	return ServerMessage{Type: "report", Report: report, Lines: report.Lines()}
}

func (s *server) quitHandler(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("shutdown requested via /quitquitquit")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "Server shutting down...")
	s.once.Do(func() { close(s.quit) })
}

func run(addr string, logger *zap.Logger) error {
	reg := prometheus.NewRegistry()
	s := newServer(logger, reg)
	srv := &http.Server{Addr: addr, Handler: s.routes(reg)}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("calc", "http://localhost"+addr+"/calc"),
			zap.String("websocket", "ws://localhost"+addr+"/ws"),
			zap.String("metrics", "http://localhost"+addr+"/metrics"))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	case <-s.quit:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutting down")
	}
	logger.Info("server stopped")
	return nil
}

func main() {
	var addr string
	var verbose bool

	rootCmd := &cobra.Command{
		Use:          "server",
		Short:        "serve filter memory calculations over HTTP and websocket",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := zap.NewProductionConfig()
			if verbose {
				cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
			}
			logger, err := cfg.Build()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return run(addr, logger)
		},
	}
	rootCmd.Flags().StringVar(&addr, "addr", ":8080", "address to listen on")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
