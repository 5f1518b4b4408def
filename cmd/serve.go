package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/Kyltetran/traffic-game/sim"
)

var (
	// CLI flags for serve
	addr          string        // Listen address
	frameInterval time.Duration // Wall-clock time between frames
	ticksPerFrame int           // Simulation ticks advanced per frame
)

// Command actions accepted over the websocket.
const (
	actionSetSignal = "set_signal"
	actionToggle    = "toggle"
	actionReset     = "reset"
	actionPause     = "pause"
	actionResume    = "resume"
)

// controlCommand is one message from a client.
type controlCommand struct {
	Action   string `json:"action"`
	Signal   string `json:"signal,omitempty"`
	State    string `json:"state,omitempty"`
	Vehicles int    `json:"vehicles,omitempty"` // reset only; 0 keeps the current count
}

// frame is what the server pushes to clients after every step and in reply
// to a failed command.
type frame struct {
	Type     string     `json:"type"` // "state" or "error"
	State    *sim.State `json:"state,omitempty"`
	Paused   bool       `json:"paused"`
	BestTime *float64   `json:"best_time,omitempty"` // fastest completed run since the server started
	Error    string     `json:"error,omitempty"`
}

type controlRequest struct {
	cmd  controlCommand
	done chan error
}

// controller owns the simulator. Only its run loop touches it; websocket
// handlers send commands through requests.
type controller struct {
	cfg           sim.SimConfig
	ticksPerFrame int

	sim      *sim.Simulator
	paused   bool
	bestTime *float64

	requests chan controlRequest

	clientsMu sync.Mutex
	clients   map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func newController(cfg sim.SimConfig, ticksPerFrame int) (*controller, error) {
	if ticksPerFrame <= 0 {
		return nil, fmt.Errorf("%w: ticks per frame must be positive, got %d", sim.ErrInvalidConfig, ticksPerFrame)
	}
	c := &controller{
		cfg:           cfg,
		ticksPerFrame: ticksPerFrame,
		requests:      make(chan controlRequest),
		clients:       make(map[*wsClient]struct{}),
	}
	if err := c.reset(cfg.VehicleCount); err != nil {
		return nil, err
	}
	return c, nil
}

// reset rebuilds the population with every signal GREEN. A zero count keeps
// the current one.
func (c *controller) reset(count int) error {
	cfg := c.cfg
	if count != 0 {
		if err := sim.ValidateVehicleCount(count); err != nil {
			return err
		}
		cfg.VehicleCount = count
	}
	cfg.Signals = sim.AllGreen()
	s, err := sim.NewSimulator(cfg)
	if err != nil {
		return err
	}
	s.OnComplete = c.recordCompletion
	c.cfg, c.sim = cfg, s
	logrus.Infof("reset: %d vehicles (%d main, %d ramp)", cfg.VehicleCount, s.Metrics.MainStart, s.Metrics.RampStart)
	return nil
}

func (c *controller) recordCompletion(res sim.Result) {
	t := res.ElapsedTime
	if c.bestTime == nil || t < *c.bestTime {
		c.bestTime = &t
		logrus.Infof("new best time: %.1fs", t)
		return
	}
	logrus.Infof("complete: %.1fs (best %.1fs)", t, *c.bestTime)
}

// apply executes one command against the simulator, between ticks.
func (c *controller) apply(cmd controlCommand) error {
	switch cmd.Action {
	case actionSetSignal:
		name, err := sim.ParseSignalName(cmd.Signal)
		if err != nil {
			return err
		}
		state, err := sim.ParseSignalState(cmd.State)
		if err != nil {
			return err
		}
		return c.sim.SetSignal(name, state)
	case actionToggle:
		name, err := sim.ParseSignalName(cmd.Signal)
		if err != nil {
			return err
		}
		_, err = c.sim.ToggleSignal(name)
		return err
	case actionReset:
		return c.reset(cmd.Vehicles)
	case actionPause:
		c.paused = true
	case actionResume:
		c.paused = false
	default:
		return fmt.Errorf("unknown action %q", cmd.Action)
	}
	return nil
}

// step advances the simulation by one frame unless paused or complete.
func (c *controller) step() {
	if c.paused {
		return
	}
	for i := 0; i < c.ticksPerFrame && !c.sim.Done(); i++ {
		c.sim.Tick()
	}
}

func (c *controller) snapshot() frame {
	st := c.sim.State()
	return frame{Type: "state", State: &st, Paused: c.paused, BestTime: c.bestTime}
}

// run is the simulation loop. It returns when ctx is cancelled.
func (c *controller) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-c.requests:
			err := c.apply(req.cmd)
			req.done <- err
			if err == nil {
				c.broadcast(c.snapshot())
			}
		case <-ticker.C:
			c.step()
			c.broadcast(c.snapshot())
		}
	}
}

// submit hands cmd to the run loop and waits for the outcome.
func (c *controller) submit(ctx context.Context, cmd controlCommand) error {
	req := controlRequest{cmd: cmd, done: make(chan error, 1)}
	select {
	case c.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// broadcast queues f for every client. Clients that fall behind drop frames.
func (c *controller) broadcast(f frame) {
	data, err := json.Marshal(f)
	if err != nil {
		logrus.Errorf("Error marshalling frame: %v", err)
		return
	}
	c.clientsMu.Lock()
	defer c.clientsMu.Unlock()
	for client := range c.clients {
		select {
		case client.send <- data:
		default:
		}
	}
}

func (c *controller) addClient(client *wsClient) {
	c.clientsMu.Lock()
	c.clients[client] = struct{}{}
	c.clientsMu.Unlock()
}

func (c *controller) removeClient(client *wsClient) {
	c.clientsMu.Lock()
	delete(c.clients, client)
	c.clientsMu.Unlock()
}

// handleWebSocket registers a client, forwards its commands to the run loop,
// and reports command errors back to it.
func (c *controller) handleWebSocket(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logrus.Warnf("WebSocket upgrade error: %v", err)
			return
		}
		client := &wsClient{conn: conn, send: make(chan []byte, 16)}
		c.addClient(client)

		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			for data := range client.send {
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					logrus.Debugf("WebSocket write error: %v", err)
					return
				}
			}
		}()

		defer func() {
			c.removeClient(client)
			close(client.send)
			<-writerDone
			_ = conn.Close()
		}()

		for {
			var cmd controlCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				var closeErr *websocket.CloseError
				if !errors.As(err, &closeErr) {
					logrus.Debugf("WebSocket read error: %v", err)
				}
				return
			}
			if err := c.submit(ctx, cmd); err != nil {
				if ctx.Err() != nil {
					return
				}
				data, _ := json.Marshal(frame{Type: "error", Error: err.Error()})
				c.clientsMu.Lock()
				select {
				case client.send <- data:
				default:
				}
				c.clientsMu.Unlock()
			}
		}
	}
}

// serveCmd runs the simulation in real time behind a websocket control surface
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the simulation over a websocket for interactive signal control",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		mode, err := sim.ParseUpdateMode(updateMode)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		cfg := sim.DefaultSimConfig(seed)
		cfg.VehicleCount = vehicles
		cfg.Mode = mode

		c, err := newController(cfg, ticksPerFrame)
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go c.run(ctx, frameInterval)

		mux := http.NewServeMux()
		mux.HandleFunc("/ws", c.handleWebSocket(ctx))
		logrus.Infof("Serving simulation on ws://%s/ws", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&addr, "addr", "localhost:8080", "Listen address")
	serveCmd.Flags().IntVar(&vehicles, "vehicles", sim.DefaultVehicles, fmt.Sprintf("Number of vehicles [%d,%d]", sim.MinVehicles, sim.MaxVehicles))
	serveCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for the starting population")
	serveCmd.Flags().StringVar(&updateMode, "update-mode", string(sim.UpdateSequential), "Tick update mode (sequential, snapshot)")
	serveCmd.Flags().DurationVar(&frameInterval, "frame-interval", 30*time.Millisecond, "Wall-clock time between frames")
	serveCmd.Flags().IntVar(&ticksPerFrame, "ticks-per-frame", 1, "Simulation ticks advanced per frame")
	serveCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
}
