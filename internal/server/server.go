// Package server implements the lobby coordination core: the session
// registry and its tick loop, the command dispatcher, broadcast routing, and
// the lifecycle state machine. All registry, room, and game state is mutated
// only inside the tick loop's critical section; the pending-join queue is the
// sole cross-thread hand-off point.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/mcoot/flightlobby/internal/config"
	"github.com/mcoot/flightlobby/internal/dependencies/clock"
	"github.com/mcoot/flightlobby/internal/dependencies/random"
	"github.com/mcoot/flightlobby/internal/model"
	"github.com/mcoot/flightlobby/internal/services/games"
	"github.com/mcoot/flightlobby/internal/services/rooms"
	"github.com/mcoot/flightlobby/internal/storage"
)

// State is the server lifecycle state.
type State int

const (
	// StateRunning is normal operation.
	StateRunning State = iota
	// StateRebootArmed means a five-minute shutdown countdown is running.
	StateRebootArmed
	// StateDraining means no new work is accepted and sessions and games
	// are being unwound.
	StateDraining
	// StateTerminated means the loop has exited and listeners are closed.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateRebootArmed:
		return "reboot-armed"
	case StateDraining:
		return "draining"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// rebootCountdownMinutes is the length of the armed-shutdown countdown.
const rebootCountdownMinutes = 5

// AdminPolicy decides whether a call sign gets the admin flag.
type AdminPolicy func(callSign string) bool

// Server is the lobby coordination core.
type Server struct {
	logger      *slog.Logger
	cfg         config.Config
	clock       clock.Clock
	rooms       *rooms.Service
	games       *games.Bridge
	chatlog     storage.Storage
	adminPolicy AdminPolicy

	// mu guards everything below it: the registry, the room and game
	// directories, and lifecycle state.
	mu               sync.Mutex
	registry         map[string]*model.Player
	order            []string
	structChanged    bool
	state            State
	rebooting        bool
	rebootAt         time.Time
	elapsedReboot    int
	dayMsg           string
	currentDay       time.Time
	handshakeTimeout time.Duration
	startTime        time.Time

	// pendingMu guards only the pending-join queue, so game goroutines
	// can stage players without ordering against mu.
	pendingMu sync.Mutex
	pending   []*model.Player

	listeners []net.Listener
}

// Snapshot is a point-in-time view of server state for the status surface.
type Snapshot struct {
	Uptime  time.Duration
	Players int
	Rooms   int
	Games   int
	State   State
}

// New creates a Server, seeds the permanent chat rooms, and creates the
// always-open free-for-all game. gameFactory may be nil to use the built-in
// game session.
func New(
	cfg config.Config,
	chatlog storage.Storage,
	roomSvc *rooms.Service,
	clk clock.Clock,
	rnd random.Random,
	gameFactory games.Factory,
	logger *slog.Logger,
) *Server {
	s := &Server{
		logger:           logger,
		cfg:              cfg,
		clock:            clk,
		rooms:            roomSvc,
		chatlog:          chatlog,
		adminPolicy:      func(string) bool { return false },
		registry:         make(map[string]*model.Player),
		handshakeTimeout: cfg.HandshakeTimeout,
		currentDay:       clk.Now(),
		startTime:        clk.Now(),
	}
	s.games = games.New(rnd, s.ReturnFromGame, gameFactory, logger)

	s.rooms.Seed()
	s.games.CreateFreeForAll()
	return s
}

// SetAdminPolicy replaces the admin derivation policy. Must be called before
// Run.
func (s *Server) SetAdminPolicy(p AdminPolicy) {
	if p != nil {
		s.adminPolicy = p
	}
}

// Run starts the listeners and drives the tick loop until the server has
// fully drained. Cancelling ctx begins an immediate drain.
func (s *Server) Run(ctx context.Context) error {
	for _, port := range s.cfg.Ports {
		l, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err != nil {
			s.logger.Error("failed to listen",
				slog.Int("port", port),
				slog.String("error", err.Error()))
			continue
		}
		s.listeners = append(s.listeners, l)
		s.logger.Info("listening", slog.Int("port", port))
		go s.acceptLoop(l)
	}
	if len(s.listeners) == 0 {
		return fmt.Errorf("no listeners could be started")
	}

	for {
		select {
		case <-ctx.Done():
			s.ImmediateExit()
		default:
		}

		idle, done := s.tick()
		if done {
			break
		}
		if idle {
			s.clock.Sleep(s.cfg.TickInterval)
		}
	}

	s.cleanup()
	return nil
}

// ReturnFromGame hands a player back from a game session. It stages the
// player on the pending-join queue rather than touching the registry, because
// games run on their own goroutines. With keepOnServer false the session is
// discarded and the connection closed.
func (s *Server) ReturnFromGame(tag string, p *model.Player, keepOnServer bool) {
	if !keepOnServer {
		if p.Conn != nil {
			_ = p.Conn.Close()
		}
		return
	}
	p.Host = false

	s.pendingMu.Lock()
	s.pending = append(s.pending, p)
	s.pendingMu.Unlock()

	s.mu.Lock()
	if s.state < StateDraining {
		s.sendMessage(p.Name+" Has returned from a game.", p.Conn)
	}
	s.mu.Unlock()
}

// DayMessage returns the current message of the day.
func (s *Server) DayMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dayMsg
}

// SetDayMessage sets the message of the day sent to newly connecting players.
func (s *Server) SetDayMessage(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dayMsg = msg
	s.logger.Info("day message set", slog.String("message", msg))
}

// HandshakeTimeout returns the current call-sign read timeout.
func (s *Server) HandshakeTimeout() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handshakeTimeout
}

// SetHandshakeTimeout changes the call-sign read timeout.
func (s *Server) SetHandshakeTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handshakeTimeout = d
}

// ArmReboot begins the five-minute shutdown countdown and warns everyone.
func (s *Server) ArmReboot() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning {
		return
	}
	s.state = StateRebootArmed
	s.rebooting = true
	s.rebootAt = s.clock.Now()
	s.elapsedReboot = -1
	s.sendCritical("Admins have issued a shutdown on the server. The server will go offline in five minutes.")
}

// ImmediateExit begins draining with no countdown.
func (s *Server) ImmediateExit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beginDrain()
}

// StateNow returns the current lifecycle state.
func (s *Server) StateNow() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns a consistent view of the server's headline numbers.
func (s *Server) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Uptime:  s.clock.Now().Sub(s.startTime),
		Players: len(s.registry),
		Rooms:   s.rooms.Count(),
		Games:   s.games.Count(),
		State:   s.state,
	}
}

// beginDrain moves the lifecycle to draining. Callers hold mu.
func (s *Server) beginDrain() {
	if s.state < StateDraining {
		s.state = StateDraining
		s.logger.Info("draining")
	}
}

func (s *Server) pendingEmpty() bool {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	return len(s.pending) == 0
}

// cleanup force-ends every game, waits for the game directory to empty, and
// stops the listeners. Runs on the tick goroutine after the loop exits.
func (s *Server) cleanup() {
	s.logger.Info("cleaning up")

	s.mu.Lock()
	rebooting := s.rebooting
	s.mu.Unlock()

	reason := "there was a problem with the server."
	if rebooting {
		reason = ""
	}
	s.games.ForceEndAll(reason)
	for s.games.Count() > 0 {
		select {
		case id := <-s.games.Finished():
			s.games.Remove(id)
		default:
			s.clock.Sleep(time.Millisecond)
		}
	}
	s.logger.Info("all games ended")

	// Games returned their players onto the pending queue, and no tick
	// will run again to drain it. Close them out here.
	s.pendingMu.Lock()
	staged := s.pending
	s.pending = nil
	s.pendingMu.Unlock()
	for _, p := range staged {
		if p.Conn.IsLive() {
			_ = p.Conn.Close()
		}
	}

	for _, l := range s.listeners {
		_ = l.Close()
	}
	s.logger.Info("listeners closed")

	s.mu.Lock()
	s.state = StateTerminated
	s.mu.Unlock()
	s.logger.Info("cleanup complete")
}
