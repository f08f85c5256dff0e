package overlay

import (
	"sync"
	"time"
)

// State is the feedback animation the client overlay should be playing.
type State string

const (
	StateIdle        State = "idle"
	StateCelebrating State = "celebrating"
)

// CelebrateDuration is how long the celebratory animation runs before the
// overlay reverts to the idle float.
const CelebrateDuration = 3 * time.Second

// Event is pushed to the client whenever the feedback state changes. BlockID
// is set only while celebrating, keying the animation to the granted block.
type Event struct {
	State   State  `json:"state"`
	BlockID string `json:"blockId,omitempty"`
}

// Controller is the per-user scan feedback state machine:
// Idle -> Celebrating (3s) -> Idle. It carries no correctness weight for
// unlock resolution; it only drives the client's animation layer.
type Controller struct {
	mu       sync.Mutex
	state    State
	blockID  string
	timer    *time.Timer
	duration time.Duration
	notify   func(Event)
}

func NewController(notify func(Event)) *Controller {
	return &Controller{
		state:    StateIdle,
		duration: CelebrateDuration,
		notify:   notify,
	}
}

// Celebrate switches to the celebrating state keyed to blockID and schedules
// the revert to idle. A celebration arriving mid-celebration restarts the
// timer with the new block.
func (c *Controller) Celebrate(blockID string) {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.state = StateCelebrating
	c.blockID = blockID
	c.timer = time.AfterFunc(c.duration, c.revert)
	notify := c.notify
	c.mu.Unlock()

	if notify != nil {
		notify(Event{State: StateCelebrating, BlockID: blockID})
	}
}

func (c *Controller) revert() {
	c.mu.Lock()
	if c.state != StateCelebrating {
		c.mu.Unlock()
		return
	}
	c.state = StateIdle
	c.blockID = ""
	notify := c.notify
	c.mu.Unlock()

	if notify != nil {
		notify(Event{State: StateIdle})
	}
}

// Current returns the state and, while celebrating, the granted block id.
func (c *Controller) Current() (State, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.blockID
}

// Stop cancels any pending revert without emitting an event.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.state = StateIdle
	c.blockID = ""
}

// Service fans per-user controllers out to a notifier, typically the
// websocket hub.
type Service struct {
	mu          sync.Mutex
	controllers map[string]*Controller
	notify      func(userID string, ev Event)
}

func NewService(notify func(userID string, ev Event)) *Service {
	return &Service{
		controllers: make(map[string]*Controller),
		notify:      notify,
	}
}

// Celebrate triggers the feedback animation for one user's overlay.
func (s *Service) Celebrate(userID, blockID string) {
	s.controller(userID).Celebrate(blockID)
}

// Current reports a user's overlay state, defaulting to idle.
func (s *Service) Current(userID string) (State, string) {
	s.mu.Lock()
	c, ok := s.controllers[userID]
	s.mu.Unlock()
	if !ok {
		return StateIdle, ""
	}
	return c.Current()
}

// Shutdown stops all pending reverts.
func (s *Service) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.controllers {
		c.Stop()
	}
}

func (s *Service) controller(userID string) *Controller {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.controllers[userID]
	if !ok {
		c = NewController(func(ev Event) {
			if s.notify != nil {
				s.notify(userID, ev)
			}
		})
		s.controllers[userID] = c
	}
	return c
}
