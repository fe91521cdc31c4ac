// Package syncclient drives one device's side of a pairing session: the
// viewer originates the session and mirrors playback state, the
// controller joins by code and issues commands. Devices never talk to
// each other; everything goes through the sync endpoint.
package syncclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Role string

const (
	RoleViewer     Role = "viewer"
	RoleController Role = "controller"
)

type Status string

const (
	StatusWaiting      Status = "waiting"
	StatusPaired       Status = "paired"
	StatusActive       Status = "active"
	StatusExpired      Status = "expired"
	StatusDisconnected Status = "disconnected"
)

const (
	DefaultPollInterval      = 3 * time.Second
	DefaultHeartbeatInterval = 10 * time.Second
	defaultRequestTimeout    = 10 * time.Second
)

// PlaybackState is the remote state a viewer applies to its player.
type PlaybackState struct {
	Status         Status
	CurrentVideoID *int64
	CurrentClipID  *int64
	PlaybackTime   float64
	IsPlaying      bool
	LastCommand    string
}

// Command is a playback command a controller relays to the viewer.
type Command struct {
	Name    string
	Seconds float64
	VideoID int64
	ClipID  int64
}

func Play() Command                   { return Command{Name: "play"} }
func Pause() Command                  { return Command{Name: "pause"} }
func Seek(seconds float64) Command    { return Command{Name: "seek", Seconds: seconds} }
func LoadVideo(videoID int64) Command { return Command{Name: "load_video", VideoID: videoID} }
func LoadClip(clipID int64) Command   { return Command{Name: "load_clip", ClipID: clipID} }

type Config struct {
	// BaseURL of the dashboard sync service, without trailing slash.
	BaseURL string
	// AuthToken is the shared dashboard session token, sent as a bearer
	// header. Both devices authenticate as the same user.
	AuthToken string
	// DeviceID identifies this device; generated when empty.
	DeviceID string
	Role     Role
	// SessionCode is the code to join; controller role only.
	SessionCode string

	PollInterval      time.Duration
	HeartbeatInterval time.Duration
	HTTPClient        *http.Client

	// OnStatusChange fires whenever the observed session status differs
	// from the previously recorded one.
	OnStatusChange func(status Status, sessionCode string)
	// OnState fires on every successful poll with the remote playback
	// state; viewers apply it to their player. Viewer role only.
	OnState func(state PlaybackState)
	// OnCommand fires when a poll carries a command not seen before.
	OnCommand func(command string)
	// OnError fires on create/join failures. Background poll and
	// heartbeat failures are deliberately silent; the next tick retries.
	OnError func(err error)
}

type Client struct {
	cfg Config

	mu          sync.Mutex
	started     bool
	stopped     bool
	cancel      context.CancelFunc
	sessionID   string
	sessionCode string
	lastStatus  Status
	lastCommand string

	wg sync.WaitGroup
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("syncclient: BaseURL is required")
	}
	if cfg.Role != RoleViewer && cfg.Role != RoleController {
		return nil, fmt.Errorf("syncclient: unknown role %q", cfg.Role)
	}
	if cfg.Role == RoleController && cfg.SessionCode == "" {
		return nil, fmt.Errorf("syncclient: SessionCode is required for controller role")
	}
	if cfg.DeviceID == "" {
		cfg.DeviceID = uuid.NewString()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{cfg: cfg}, nil
}

// Start creates or joins a session and begins the background loops. The
// viewer polls for state and heartbeats; the controller only heartbeats,
// since it learns nothing from its own commands.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return fmt.Errorf("syncclient: already started")
	}
	c.started = true
	c.mu.Unlock()

	var err error
	switch c.cfg.Role {
	case RoleViewer:
		err = c.createSession(ctx)
	case RoleController:
		err = c.joinSession(ctx)
	}
	if err != nil {
		c.emitError(err)
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	if c.cfg.Role == RoleViewer {
		c.runLoop(loopCtx, c.cfg.PollInterval, c.pollOnce)
	}
	c.runLoop(loopCtx, c.cfg.HeartbeatInterval, c.heartbeatOnce)

	return nil
}

// SendCommand relays a playback command. Fire-and-forget: local state
// only changes once a later poll observes the effect.
func (c *Client) SendCommand(ctx context.Context, cmd Command) error {
	if c.cfg.Role != RoleController {
		return fmt.Errorf("syncclient: only the controller sends commands")
	}

	c.mu.Lock()
	sessionID := c.sessionID
	c.mu.Unlock()
	if sessionID == "" {
		return fmt.Errorf("syncclient: not started")
	}

	values := url.Values{
		"action":     {"send_command"},
		"session_id": {sessionID},
		"command":    {cmd.Name},
	}
	switch cmd.Name {
	case "seek":
		values.Set("time", strconv.FormatFloat(cmd.Seconds, 'f', -1, 64))
	case "load_video":
		values.Set("video_id", strconv.FormatInt(cmd.VideoID, 10))
	case "load_clip":
		values.Set("clip_id", strconv.FormatInt(cmd.ClipID, 10))
	}

	resp, err := c.doAction(ctx, values)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("syncclient: command rejected: %s", resp.Error)
	}
	return nil
}

// Stop cancels the background loops and emits a disconnected status. It
// is safe to call at any time, any number of times. The server session is
// not torn down; it ages out via its own expiry.
func (c *Client) Stop() {
	c.mu.Lock()
	if !c.started || c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()

	c.setStatus(StatusDisconnected)
}

func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Client) SessionCode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionCode
}

func (c *Client) createSession(ctx context.Context) error {
	resp, err := c.doAction(ctx, url.Values{
		"action":    {"create_session"},
		"device_id": {c.cfg.DeviceID},
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("syncclient: create_session failed: %s", resp.Error)
	}

	c.mu.Lock()
	c.sessionID = resp.SessionID
	c.sessionCode = resp.SessionCode
	c.mu.Unlock()

	c.setStatus(StatusWaiting)
	return nil
}

func (c *Client) joinSession(ctx context.Context) error {
	resp, err := c.doAction(ctx, url.Values{
		"action":       {"join_session"},
		"session_code": {c.cfg.SessionCode},
		"device_id":    {c.cfg.DeviceID},
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("syncclient: join_session failed: %s", resp.Error)
	}

	c.mu.Lock()
	c.sessionID = resp.SessionID
	c.sessionCode = c.cfg.SessionCode
	c.mu.Unlock()

	c.setStatus(StatusPaired)
	return nil
}

// runLoop fires fn on a fixed cadence. Each tick runs in its own
// goroutine so a slow request never delays the next tick; overlapping
// requests are fine because every server operation is idempotent.
func (c *Client) runLoop(ctx context.Context, interval time.Duration, fn func(ctx context.Context)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				go fn(ctx)
			}
		}
	}()
}

func (c *Client) pollOnce(ctx context.Context) {
	c.mu.Lock()
	sessionID := c.sessionID
	c.mu.Unlock()

	resp, err := c.doAction(ctx, url.Values{
		"action":     {"poll"},
		"session_id": {sessionID},
	})
	if err != nil {
		log.Debug().Err(err).Msg("syncclient: poll failed")
		return
	}

	if !resp.Success {
		// The only protocol-level poll failure is an unknown or expired
		// session; surface it as a terminal status.
		c.setStatus(StatusExpired)
		return
	}

	c.setStatus(Status(resp.Status))

	if c.cfg.OnState != nil {
		c.cfg.OnState(PlaybackState{
			Status:         Status(resp.Status),
			CurrentVideoID: resp.CurrentVideoID,
			CurrentClipID:  resp.CurrentClipID,
			PlaybackTime:   resp.PlaybackTime,
			IsPlaying:      resp.IsPlaying,
			LastCommand:    resp.LastCommand,
		})
	}

	c.mu.Lock()
	commandChanged := resp.LastCommand != "" && resp.LastCommand != c.lastCommand
	c.lastCommand = resp.LastCommand
	c.mu.Unlock()

	if commandChanged && c.cfg.OnCommand != nil {
		c.cfg.OnCommand(resp.LastCommand)
	}
}

func (c *Client) heartbeatOnce(ctx context.Context) {
	c.mu.Lock()
	sessionID := c.sessionID
	c.mu.Unlock()

	if _, err := c.doAction(ctx, url.Values{
		"action":     {"heartbeat"},
		"session_id": {sessionID},
	}); err != nil {
		log.Debug().Err(err).Msg("syncclient: heartbeat failed")
	}
}

type actionResponse struct {
	Success        bool    `json:"success"`
	Error          string  `json:"error"`
	SessionID      string  `json:"session_id"`
	SessionCode    string  `json:"session_code"`
	ExpiresAt      string  `json:"expires_at"`
	Status         string  `json:"status"`
	CurrentVideoID *int64  `json:"current_video_id"`
	CurrentClipID  *int64  `json:"current_clip_id"`
	PlaybackTime   float64 `json:"playback_time"`
	IsPlaying      bool    `json:"is_playing"`
	LastCommand    string  `json:"last_command"`
}

func (c *Client) doAction(ctx context.Context, values url.Values) (*actionResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/sync",
		strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.AuthToken)
	}

	httpResp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	var resp actionResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("syncclient: decode response: %w", err)
	}

	// Protocol-level failures (success:false) only come with a 200; any
	// other status is a transport or server problem.
	if httpResp.StatusCode != http.StatusOK {
		if resp.Error != "" {
			return nil, fmt.Errorf("syncclient: %s", resp.Error)
		}
		return nil, fmt.Errorf("syncclient: unexpected status %d", httpResp.StatusCode)
	}

	return &resp, nil
}

func (c *Client) setStatus(status Status) {
	c.mu.Lock()
	changed := c.lastStatus != status
	c.lastStatus = status
	code := c.sessionCode
	c.mu.Unlock()

	if changed && c.cfg.OnStatusChange != nil {
		c.cfg.OnStatusChange(status, code)
	}
}

func (c *Client) emitError(err error) {
	if c.cfg.OnError != nil {
		c.cfg.OnError(err)
	}
}
