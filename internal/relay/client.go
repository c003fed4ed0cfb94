package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/driftwoodav/obsbridge/internal/logging"
	"github.com/driftwoodav/obsbridge/internal/metrics"
)

// ControlPlaneClient polls a relay control-plane endpoint and publishes
// whatever it learns into a Mirror. It is a thin collaborator (out of
// scope for correctness testing per §1), modeled on aegis/mod.rs's
// ControlPlaneClient but stripped of auth/session-lifecycle concerns this
// module does not own.
type ControlPlaneClient struct {
	BaseURL  string
	Interval time.Duration
	HTTP     *http.Client
	Mirror   *Mirror
}

type sessionDTO struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Region    string `json:"region"`
	Timers    *struct {
		GraceRemainingSeconds uint32 `json:"grace_remaining_seconds"`
	} `json:"timers"`
}

// Run polls BaseURL+"/session" on Interval until ctx is cancelled, updating
// Mirror on success and leaving it untouched on transient failure.
func (c *ControlPlaneClient) Run(ctx context.Context) {
	interval := c.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.poll(ctx, client)
		}
	}
}

func (c *ControlPlaneClient) poll(ctx context.Context, client *http.Client) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/session", nil)
	if err != nil {
		logging.L().Warn("relay_poll_build_request_failed", "error", err)
		return
	}
	resp, err := client.Do(req)
	if err != nil {
		logging.L().Warn("relay_poll_failed", "error", err)
		metrics.IncError(metrics.ErrRelayPoll)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNoContent {
		c.Mirror.Set(nil)
		return
	}
	if resp.StatusCode != http.StatusOK {
		logging.L().Warn("relay_poll_status", "status", resp.StatusCode)
		metrics.IncError(metrics.ErrRelayPoll)
		return
	}
	var dto sessionDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		logging.L().Warn("relay_poll_decode_failed", "error", err)
		metrics.IncError(metrics.ErrRelayPoll)
		return
	}
	s := &Session{SessionID: dto.SessionID, Status: Status(dto.Status)}
	if dto.Region != "" {
		s.Region = dto.Region
		s.HasRegion = true
	}
	if dto.Timers != nil {
		s.Timers = &Timers{GraceRemainingSeconds: dto.Timers.GraceRemainingSeconds}
	}
	c.Mirror.Set(s)
}
