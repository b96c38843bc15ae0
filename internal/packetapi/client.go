package packetapi

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/ComputerScienceHouse/packet/internal/config"
	"github.com/ComputerScienceHouse/packet/internal/logger"
	"github.com/ComputerScienceHouse/packet/internal/model"
	"github.com/ComputerScienceHouse/packet/pkg/errors"

	"github.com/rs/zerolog"
)

const maxBodyBytes = 64 << 10

type Response struct {
	StatusCode int
	Body       string
}

// OK mirrors the admin page's success check: anything below 300.
func (r *Response) OK() bool {
	return r.StatusCode < 300
}

type Client struct {
	cfg         config.PacketAPIConfig
	httpClient  *http.Client
	authManager *AuthManager
	log         zerolog.Logger
}

func NewClient(cfg config.PacketAPIConfig) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		authManager: NewAuthManager(cfg.Auth, cfg.Timeout),
		log:         logger.Get(),
	}
}

func (c *Client) SubmitPackets(ctx context.Context, startDate string, records []model.PersonRecord) (*Response, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("empty freshmen list")
	}
	payload := model.PacketsPayload{StartDate: startDate, Freshmen: records}
	return c.post(ctx, c.cfg.PacketsEndpoint, payload)
}

// SubmitFreshmen posts the roster either as records or as bare usernames,
// depending on packet_api.freshmen_payload.
func (c *Client) SubmitFreshmen(ctx context.Context, records []model.PersonRecord) (*Response, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("empty freshmen list")
	}
	if c.cfg.FreshmenPayload == config.FreshmenPayloadUsernames {
		usernames := make([]string, len(records))
		for i, rec := range records {
			usernames[i] = rec.RitUsername
		}
		return c.post(ctx, c.cfg.FreshmenEndpoint, usernames)
	}
	return c.post(ctx, c.cfg.FreshmenEndpoint, records)
}

// SyncLDAP asks the packet server to refresh its upperclassmen from LDAP.
func (c *Client) SyncLDAP(ctx context.Context) (*Response, error) {
	return c.post(ctx, c.cfg.SyncEndpoint, nil)
}

func (c *Client) post(ctx context.Context, endpoint string, payload interface{}) (*Response, error) {
	var body io.Reader = http.NoBody
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.authManager.Enabled() {
		token, err := c.authManager.GetToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get auth token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.log.Debug().Str("url", url).Msg("Posting to packet API")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, errors.NewRetryableError(fmt.Errorf("%w: %v", errors.ErrPacketAPITimeout, err), "HTTP request timed out")
		}
		return nil, errors.NewRetryableError(err, "HTTP request failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.authManager.Invalidate()
	}

	c.log.Debug().Int("status", resp.StatusCode).Str("url", url).Msg("Packet API responded")

	return &Response{StatusCode: resp.StatusCode, Body: string(data)}, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}
