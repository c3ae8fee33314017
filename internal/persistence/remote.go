package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cx-tal-miterani/avi-itinerary/shared/models"
)

var (
	ErrNotFound   = errors.New("itinerary not found")
	ErrRemoteSync = errors.New("remote sync failed")
)

const (
	pathGet    = "/api/roteiro/obter"
	pathCreate = "/api/roteiro/salvar"
	pathUpdate = "/api/roteiro/atualizar"
)

// envelope is the response body shared by the roteiro endpoints
type envelope struct {
	Success   bool             `json:"success"`
	RoteiroID remoteID         `json:"roteiro_id,omitempty"`
	Roteiro   *remoteItinerary `json:"roteiro,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// remoteItinerary is an itinerary as the backend returns it. The outer id
// shadows the embedded one so numeric ids decode like roteiro_id does.
type remoteItinerary struct {
	models.Itinerary
	ID remoteID `json:"id"`
}

func (r *remoteItinerary) itinerary() *models.Itinerary {
	it := r.Itinerary
	it.ID = nil
	if r.ID != "" {
		id := string(r.ID)
		it.ID = &id
	}
	return &it
}

// remoteID accepts ids encoded as JSON strings or numbers
type remoteID string

func (id *remoteID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = remoteID(s)
		return nil
	}
	if string(data) == "null" {
		*id = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = remoteID(n.String())
	return nil
}

// RemoteClient talks to the itinerary backend
type RemoteClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemoteClient creates a client for the backend at baseURL
func NewRemoteClient(baseURL string, timeout time.Duration) *RemoteClient {
	return &RemoteClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Create stores a new itinerary and returns the id assigned by the backend
func (c *RemoteClient) Create(ctx context.Context, it models.Itinerary) (string, error) {
	env, err := c.post(ctx, pathCreate, it)
	if err != nil {
		return "", err
	}
	if env.RoteiroID == "" {
		return "", fmt.Errorf("%w: create returned no id", ErrRemoteSync)
	}
	return string(env.RoteiroID), nil
}

// Update overwrites an existing itinerary
func (c *RemoteClient) Update(ctx context.Context, it models.Itinerary) error {
	if !it.IsPersisted() {
		return fmt.Errorf("%w: update without id", ErrRemoteSync)
	}
	_, err := c.post(ctx, pathUpdate, it)
	return err
}

// Get fetches an itinerary by id
func (c *RemoteClient) Get(ctx context.Context, id string) (*models.Itinerary, error) {
	endpoint := c.baseURL + pathGet + "?id=" + url.QueryEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteSync, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteSync, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	env, err := decodeEnvelope(resp)
	if err != nil {
		return nil, err
	}
	if !env.Success || env.Roteiro == nil {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, id, env.Error)
	}
	return env.Roteiro.itinerary(), nil
}

func (c *RemoteClient) post(ctx context.Context, path string, it models.Itinerary) (*envelope, error) {
	body, err := json.Marshal(it)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal itinerary: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteSync, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteSync, err)
	}
	defer resp.Body.Close()

	env, err := decodeEnvelope(resp)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, fmt.Errorf("%w: %s", ErrRemoteSync, env.Error)
	}
	return env, nil
}

func decodeEnvelope(resp *http.Response) (*envelope, error) {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrRemoteSync, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrRemoteSync, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrRemoteSync, err)
	}
	return &env, nil
}
