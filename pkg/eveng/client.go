// Package eveng implements the access to an EVE-NG server: the REST API for listing the
// nodes of a lab and the unl_wrapper command for suspending and resuming their links
package eveng

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/grafana/eve-link-manager/internal/version"
	"github.com/grafana/eve-link-manager/pkg/topology"
	"github.com/sirupsen/logrus"
)

// interface families reported by the API, in the order they are listed
var interfaceFamilies = []string{"ethernet", "serial"}

// ClientConfig defines the connection to the EVE-NG server
type ClientConfig struct {
	// URL of the server. If no scheme is given, https is used
	URL      string
	Username string
	Password string
	// Insecure skips the verification of the server certificate
	Insecure bool
	Timeout  time.Duration
}

// APIError is returned when the API responds with an error status
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("EVE-NG API returned %d: %s", e.StatusCode, e.Message)
}

// Client accesses the EVE-NG REST API
type Client struct {
	baseURL  *url.URL
	http     *http.Client
	username string
	password string
	log      logrus.FieldLogger
}

// envelope is the common structure of EVE-NG API responses
type envelope struct {
	Code    int             `json:"code"`
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type node struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type nodeInterface struct {
	Name      string `json:"name"`
	NetworkID int    `json:"network_id"`
}

// NewClient returns a client for the server in the configuration. Login must be called
// before any other request.
func NewClient(config ClientConfig, log logrus.FieldLogger) (*Client, error) {
	raw := strings.TrimSpace(config.URL)
	if raw == "" {
		return nil, fmt.Errorf("EVE-NG server URL is empty")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	baseURL, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid EVE-NG server URL %q: %w", config.URL, err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if config.Insecure {
		//nolint:gosec // EVE-NG servers commonly use self-signed certificates
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Jar:       jar,
			Transport: transport,
			Timeout:   config.Timeout,
		},
		username: config.Username,
		password: config.Password,
		log:      log,
	}, nil
}

// Login opens a session in the server
func (c *Client) Login(ctx context.Context) error {
	c.log.WithField("host", c.baseURL.Host).Info("connecting to EVE-NG server")

	credentials := map[string]string{
		"username": c.username,
		"password": c.password,
		"html5":    "-1",
	}

	_, err := c.do(ctx, http.MethodPost, "/api/auth/login", credentials)
	if err != nil {
		return fmt.Errorf("%w: login as %q: %w", topology.ErrTransport, c.username, err)
	}

	c.log.Debug("logged in to EVE-NG")

	return nil
}

// Logout closes the session
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/api/auth/logout", nil)
	if err != nil {
		return fmt.Errorf("%w: logout: %w", topology.ErrTransport, err)
	}

	return nil
}

// ListDevices returns the nodes of the lab
func (c *Client) ListDevices(ctx context.Context, lab string) ([]topology.Device, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/labs"+escapeLabPath(lab)+"/nodes", nil)
	if err != nil {
		return nil, labError(lab, err)
	}

	nodes := map[string]node{}
	if !isEmptyCollection(data) {
		if err := json.Unmarshal(data, &nodes); err != nil {
			return nil, fmt.Errorf("%w: decoding nodes: %w", topology.ErrTransport, err)
		}
	}

	devices := make([]topology.Device, 0, len(nodes))
	for key, n := range nodes {
		id := n.ID
		if id == 0 {
			id, err = strconv.Atoi(key)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid node id %q", topology.ErrTransport, key)
			}
		}
		devices = append(devices, topology.Device{ID: id, Name: n.Name})
	}

	sort.Slice(devices, func(i, j int) bool {
		return devices[i].ID < devices[j].ID
	})

	c.log.WithField("lab", lab).Debugf("retrieved %d nodes", len(devices))

	return devices, nil
}

// ListInterfaces returns the interfaces of a node. The interfaces of each family
// (ethernet, serial) are reported either as a list, where the position is the id,
// or as an object keyed by id.
func (c *Client) ListInterfaces(ctx context.Context, lab string, deviceID int) ([]topology.Interface, error) {
	path := fmt.Sprintf("/api/labs%s/nodes/%d/interfaces", escapeLabPath(lab), deviceID)
	data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, labError(lab, err)
	}

	families := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &families); err != nil {
		return nil, fmt.Errorf("%w: decoding interfaces of node %d: %w", topology.ErrTransport, deviceID, err)
	}

	ifaces := []topology.Interface{}
	seen := map[int]string{}
	for _, family := range interfaceFamilies {
		raw, found := families[family]
		if !found {
			continue
		}

		decoded, err := decodeInterfaces(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: decoding %s interfaces of node %d: %w", topology.ErrTransport, family, deviceID, err)
		}

		for _, id := range sortedKeys(decoded) {
			if other, dup := seen[id]; dup {
				c.log.WithFields(logrus.Fields{
					"node":      deviceID,
					"interface": id,
				}).Warnf("ignoring %s interface with the same id as a %s interface", family, other)
				continue
			}
			seen[id] = family

			i := decoded[id]
			name := i.Name
			if name == "" {
				name = family + strconv.Itoa(id)
			}

			ifaces = append(ifaces, topology.Interface{
				ID:        id,
				Name:      name,
				Type:      family,
				NetworkID: i.NetworkID,
				DeviceID:  deviceID,
			})
		}
	}

	return ifaces, nil
}

func decodeInterfaces(raw json.RawMessage) (map[int]nodeInterface, error) {
	result := map[int]nodeInterface{}
	if isEmptyCollection(raw) {
		return result, nil
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		list := []nodeInterface{}
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		for id, i := range list {
			result[id] = i
		}
		return result, nil
	}

	byKey := map[string]nodeInterface{}
	if err := json.Unmarshal(trimmed, &byKey); err != nil {
		return nil, err
	}

	for key, i := range byKey {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("invalid interface id %q", key)
		}
		result[id] = i
	}

	return result, nil
}

func sortedKeys(m map[int]nodeInterface) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	return keys
}

// the API returns an empty list instead of an empty object when there are no items
func isEmptyCollection(raw json.RawMessage) bool {
	trimmed := string(bytes.TrimSpace(raw))
	return trimmed == "" || trimmed == "[]" || trimmed == "{}" || trimmed == "null"
}

func labError(lab string, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s: %s", topology.ErrLabNotFound, lab, apiErr.Message)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return fmt.Errorf("%w: %w", topology.ErrTransport, err)
}

// do sends the request and returns the data of the response
func (c *Client) do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.WithFields(logrus.Fields{"method": method, "path": path}).Debug("EVE-NG API request")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	env := envelope{}
	decodeErr := json.Unmarshal(content, &env)

	if resp.StatusCode >= http.StatusBadRequest || (decodeErr == nil && env.Status == "fail") {
		message := env.Message
		if decodeErr != nil || message == "" {
			message = strings.TrimSpace(string(content))
		}
		code := resp.StatusCode
		if code < http.StatusBadRequest && env.Code != 0 {
			code = env.Code
		}
		return nil, &APIError{StatusCode: code, Message: message}
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("decoding response: %w", decodeErr)
	}

	return env.Data, nil
}
