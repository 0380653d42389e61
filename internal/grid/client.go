// Package grid wraps the Infoblox WAPI client for the handful of operations
// gridloader needs: session setup, zone queries, and pushing ingested
// address records to the grid master. The object model and wire protocol
// stay with the vendor library.
package grid

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	ibclient "github.com/infobloxopen/infoblox-go-client/v2"

	"github.com/opsforge/gridloader/internal/config"
	"github.com/opsforge/gridloader/internal/ingest"
)

// Client is a thin session wrapper over the vendor connector.
type Client struct {
	conn   ibclient.IBConnector
	view   string
	logger *slog.Logger
}

// NewClient establishes a WAPI session against the configured grid master.
func NewClient(cfg config.GridConfig, logger *slog.Logger) (*Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("grid host is not configured")
	}
	if logger == nil {
		logger = slog.Default()
	}

	hostConfig := ibclient.HostConfig{
		Host:     cfg.Host,
		Port:     strconv.Itoa(cfg.Port),
		Version:  cfg.Version,
		Username: cfg.Username,
		Password: cfg.Password,
	}
	transportConfig := ibclient.NewTransportConfig(
		strconv.FormatBool(cfg.SSLVerify), cfg.RequestTimeout, cfg.PoolConnections)

	var requestBuilder ibclient.HttpRequestBuilder = &ibclient.WapiRequestBuilder{}
	conn, err := ibclient.NewConnector(hostConfig, transportConfig, requestBuilder, &ibclient.WapiHttpRequestor{})
	if err != nil {
		return nil, fmt.Errorf("connect to grid master %s: %w", cfg.Host, err)
	}

	return &Client{conn: conn, view: cfg.View, logger: logger}, nil
}

// newWithConnector wires a prebuilt connector, for tests.
func newWithConnector(conn ibclient.IBConnector, view string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{conn: conn, view: view, logger: logger}
}

// Zones returns all authoritative zones as a ref-to-FQDN mapping.
func (c *Client) Zones(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var zones []ibclient.ZoneAuth
	err := c.conn.GetObject(ibclient.NewZoneAuth(ibclient.ZoneAuth{}), "",
		ibclient.NewQueryParams(false, nil), &zones)
	if err != nil {
		return nil, fmt.Errorf("query zones: %w", err)
	}

	out := make(map[string]string, len(zones))
	for _, z := range zones {
		out[z.Ref] = z.Fqdn
	}
	return out, nil
}

// PushResult reports what PushAddresses did.
type PushResult struct {
	Created int
	Skipped int // records missing the name or address column
	Failed  int // WAPI create failures, logged and skipped
}

// PushAddresses creates an A record on the grid master for every ingested
// record, taking the DNS name from nameColumn and the IPv4 address from
// addrColumn. Records missing either column are skipped; create failures
// are logged and counted, and the push continues.
func (c *Client) PushAddresses(ctx context.Context, idx ingest.ResultIndex, nameColumn, addrColumn string, ttl uint32) (*PushResult, error) {
	keys := make([]string, 0, len(idx))
	for k := range idx {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	res := &PushResult{}
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		rec := idx[key]
		name, okName := rec[nameColumn]
		addr, okAddr := rec[addrColumn]
		if !okName || !okAddr || name.IsEmpty() || addr.IsEmpty() {
			res.Skipped++
			continue
		}

		obj := ibclient.NewRecordA(c.view, "", name.String(), addr.String(), ttl, false, "", nil, "")
		ref, err := c.conn.CreateObject(obj)
		if err != nil {
			res.Failed++
			c.logger.Warn("record create failed",
				"name", name.String(), "address", addr.String(), "error", err)
			continue
		}
		res.Created++
		c.logger.Debug("record created", "ref", ref, "name", name.String())
	}

	c.logger.Info("push complete",
		"created", res.Created, "skipped", res.Skipped, "failed", res.Failed)
	return res, nil
}
