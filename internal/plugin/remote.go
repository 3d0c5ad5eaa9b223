package plugin

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"beanexport/internal/ledger"
	"beanexport/internal/logging"
)

// RemoteScheme prefixes module names served by a handler server:
// grpc://host:port/<handler>.
const RemoteScheme = "grpc"

// RemoteOptions bound every call to a handler server. Attempts counts
// retries after the first call and only applies to transient failures.
type RemoteOptions struct {
	Timeout  time.Duration
	Attempts int
	Backoff  time.Duration
}

// RemoteClient talks to one handler server.
type RemoteClient struct {
	conn *grpc.ClientConn
	opts RemoteOptions
}

func Dial(target string, opts RemoteOptions, dialOpts ...grpc.DialOption) (*RemoteClient, error) {
	if len(dialOpts) == 0 {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return NewRemoteClient(conn, opts), nil
}

func NewRemoteClient(conn *grpc.ClientConn, opts RemoteOptions) *RemoteClient {
	return &RemoteClient{conn: conn, opts: opts}
}

// Describe reports whether the server serves name.
func (c *RemoteClient) Describe(ctx context.Context, name string) (bool, error) {
	var resp DescribeResponse
	if err := c.invoke(ctx, DescribeMethod, &DescribeRequest{Name: name}, &resp); err != nil {
		return false, err
	}
	return resp.Found, nil
}

// Handler returns a Handler forwarding to name on this server.
func (c *RemoteClient) Handler(name string) *RemoteHandler {
	return &RemoteHandler{client: c, name: name}
}

func (c *RemoteClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *RemoteClient) invoke(ctx context.Context, method string, req, resp any) error {
	var err error
	for attempt := 0; attempt <= c.opts.Attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.opts.Backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if c.opts.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		}
		err = c.conn.Invoke(callCtx, method, req, resp, grpc.CallContentSubtype(CodecName))
		cancel()
		if err == nil || !retryable(err) {
			return err
		}
		logging.L().Warn("plugin: remote call failed",
			zap.String("method", method), zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return err
}

func retryable(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// RemoteHandler forwards Handle to a handler server.
type RemoteHandler struct {
	client *RemoteClient
	name   string
	owned  bool // client was dialed for this handler alone
}

func (h *RemoteHandler) Handle(ctx context.Context, entries ledger.Entries, config *string) (ledger.Entries, []error, error) {
	payload, err := EncodeEntries(entries)
	if err != nil {
		return nil, nil, err
	}
	var resp HandleResponse
	req := &HandleRequest{Name: h.name, Config: config, Ledger: payload}
	if err := h.client.invoke(ctx, HandleMethod, req, &resp); err != nil {
		return nil, nil, fmt.Errorf("remote handler %q: %w", h.name, err)
	}
	if resp.Fatal != "" {
		return nil, nil, fmt.Errorf("remote handler %q: %s", h.name, resp.Fatal)
	}
	out, err := DecodeEntries(resp.Ledger)
	if err != nil {
		return nil, nil, fmt.Errorf("remote handler %q: %w", h.name, err)
	}
	var errs []error
	for _, msg := range resp.Errors {
		errs = append(errs, errors.New(msg))
	}
	return out, errs, nil
}

func (h *RemoteHandler) Close() error {
	if h.owned {
		return h.client.Close()
	}
	return nil
}

// RemoteDiscovery resolves grpc://host:port/<handler> module names. The
// server is asked whether it serves the handler before the name resolves.
func RemoteDiscovery(opts RemoteOptions, dialOpts ...grpc.DialOption) DiscoverFunc {
	return func(ctx context.Context, name string) (Handler, error) {
		u, err := url.Parse(name)
		if err != nil || u.Scheme != RemoteScheme {
			return nil, ErrUnknownHandler
		}
		handler := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || handler == "" {
			return nil, fmt.Errorf("remote handler %q: want %s://host:port/name", name, RemoteScheme)
		}

		c, err := Dial(u.Host, opts, dialOpts...)
		if err != nil {
			return nil, err
		}
		found, err := c.Describe(ctx, handler)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("remote handler %q: %w", name, err)
		}
		if !found {
			_ = c.Close()
			return nil, fmt.Errorf("remote handler %q: not served by %s", handler, u.Host)
		}
		rh := c.Handler(handler)
		rh.owned = true
		return rh, nil
	}
}
