package transport

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"beanexport/internal/ledger"
	"beanexport/internal/plugin"
)

var day = time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)

func sample() ledger.Entries {
	return ledger.Entries{
		ledger.Open{Header: ledger.Header{Date: day}, Account: "Assets:Cash"},
		ledger.Transaction{
			Header:    ledger.Header{Date: day, Meta: ledger.Meta{"source": "bank"}},
			Flag:      "*",
			Payee:     "Shop",
			Narration: "groceries",
			Tags:      []string{"food"},
			Postings: []ledger.Posting{
				{Account: "Expenses:Food", Units: ledger.MustAmount("12.50", "EUR")},
				{Account: "Assets:Cash", Units: ledger.MustAmount("-12.50", "EUR")},
			},
		},
	}
}

func testRegistry() *plugin.Registry {
	reg := plugin.Builtin()
	reg.Register("warn", plugin.HandlerFunc(func(_ context.Context, e ledger.Entries, _ *string) (ledger.Entries, []error, error) {
		return e, []error{errors.New("first"), errors.New("second")}, nil
	}))
	reg.Register("refuse", plugin.HandlerFunc(func(context.Context, ledger.Entries, *string) (ledger.Entries, []error, error) {
		return nil, nil, errors.New("ledger is locked")
	}))
	return reg
}

// startBufconn serves reg in memory and returns a connected client.
func startBufconn(t *testing.T, reg *plugin.Registry, opts plugin.RemoteOptions, srvOpts ...grpc.ServerOption) *plugin.RemoteClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewServer(reg, srvOpts...)
	go func() { _ = srv.ServeListener(lis) }()
	t.Cleanup(srv.Stop)

	c, err := plugin.Dial("passthrough:///bufnet", opts,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestServer_Describe(t *testing.T) {
	c := startBufconn(t, testRegistry(), plugin.RemoteOptions{Timeout: 5 * time.Second})

	found, err := c.Describe(context.Background(), plugin.FilterTagsName)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = c.Describe(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestServer_HandleRoundTrip(t *testing.T) {
	c := startBufconn(t, testRegistry(), plugin.RemoteOptions{Timeout: 5 * time.Second})
	cfg := "travel"

	out, errs, err := c.Handler(plugin.FilterTagsName).Handle(context.Background(), sample(), &cfg)
	require.NoError(t, err)
	assert.Empty(t, errs)
	require.Len(t, out, 1)
	assert.Equal(t, ledger.KindOpen, out[0].Kind())

	cfg = "food"
	out, _, err = c.Handler(plugin.FilterTagsName).Handle(context.Background(), sample(), &cfg)
	require.NoError(t, err)
	require.Len(t, out, 2)
	txn := out[1].(ledger.Transaction)
	assert.Equal(t, "bank", txn.Meta["source"])
	assert.Equal(t, "-12.50 EUR", txn.Postings[1].Units.String())
}

func TestServer_NonFatalAndFatal(t *testing.T) {
	c := startBufconn(t, testRegistry(), plugin.RemoteOptions{Timeout: 5 * time.Second})

	out, errs, err := c.Handler("warn").Handle(context.Background(), sample(), nil)
	require.NoError(t, err)
	assert.Len(t, out, 2)
	require.Len(t, errs, 2)
	assert.EqualError(t, errs[0], "first")
	assert.EqualError(t, errs[1], "second")

	_, _, err = c.Handler("refuse").Handle(context.Background(), sample(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger is locked")
}

func TestServer_HandleUnknown(t *testing.T) {
	c := startBufconn(t, testRegistry(), plugin.RemoteOptions{Timeout: 5 * time.Second})

	_, _, err := c.Handler("nope").Handle(context.Background(), sample(), nil)
	require.Error(t, err)
	assert.Equal(t, codes.NotFound, status.Code(errors.Unwrap(err)))
}

func TestRemoteClient_RetriesTransientFailures(t *testing.T) {
	var calls int32
	flaky := grpc.UnaryInterceptor(func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, h grpc.UnaryHandler) (interface{}, error) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			return nil, status.Error(codes.Unavailable, "warming up")
		}
		return h(ctx, req)
	})
	c := startBufconn(t, testRegistry(),
		plugin.RemoteOptions{Timeout: 5 * time.Second, Attempts: 2, Backoff: time.Millisecond}, flaky)

	found, err := c.Describe(context.Background(), plugin.ZeroDuplicationName)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRemoteClient_GivesUpAfterAttempts(t *testing.T) {
	var calls int32
	down := grpc.UnaryInterceptor(func(context.Context, interface{}, *grpc.UnaryServerInfo, grpc.UnaryHandler) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return nil, status.Error(codes.Unavailable, "down")
	})
	c := startBufconn(t, testRegistry(),
		plugin.RemoteOptions{Timeout: 5 * time.Second, Attempts: 1, Backoff: time.Millisecond}, down)

	_, err := c.Describe(context.Background(), plugin.ZeroDuplicationName)
	assert.Equal(t, codes.Unavailable, status.Code(err))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestRemoteDiscovery_OverTCP(t *testing.T) {
	srv, err := StartServer("127.0.0.1:0", testRegistry())
	require.NoError(t, err)
	go func() { _ = srv.Serve() }()
	t.Cleanup(srv.Stop)

	reg := plugin.NewRegistry()
	reg.AddDiscovery(plugin.RemoteDiscovery(plugin.RemoteOptions{Timeout: 5 * time.Second}))
	base := "grpc://" + srv.Addr().String() + "/"

	h, err := reg.Lookup(context.Background(), base+plugin.ZeroDuplicationName)
	require.NoError(t, err)
	rh, ok := h.(*plugin.RemoteHandler)
	require.True(t, ok)
	t.Cleanup(func() { _ = rh.Close() })

	in := sample()
	txn := in[1].(ledger.Transaction)
	txn.Meta = ledger.Meta{plugin.ZeroDuplicationKey: "yes"}
	in[1] = txn

	out, errs, err := h.Handle(context.Background(), in, nil)
	require.NoError(t, err)
	assert.Empty(t, errs)
	assert.Empty(t, out[1].(ledger.Transaction).Postings)

	_, err = reg.Lookup(context.Background(), base+"not.served")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not served"), err.Error())
	assert.NotErrorIs(t, err, plugin.ErrUnknownHandler)
}

func TestServer_StopWithoutListener(t *testing.T) {
	s := NewServer(plugin.NewRegistry())
	assert.Nil(t, s.Addr())
	assert.Error(t, s.Serve())
	s.Stop()
}
