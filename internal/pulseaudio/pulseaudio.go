// Package pulseaudio implements the device platform over a PulseAudio (or
// pipewire-pulse) server: sinks are output devices, sources are input devices.
package pulseaudio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"

	"github.com/rbright/audioanchor/internal/device"
)

// ErrUnknownHandle is returned for handles missing from the current server
// snapshot.
var ErrUnknownHandle = errors.New("unknown pulse device handle")

// sinkBit separates the sink index space from the source index space inside
// one device.Handle.
const sinkBit device.Handle = 1 << 31

// server is the subset of the pulse protocol the platform needs.
type server interface {
	Sinks() ([]*pulseproto.GetSinkInfoReply, error)
	Sources() ([]*pulseproto.GetSourceInfoReply, error)
	Defaults() (sink string, source string, err error)
	SetDefault(dir device.Direction, name string) error
	Close()
}

// Options configures a Platform.
type Options struct {
	AppName string
	Logger  *slog.Logger

	dial func() (server, error)
}

// Platform implements device.Platform and device.Watcher against a pulse
// server. The connection is opened lazily and re-dialed after any failure.
type Platform struct {
	appName string
	logger  *slog.Logger
	dial    func() (server, error)

	mu    sync.Mutex
	conn  server
	nodes map[device.Handle]node
}

// New constructs a pulse-backed platform. No connection is made until the
// first query.
func New(opts Options) *Platform {
	if opts.AppName == "" {
		opts.AppName = "audioanchor"
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	p := &Platform{
		appName: opts.AppName,
		logger:  opts.Logger,
		dial:    opts.dial,
		nodes:   map[device.Handle]node{},
	}
	if p.dial == nil {
		p.dial = p.dialClient
	}
	return p
}

// Ping verifies that the pulse server answers a server-info request.
func (p *Platform) Ping(ctx context.Context) error {
	_, err := p.fetchDefaults(ctx)
	return err
}

// Close drops the server connection.
func (p *Platform) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}

func (p *Platform) Handles(ctx context.Context, dir device.Direction) ([]device.Handle, error) {
	nodes, err := p.refresh(ctx)
	if err != nil {
		return nil, err
	}

	handles := make([]device.Handle, 0, len(nodes))
	for handle, n := range nodes {
		if n.direction == dir {
			handles = append(handles, handle)
		}
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	return handles, nil
}

func (p *Platform) Describe(ctx context.Context, handle device.Handle) (device.Properties, error) {
	n, err := p.lookup(ctx, handle)
	if err != nil {
		return device.Properties{}, err
	}
	return n.props, nil
}

func (p *Platform) CanBeDefault(ctx context.Context, handle device.Handle, dir device.Direction) (bool, error) {
	n, err := p.lookup(ctx, handle)
	if err != nil {
		return false, err
	}
	return n.direction == dir && n.eligible, nil
}

func (p *Platform) DefaultHandle(ctx context.Context, dir device.Direction) (device.Handle, error) {
	defaults, err := p.fetchDefaults(ctx)
	if err != nil {
		return 0, err
	}
	name := defaults[dir]
	if name == "" {
		return 0, fmt.Errorf("no default %s device", dir)
	}

	if handle, ok := p.findByName(dir, name); ok {
		return handle, nil
	}
	if _, err := p.refresh(ctx); err != nil {
		return 0, err
	}
	if handle, ok := p.findByName(dir, name); ok {
		return handle, nil
	}
	return 0, fmt.Errorf("default %s device %q: %w", dir, name, ErrUnknownHandle)
}

func (p *Platform) SetDefaultHandle(ctx context.Context, dir device.Direction, handle device.Handle) error {
	n, err := p.lookup(ctx, handle)
	if err != nil {
		return err
	}
	if n.direction != dir {
		return fmt.Errorf("handle %s is not an %s device: %w", handle, dir, ErrUnknownHandle)
	}
	return p.call(ctx, func(conn server) error {
		if err := conn.SetDefault(dir, n.name); err != nil {
			return fmt.Errorf("set default %s %q: %w", dir, n.name, err)
		}
		return nil
	})
}

func (p *Platform) refresh(ctx context.Context) (map[device.Handle]node, error) {
	var (
		sinks   []*pulseproto.GetSinkInfoReply
		sources []*pulseproto.GetSourceInfoReply
	)
	err := p.call(ctx, func(conn server) error {
		var err error
		if sinks, err = conn.Sinks(); err != nil {
			return fmt.Errorf("list sinks: %w", err)
		}
		if sources, err = conn.Sources(); err != nil {
			return fmt.Errorf("list sources: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	nodes := buildNodes(sinks, sources)
	p.mu.Lock()
	p.nodes = nodes
	p.mu.Unlock()
	return nodes, nil
}

func (p *Platform) fetchDefaults(ctx context.Context) (map[device.Direction]string, error) {
	var sink, source string
	err := p.call(ctx, func(conn server) error {
		var err error
		sink, source, err = conn.Defaults()
		if err != nil {
			return fmt.Errorf("read server defaults: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return map[device.Direction]string{device.Output: sink, device.Input: source}, nil
}

// lookup resolves handle from the cached snapshot, refreshing once on a miss.
func (p *Platform) lookup(ctx context.Context, handle device.Handle) (node, error) {
	p.mu.Lock()
	n, ok := p.nodes[handle]
	p.mu.Unlock()
	if ok {
		return n, nil
	}

	nodes, err := p.refresh(ctx)
	if err != nil {
		return node{}, err
	}
	if n, ok := nodes[handle]; ok {
		return n, nil
	}
	return node{}, fmt.Errorf("device %s: %w", handle, ErrUnknownHandle)
}

func (p *Platform) findByName(dir device.Direction, name string) (device.Handle, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for handle, n := range p.nodes {
		if n.direction == dir && n.name == name {
			return handle, true
		}
	}
	return 0, false
}

// call runs fn against the live connection and gives up when ctx expires. A
// failed or abandoned call drops the connection so the next call re-dials.
func (p *Platform) call(ctx context.Context, fn func(server) error) error {
	conn, err := p.connection()
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- fn(conn) }()

	select {
	case err := <-done:
		if err != nil {
			p.drop(conn)
		}
		return err
	case <-ctx.Done():
		p.drop(conn)
		return ctx.Err()
	}
}

func (p *Platform) connection() (server, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		return p.conn, nil
	}
	conn, err := p.dial()
	if err != nil {
		return nil, err
	}
	p.conn = conn
	return conn, nil
}

func (p *Platform) drop(conn server) {
	p.mu.Lock()
	if p.conn != conn {
		p.mu.Unlock()
		return
	}
	p.conn = nil
	p.mu.Unlock()

	conn.Close()
	p.logger.Debug("pulse connection dropped")
}

func (p *Platform) dialClient() (server, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName(p.appName),
		pulse.ClientApplicationIconName("audio-card"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return clientServer{client: client}, nil
}

// clientServer adapts a pulse.Client to server.
type clientServer struct {
	client *pulse.Client
}

func (c clientServer) Sinks() ([]*pulseproto.GetSinkInfoReply, error) {
	var reply pulseproto.GetSinkInfoListReply
	if err := c.client.RawRequest(&pulseproto.GetSinkInfoList{}, &reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func (c clientServer) Sources() ([]*pulseproto.GetSourceInfoReply, error) {
	var reply pulseproto.GetSourceInfoListReply
	if err := c.client.RawRequest(&pulseproto.GetSourceInfoList{}, &reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func (c clientServer) Defaults() (string, string, error) {
	var info pulseproto.GetServerInfoReply
	if err := c.client.RawRequest(&pulseproto.GetServerInfo{}, &info); err != nil {
		return "", "", err
	}
	return info.DefaultSinkName, info.DefaultSourceName, nil
}

func (c clientServer) SetDefault(dir device.Direction, name string) error {
	if dir == device.Output {
		return c.client.RawRequest(&pulseproto.SetDefaultSink{SinkName: name}, nil)
	}
	return c.client.RawRequest(&pulseproto.SetDefaultSource{SourceName: name}, nil)
}

func (c clientServer) Close() {
	c.client.Close()
}
