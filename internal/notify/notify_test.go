package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/audioanchor/internal/device"
)

type recordedPost struct {
	title string
	body  string
}

type recordingPoster struct {
	mu    sync.Mutex
	posts []recordedPost
	err   error
}

func (r *recordingPoster) Post(_ context.Context, title string, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts = append(r.posts, recordedPost{title: title, body: body})
	return r.err
}

func (r *recordingPoster) snapshot() []recordedPost {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedPost(nil), r.posts...)
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestAnnounceThrottlesWithinOneSecondAcrossDirections(t *testing.T) {
	poster := &recordingPoster{}
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	n := New(poster, Options{Now: clock.Now})

	require.True(t, n.Announce(context.Background(), device.Input, "Laptop Mic", "", false))
	clock.Advance(400 * time.Millisecond)
	require.False(t, n.Announce(context.Background(), device.Output, "Dock", "Speakers", true))
	clock.Advance(599 * time.Millisecond)
	require.False(t, n.Announce(context.Background(), device.Input, "Studio Mic", "Laptop Mic", true))
	clock.Advance(time.Millisecond)
	require.True(t, n.Announce(context.Background(), device.Input, "Studio Mic", "Laptop Mic", true))

	require.Len(t, poster.snapshot(), 2)
}

func TestAnnounceMessageShapes(t *testing.T) {
	poster := &recordingPoster{}
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	n := New(poster, Options{Now: clock.Now})

	n.Announce(context.Background(), device.Input, "Laptop Mic", "", false)
	clock.Advance(2 * time.Second)
	n.Announce(context.Background(), device.Output, "Dock", "Speakers", true)

	posts := poster.snapshot()
	require.Equal(t, []recordedPost{
		{title: "Laptop Mic is active", body: "Input changed to Laptop Mic"},
		{title: "Dock is active", body: "Output changed from Speakers to Dock"},
	}, posts)
}

func TestAnnounceDeliveryFailureIsSwallowed(t *testing.T) {
	poster := &recordingPoster{err: errors.New("dbus down")}
	n := New(poster, Options{})

	require.True(t, n.Announce(context.Background(), device.Input, "Mic", "", false))
	require.Len(t, poster.snapshot(), 1)
}

func TestAnnounceNilPosterStillThrottles(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	n := New(nil, Options{Now: clock.Now})

	require.True(t, n.Announce(context.Background(), device.Input, "Mic", "", false))
	require.False(t, n.Announce(context.Background(), device.Input, "Mic", "", false))
}

type chimeFunc func(context.Context) error

func (f chimeFunc) Play(ctx context.Context) error { return f(ctx) }

func TestAnnouncePlaysChimeAsynchronously(t *testing.T) {
	played := make(chan struct{}, 1)
	n := New(&recordingPoster{}, Options{Chime: chimeFunc(func(context.Context) error {
		played <- struct{}{}
		return nil
	})})

	n.Announce(context.Background(), device.Output, "Dock", "", false)

	select {
	case <-played:
	case <-time.After(2 * time.Second):
		t.Fatal("chime was not played")
	}
}

func TestMessagesBodyFallsBackWhenPreviousEmpty(t *testing.T) {
	m := englishMessages()
	require.Equal(t, "Output changed to Dock", m.body(device.Output, "Dock", "", true))
	require.Equal(t, "Input changed from A to B", m.body(device.Input, "B", "A", true))
}

func TestAnnouncementsIgnoreLANG(t *testing.T) {
	t.Setenv("LANG", "de_DE.UTF-8")
	poster := &recordingPoster{}
	n := New(poster, Options{})

	n.Announce(context.Background(), device.Input, "Mic", "Laptop", true)
	require.Equal(t, []recordedPost{{title: "Mic is active", body: "Input changed from Laptop to Mic"}}, poster.snapshot())
}
