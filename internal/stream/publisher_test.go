package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plexy44/doplen/internal/domain"
)

// fakeSession feeds a pre-filled event channel to the publisher.
type fakeSession struct {
	avatar string
	events chan domain.Event

	mu       sync.Mutex
	closeCnt int
}

func newFakeSession(avatar string, events ...domain.Event) *fakeSession {
	ch := make(chan domain.Event, len(events)+1)
	for _, ev := range events {
		ch <- ev
	}
	return &fakeSession{avatar: avatar, events: ch}
}

func (s *fakeSession) Avatar() string              { return s.avatar }
func (s *fakeSession) Events() <-chan domain.Event { return s.events }
func (s *fakeSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeCnt++
}

func (s *fakeSession) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCnt
}

type fakeOpener struct {
	session domain.LiveSession
	err     error
	calls   int
}

func (o *fakeOpener) OpenSession(_ context.Context, _ string) (domain.LiveSession, error) {
	o.calls++
	if o.err != nil {
		return nil, o.err
	}
	return o.session, nil
}

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// parseFrames splits a recorded SSE body into its decoded data frames,
// ignoring comment (heartbeat) frames.
func parseFrames(t *testing.T, body string) []frame {
	t.Helper()

	var frames []frame
	for _, chunk := range strings.Split(body, "\n\n") {
		if chunk == "" || strings.HasPrefix(chunk, ":") {
			continue
		}
		require.True(t, strings.HasPrefix(chunk, "data: "), "unexpected frame %q", chunk)

		var f frame
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(chunk, "data: ")), &f))
		frames = append(frames, f)
	}
	return frames
}

func TestServeConnectedEventComesFirst(t *testing.T) {
	session := newFakeSession("https://cdn.example/avatar.jpg",
		domain.Event{Type: domain.EventTypeStats, Data: domain.StatsData{Viewers: 10, Likes: 20}},
	)
	close(session.events)
	opener := &fakeOpener{session: session}

	rec := httptest.NewRecorder()
	p := NewPublisher(opener, "alice", clockwork.NewFakeClock())
	p.Serve(context.Background(), rec)

	frames := parseFrames(t, rec.Body.String())
	require.Len(t, frames, 3)
	assert.Equal(t, "connected", frames[0].Type)
	assert.Equal(t, "stats", frames[1].Type)
	assert.Equal(t, "error", frames[2].Type, "channel close ends the stream with one error event")

	var connected domain.ConnectedData
	require.NoError(t, json.Unmarshal(frames[0].Data, &connected))
	assert.Equal(t, "Connected to @alice", connected.Message)
	assert.Equal(t, "https://cdn.example/avatar.jpg", connected.UserAvatar)
}

func TestServeOpenFailureEmitsSingleGenericError(t *testing.T) {
	opener := &fakeOpener{err: errors.New("tab crashed during navigation")}

	rec := httptest.NewRecorder()
	p := NewPublisher(opener, "alice", clockwork.NewFakeClock())
	p.Serve(context.Background(), rec)

	frames := parseFrames(t, rec.Body.String())
	require.Len(t, frames, 1)
	assert.Equal(t, "error", frames[0].Type)

	var data domain.ErrorData
	require.NoError(t, json.Unmarshal(frames[0].Data, &data))
	assert.Equal(t, domain.StreamErrorMessage, data.Message)
	assert.NotContains(t, rec.Body.String(), "crashed", "internal detail must not reach the client")

	assert.Equal(t, StateClosed, p.State())
}

func TestServeClientDisconnectIsSilent(t *testing.T) {
	session := newFakeSession("")
	opener := &fakeOpener{session: session}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := httptest.NewRecorder()
	p := NewPublisher(opener, "alice", clockwork.NewFakeClock())
	p.Serve(ctx, rec)

	frames := parseFrames(t, rec.Body.String())
	require.Len(t, frames, 1, "only the connected acknowledgment")
	assert.Equal(t, "connected", frames[0].Type)

	assert.Equal(t, 1, session.closeCount())
	assert.Equal(t, StateClosed, p.State())
}

func TestServeTearsDownSessionExactlyOnce(t *testing.T) {
	session := newFakeSession("")
	close(session.events)
	opener := &fakeOpener{session: session}

	rec := httptest.NewRecorder()
	p := NewPublisher(opener, "alice", clockwork.NewFakeClock())
	p.Serve(context.Background(), rec)

	p.teardown()
	p.teardown()
	assert.Equal(t, 1, session.closeCount())
}

func TestConcurrentStreamsStayIndependent(t *testing.T) {
	aliceSession := newFakeSession("", domain.Event{Type: domain.EventTypeComment, Data: domain.CommentData{
		ID: "c-a", User: domain.User{Name: "alice-fan"}, Comment: "hi alice",
	}})
	close(aliceSession.events)
	bobSession := newFakeSession("", domain.Event{Type: domain.EventTypeComment, Data: domain.CommentData{
		ID: "c-b", User: domain.User{Name: "bob-fan"}, Comment: "hi bob",
	}})
	close(bobSession.events)

	aliceRec := httptest.NewRecorder()
	bobRec := httptest.NewRecorder()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		NewPublisher(&fakeOpener{session: aliceSession}, "alice", clockwork.NewFakeClock()).Serve(context.Background(), aliceRec)
	}()
	go func() {
		defer wg.Done()
		NewPublisher(&fakeOpener{session: bobSession}, "bob", clockwork.NewFakeClock()).Serve(context.Background(), bobRec)
	}()
	wg.Wait()

	assert.Contains(t, aliceRec.Body.String(), "Connected to @alice")
	assert.Contains(t, aliceRec.Body.String(), "hi alice")
	assert.NotContains(t, aliceRec.Body.String(), "bob")

	assert.Contains(t, bobRec.Body.String(), "Connected to @bob")
	assert.Contains(t, bobRec.Body.String(), "hi bob")
	assert.NotContains(t, bobRec.Body.String(), "alice")
}

func TestWriteSwallowedAfterClose(t *testing.T) {
	rec := httptest.NewRecorder()
	p := NewPublisher(&fakeOpener{}, "alice", clockwork.NewFakeClock())

	p.teardown()
	p.write(rec, rec, []byte("data: late\n\n"))
	assert.Empty(t, rec.Body.String())
}
