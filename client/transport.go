package client

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/pkg/errors"
)

// ErrSessionExpired is returned for queued requests when the refresh attempt
// itself fails. The registered auth failure handler fires at the same time.
var ErrSessionExpired = errors.New("session expired")

// retryMarkerKey marks a request that has already been replayed once, so a
// replay that still comes back 401 never triggers a second refresh.
type retryMarkerKey struct{}

func markRetried(req *http.Request) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), retryMarkerKey{}, true))
}

func wasRetried(req *http.Request) bool {
	retried, _ := req.Context().Value(retryMarkerKey{}).(bool)
	return retried
}

// pendingRequest is a request parked while a refresh is in flight. The
// refresh winner replays the whole queue in submission order and resolves
// each entry.
type pendingRequest struct {
	req  *http.Request
	resp *http.Response
	err  error
	done chan struct{}
}

// Transport is an http.RoundTripper that suppresses the thundering herd of
// refresh attempts when an access token expires: the first request to see a
// 401 performs the refresh, every concurrent 401 is queued behind it, and the
// queue is replayed in order with the rotated credentials once the refresh
// resolves. Each request is retried at most once through this path.
//
// The refreshing flag and queue are owned by this object rather than being
// package globals, so every test (and every independent client) gets isolated
// state.
type Transport struct {
	base       http.RoundTripper
	jar        http.CookieJar
	refreshURL string

	mu            sync.Mutex
	refreshing    bool
	queue         []*pendingRequest
	onAuthFailure func()
}

func NewTransport(base http.RoundTripper, jar http.CookieJar, refreshURL string) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{
		base:       base,
		jar:        jar,
		refreshURL: refreshURL,
	}
}

// SetAuthFailureHandler registers the hook fired when a refresh attempt
// fails; typically a Session's forced logout.
func (t *Transport) SetAuthFailureHandler(handler func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onAuthFailure = handler
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	// Only a 401 on a replayable, not-yet-retried, non-refresh request
	// enters the refresh path.
	if resp.StatusCode != http.StatusUnauthorized ||
		wasRetried(req) ||
		req.URL.String() == t.refreshURL ||
		!replayable(req) {
		return resp, nil
	}

	drainAndClose(resp.Body)

	pending := &pendingRequest{req: markRetried(req), done: make(chan struct{})}

	t.mu.Lock()
	t.queue = append(t.queue, pending)
	if t.refreshing {
		// A refresh is already in flight; park behind it.
		t.mu.Unlock()
		<-pending.done
		return pending.resp, pending.err
	}
	t.refreshing = true
	t.mu.Unlock()

	refreshErr := t.refresh(req.Context())

	t.mu.Lock()
	queued := t.queue
	t.queue = nil
	t.refreshing = false
	handler := t.onAuthFailure
	t.mu.Unlock()

	for _, q := range queued {
		if refreshErr != nil {
			q.err = errors.Wrap(ErrSessionExpired, refreshErr.Error())
		} else {
			q.resp, q.err = t.replay(q.req)
		}
		close(q.done)
	}

	if refreshErr != nil && handler != nil {
		handler()
	}

	<-pending.done
	return pending.resp, pending.err
}

// refresh performs the single rotation round trip. Cookies are applied from
// and persisted back to the shared jar, bypassing the outer client so the
// call itself never re-enters this transport's 401 handling.
func (t *Transport) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.refreshURL, nil)
	if err != nil {
		return errors.Wrap(err, "[Transport.refresh] build request")
	}
	if t.jar != nil {
		for _, cookie := range t.jar.Cookies(req.URL) {
			req.AddCookie(cookie)
		}
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return errors.Wrap(err, "[Transport.refresh] round trip")
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("refresh rejected with status %d", resp.StatusCode)
	}

	if t.jar != nil {
		t.jar.SetCookies(req.URL, resp.Cookies())
	}
	return nil
}

// replay re-issues a queued request with the rotated credentials: the stale
// Cookie header is replaced from the jar and the body rewound.
func (t *Transport) replay(req *http.Request) (*http.Response, error) {
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, errors.Wrap(err, "[Transport.replay] rewind body")
		}
		req.Body = body
	}

	if t.jar != nil {
		req.Header.Del("Cookie")
		for _, cookie := range t.jar.Cookies(req.URL) {
			req.AddCookie(cookie)
		}
	}

	return t.base.RoundTrip(req)
}

// replayable reports whether the request body can be rewound for a second
// attempt. Bodyless requests always qualify.
func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

func drainAndClose(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}

// queueLen is used by tests to observe when concurrent callers have parked.
func (t *Transport) queueLen() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}

// queuedIDs snapshots the queue order by the given header, for tests.
func (t *Transport) queuedIDs(header string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.queue))
	for _, q := range t.queue {
		ids = append(ids, q.req.Header.Get(header))
	}
	return ids
}
