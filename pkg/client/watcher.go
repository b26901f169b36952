package client

import (
	"context"
	"sync"
	"time"

	"github.com/pagelens/pagelens-api/pkg/models"
)

// DefaultDebounce is how long the watcher waits after the last URL change
// before extracting.
const DefaultDebounce = 500 * time.Millisecond

// State is the watcher's lifecycle state.
type State string

// Watcher states.
const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateSuccess State = "success"
	StateError   State = "error"
)

// Update is a state transition emitted by a Watcher.
type Update struct {
	State   State
	URL     string
	Content *models.ExtractedContent
	Err     error
}

// Watcher debounces URL changes and extracts metadata for the latest value,
// discarding results from superseded extractions. It mirrors the typical
// form autofill flow: the user types or pastes a URL, and once they pause,
// metadata appears.
type Watcher struct {
	client   *Client
	debounce time.Duration
	updates  chan Update

	mu            sync.Mutex
	url           string
	lastExtracted string
	generation    uint64
	timer         *time.Timer
	cancel        context.CancelFunc
	closed        bool
}

// NewWatcher creates a watcher around client. A debounce <= 0 uses
// DefaultDebounce.
func (c *Client) NewWatcher(debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		client:   c,
		debounce: debounce,
		updates:  make(chan Update, 16),
	}
}

// Updates returns the channel of state transitions. The channel is never
// closed while the watcher is open; Close closes it.
func (w *Watcher) Updates() <-chan Update {
	return w.updates
}

// Set feeds the watcher a new URL value. An empty URL resets to idle. A URL
// equal to the last successful extraction is skipped. Otherwise the watcher
// waits out the debounce window, then emits loading and extracts; a newer Set
// during the window or the extraction supersedes the older one. A URL that
// fails format validation produces an error update after the window without
// touching the network.
func (w *Watcher) Set(url string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || url == w.url {
		return
	}
	w.url = url
	w.generation++
	gen := w.generation

	// Abandon any pending or in-flight extraction for the previous URL.
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}

	if url == "" {
		w.lastExtracted = ""
		w.emit(Update{State: StateIdle})
		return
	}

	if url == w.lastExtracted {
		return
	}

	w.timer = time.AfterFunc(w.debounce, func() {
		w.extract(url, gen)
	})
}

// Reset clears the watcher back to idle, abandoning any pending extraction.
func (w *Watcher) Reset() {
	w.Set("")
}

// Close shuts the watcher down and closes its update channel.
func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	w.closed = true
	w.generation++
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	close(w.updates)
}

func (w *Watcher) extract(url string, gen uint64) {
	w.mu.Lock()
	if w.closed || gen != w.generation {
		w.mu.Unlock()
		return
	}

	if !IsValidURL(url) {
		w.emit(Update{State: StateError, URL: url, Err: &Error{
			Type:      ErrInvalidURL,
			Message:   "Invalid URL",
			Retryable: false,
		}})
		w.mu.Unlock()
		return
	}

	w.emit(Update{State: StateLoading, URL: url})
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.mu.Unlock()

	content, err := w.client.Extract(ctx, url, false)

	w.mu.Lock()
	defer w.mu.Unlock()

	// A later Set or Close wins; drop this result on the floor.
	if w.closed || gen != w.generation {
		return
	}
	w.cancel = nil

	if err != nil {
		w.emit(Update{State: StateError, URL: url, Err: err})
		return
	}

	w.lastExtracted = url
	w.emit(Update{State: StateSuccess, URL: url, Content: content})
}

// emit sends without blocking; a full channel drops the oldest pending
// update so consumers that fall behind always see the newest state.
func (w *Watcher) emit(u Update) {
	for {
		select {
		case w.updates <- u:
			return
		default:
			select {
			case <-w.updates:
			default:
			}
		}
	}
}
