package narration

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Synthesizer turns text into encoded audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voice VoiceParams) ([]byte, error)
}

// Speaker speaks text directly and returns once it finished.
type Speaker interface {
	Speak(ctx context.Context, text string, voice VoiceParams) error
}

// Player plays encoded audio. done must be called exactly once when Play
// returned nil; it may be called from any goroutine.
type Player interface {
	Play(ctx context.Context, audio []byte, done func(error)) error
	Stop()
}

// Poster runs a function on the goroutine that owns the queue.
type Poster interface {
	Post(fn func())
}

// Option configures a Queue.
type Option func(*Queue)

// WithFallback sets the speaker used when synthesis fails.
func WithFallback(s Speaker) Option { return func(q *Queue) { q.fallback = s } }

// WithPlayer sets the audio backend.
func WithPlayer(p Player) Option { return func(q *Queue) { q.player = p } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(q *Queue) { q.log = l } }

// WithAsync replaces the goroutine launcher, mainly for tests.
func WithAsync(fn func(func())) Option { return func(q *Queue) { q.async = fn } }

// WithWarningHandler is called on the owning goroutine for every warning.
func WithWarningHandler(fn func(Warning)) Option { return func(q *Queue) { q.onWarning = fn } }

// Queue is a FIFO of narration requests with at most one in flight.
// Every method must be called on the goroutine behind the Poster; async
// backend work reports back through Post.
type Queue struct {
	post      Poster
	synth     Synthesizer
	fallback  Speaker
	player    Player
	async     func(func())
	log       *slog.Logger
	onWarning func(Warning)

	pending []Request
	current *Request
	cancel  context.CancelFunc
	// gen changes whenever the in-flight request is replaced or cancelled;
	// callbacks carrying an older gen are stale.
	gen     uint64
	muted   bool
	warning *Warning
	played  int
}

// NewQueue builds an idle queue. synth may be nil, in which case every
// request goes straight to the fallback speaker.
func NewQueue(post Poster, synth Synthesizer, opts ...Option) *Queue {
	q := &Queue{
		post:   post,
		synth:  synth,
		player: SilentPlayer{},
		async:  func(fn func()) { go fn() },
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// Enqueue appends req and starts it when nothing is in flight.
func (q *Queue) Enqueue(req Request) {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	req.Voice = req.Voice.Normalize()
	if q.muted {
		q.log.Debug("narration muted, dropping", "text", req.Text)
		return
	}
	q.pending = append(q.pending, req)
	if q.current == nil {
		q.next()
	}
}

// PlaybackEnded is the completion signal for the in-flight request.
func (q *Queue) PlaybackEnded() { q.ended(q.gen, nil) }

// Stop cancels in-flight synthesis or playback and clears the FIFO and
// the surfaced warning.
func (q *Queue) Stop() {
	if q.cancel != nil {
		q.cancel()
		q.cancel = nil
	}
	if q.current != nil {
		q.player.Stop()
	}
	q.gen++
	q.current = nil
	q.pending = nil
	q.warning = nil
}

// SetMuted toggles muting. Muting stops whatever is queued.
func (q *Queue) SetMuted(muted bool) {
	q.muted = muted
	if muted {
		q.Stop()
	}
}

// Muted reports the mute state.
func (q *Queue) Muted() bool { return q.muted }

// Playing reports whether a request is in flight.
func (q *Queue) Playing() bool { return q.current != nil }

// Current returns the in-flight request.
func (q *Queue) Current() (Request, bool) {
	if q.current == nil {
		return Request{}, false
	}
	return *q.current, true
}

// Pending returns the number of queued requests behind the current one.
func (q *Queue) Pending() int { return len(q.pending) }

// Played counts requests that finished playing.
func (q *Queue) Played() int { return q.played }

// Warning returns the last surfaced warning. It stays until a later
// request plays or the queue is stopped.
func (q *Queue) Warning() (Warning, bool) {
	if q.warning == nil {
		return Warning{}, false
	}
	return *q.warning, true
}

func (q *Queue) next() {
	if len(q.pending) == 0 {
		q.current = nil
		return
	}
	req := q.pending[0]
	q.pending = q.pending[1:]
	q.current = &req
	q.gen++
	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	gen := q.gen
	q.log.Debug("narration start", "id", req.ID, "text", req.Text)
	if q.synth == nil {
		q.speakFallback(ctx, gen, req, errors.Wrap(ErrSynthesisFailed, "no synthesizer configured"))
		return
	}
	q.async(func() {
		audio, err := q.synth.Synthesize(ctx, req.Text, req.Voice)
		q.post.Post(func() { q.synthesized(ctx, gen, req, audio, err) })
	})
}

func (q *Queue) synthesized(ctx context.Context, gen uint64, req Request, audio []byte, err error) {
	if gen != q.gen {
		q.log.Debug("discarding stale synthesis", "id", req.ID)
		return
	}
	if err != nil {
		q.log.Warn("synthesis failed, trying fallback", "id", req.ID, "err", err)
		q.speakFallback(ctx, gen, req, err)
		return
	}
	err = q.player.Play(ctx, audio, func(perr error) {
		q.post.Post(func() { q.ended(gen, perr) })
	})
	if err != nil {
		q.surface(req, errors.Wrap(ErrPlaybackFailed, err.Error()), true)
		q.advance()
	}
}

func (q *Queue) speakFallback(ctx context.Context, gen uint64, req Request, cause error) {
	if q.fallback == nil {
		q.surface(req, cause, false)
		q.advance()
		return
	}
	q.async(func() {
		err := q.fallback.Speak(ctx, req.Text, req.Voice)
		q.post.Post(func() {
			if gen != q.gen {
				return
			}
			if err != nil {
				q.surface(req, errors.Wrapf(cause, "fallback speaker: %v", err), false)
				q.advance()
				return
			}
			q.finished()
			q.advance()
		})
	})
}

func (q *Queue) ended(gen uint64, err error) {
	if gen != q.gen || q.current == nil {
		return
	}
	if err != nil {
		q.surface(*q.current, errors.Wrap(ErrPlaybackFailed, err.Error()), true)
	} else {
		q.finished()
	}
	q.advance()
}

func (q *Queue) finished() {
	q.played++
	q.warning = nil
}

func (q *Queue) advance() {
	if q.cancel != nil {
		q.cancel()
		q.cancel = nil
	}
	q.current = nil
	q.next()
}

func (q *Queue) surface(req Request, err error, retryable bool) {
	w := Warning{Request: req, Err: err, Retryable: retryable}
	q.warning = &w
	q.log.Warn("narration dropped", "id", req.ID, "text", req.Text, "err", err, "retryable", retryable)
	if q.onWarning != nil {
		q.onWarning(w)
	}
}
