package narration

import (
	"context"
	"errors"
	"testing"
)

// manualLoop runs posted and async work on the test goroutine, in order.
type manualLoop struct{ tasks []func() }

func (m *manualLoop) Post(fn func()) { m.tasks = append(m.tasks, fn) }
func (m *manualLoop) Go(fn func())   { m.tasks = append(m.tasks, fn) }

func (m *manualLoop) drain() {
	for len(m.tasks) > 0 {
		fn := m.tasks[0]
		m.tasks = m.tasks[1:]
		fn()
	}
}

type fakeSynth struct {
	calls []string
	fail  map[string]error
}

func (f *fakeSynth) Synthesize(_ context.Context, text string, _ VoiceParams) ([]byte, error) {
	f.calls = append(f.calls, text)
	if err := f.fail[text]; err != nil {
		return nil, err
	}
	return []byte(text), nil
}

type fakePlayer struct {
	auto      bool
	refuse    error
	plays     []string
	active    int
	maxActive int
	stops     int
	done      func(error)
}

func (p *fakePlayer) Play(_ context.Context, audio []byte, done func(error)) error {
	if p.refuse != nil {
		return p.refuse
	}
	p.plays = append(p.plays, string(audio))
	p.active++
	if p.active > p.maxActive {
		p.maxActive = p.active
	}
	finish := func(err error) {
		p.active--
		done(err)
	}
	if p.auto {
		finish(nil)
		return nil
	}
	p.done = finish
	return nil
}

func (p *fakePlayer) Stop() {
	p.stops++
	if p.done != nil {
		p.active--
		p.done = nil
	}
}

type fakeSpeaker struct {
	spoken []string
	err    error
}

func (s *fakeSpeaker) Speak(_ context.Context, text string, _ VoiceParams) error {
	if s.err != nil {
		return s.err
	}
	s.spoken = append(s.spoken, text)
	return nil
}

func newTestQueue(synth Synthesizer, player *fakePlayer, opts ...Option) (*Queue, *manualLoop) {
	loop := &manualLoop{}
	all := append([]Option{WithPlayer(player), WithAsync(loop.Go)}, opts...)
	return NewQueue(loop, synth, all...), loop
}

func req(text string) Request { return NewRequest(text, DefaultVoiceParams()) }

func TestQueuePlaysInOrderOneAtATime(t *testing.T) {
	player := &fakePlayer{auto: true}
	q, loop := newTestQueue(&fakeSynth{}, player)
	for _, s := range []string{"a", "b", "c"} {
		q.Enqueue(req(s))
	}
	loop.drain()
	if got := player.plays; len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("plays = %v", got)
	}
	if player.maxActive != 1 {
		t.Fatalf("max concurrent playbacks = %d", player.maxActive)
	}
	if q.Playing() || q.Pending() != 0 || q.Played() != 3 {
		t.Fatalf("queue not idle: playing=%v pending=%d played=%d", q.Playing(), q.Pending(), q.Played())
	}
}

func TestQueueDefersRequestsWhilePlaying(t *testing.T) {
	player := &fakePlayer{}
	q, loop := newTestQueue(&fakeSynth{}, player)
	q.Enqueue(req("first"))
	loop.drain()
	q.Enqueue(req("second"))
	loop.drain()
	if len(player.plays) != 1 || player.plays[0] != "first" {
		t.Fatalf("plays = %v", player.plays)
	}
	if cur, _ := q.Current(); cur.Text != "first" || q.Pending() != 1 {
		t.Fatalf("current=%q pending=%d", cur.Text, q.Pending())
	}
	player.done(nil)
	loop.drain()
	if len(player.plays) != 2 || player.plays[1] != "second" {
		t.Fatalf("plays = %v", player.plays)
	}
	if player.maxActive != 1 {
		t.Fatalf("max concurrent playbacks = %d", player.maxActive)
	}
}

func TestQueueEnqueueThenStopNeverPlays(t *testing.T) {
	player := &fakePlayer{auto: true}
	synth := &fakeSynth{}
	q, loop := newTestQueue(synth, player)
	q.Enqueue(req("hello"))
	q.Enqueue(req("world"))
	q.Stop()
	loop.drain()
	if len(player.plays) != 0 {
		t.Fatalf("stale synthesis was played: %v", player.plays)
	}
	if q.Playing() || q.Pending() != 0 {
		t.Fatalf("queue not empty after stop")
	}
}

func TestQueueStaleResultDiscardedAfterRestart(t *testing.T) {
	player := &fakePlayer{auto: true}
	q, loop := newTestQueue(&fakeSynth{}, player)
	q.Enqueue(req("old"))
	q.Stop()
	q.Enqueue(req("new"))
	loop.drain()
	if len(player.plays) != 1 || player.plays[0] != "new" {
		t.Fatalf("plays = %v", player.plays)
	}
}

func TestQueueStopSilencesPlayback(t *testing.T) {
	player := &fakePlayer{}
	q, loop := newTestQueue(&fakeSynth{}, player)
	q.Enqueue(req("long line"))
	q.Enqueue(req("queued"))
	loop.drain()
	q.Stop()
	if player.stops != 1 || player.active != 0 {
		t.Fatalf("stops=%d active=%d", player.stops, player.active)
	}
	// a late completion from the backend must not start the queued line
	q.PlaybackEnded()
	loop.drain()
	if len(player.plays) != 1 {
		t.Fatalf("plays = %v", player.plays)
	}
}

func TestQueueFallsBackOnSynthesisFailure(t *testing.T) {
	player := &fakePlayer{auto: true}
	synth := &fakeSynth{fail: map[string]error{
		"limited": &SynthesisError{Status: StatusRateLimited, Code: 429, Err: errors.New("slow down")},
	}}
	speaker := &fakeSpeaker{}
	q, loop := newTestQueue(synth, player, WithFallback(speaker))
	q.Enqueue(req("limited"))
	q.Enqueue(req("fine"))
	loop.drain()
	if len(speaker.spoken) != 1 || speaker.spoken[0] != "limited" {
		t.Fatalf("spoken = %v", speaker.spoken)
	}
	if len(player.plays) != 1 || player.plays[0] != "fine" {
		t.Fatalf("plays = %v", player.plays)
	}
	if _, ok := q.Warning(); ok {
		t.Fatal("fallback success should not surface a warning")
	}
}

func TestQueueSurfacesWarningWhenBothBackendsFail(t *testing.T) {
	player := &fakePlayer{auto: true}
	synth := &fakeSynth{fail: map[string]error{
		"down": &SynthesisError{Status: StatusUnavailable, Code: 503, Err: errors.New("maintenance")},
	}}
	var warnings []Warning
	q, loop := newTestQueue(synth, player,
		WithFallback(&fakeSpeaker{err: ErrSpeechUnavailable}),
		WithWarningHandler(func(w Warning) { warnings = append(warnings, w) }),
	)
	q.Enqueue(req("down"))
	q.Enqueue(req("next"))
	loop.drain()
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v", warnings)
	}
	if !errors.Is(warnings[0].Err, ErrSynthesisFailed) || warnings[0].Retryable {
		t.Fatalf("warning = %+v", warnings[0])
	}
	if len(player.plays) != 1 || player.plays[0] != "next" {
		t.Fatalf("queue did not continue: %v", player.plays)
	}
}

func TestQueueWithoutSynthesizerUsesSpeaker(t *testing.T) {
	speaker := &fakeSpeaker{}
	q, loop := newTestQueue(nil, &fakePlayer{auto: true}, WithFallback(speaker))
	q.Enqueue(req("local only"))
	loop.drain()
	if len(speaker.spoken) != 1 || q.Played() != 1 {
		t.Fatalf("spoken=%v played=%d", speaker.spoken, q.Played())
	}
}

func TestQueuePlaybackRefusedIsRetryable(t *testing.T) {
	player := &fakePlayer{refuse: errors.New("autoplay blocked")}
	q, loop := newTestQueue(&fakeSynth{}, player)
	q.Enqueue(req("blocked"))
	loop.drain()
	w, ok := q.Warning()
	if !ok || !w.Retryable || !errors.Is(w.Err, ErrPlaybackFailed) {
		t.Fatalf("warning = %+v ok=%v", w, ok)
	}
	if q.Playing() {
		t.Fatal("refused playback should not stay in flight")
	}
	q.Stop()
	if _, ok := q.Warning(); ok {
		t.Fatal("stop kept the warning")
	}
}

func TestQueueWarningClearsOnNextSuccessfulPlay(t *testing.T) {
	player := &fakePlayer{auto: true}
	synth := &fakeSynth{fail: map[string]error{
		"busy": &SynthesisError{Status: StatusRateLimited, Code: 429, Err: errors.New("slow down")},
	}}
	q, loop := newTestQueue(synth, player)
	q.Enqueue(req("busy"))
	loop.drain()
	if _, ok := q.Warning(); !ok {
		t.Fatal("rate limited request without fallback should warn")
	}
	q.Enqueue(req("fine"))
	loop.drain()
	if w, ok := q.Warning(); ok {
		t.Fatalf("warning survived a good play: %+v", w)
	}

	speaker := &fakeSpeaker{}
	q, loop = newTestQueue(synth, player, WithFallback(speaker))
	q.Enqueue(req("busy"))
	loop.drain()
	if _, ok := q.Warning(); ok || len(speaker.spoken) != 1 {
		t.Fatalf("fallback success: spoken=%v", speaker.spoken)
	}
}

func TestQueueMutedDropsRequests(t *testing.T) {
	player := &fakePlayer{auto: true}
	synth := &fakeSynth{}
	q, loop := newTestQueue(synth, player)
	q.SetMuted(true)
	q.Enqueue(req("shh"))
	loop.drain()
	if len(synth.calls) != 0 || len(player.plays) != 0 {
		t.Fatalf("muted queue synthesized %v played %v", synth.calls, player.plays)
	}
	q.SetMuted(false)
	q.Enqueue(req("loud"))
	loop.drain()
	if len(player.plays) != 1 {
		t.Fatalf("plays = %v", player.plays)
	}
}
