package service

import (
	"context"
	"errors"
	"time"

	"github.com/kxddry/hr-rag/internal/domain"
	"github.com/kxddry/hr-rag/internal/logger"
	"github.com/kxddry/hr-rag/internal/response"
)

// cannedChunkSize is the size of the pieces canned replies are streamed in.
const cannedChunkSize = 50

// Event is one item of a streamed answer: any number of DeltaEvent followed
// by exactly one FinalEvent or CancelledEvent.
type Event interface{ event() }

// DeltaEvent carries text to show right away.
type DeltaEvent struct {
	Text string
}

// FinalEvent closes a stream with the complete answer. References are
// derived from the accumulated text once generation ended.
type FinalEvent struct {
	Response       string
	References     []domain.Reference
	Method         domain.Method
	Classification domain.ClassificationResult
}

// CancelledEvent closes a stream stopped by the caller. Nothing is logged.
type CancelledEvent struct{}

func (DeltaEvent) event()     {}
func (FinalEvent) event()     {}
func (CancelledEvent) event() {}

var errStopped = errors.New("service: stream stopped")

// Stream answers like Answer but emits text as it is produced. The channel
// is closed after the terminating event. Cancelling ctx ends the stream
// like the Cancelled predicate does.
func (s *RAGService) Stream(ctx context.Context, req Request) <-chan Event {
	out := make(chan Event, 16)
	go func() {
		defer close(out)
		start := time.Now()
		defer func() { s.deps.Metrics.Observe("stream", time.Since(start)) }()
		st := &streamer{ctx: ctx, req: req, out: out}
		final, err := s.stream(ctx, req, st)
		if err != nil {
			st.send(CancelledEvent{})
			return
		}
		st.send(final)
	}()
	return out
}

type streamer struct {
	ctx context.Context
	req Request
	out chan<- Event
}

func (st *streamer) stopped() bool {
	return st.ctx.Err() != nil || st.req.cancelled()
}

// send delivers an event unless the consumer went away.
func (st *streamer) send(e Event) bool {
	select {
	case st.out <- e:
		return true
	case <-st.ctx.Done():
		return false
	}
}

func (st *streamer) delta(text string) error {
	if st.stopped() {
		return errStopped
	}
	if !st.send(DeltaEvent{Text: text}) {
		return errStopped
	}
	return nil
}

// canned streams a prepared reply in sentence sized pieces.
func (st *streamer) canned(text string) error {
	for _, piece := range response.Chunks(text, cannedChunkSize) {
		if err := st.delta(piece); err != nil {
			return err
		}
	}
	return nil
}

func (s *RAGService) stream(ctx context.Context, req Request, st *streamer) (FinalEvent, error) {
	log := logger.FromContext(ctx).With("component", "service")
	if req.Question == "" {
		final := FinalEvent{Response: response.NoAnswer(response.LangVI), Method: domain.MethodError}
		return final, st.canned(final.Response)
	}
	lang := response.DetectLanguage(req.Question)
	cls := s.classify(ctx, req, lang)
	final := FinalEvent{Method: cls.Method, Classification: cls}

	reply := func(text string) (FinalEvent, error) {
		if err := st.canned(text); err != nil {
			return FinalEvent{}, err
		}
		final.Response = text
		s.record(ctx, req, text)
		return final, nil
	}

	if cls.Terminal() {
		return reply(cls.CachedResponse)
	}
	if st.stopped() {
		return FinalEvent{}, errStopped
	}
	p := s.prepare(ctx, req, cls, lang)
	if p.canned != "" {
		return reply(p.canned)
	}
	if st.stopped() {
		return FinalEvent{}, errStopped
	}
	if s.deps.Generator == nil {
		final.Response = response.SystemError(lang, ErrNoGenerator)
		return final, st.delta(final.Response)
	}

	var acc []byte
	err := s.deps.Generator.Stream(ctx, p.prompt, func(d string) error {
		if err := st.delta(d); err != nil {
			return err
		}
		acc = append(acc, d...)
		return nil
	})
	switch {
	case errors.Is(err, errStopped) || st.stopped():
		return FinalEvent{}, errStopped
	case err != nil:
		log.Error("streaming generation failed", "error", err)
		final.Response = response.SystemError(lang, err)
		return final, st.delta(separated(len(acc) > 0, final.Response))
	}

	text := string(acc)
	if !response.Valid(text) {
		final.Response = response.NoAnswer(lang)
		if err := st.delta(separated(len(acc) > 0, final.Response)); err != nil {
			return FinalEvent{}, err
		}
		s.record(ctx, req, final.Response)
		return final, nil
	}
	final.Response, final.References = s.finish(ctx, p, text, lang)
	s.record(ctx, req, final.Response)
	return final, nil
}

func separated(afterText bool, msg string) string {
	if afterText {
		return "\n" + msg
	}
	return msg
}
