package pipeline

import (
	"context"
	"fmt"

	"github.com/dgnsrekt/narrate/internal/audio"
	"github.com/dgnsrekt/narrate/internal/splitter"
)

// SynthesizeFunc produces audio for one chunk.
type SynthesizeFunc func(ctx context.Context, index int, chunk splitter.Chunk) (*audio.Clip, error)

// PlayFunc plays a clip and returns once it has finished, or once ctx is
// done.
type PlayFunc func(ctx context.Context, index int, clip *audio.Clip) error

// Hooks observe the loop. Both are optional.
type Hooks struct {
	// OnSynthesizing is called before waiting for chunk index.
	OnSynthesizing func(index int)
	// OnPlaying is called before chunk index is played. prefetching is
	// true when synthesis of the next chunk is already running.
	OnPlaying func(index int, prefetching bool)
}

// ChunkError is the terminal error of a run. It names the chunk that failed.
type ChunkError struct {
	Index int
	Text  string
	Stage string
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d: %s failed: %v", e.Index, e.Stage, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

const (
	stageSynthesize = "synthesis"
	stagePlay       = "playback"
)

type result struct {
	clip *audio.Clip
	err  error
}

// Run synthesizes and plays chunks in order. Chunk 0 is requested
// immediately; each later chunk is requested as soon as the previous result
// arrives, so at most one synthesis overlaps the current playback.
//
// The first failure stops the run and is returned as a *ChunkError. When
// ctx is cancelled Run returns ctx.Err() and never plays another chunk;
// results still in flight are discarded.
func Run(ctx context.Context, chunks []splitter.Chunk, synthesize SynthesizeFunc, play PlayFunc, hooks Hooks) error {
	if len(chunks) == 0 {
		return nil
	}

	pending := launch(ctx, synthesize, 0, chunks[0])
	for i := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if hooks.OnSynthesizing != nil {
			hooks.OnSynthesizing(i)
		}

		var res result
		select {
		case res = <-pending:
		case <-ctx.Done():
			return ctx.Err()
		}
		if res.err != nil {
			if err := ctx.Err(); err != nil {
				return err
			}
			return &ChunkError{Index: i, Text: chunks[i].Text, Stage: stageSynthesize, Err: res.err}
		}

		next := i + 1
		prefetching := next < len(chunks)
		if prefetching {
			pending = launch(ctx, synthesize, next, chunks[next])
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		if hooks.OnPlaying != nil {
			hooks.OnPlaying(i, prefetching)
		}
		if err := play(ctx, i, res.clip); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return &ChunkError{Index: i, Text: chunks[i].Text, Stage: stagePlay, Err: err}
		}
	}
	return nil
}

// launch starts synthesis in the background. The channel is buffered so an
// abandoned result never blocks the goroutine.
func launch(ctx context.Context, synthesize SynthesizeFunc, index int, chunk splitter.Chunk) <-chan result {
	ch := make(chan result, 1)
	go func() {
		clip, err := synthesize(ctx, index, chunk)
		ch <- result{clip: clip, err: err}
	}()
	return ch
}
