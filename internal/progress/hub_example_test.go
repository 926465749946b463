package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ExampleHub_Emit counts fetch completions through a custom sink.
func ExampleHub_Emit() {
	var done int
	sink := sinkFunc(func(_ context.Context, batch []Event) error {
		for _, evt := range batch {
			if evt.Stage == StageFetchDone {
				done++
			}
		}
		return nil
	})
	hub := NewHub(Config{MaxBatchEvents: 1, MaxBatchWait: time.Second}, sink)

	runID := [16]byte(uuid.MustParse("00000000-0000-0000-0000-000000000001"))
	hub.Emit(Event{
		RunID:       runID,
		TS:          time.Unix(0, 0),
		Stage:       StageFetchDone,
		URL:         "https://example.com",
		StatusClass: Status2xx,
		Label:       "Example Domain",
	})
	if err := hub.Close(context.Background()); err != nil {
		panic(err)
	}

	fmt.Printf("fetches completed: %d\n", done)
	// Output:
	// fetches completed: 1
}

type sinkFunc func(context.Context, []Event) error

func (f sinkFunc) Consume(ctx context.Context, batch []Event) error {
	return f(ctx, batch)
}

func (sinkFunc) Close(context.Context) error {
	return nil
}
