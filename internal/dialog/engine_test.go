package dialog

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/Spok95/telegram-classroom-bot/internal/session"
)

func newTestEngine() (*Engine, *session.Store) {
	sessions := session.New()
	return NewEngine(sessions, zap.NewNop().Sugar()), sessions
}

const (
	stA State = iota + 1
	stB
)

// testFlow: entry -> stA, keyword "next" -> stB, keyword "done" -> End.
func testFlow(name string, reentry bool) *Flow {
	return &Flow{
		Name:         name,
		AllowReentry: reentry,
		Entry: func(_ context.Context, _ Event) (State, error) {
			return stA, nil
		},
		States: map[State][]Rule{
			stA: {
				{When: OnKeyword("next"), Do: func(_ context.Context, _ Event) (State, error) { return stB, nil }},
			},
			stB: {
				{When: OnKeyword("done"), Do: func(_ context.Context, _ Event) (State, error) { return End, nil }},
			},
		},
	}
}

func ev(chatID int64, data string) Event {
	return Event{ChatID: chatID, Cmd: ParseCallback(data)}
}

func TestEngineLifecycle(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()
	f := testFlow("test", false)

	if err := e.Start(ctx, f, ev(1, "go")); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := e.ActiveFlow(1); got != "test" {
		t.Fatalf("активный сценарий %q", got)
	}

	claimed, err := e.Dispatch(ctx, ev(1, "next"))
	if !claimed || err != nil {
		t.Fatalf("Dispatch next: claimed=%v err=%v", claimed, err)
	}

	claimed, err = e.Dispatch(ctx, ev(1, "done"))
	if !claimed || err != nil {
		t.Fatalf("Dispatch done: claimed=%v err=%v", claimed, err)
	}
	if got := e.ActiveFlow(1); got != "" {
		t.Fatalf("после End сценарий должен сняться, остался %q", got)
	}
}

func TestEngineUnclaimedWithoutFlow(t *testing.T) {
	e, _ := newTestEngine()
	claimed, err := e.Dispatch(context.Background(), ev(1, "next"))
	if claimed || err != nil {
		t.Fatalf("без сценария событие не востребовано: claimed=%v err=%v", claimed, err)
	}
}

func TestEngineSilentIgnore(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()
	if err := e.Start(ctx, testFlow("test", false), ev(1, "go")); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// "done" не подходит состоянию stA и fallback-ов нет.
	claimed, err := e.Dispatch(ctx, ev(1, "done"))
	if !claimed || err != nil {
		t.Fatalf("неподошедшее событие: claimed=%v err=%v", claimed, err)
	}
	if got := e.ActiveFlow(1); got != "test" {
		t.Fatalf("состояние не должно меняться, активный %q", got)
	}
}

func TestEngineReentryPolicy(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()

	strict := testFlow("strict", false)
	if err := e.Start(ctx, strict, ev(1, "go")); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := e.Start(ctx, strict, ev(1, "go")); !errors.Is(err, ErrFlowActive) {
		t.Fatalf("повторный Start без AllowReentry: %v", err)
	}
	other := testFlow("other", true)
	if err := e.Start(ctx, other, ev(1, "go")); !errors.Is(err, ErrFlowActive) {
		t.Fatalf("чужой сценарий поверх активного: %v", err)
	}

	relaxed := testFlow("relaxed", true)
	if err := e.Start(ctx, relaxed, ev(2, "go")); err != nil {
		t.Fatalf("Start relaxed: %v", err)
	}
	if err := e.Start(ctx, relaxed, ev(2, "go")); err != nil {
		t.Fatalf("рестарт с AllowReentry: %v", err)
	}
}

func TestEngineEndClearsScratch(t *testing.T) {
	e, sessions := newTestEngine()
	ctx := context.Background()
	f := testFlow("test", false)

	if err := e.Start(ctx, f, ev(1, "go")); err != nil {
		t.Fatalf("Start: %v", err)
	}
	sessions.Get(1).SetScratch("test", "draft")

	if _, err := e.Dispatch(ctx, ev(1, "next")); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Dispatch(ctx, ev(1, "done")); err != nil {
		t.Fatal(err)
	}
	if _, ok := sessions.Get(1).Scratch("test"); ok {
		t.Fatal("черновик должен очищаться на End")
	}
}

func TestEngineHandlerErrorKeepsState(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()
	boom := errors.New("boom")
	f := &Flow{
		Name:  "err",
		Entry: func(_ context.Context, _ Event) (State, error) { return stA, nil },
		States: map[State][]Rule{
			stA: {
				{When: OnKeyword("next"), Do: func(_ context.Context, _ Event) (State, error) { return End, boom }},
			},
		},
	}
	if err := e.Start(ctx, f, ev(1, "go")); err != nil {
		t.Fatalf("Start: %v", err)
	}
	claimed, err := e.Dispatch(ctx, ev(1, "next"))
	if !claimed || !errors.Is(err, boom) {
		t.Fatalf("claimed=%v err=%v", claimed, err)
	}
	if got := e.ActiveFlow(1); got != "err" {
		t.Fatalf("ошибка обработчика не должна двигать состояние, активный %q", got)
	}
}

func TestEngineFallback(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()
	f := testFlow("test", false)
	f.Fallback = []Rule{
		{When: OnKeyword("cancel"), Do: func(_ context.Context, _ Event) (State, error) { return End, nil }},
	}
	if err := e.Start(ctx, f, ev(1, "go")); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := e.Dispatch(ctx, ev(1, "cancel")); err != nil {
		t.Fatal(err)
	}
	if got := e.ActiveFlow(1); got != "" {
		t.Fatalf("fallback-отмена должна завершать сценарий, активный %q", got)
	}
}

func TestEngineAbort(t *testing.T) {
	e, sessions := newTestEngine()
	ctx := context.Background()
	if err := e.Start(ctx, testFlow("test", false), ev(1, "go")); err != nil {
		t.Fatalf("Start: %v", err)
	}
	sessions.Get(1).SetScratch("test", "draft")

	e.Abort(1)
	if got := e.ActiveFlow(1); got != "" {
		t.Fatalf("после Abort активный %q", got)
	}
	if _, ok := sessions.Get(1).Scratch("test"); ok {
		t.Fatal("Abort должен чистить черновик")
	}
}
