package session

import (
	"context"
	"errors"
	"testing"

	model "github.com/mlavrik/voiceloop/internal/model/session"
)

func TestServiceCreateAndGet(t *testing.T) {
	svc := NewService()
	ctx := context.Background()

	sess, err := svc.Create(ctx, "default")
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("expected a generated session id")
	}
	if sess.ProfileID != "default" {
		t.Fatalf("unexpected profile id: %s", sess.ProfileID)
	}

	got, err := svc.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if got.ID != sess.ID {
		t.Fatalf("Get returned wrong session: %s", got.ID)
	}

	state, err := svc.GetState(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetState err: %v", err)
	}
	if state.Status != model.StatusIdle {
		t.Fatalf("new session should be idle, got %s", state.Status)
	}
}

func TestServiceGetUnknownSession(t *testing.T) {
	svc := NewService()
	ctx := context.Background()

	if _, err := svc.Get(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.GetState(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := svc.StartProcessing("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestServiceRoundLifecycle(t *testing.T) {
	svc := NewService()
	ctx := context.Background()

	sess, err := svc.Create(ctx, "default")
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}

	if err := svc.StartRecording(sess.ID); err != nil {
		t.Fatalf("StartRecording err: %v", err)
	}
	if err := svc.StartProcessing(sess.ID); err != nil {
		t.Fatalf("StartProcessing err: %v", err)
	}

	// A second round cannot begin while the first is in flight.
	if err := svc.StartProcessing(sess.ID); !errors.Is(err, ErrRoundInProgress) {
		t.Fatalf("expected ErrRoundInProgress, got %v", err)
	}
	if err := svc.StartRecording(sess.ID); !errors.Is(err, ErrRoundInProgress) {
		t.Fatalf("expected ErrRoundInProgress, got %v", err)
	}

	turn := model.Turn{
		ID:         "turn-1",
		SessionID:  sess.ID,
		Transcript: "hello",
		Reply:      "hi there",
		AudioURL:   "/api/audio/abc",
	}
	if err := svc.CompleteTurn(sess.ID, turn); err != nil {
		t.Fatalf("CompleteTurn err: %v", err)
	}

	state, err := svc.GetState(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetState err: %v", err)
	}
	if state.Status != model.StatusReady {
		t.Fatalf("expected ready, got %s", state.Status)
	}
	if state.Transcript != "hello" || state.Reply != "hi there" || state.AudioURL != "/api/audio/abc" {
		t.Fatalf("state missing round fields: %+v", state)
	}
	if state.TurnID != "turn-1" {
		t.Fatalf("unexpected turn id: %s", state.TurnID)
	}

	// Ready sessions can start the next round immediately.
	if err := svc.StartProcessing(sess.ID); err != nil {
		t.Fatalf("next round should be allowed: %v", err)
	}
}

func TestServiceFailTurnKeepsTranscript(t *testing.T) {
	svc := NewService()
	ctx := context.Background()

	sess, _ := svc.Create(ctx, "default")
	if err := svc.StartProcessing(sess.ID); err != nil {
		t.Fatalf("StartProcessing err: %v", err)
	}

	if err := svc.FailTurn(sess.ID, "heard this much", "chat failed"); err != nil {
		t.Fatalf("FailTurn err: %v", err)
	}

	state, _ := svc.GetState(ctx, sess.ID)
	if state.Status != model.StatusError {
		t.Fatalf("expected error state, got %s", state.Status)
	}
	if state.Transcript != "heard this much" {
		t.Fatalf("transcript should survive a failure: %+v", state)
	}
	if state.Error != "chat failed" {
		t.Fatalf("unexpected error message: %q", state.Error)
	}
	if state.Reply != "" || state.AudioURL != "" {
		t.Fatalf("failed round should carry no reply: %+v", state)
	}
}

func TestServiceCancelRecording(t *testing.T) {
	svc := NewService()
	ctx := context.Background()

	sess, _ := svc.Create(ctx, "default")

	if err := svc.CancelRecording(sess.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("cancel from idle should fail, got %v", err)
	}

	if err := svc.StartRecording(sess.ID); err != nil {
		t.Fatalf("StartRecording err: %v", err)
	}
	if err := svc.CancelRecording(sess.ID); err != nil {
		t.Fatalf("CancelRecording err: %v", err)
	}

	state, _ := svc.GetState(ctx, sess.ID)
	if state.Status != model.StatusIdle {
		t.Fatalf("expected idle after cancel, got %s", state.Status)
	}
}

func TestServiceSubscribeReceivesSnapshots(t *testing.T) {
	svc := NewService()
	ctx := context.Background()

	sess, _ := svc.Create(ctx, "default")

	ch, cancel, err := svc.Subscribe(sess.ID)
	if err != nil {
		t.Fatalf("Subscribe err: %v", err)
	}
	defer cancel()

	if err := svc.StartRecording(sess.ID); err != nil {
		t.Fatalf("StartRecording err: %v", err)
	}
	if err := svc.StartProcessing(sess.ID); err != nil {
		t.Fatalf("StartProcessing err: %v", err)
	}

	first := <-ch
	if first.Status != model.StatusRecording {
		t.Fatalf("expected recording snapshot first, got %s", first.Status)
	}
	second := <-ch
	if second.Status != model.StatusProcessing {
		t.Fatalf("expected processing snapshot second, got %s", second.Status)
	}
}

func TestServiceSubscribeUnknownSession(t *testing.T) {
	svc := NewService()
	if _, _, err := svc.Subscribe("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestServiceSubscribeCancelIdempotent(t *testing.T) {
	svc := NewService()
	ctx := context.Background()

	sess, _ := svc.Create(ctx, "default")
	_, cancel, err := svc.Subscribe(sess.ID)
	if err != nil {
		t.Fatalf("Subscribe err: %v", err)
	}

	cancel()
	cancel() // second call must not panic on a closed channel

	if err := svc.StartRecording(sess.ID); err != nil {
		t.Fatalf("state change after cancel should still work: %v", err)
	}
}
