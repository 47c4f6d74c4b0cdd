package fetch

import (
	"context"
	"errors"
	"testing"
)

func TestState(t *testing.T) {
	t.Run("Pending", func(t *testing.T) {
		s := Pending[[]string]()
		if !s.Pending() || s.Succeeded() || s.Failed() {
			t.Errorf("unexpected phase %v", s.Phase())
		}
		if _, ok := s.Data(); ok || s.Message() != "" {
			t.Error("expected no data and no message")
		}
	})

	t.Run("Succeeded", func(t *testing.T) {
		s := Succeeded([]string{"a"})
		data, ok := s.Data()
		if !ok || len(data) != 1 || s.Message() != "" {
			t.Errorf("unexpected state %+v", s)
		}
	})

	t.Run("Succeeded With Empty Collection", func(t *testing.T) {
		s := Succeeded([]string{})
		data, ok := s.Data()
		if !ok || len(data) != 0 {
			t.Errorf("expected empty success, got %+v", s)
		}
	})

	t.Run("Failed", func(t *testing.T) {
		s := Failed[int]("Failed to load videos")
		if _, ok := s.Data(); ok {
			t.Error("expected no data")
		}
		if s.Message() != "Failed to load videos" || s.Phase().String() != "error" {
			t.Errorf("unexpected state %+v", s)
		}
	})
}

func TestTracker(t *testing.T) {
	ctx := context.Background()

	t.Run("Resolve", func(t *testing.T) {
		tr := NewTracker[string, string]()
		ticket, _ := tr.Begin(ctx, "a")

		if !tr.Resolve(ticket, "video a") {
			t.Fatal("expected current ticket to apply")
		}
		if data, ok := tr.State().Data(); !ok || data != "video a" {
			t.Errorf("unexpected state %+v", tr.State())
		}
		if tr.Resolve(ticket, "again") || tr.Reject(ticket, "late") {
			t.Error("expected a settled fetch to ignore further results")
		}
	})

	t.Run("Stale Result Is Discarded", func(t *testing.T) {
		tr := NewTracker[string, string]()
		ticketA, ctxA := tr.Begin(ctx, "a")
		ticketB, _ := tr.Begin(ctx, "b")

		if !errors.Is(ctxA.Err(), context.Canceled) {
			t.Error("expected superseded fetch to be cancelled")
		}
		if !tr.Resolve(ticketB, "video b") {
			t.Fatal("expected B to apply")
		}
		if tr.Resolve(ticketA, "video a") {
			t.Error("expected A to be discarded")
		}
		if data, _ := tr.State().Data(); data != "video b" {
			t.Errorf("expected B to win, got %q", data)
		}
	})

	t.Run("Stale Result Arriving First Is Discarded", func(t *testing.T) {
		tr := NewTracker[string, string]()
		ticketA, _ := tr.Begin(ctx, "a")
		ticketB, _ := tr.Begin(ctx, "b")

		if tr.Reject(ticketA, "Failed to load video") {
			t.Error("expected A to be discarded")
		}
		if !tr.State().Pending() {
			t.Errorf("expected B still pending, got %v", tr.State().Phase())
		}
		tr.Resolve(ticketB, "video b")
		if data, _ := tr.State().Data(); data != "video b" {
			t.Errorf("expected B, got %q", data)
		}
	})

	t.Run("Reject", func(t *testing.T) {
		tr := NewTracker[int, []string]()
		ticket, _ := tr.Begin(ctx, 1)

		if !tr.Reject(ticket, "Failed to load videos") {
			t.Fatal("expected reject to apply")
		}
		if !tr.State().Failed() || tr.State().Message() != "Failed to load videos" {
			t.Errorf("unexpected state %+v", tr.State())
		}
	})

	t.Run("Trigger Only On Change", func(t *testing.T) {
		tr := NewTracker[string, string]()

		if _, _, ok := tr.Trigger(ctx, "a"); !ok {
			t.Fatal("expected first trigger to start")
		}
		if _, _, ok := tr.Trigger(ctx, "a"); ok {
			t.Error("expected same key not to refetch")
		}
		if _, _, ok := tr.Trigger(ctx, "b"); !ok || tr.Key() != "b" {
			t.Error("expected changed key to refetch")
		}
	})

	t.Run("Remount Starts Fresh", func(t *testing.T) {
		tr := NewTracker[string, string]()
		first, _ := tr.Begin(ctx, "a")
		tr.Resolve(first, "video a")
		tr.Abandon()

		second, _, ok := tr.Trigger(ctx, "a")
		if !ok {
			t.Fatal("expected remount to trigger again")
		}
		if !tr.State().Pending() {
			t.Error("expected fresh pending state")
		}
		if tr.Resolve(first, "stale") {
			t.Error("expected the old ticket to be discarded")
		}
		if !tr.Resolve(second, "video a") {
			t.Error("expected the new ticket to apply")
		}
	})

	t.Run("Abandon Discards And Cancels", func(t *testing.T) {
		tr := NewTracker[string, string]()
		ticket, fetchCtx := tr.Begin(ctx, "a")
		tr.Abandon()

		if !errors.Is(fetchCtx.Err(), context.Canceled) {
			t.Error("expected in-flight fetch to be cancelled")
		}
		if tr.Resolve(ticket, "late") {
			t.Error("expected result after unmount to be discarded")
		}
		if !tr.State().Pending() {
			t.Error("expected state not to change after abandon")
		}
	})

	t.Run("Success Releases Context", func(t *testing.T) {
		tr := NewTracker[string, string]()
		ticket, fetchCtx := tr.Begin(ctx, "a")
		tr.Resolve(ticket, "done")

		if fetchCtx.Err() == nil {
			t.Error("expected context to be released once settled")
		}
	})
}
