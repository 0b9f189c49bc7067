package session

import (
	"context"
	"errors"
	"testing"

	"github.com/shillcollin/skymsg/core"
)

type fakeResubscriber struct {
	calls int
	err   error
}

func (f *fakeResubscriber) Resubscribe(ctx context.Context) error {
	f.calls++
	return f.err
}

// scriptedOp returns the queued errors in order, nil once exhausted.
func scriptedOp(errs ...error) (func(context.Context) error, *int) {
	calls := new(int)
	return func(ctx context.Context) error {
		*calls++
		if len(errs) == 0 {
			return nil
		}
		err := errs[0]
		errs = errs[1:]
		return err
	}, calls
}

func TestResilientRecoversOnTriggerStatus(t *testing.T) {
	sub := &fakeResubscriber{}
	r := NewResilient(sub)
	op, calls := scriptedOp(core.NewAPIError(401, "GET", "u", ""))

	if err := r.Do(context.Background(), op); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if sub.calls != 1 {
		t.Fatalf("resubscribe cycles = %d, want 1", sub.calls)
	}
	if *calls != 2 {
		t.Fatalf("operation ran %d times, want 2", *calls)
	}
}

func TestResilientRecoversOnTransportError(t *testing.T) {
	sub := &fakeResubscriber{}
	r := NewResilient(sub)
	op, calls := scriptedOp(core.NewTransportError(errors.New("reset")))

	if err := r.Do(context.Background(), op); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if sub.calls != 1 || *calls != 2 {
		t.Fatalf("cycles = %d, runs = %d", sub.calls, *calls)
	}
}

func TestResilientSecondFailurePropagates(t *testing.T) {
	sub := &fakeResubscriber{}
	r := NewResilient(sub)
	second := core.NewAPIError(401, "GET", "u", "")
	op, calls := scriptedOp(core.NewAPIError(401, "GET", "u", ""), second)

	err := r.Do(context.Background(), op)
	if !errors.Is(err, second) {
		t.Fatalf("expected the second failure unmodified, got %v", err)
	}
	if sub.calls != 1 {
		t.Fatalf("resubscribe cycles = %d, want exactly 1", sub.calls)
	}
	if *calls != 2 {
		t.Fatalf("operation ran %d times, want 2", *calls)
	}
}

func TestResilientNonTriggerPropagatesImmediately(t *testing.T) {
	sub := &fakeResubscriber{}
	r := NewResilient(sub)
	failure := core.NewAPIError(500, "GET", "u", "")
	op, calls := scriptedOp(failure)

	err := r.Do(context.Background(), op)
	if !errors.Is(err, failure) {
		t.Fatalf("expected immediate propagation, got %v", err)
	}
	if sub.calls != 0 || *calls != 1 {
		t.Fatalf("cycles = %d, runs = %d", sub.calls, *calls)
	}
}

func TestResilientPlainErrorsDoNotTrigger(t *testing.T) {
	sub := &fakeResubscriber{}
	r := NewResilient(sub)
	failure := errors.New("decode failed")
	op, _ := scriptedOp(failure)

	if err := r.Do(context.Background(), op); !errors.Is(err, failure) {
		t.Fatalf("expected propagation, got %v", err)
	}
	if sub.calls != 0 {
		t.Fatalf("plain errors must not resubscribe")
	}
}

func TestResilientResubscribeFailureSurfaces(t *testing.T) {
	subErr := core.NewAPIError(500, "POST", "endpoints", "")
	sub := &fakeResubscriber{err: subErr}
	r := NewResilient(sub)
	op, calls := scriptedOp(core.NewAPIError(401, "GET", "u", ""))

	err := r.Do(context.Background(), op)
	if !errors.Is(err, subErr) {
		t.Fatalf("expected resubscribe failure, got %v", err)
	}
	if *calls != 1 {
		t.Fatalf("operation must not retry after a failed resubscribe, ran %d times", *calls)
	}
}

func TestResilientCustomTriggerSet(t *testing.T) {
	sub := &fakeResubscriber{}
	r := NewResilient(sub, 404)
	op, _ := scriptedOp(core.NewAPIError(401, "GET", "u", ""))

	if err := r.Do(context.Background(), op); err == nil {
		t.Fatalf("401 outside the custom set must propagate")
	}
	if sub.calls != 0 {
		t.Fatalf("custom set ignored")
	}
}
