package reactive

import "testing"

func TestSignalBasic(t *testing.T) {
	s := NewSignal(1)
	if s.Value() != 1 {
		t.Errorf("expected initial value 1, got %v", s.Value())
	}

	old := s.Set(2)
	if old != 1 {
		t.Errorf("expected old value 1, got %v", old)
	}
	if s.Value() != 2 {
		t.Errorf("expected value 2, got %v", s.Value())
	}
}

func TestSignalEmitsOnEveryWrite(t *testing.T) {
	s := NewSignal("a")
	var got []any
	s.Subscribe(func(v any) { got = append(got, v) })

	s.Set("a")
	s.Set("b")

	if len(got) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(got))
	}
	if got[0] != "a" || got[1] != "b" {
		t.Errorf("unexpected notifications %v", got)
	}
}

func TestSignalUnsubscribe(t *testing.T) {
	s := NewSignal(0)
	calls := 0
	unsub := s.Subscribe(func(any) { calls++ })

	s.Set(1)
	unsub()
	unsub()
	s.Set(2)

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if s.Listeners() != 0 {
		t.Errorf("expected no listeners, got %d", s.Listeners())
	}
}

func TestSignalUnsubscribeDuringEmit(t *testing.T) {
	s := NewSignal(0)
	var unsubA, unsubB func()
	calls := 0
	unsubA = s.Subscribe(func(any) {
		calls++
		unsubB()
	})
	unsubB = s.Subscribe(func(any) {
		calls++
		unsubA()
	})

	s.Set(1)

	// Whichever listener runs first removes the other.
	if calls != 1 {
		t.Errorf("expected exactly 1 call, got %d", calls)
	}
}

func TestSignalSameFuncSubscribedTwice(t *testing.T) {
	s := NewSignal(0)
	calls := 0
	fn := func(any) { calls++ }
	s.Subscribe(fn)
	s.Subscribe(fn)

	s.Set(1)
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}
