package async

import (
	"errors"
	"testing"
)

func TestWaitResolved(t *testing.T) {
	l := NewEventLoop()
	v, err := Resolved(7).Wait(l)
	if err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if v != 7 {
		t.Errorf("Wait = %d, want 7", v)
	}
}

func TestWaitRejected(t *testing.T) {
	l := NewEventLoop()
	boom := NewException(ExceptionFailed, "boom")
	_, err := Rejected[int](boom).Wait(l)
	if !errors.Is(err, boom) {
		t.Errorf("Wait error = %v, want %v", err, boom)
	}
}

func TestThenTransformsValue(t *testing.T) {
	// loop.wait(resolved(7).then(|x| x*2)) == 14
	l := NewEventLoop()
	p := Then(Resolved(7), func(x int) (int, error) { return x * 2, nil })
	v, err := p.Wait(l)
	if err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if v != 14 {
		t.Errorf("Wait = %d, want 14", v)
	}
}

func TestThenPropagatesException(t *testing.T) {
	l := NewEventLoop()
	boom := NewException(ExceptionDisconnected, "gone")
	called := false
	p := Then(Rejected[int](boom), func(x int) (int, error) {
		called = true
		return x, nil
	})
	_, err := p.Wait(l)
	if !errors.Is(err, boom) {
		t.Errorf("Wait error = %v, want %v", err, boom)
	}
	if called {
		t.Error("success continuation ran on a broken promise")
	}
}

func TestCatchRecovers(t *testing.T) {
	// wait(rejected(E).then(ok, |e| 0)) == 0
	l := NewEventLoop()
	p := ThenCatch(Rejected[int](NewException(ExceptionFailed, "nope")),
		func(x int) (int, error) { return x, nil },
		func(error) (int, error) { return 0, nil })
	v, err := p.Wait(l)
	if err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if v != 0 {
		t.Errorf("Wait = %d, want 0", v)
	}
}

func TestThenCallbackErrorBecomesException(t *testing.T) {
	l := NewEventLoop()
	boom := errors.New("from callback")
	p := Then(Resolved(1), func(int) (int, error) { return 0, boom })
	_, err := p.Wait(l)
	if !errors.Is(err, boom) {
		t.Errorf("Wait error = %v, want %v", err, boom)
	}
}

func TestThenCallbackPanicBecomesException(t *testing.T) {
	l := NewEventLoop()
	p := Then(Resolved(1), func(int) (int, error) { panic("kaboom") })
	_, err := p.Wait(l)
	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("Wait error = %v, want PanicError", err)
	}
	if pe.Value != "kaboom" {
		t.Errorf("panic value = %v, want kaboom", pe.Value)
	}
}

func TestThenChains(t *testing.T) {
	l := NewEventLoop()
	p := Then(Then(Resolved(1),
		func(x int) (int, error) { return x + 1, nil }),
		func(x int) (int, error) { return x + 1, nil })
	v, err := p.Wait(l)
	if err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if v != 3 {
		t.Errorf("Wait = %d, want 3", v)
	}
}

func TestConsumedPromisePanics(t *testing.T) {
	l := NewEventLoop()
	p := Resolved(1)
	if _, err := p.Wait(l); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Error("second Wait did not panic")
		}
	}()
	_, _ = p.Wait(l)
}

func TestPollThenWait(t *testing.T) {
	l := NewEventLoop()
	p, f := NewPromiseAndFulfiller[int]()

	if p.Poll(l) {
		t.Fatal("Poll reported ready before fulfillment")
	}

	f.Fulfill(42)

	if !p.Poll(l) {
		t.Fatal("Poll did not report ready after fulfillment")
	}
	v, err := p.Wait(l)
	if err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if v != 42 {
		t.Errorf("Wait = %d, want 42", v)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	p := Resolved(1)
	p.Release()
	p.Release()
}

func TestIsSafeEventLoop(t *testing.T) {
	l1 := NewEventLoop()
	l2 := NewEventLoop()

	p := Resolved(1)
	if !p.IsSafeEventLoop(l1) || !p.IsSafeEventLoop(l2) {
		t.Error("immediate promise should be safe on any loop")
	}
	p.Release()

	q := EvalLater(l1, func() (int, error) { return 1, nil })
	if !q.IsSafeEventLoop(l1) || !q.IsSafeEventLoop(l2) {
		t.Error("cross-thread promise should be safe on any loop")
	}
	if _, err := q.Wait(l1); err != nil {
		t.Errorf("Wait returned error: %v", err)
	}
	_ = l2
}
