package strategy

import (
	"context"
	"sync"
	"testing"
)

type fakeAdapter struct {
	name  string
	calls int
	busy  bool
	mu    sync.Mutex
	t     *testing.T
}

func (f *fakeAdapter) Name() string         { return f.name }
func (f *fakeAdapter) RiskScore() float64   { return 0.5 }
func (f *fakeAdapter) FallbackAPY() float64 { return 5.0 }

func (f *fakeAdapter) CurrentAPY(_ context.Context) (float64, bool) {
	f.enter()
	defer f.leave()
	return 5.0, false
}

func (f *fakeAdapter) Deposit(_ context.Context, _ float64) Result {
	f.enter()
	defer f.leave()
	return success("ref")
}

func (f *fakeAdapter) Withdraw(_ context.Context, _ float64) Result {
	f.enter()
	defer f.leave()
	return success("ref")
}

func (f *fakeAdapter) enter() {
	f.mu.Lock()
	if f.busy {
		f.t.Error("overlapping call detected on one adapter")
	}
	f.busy = true
	f.calls++
	f.mu.Unlock()
}

func (f *fakeAdapter) leave() {
	f.mu.Lock()
	f.busy = false
	f.mu.Unlock()
}

func TestRegistry_DuplicateNameRejected(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(&fakeAdapter{name: "x", t: t}); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if err := reg.Register(&fakeAdapter{name: "x", t: t}); err == nil {
		t.Fatal("expected error for duplicate name")
	}
}

func TestRegistry_PreservesRegistrationOrder(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"c", "a", "b"} {
		if err := reg.Register(&fakeAdapter{name: name, t: t}); err != nil {
			t.Fatal(err)
		}
	}
	names := reg.Names()
	if names[0] != "c" || names[1] != "a" || names[2] != "b" {
		t.Errorf("order = %v, want [c a b]", names)
	}
	all := reg.All()
	for i, a := range all {
		if a.Name() != names[i] {
			t.Errorf("All()[%d] = %s, want %s", i, a.Name(), names[i])
		}
	}
}

func TestRegistry_SerializesCallsPerAdapter(t *testing.T) {
	reg := NewRegistry()
	fake := &fakeAdapter{name: "x", t: t}
	if err := reg.Register(fake); err != nil {
		t.Fatal(err)
	}
	adapter, _ := reg.Get("x")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			adapter.Deposit(context.Background(), 1)
			adapter.CurrentAPY(context.Background())
			adapter.Withdraw(context.Background(), 1)
		}()
	}
	wg.Wait()

	if fake.calls != 150 {
		t.Errorf("calls = %d, want 150", fake.calls)
	}
}

func TestAdapter_PositionBookkeeping(t *testing.T) {
	a := NewLoopingAdapter(nil)
	ctx := context.Background()

	if res := a.Deposit(ctx, 1000); !res.OK {
		t.Fatalf("deposit failed: %v", res.Err)
	}
	if res := a.Withdraw(ctx, 400); !res.OK {
		t.Fatalf("withdraw failed: %v", res.Err)
	}
	if res := a.Withdraw(ctx, 700); res.OK {
		t.Error("withdraw beyond position must fail")
	}
	if res := a.Withdraw(ctx, 600); !res.OK {
		t.Fatalf("withdraw of remaining position failed: %v", res.Err)
	}
}

func TestAdapter_RejectsNonPositiveAmounts(t *testing.T) {
	a := NewStakingAdapter(nil)
	ctx := context.Background()

	if res := a.Deposit(ctx, 0); res.OK {
		t.Error("zero deposit must fail")
	}
	if res := a.Deposit(ctx, -5); res.OK {
		t.Error("negative deposit must fail")
	}
	if res := a.Withdraw(ctx, -5); res.OK {
		t.Error("negative withdraw must fail")
	}
}

func TestAdapter_CancelledContextAborts(t *testing.T) {
	a := NewCompoundVaultAdapter(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if res := a.Deposit(ctx, 100); res.OK {
		t.Error("deposit with cancelled context must fail")
	}
	if res := a.Withdraw(ctx, 100); res.OK {
		t.Error("withdraw with cancelled context must fail")
	}
}

func TestAdapter_ReferencesAreUnique(t *testing.T) {
	a := NewLoopingAdapter(nil)
	ctx := context.Background()
	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		res := a.Deposit(ctx, 1)
		if res.Reference == "" {
			t.Fatal("expected transaction reference on success")
		}
		if seen[res.Reference] {
			t.Fatalf("duplicate reference %s", res.Reference)
		}
		seen[res.Reference] = true
	}
}
