package progress

import "testing"

func TestEmitDeliversToConsumer(t *testing.T) {
	b := NewBus()
	b.Emit("render", 1, 10)
	b.Emit("render", 2, 10)

	ev := <-b.Events()
	if ev.Stage != "render" || ev.Done != 1 || ev.Total != 10 {
		t.Fatalf("first event = %+v, want stage=render done=1 total=10", ev)
	}
}

func TestEmitNeverBlocksWhenBufferFull(t *testing.T) {
	b := NewBus()
	for i := 0; i < defaultBufferSize+10; i++ {
		b.Emit("stage", uint64(i), 1000) // must never block, even unconsumed
	}
}

func TestNilBusIsSafe(t *testing.T) {
	var b *Bus
	b.Emit("stage", 1, 1) // must not panic
	b.Done()
	b.Error("boom")
	if b.Events() != nil {
		t.Fatal("Events() on a nil Bus should return nil")
	}
}

func TestDoneClosesChannel(t *testing.T) {
	b := NewBus()
	b.Done()
	_, ok := <-b.Events()
	if ok {
		// First receive may be the Done event itself; drain until closed.
		_, ok = <-b.Events()
	}
	if ok {
		t.Fatal("channel should be closed after Done()")
	}
}

func TestErrorEventCarriesMessage(t *testing.T) {
	b := NewBus()
	b.Error("fec unrecoverable")
	ev := <-b.Events()
	if ev.Stage != "error" || ev.Err != "fec unrecoverable" {
		t.Fatalf("Error event = %+v, want stage=error err=%q", ev, "fec unrecoverable")
	}
}
