package events

import "testing"

func TestPublishFansOut(t *testing.T) {
	b := NewBus()
	ch1, cancel1 := b.Subscribe()
	ch2, cancel2 := b.Subscribe()
	defer cancel1()
	defer cancel2()

	b.Publish(LibraryChanged, nil)

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.Name != LibraryChanged {
				t.Errorf("subscriber %d got %q", i, ev.Name)
			}
		default:
			t.Errorf("subscriber %d got nothing", i)
		}
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewBus()
	ch, cancel := b.Subscribe()
	defer cancel()

	// Overflow the buffer; Publish must never block.
	for i := 0; i < 200; i++ {
		b.Publish(ScanProgress, i)
	}

	if len(ch) != cap(ch) {
		t.Fatalf("buffer holds %d of %d; drops expected beyond capacity", len(ch), cap(ch))
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBus()
	ch, cancel := b.Subscribe()

	cancel()
	if _, open := <-ch; open {
		t.Fatal("channel still open after unsubscribe")
	}
	if b.SubscriberCount() != 0 {
		t.Fatalf("subscriber count = %d after unsubscribe", b.SubscriberCount())
	}

	// Double cancel is safe.
	cancel()

	// Publishing with no subscribers is a no-op.
	b.Publish(ThumbReady, nil)
}
