package progress

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/cratedig-go/internal/domain"
)

func snap(id string) domain.ProgressSnapshot {
	return domain.ProgressSnapshot{EntryID: id, State: domain.StateImporting, Timestamp: time.Now()}
}

func drain(s *Subscription) []string {
	var ids []string
	for {
		select {
		case v, ok := <-s.C():
			if !ok {
				return ids
			}
			ids = append(ids, v.EntryID)
		default:
			return ids
		}
	}
}

func TestHub_DeliversToEverySubscriber(t *testing.T) {
	hub := NewHub(8)
	a := hub.Subscribe()
	b := hub.Subscribe()

	hub.Publish(snap("1"), snap("2"))

	assert.Equal(t, []string{"1", "2"}, drain(a))
	assert.Equal(t, []string{"1", "2"}, drain(b))
	assert.Equal(t, 2, hub.Subscribers())
}

func TestHub_DropsOldestWhenFull(t *testing.T) {
	hub := NewHub(3)
	sub := hub.Subscribe()

	for i := 1; i <= 5; i++ {
		hub.Publish(snap(fmt.Sprint(i)))
	}

	assert.Equal(t, []string{"3", "4", "5"}, drain(sub))
	assert.Equal(t, int64(2), sub.Dropped())
}

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	hub := NewHub(1)
	assert.NotPanics(t, func() { hub.Publish(snap("x")) })
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub(1)
	_ = hub.Subscribe() // never read

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.Publish(snap(fmt.Sprint(i)))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestSubscription_Close(t *testing.T) {
	hub := NewHub(4)
	sub := hub.Subscribe()

	sub.Close()
	sub.Close()

	_, ok := <-sub.C()
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Subscribers())
	assert.NotPanics(t, func() { hub.Publish(snap("after")) })
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(4)
	sub := hub.Subscribe()

	hub.Close()
	hub.Publish(snap("ignored"))

	_, ok := <-sub.C()
	assert.False(t, ok)

	late := hub.Subscribe()
	_, ok = <-late.C()
	assert.False(t, ok)
	assert.NotPanics(t, late.Close)
}

func TestHub_ConcurrentPublishAndSubscribe(t *testing.T) {
	hub := NewHub(16)
	var wg sync.WaitGroup

	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				hub.Publish(snap(fmt.Sprintf("%d-%d", p, i)))
			}
		}(p)
	}
	for c := 0; c < 4; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				s := hub.Subscribe()
				drain(s)
				s.Close()
			}
		}()
	}

	wg.Wait()
	require.Equal(t, 0, hub.Subscribers())
}
