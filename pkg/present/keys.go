package present

import (
	"time"

	oss "github.com/sobelfarm/sobelfarm/pkg/os"
)

type Key int

const KeyEsc Key = 27

// Keys is a queue of pressed keys.
type Keys struct {
	ch chan Key
}

func NewKeys() *Keys { return &Keys{ch: make(chan Key, 8)} }

// SignalKeys turns SIGINT and SIGTERM into an Esc press.
func SignalKeys() *Keys {
	k := NewKeys()
	done := oss.ExpectTermination()
	go func() {
		<-done
		k.Press(KeyEsc)
	}()
	return k
}

// Press adds a key, it is dropped if the queue is full.
func (k *Keys) Press(key Key) {
	select {
	case k.ch <- key:
	default:
	}
}

func (k *Keys) PollExitKey(timeout time.Duration) (Key, bool) {
	if timeout <= 0 {
		select {
		case key := <-k.ch:
			return key, true
		default:
			return 0, false
		}
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case key := <-k.ch:
		return key, true
	case <-t.C:
		return 0, false
	}
}
