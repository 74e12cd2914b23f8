package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sobelfarm/sobelfarm/pkg/config"
	"github.com/sobelfarm/sobelfarm/pkg/logger"
)

func loopback() config.Transport {
	return config.Transport{
		Address:     "127.0.0.1",
		TasksPath:   "/tasks",
		ResultsPath: "/results",
	}
}

func bind(t *testing.T) *Host {
	t.Helper()
	h, err := Bind(loopback(), logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	h.Run()
	t.Cleanup(func() { _ = h.Shutdown(context.Background()) })
	return h
}

func dial(t *testing.T, h *Host, tag string) *Client {
	t.Helper()
	c, err := Dial(h.TasksURL(), h.ResultsURL(), tag, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Close)
	return c
}

func waitWorkers(t *testing.T, h *Host, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Workers() < n {
		if time.Now().After(deadline) {
			t.Fatalf("only %v workers connected", h.Workers())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// echo sends every task back as a result.
func echo(ctx context.Context, c *Client) {
	for {
		data, err := c.Recv(ctx)
		if err != nil {
			return
		}
		if err = c.Send(ctx, data); err != nil {
			return
		}
	}
}

func TestRoundTrip(t *testing.T) {
	h := bind(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const workers, tasks = 3, 50
	for i := 0; i < workers; i++ {
		go echo(ctx, dial(t, h, fmt.Sprintf("w%d", i)))
	}
	waitWorkers(t, h, workers)

	go func() {
		for i := 0; i < tasks; i++ {
			if err := h.Send(ctx, []byte(fmt.Sprintf("%03d", i))); err != nil {
				t.Errorf("send: %v", err)
				return
			}
		}
	}()

	var got []string
	timeout := time.After(5 * time.Second)
	for len(got) < tasks {
		select {
		case r := <-h.Results():
			got = append(got, string(r))
		case <-timeout:
			t.Fatalf("got %v of %v results", len(got), tasks)
		}
	}
	sort.Strings(got)
	for i, r := range got {
		if r != fmt.Sprintf("%03d", i) {
			t.Fatalf("result %v is %v", i, r)
		}
	}
}

func TestSendBlocksWithoutWorkers(t *testing.T) {
	h := bind(t)
	for i := 0; i < QueueSize; i++ {
		if err := h.Send(context.Background(), []byte{1}); err != nil {
			t.Fatal(err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := h.Send(ctx, []byte{2}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("send should block on a full queue, got %v", err)
	}
}

func TestWorkerSeesHostShutdown(t *testing.T) {
	h := bind(t)
	c := dial(t, h, "w")
	waitWorkers(t, h, 1)

	var wg sync.WaitGroup
	wg.Add(1)
	var err error
	go func() {
		defer wg.Done()
		_, err = c.Recv(context.Background())
	}()
	_ = h.Shutdown(context.Background())
	wg.Wait()
	if !errors.Is(err, io.EOF) {
		t.Errorf("got %v", err)
	}
}

func TestDialFailure(t *testing.T) {
	h := bind(t)
	tasks := h.TasksURL()
	_ = h.Shutdown(context.Background())
	if _, err := Dial(tasks, tasks, "", logger.Nop()); !errors.Is(err, ErrDial) {
		t.Errorf("got %v", err)
	}
}

func TestHello(t *testing.T) {
	in := Hello{Id: "c9b1", Tag: "gpu-box", Role: RoleTasks}
	s, err := toBase64Json(in)
	if err != nil {
		t.Fatal(err)
	}
	var out Hello
	if err = fromBase64Json(s, &out); err != nil || out != in {
		t.Errorf("got %+v, %v", out, err)
	}
}

func TestWrongRole(t *testing.T) {
	h := bind(t)
	tests := []struct {
		name           string
		tasks, results func() url.URL
	}{
		{name: "swapped", tasks: h.ResultsURL, results: h.TasksURL},
		{name: "results at tasks", tasks: h.TasksURL, results: h.TasksURL},
	}
	for _, test := range tests {
		if _, err := Dial(test.tasks(), test.results(), "lost", logger.Nop()); !errors.Is(err, ErrDial) {
			t.Errorf("%v: got %v", test.name, err)
		}
	}
	// the half-connected worker is dropped once its task socket closes
	deadline := time.Now().Add(2 * time.Second)
	for h.Workers() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("%v refused workers were kept", h.Workers())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHelloCheck(t *testing.T) {
	tests := []struct {
		role string
		at   string
		err  bool
	}{
		{role: RoleTasks, at: RoleTasks},
		{role: RoleResults, at: RoleResults},
		{role: RoleResults, at: RoleTasks, err: true},
		{role: "", at: RoleResults, err: true},
	}
	for _, test := range tests {
		err := Hello{Id: "c9b1", Role: test.role}.check(test.at)
		if test.err != errors.Is(err, ErrRole) {
			t.Errorf("%q at %v: got %v", test.role, test.at, err)
		}
	}
}
