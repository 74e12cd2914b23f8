package monitoring

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/sobelfarm/sobelfarm/pkg/config"
	"github.com/sobelfarm/sobelfarm/pkg/logger"
)

func TestEndpoints(t *testing.T) {
	conf := config.Monitoring{Port: 0, URLPrefix: "/test", MetricEnabled: true}
	status := func() any { return map[string]int{"next": 42} }

	m, err := New(conf, "t", status, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	m.Run()
	defer func() { _ = m.Shutdown(context.Background()) }()

	Dispatched.Inc()

	base := fmt.Sprintf("http://127.0.0.1:%d/test", m.Port())
	resp, err := http.Get(base + "/status")
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]int
	err = json.NewDecoder(resp.Body).Decode(&got)
	_ = resp.Body.Close()
	if err != nil || got["next"] != 42 {
		t.Errorf("status = %v, %v", got, err)
	}

	resp, err = http.Get(base + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(string(body), "sobelfarm_host_frames_dispatched_total") {
		t.Errorf("no host metrics in output")
	}
}
