package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	MustRegister(reg)

	IncSnippet("generated")
	ObserveConvertDuration(1500*time.Microsecond, "generated")
	IncAPIRequest("Convert", "OK")
	IncSandboxRun("ok")

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	for _, want := range []string{
		`extgen_snippets_total{status="generated"}`,
		`extgen_convert_duration_ms_count{status="generated"}`,
		`extgen_api_requests_total{code="OK",method="Convert"}`,
		`extgen_sandbox_runs_total{outcome="ok"}`,
	} {
		assert.Contains(t, string(body), want)
	}
}

func TestMustRegisterTwicePanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	MustRegister(reg)
	assert.Panics(t, func() { MustRegister(reg) })
}
