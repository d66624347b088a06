package metrics

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	coremetrics "github.com/kilianp07/bessim/core/metrics"
)

// startInflux starts an InfluxDB 2.7 container in setup mode and returns its
// base URL.
func startInflux(ctx context.Context, t *testing.T) string {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "influxdb:2.7",
		ExposedPorts: []string{"8086/tcp"},
		Env: map[string]string{
			"DOCKER_INFLUXDB_INIT_MODE":        "setup",
			"DOCKER_INFLUXDB_INIT_USERNAME":    "bessim",
			"DOCKER_INFLUXDB_INIT_PASSWORD":    "bessim-password",
			"DOCKER_INFLUXDB_INIT_ORG":         "org",
			"DOCKER_INFLUXDB_INIT_BUCKET":      "bucket",
			"DOCKER_INFLUXDB_INIT_ADMIN_TOKEN": "token",
		},
		WaitingFor: wait.ForHTTP("/health").WithPort("8086/tcp").WithStartupTimeout(60 * time.Second),
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("unable to start influx container: %v", err)
	}
	t.Cleanup(func() { _ = cont.Terminate(context.Background()) })
	host, err := cont.Host(ctx)
	require.NoError(t, err)
	port, err := cont.MappedPort(ctx, "8086")
	require.NoError(t, err)
	return fmt.Sprintf("http://%s:%s", host, port.Port())
}

func TestInfluxIntegration(t *testing.T) {
	if os.Getenv("DOCKER_AVAILABLE") != "true" && os.Getenv("DOCKER_AVAILABLE") != "1" {
		t.Skip("docker not available")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	url := startInflux(ctx, t)

	cfg := InfluxConfig{URL: url, Token: "token", Org: "org", Bucket: "bucket"}
	sink := NewInfluxSinkWithFallback(cfg)
	require.IsType(t, &InfluxSink{}, sink)
	require.NoError(t, sink.RecordRun(coremetrics.RunEvent{
		RunID: "it-1", Policy: "peak_shaving", PeakBefore: 12, PeakAfter: 9, Time: time.Now(),
	}))

	client := influxdb2.NewClient(url, "token")
	defer client.Close()
	query := `from(bucket:"bucket") |> range(start: -1h) |> filter(fn: (r) => r._measurement == "bess_run" and r._field == "peak_after_kw")`
	var got float64
	require.Eventually(t, func() bool {
		res, err := client.QueryAPI("org").Query(ctx, query)
		if err != nil {
			return false
		}
		defer res.Close()
		for res.Next() {
			if v, ok := res.Record().Value().(float64); ok {
				got = v
				return true
			}
		}
		return false
	}, 10*time.Second, 200*time.Millisecond)
	assert.Equal(t, 9.0, got)
}
