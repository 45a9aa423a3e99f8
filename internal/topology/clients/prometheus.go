package clients

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/guonaihong/gout"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/spf13/cast"
	"github.com/talkincode/topolive/config"
	"github.com/talkincode/topolive/internal/domain"
	"github.com/talkincode/topolive/pkg/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var metricsQueries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "topolive",
	Name:      "metrics_queries_total",
	Help:      "Instant queries issued to the metrics backend, by result.",
}, []string{"result"})

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// queryResponse is the part of the Prometheus instant query envelope we read
type queryResponse struct {
	Status string `json:"status"`
	Data   struct {
		ResultType string `json:"resultType"`
		Result     []struct {
			Metric map[string]string `json:"metric"`
			Value  []interface{}     `json:"value"`
		} `json:"result"`
	} `json:"data"`
	Error string `json:"error"`
}

// PrometheusClient implements MetricsClient against the Prometheus HTTP API
type PrometheusClient struct {
	baseURL        string
	timeout        time.Duration
	window         string
	inMetric       string
	outMetric      string
	interfaceLabel string
	httpClient     *http.Client
	now            func() time.Time
}

// NewPrometheusClient creates a client for the given backend settings.
// Zero values fall back to the package defaults of the config module.
func NewPrometheusClient(cfg config.PrometheusConfig) *PrometheusClient {
	c := &PrometheusClient{
		baseURL:        strings.TrimRight(cfg.URL, "/"),
		timeout:        cfg.Timeout,
		window:         cfg.Window,
		inMetric:       cfg.InMetric,
		outMetric:      cfg.OutMetric,
		interfaceLabel: cfg.InterfaceLabel,
		now:            time.Now,
	}
	if c.timeout <= 0 {
		c.timeout = config.DefaultQueryTimeout
	}
	if c.window == "" {
		c.window = config.DefaultRateWindow
	}
	if c.inMetric == "" {
		c.inMetric = config.DefaultInMetric
	}
	if c.outMetric == "" {
		c.outMetric = config.DefaultOutMetric
	}
	if c.interfaceLabel == "" {
		c.interfaceLabel = config.DefaultInterfaceLabel
	}
	c.httpClient = &http.Client{Timeout: c.timeout}
	return c
}

// FetchBandwidth queries inbound and outbound rates concurrently.
// Any failure degrades that direction to 0 and is only logged.
func (c *PrometheusClient) FetchBandwidth(ctx context.Context, instance, iface string) domain.BandwidthSample {
	var inbound, outbound float64
	var g errgroup.Group
	g.Go(func() error {
		inbound = c.query(ctx, c.RateQuery(c.inMetric, instance, iface))
		return nil
	})
	g.Go(func() error {
		outbound = c.query(ctx, c.RateQuery(c.outMetric, instance, iface))
		return nil
	})
	_ = g.Wait()

	ts := c.now()
	return domain.BandwidthSample{
		Inbound:   round2(inbound),
		Outbound:  round2(outbound),
		Timestamp: &ts,
	}
}

// RateQuery builds the PromQL expression converting a byte counter to Mbps
func (c *PrometheusClient) RateQuery(metric, instance, iface string) string {
	return fmt.Sprintf(`sum(rate(%s{instance="%s", %s="%s"}[%s]) * 8) / 1000000`,
		metric, labelEscaper.Replace(instance), c.interfaceLabel, labelEscaper.Replace(iface), c.window)
}

func (c *PrometheusClient) query(ctx context.Context, q string) float64 {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var rsp queryResponse
	var code int
	err := gout.New(c.httpClient).
		GET(c.baseURL + "/api/v1/query").
		WithContext(ctx).
		SetQuery(gout.H{"query": q}).
		BindJSON(&rsp).
		Code(&code).
		Do()
	if err != nil {
		c.degrade(q, "transport", err)
		return 0
	}
	if code < 200 || code > 299 {
		c.degrade(q, "status", fmt.Errorf("unexpected http status %d", code))
		return 0
	}

	value, err := extractValue(&rsp)
	if err != nil {
		c.degrade(q, "no_data", err)
		return 0
	}
	metricsQueries.WithLabelValues("ok").Inc()
	return value
}

func (c *PrometheusClient) degrade(q, result string, err error) {
	metricsQueries.WithLabelValues(result).Inc()
	zap.L().Warn("prometheus query degraded to zero",
		zap.String("namespace", "topology"),
		zap.String("url", c.baseURL),
		zap.String("query", q),
		zap.Error(err),
	)
}

// extractValue reads data.result[0].value[1] as a finite number
func extractValue(rsp *queryResponse) (float64, error) {
	if rsp.Status != "" && rsp.Status != "success" {
		return 0, fmt.Errorf("query status %s: %s", rsp.Status, rsp.Error)
	}
	if len(rsp.Data.Result) == 0 {
		return 0, fmt.Errorf("empty result")
	}
	pair := rsp.Data.Result[0].Value
	if len(pair) < 2 {
		return 0, fmt.Errorf("malformed sample value")
	}
	v, err := cast.ToFloat64E(pair[1])
	if err != nil {
		return 0, fmt.Errorf("non numeric sample value: %w", err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non finite sample value %v", v)
	}
	return v, nil
}

func round2(v float64) float64 {
	return common.RoundFloat(v, 2)
}
