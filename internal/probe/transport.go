package probe

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/doridoridoriand/netmon/internal/httpx"
)

// Request is one outbound probe.
type Request struct {
	Method  string
	URL     string
	Header  http.Header
	Body    []byte
	Timeout time.Duration
}

// Timing splits a request into connection phases.
type Timing struct {
	DNS   time.Duration
	TCP   time.Duration
	TLS   time.Duration
	TTFB  time.Duration
	Total time.Duration
}

// Breakdown renders the fixed DNS|TCP|TLS|TTFB|Total format.
func (t Timing) Breakdown() string {
	return fmt.Sprintf("DNS:%dms|TCP:%dms|TLS:%dms|TTFB:%dms|Total:%dms",
		t.DNS.Milliseconds(), t.TCP.Milliseconds(), t.TLS.Milliseconds(), t.TTFB.Milliseconds(), t.Total.Milliseconds())
}

// Result is what a Transport observed. StatusCode is 0 when no response
// arrived; Err then carries the transport failure.
type Result struct {
	StatusCode int
	Latency    time.Duration
	Timing     Timing
	Err        error
}

// Transport executes probe requests.
type Transport interface {
	Execute(ctx context.Context, req Request) Result
}

// MeasuredTransport records real connection phases with httptrace. Keep-alives
// are disabled so every probe pays (and reports) DNS, TCP and TLS.
type MeasuredTransport struct {
	client *http.Client
	clock  clock.Clock
}

// NewMeasuredTransport returns a Transport with per-phase timing.
func NewMeasuredTransport(userAgent string, clk clock.Clock) *MeasuredTransport {
	return &MeasuredTransport{
		client: httpx.NewClient(httpx.ClientConfig{UserAgent: userAgent, DisableKeepAlives: true}),
		clock:  clk,
	}
}

type phaseRecorder struct {
	mu    sync.Mutex
	clock clock.Clock

	dnsStart, dnsDone       time.Time
	connStart, connDone     time.Time
	tlsStart, tlsDone       time.Time
	wroteRequest, firstByte time.Time
}

func (p *phaseRecorder) mark(target *time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if target.IsZero() {
		*target = p.clock.Now()
	}
}

func (p *phaseRecorder) trace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		DNSStart:             func(httptrace.DNSStartInfo) { p.mark(&p.dnsStart) },
		DNSDone:              func(httptrace.DNSDoneInfo) { p.mark(&p.dnsDone) },
		ConnectStart:         func(string, string) { p.mark(&p.connStart) },
		ConnectDone:          func(string, string, error) { p.mark(&p.connDone) },
		TLSHandshakeStart:    func() { p.mark(&p.tlsStart) },
		TLSHandshakeDone:     func(tls.ConnectionState, error) { p.mark(&p.tlsDone) },
		WroteRequest:         func(httptrace.WroteRequestInfo) { p.mark(&p.wroteRequest) },
		GotFirstResponseByte: func() { p.mark(&p.firstByte) },
	}
}

func span(from, to time.Time) time.Duration {
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return 0
	}
	return to.Sub(from)
}

func (p *phaseRecorder) timing(start time.Time, total time.Duration) Timing {
	p.mu.Lock()
	defer p.mu.Unlock()
	ttfbFrom := p.wroteRequest
	if ttfbFrom.IsZero() {
		ttfbFrom = start
	}
	return Timing{
		DNS:   span(p.dnsStart, p.dnsDone),
		TCP:   span(p.connStart, p.connDone),
		TLS:   span(p.tlsStart, p.tlsDone),
		TTFB:  span(ttfbFrom, p.firstByte),
		Total: total,
	}
}

// Execute implements Transport.
func (t *MeasuredTransport) Execute(ctx context.Context, req Request) Result {
	rec := &phaseRecorder{clock: t.clock}
	ctx = httptrace.WithClientTrace(ctx, rec.trace())
	start := t.clock.Now()
	code, err := do(ctx, t.client, req)
	total := t.clock.Since(start)
	return Result{StatusCode: code, Latency: total, Timing: rec.timing(start, total), Err: err}
}

// Heuristic phase shares of the total when phases are not measured.
const (
	heuristicDNSPercent = 5
	heuristicTCPPercent = 10
	heuristicTLSPercent = 15
)

// HeuristicTransport uses a plain client and estimates phases from the total.
type HeuristicTransport struct {
	client *http.Client
	clock  clock.Clock
}

// NewHeuristicTransport returns a Transport without connection tracing.
func NewHeuristicTransport(userAgent string, clk clock.Clock) *HeuristicTransport {
	return &HeuristicTransport{
		client: httpx.NewClient(httpx.ClientConfig{UserAgent: userAgent}),
		clock:  clk,
	}
}

// Execute implements Transport.
func (t *HeuristicTransport) Execute(ctx context.Context, req Request) Result {
	start := t.clock.Now()
	code, err := do(ctx, t.client, req)
	total := t.clock.Since(start)
	return Result{StatusCode: code, Latency: total, Timing: EstimateTiming(total), Err: err}
}

// EstimateTiming splits total into fixed shares, leaving the rest to TTFB.
func EstimateTiming(total time.Duration) Timing {
	dns := total * heuristicDNSPercent / 100
	tcp := total * heuristicTCPPercent / 100
	tlsShare := total * heuristicTLSPercent / 100
	return Timing{
		DNS:   dns,
		TCP:   tcp,
		TLS:   tlsShare,
		TTFB:  total - dns - tcp - tlsShare,
		Total: total,
	}
}

func do(ctx context.Context, client *http.Client, req Request) (int, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	return resp.StatusCode, nil
}

// NewTransport selects a Transport by timing mode name.
func NewTransport(mode string, userAgent string, clk clock.Clock) Transport {
	if mode == TimingHeuristic {
		return NewHeuristicTransport(userAgent, clk)
	}
	return NewMeasuredTransport(userAgent, clk)
}

// Timing mode names accepted by NewTransport.
const (
	TimingMeasured  = "measured"
	TimingHeuristic = "heuristic"
)
