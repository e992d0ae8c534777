package inspect

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"hearingcap/internal/config"
	"hearingcap/internal/logging"
	"hearingcap/internal/services"
)

// domGrabTimeout is the share of the page budget held back for the final DOM
// capture when the load runs out of time. It is capped at a quarter of the
// budget.
const domGrabTimeout = 2 * time.Second

// Options configures a ChromeInspector.
type Options struct {
	Timeout      time.Duration
	Settle       time.Duration
	ChromePath   string
	Headless     bool
	UserAgent    string
	HostInterval time.Duration
}

// OptionsFromConfig maps the [inspector] config section.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Timeout:      cfg.InspectorTimeout(),
		Settle:       time.Duration(cfg.Inspector.SettleSeconds) * time.Second,
		ChromePath:   cfg.Inspector.ChromePath,
		Headless:     cfg.Inspector.Headless,
		UserAgent:    cfg.Inspector.UserAgent,
		HostInterval: time.Duration(cfg.Inspector.HostIntervalSeconds) * time.Second,
	}
}

// ChromeInspector launches a dedicated headless Chrome per page load.
type ChromeInspector struct {
	opts    Options
	logger  *slog.Logger
	limiter *hostLimiter
}

// NewChromeInspector constructs an inspector. A zero Timeout means 15s.
func NewChromeInspector(opts Options, logger *slog.Logger) *ChromeInspector {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &ChromeInspector{
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, "inspector"),
		limiter: newHostLimiter(opts.HostInterval),
	}
}

// Inspect loads pageURL, records its network traffic, and parses the rendered
// DOM for players. Opts.Timeout bounds the whole call, including the per-host
// wait and the browser launch. Running out of time yields partial evidence
// and no error. The browser is torn down before returning on every path.
func (c *ChromeInspector) Inspect(ctx context.Context, pageURL string) (Evidence, error) {
	evidence := Evidence{PageURL: pageURL}
	parsed, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return evidence, services.Wrap(services.ErrValidation, "inspector", "inspect", fmt.Sprintf("invalid page url %q", pageURL), err)
	}
	logger := logging.WithContext(ctx, c.logger).With(logging.String(logging.FieldURL, pageURL))

	start := time.Now()
	deadline := start.Add(c.opts.Timeout)
	budgetCtx, cancelBudget := context.WithDeadline(ctx, deadline)
	defer cancelBudget()

	if err := c.limiter.Wait(budgetCtx, pageURL); err != nil {
		if ctx.Err() != nil {
			return evidence, ctx.Err()
		}
		return c.partial(logger, evidence, start, "host wait"), nil
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(budgetCtx, c.allocatorOptions()...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	recorder := &requestRecorder{}
	chromedp.ListenTarget(tabCtx, func(ev any) {
		if sent, ok := ev.(*network.EventRequestWillBeSent); ok && sent.Request != nil {
			recorder.add(sent.Request.URL, sent.Request.Headers)
		}
	})

	if err := chromedp.Run(tabCtx); err != nil {
		switch {
		case ctx.Err() != nil:
			return evidence, ctx.Err()
		case budgetCtx.Err() != nil:
			return c.partial(logger, evidence, start, "browser launch"), nil
		}
		return evidence, services.Wrap(services.ErrExternalTool, "inspector", "launch browser", pageURL, err)
	}

	reserve := min(domGrabTimeout, c.opts.Timeout/4)
	loadCtx, cancelLoad := context.WithDeadline(tabCtx, deadline.Add(-reserve))
	defer cancelLoad()

	var html string
	loadErr := chromedp.Run(loadCtx,
		network.Enable(),
		chromedp.Navigate(pageURL),
		chromedp.Sleep(c.opts.Settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if loadErr != nil {
		if ctx.Err() != nil || loadCtx.Err() == nil {
			evidence.NetworkRequests = recorder.snapshot()
			evidence.Elapsed = time.Since(start)
			if ctx.Err() != nil {
				return evidence, ctx.Err()
			}
			return evidence, services.Wrap(services.ErrExternalTool, "inspector", "load page", pageURL, loadErr)
		}
		evidence.Partial = true
		// tabCtx inherits the overall deadline.
		_ = chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	}

	evidence.NetworkRequests = recorder.snapshot()
	if html != "" {
		players, err := ParsePlayers(html, pageURL)
		if err != nil {
			logger.Debug("player parse failed", logging.Error(err))
		}
		evidence.PlayersFound = players
	}

	if evidence.Partial {
		return c.partial(logger, evidence, start, "page load"), nil
	}
	evidence.Elapsed = time.Since(start)
	logger.Debug("page inspected",
		logging.Duration("elapsed", evidence.Elapsed),
		logging.Int("network_requests", len(evidence.NetworkRequests)),
		logging.Int("players", len(evidence.PlayersFound)),
	)
	return evidence, nil
}

// partial marks evidence as cut short by the page budget and logs the warning.
func (c *ChromeInspector) partial(logger *slog.Logger, evidence Evidence, start time.Time, phase string) Evidence {
	evidence.Partial = true
	evidence.Elapsed = time.Since(start)
	logging.WarnWithContext(logger, "page inspection timed out; using partial evidence", "partial_analysis",
		logging.String("phase", phase),
		logging.Duration("timeout", c.opts.Timeout),
		logging.Int("network_requests", len(evidence.NetworkRequests)),
		logging.Int("players", len(evidence.PlayersFound)),
		logging.String(logging.FieldErrorHint, "raise inspector.timeout_seconds if streams are missed"),
		logging.String(logging.FieldImpact, "streams loaded after the deadline are missed"),
	)
	return evidence
}

func (c *ChromeInspector) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", c.opts.Headless),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("autoplay-policy", "no-user-gesture-required"),
	)
	if c.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.opts.UserAgent))
	}
	if c.opts.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(c.opts.ChromePath))
	}
	return opts
}

type requestRecorder struct {
	mu       sync.Mutex
	requests []Request
}

func (r *requestRecorder) add(rawURL string, headers network.Headers) {
	req := Request{URL: rawURL}
	if len(headers) > 0 {
		req.Headers = make(map[string]string, len(headers))
		for key, value := range headers {
			req.Headers[key] = fmt.Sprint(value)
		}
	}
	r.mu.Lock()
	r.requests = append(r.requests, req)
	r.mu.Unlock()
}

func (r *requestRecorder) snapshot() []Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Request(nil), r.requests...)
}
