// Package obs scrapes an OBS student information portal: an ASP.NET
// WebForms application gated by an arithmetic captcha on login.
package obs

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"obswatch/lib/captcha"
	"obswatch/lib/restyutil"
	"obswatch/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrLoginFailed = fmt.Errorf("failed to login to the portal")
var ErrSessionExpired = fmt.Errorf("portal session expired")

const LoginPath = "/oibs/std/login.aspx"
const GradesPath = "/oibs/std/index.aspx?curOp=0"

// State tracks the session through the login machine. captcha answers
// are single-use and the vision model is probabilistic, so every retry
// must pass through Anonymous again to fetch a fresh captcha.
type State int

const (
	StateAnonymous State = iota
	StateCaptchaFetched
	StateAuthenticating
	StateAuthenticated
	StateExpired
	StateLoginFailed
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateCaptchaFetched:
		return "captcha_fetched"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateExpired:
		return "expired"
	case StateLoginFailed:
		return "login_failed"
	}
	return "unknown"
}

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	solver      captcha.Solver
	maxAttempts int
	state       State
}

type ClientOptions struct {
	BaseUrl string
	Solver  captcha.Solver
	// login attempts before giving up, each one fetching a fresh
	// captcha. defaults to 3.
	MaxLoginAttempts int
}

func NewClient(ctx context.Context, opts ClientOptions) (*Client, error) {
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}
	if opts.Solver == nil {
		return nil, fmt.Errorf("a captcha solver is required")
	}
	maxAttempts := opts.MaxLoginAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(time.Second * 30)

	telemetry.InstrumentResty(client, "obswatch.lib.scrapers.obs.http")
	restyutil.InstrumentClient(client, tracer, restyInstrumentOutput)

	return &Client{
		BaseUrl:     baseUrl,
		Http:        client,
		solver:      opts.Solver,
		maxAttempts: maxAttempts,
		state:       StateAnonymous,
	}, nil
}

func (c *Client) State() State {
	return c.state
}

type loginPage struct {
	form         map[string]string
	captchaImage []byte
}

// loads the login page, carries over the ASP.NET hidden form fields and
// downloads the captcha image over the same session (the expected
// answer is bound to the session cookie).
func (c *Client) fetchLoginPage(ctx context.Context) (loginPage, error) {
	ctx, span := tracer.Start(ctx, "client:fetchLoginPage")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		Get(LoginPath)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch login page")
		return loginPage{}, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse login page html")
		return loginPage{}, err
	}

	form := map[string]string{}
	doc.Find("input[type=hidden]").Each(func(_ int, input *goquery.Selection) {
		name := input.AttrOr("name", "")
		if name == "" {
			return
		}
		form[name] = input.AttrOr("value", "")
	})

	captchaSrc := doc.Find("img#imgCaptchaImg").AttrOr("src", "")
	if captchaSrc == "" {
		span.SetStatus(codes.Error, "failed to find captcha image")
		return loginPage{}, fmt.Errorf("could not find captcha image on login page")
	}

	imgRes, err := c.Http.R().
		SetContext(ctx).
		Get(captchaSrc)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch captcha image")
		return loginPage{}, err
	}

	c.state = StateCaptchaFetched
	return loginPage{
		form:         form,
		captchaImage: imgRes.Body(),
	}, nil
}

// Login runs the bounded captcha-solve/submit loop. it terminates in
// either StateAuthenticated or StateLoginFailed; the retry budget is
// exact and a solver failure consumes one attempt.
func (c *Client) Login(ctx context.Context, username, password string) error {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		span.AddEvent("attempt", trace.WithAttributes(attribute.Int("n", attempt)))

		err := c.attemptLogin(ctx, username, password)
		if err == nil {
			c.state = StateAuthenticated
			slog.InfoContext(ctx, "login successful", "attempt", attempt)
			return nil
		}
		if ctx.Err() != nil {
			c.state = StateAnonymous
			return ctx.Err()
		}

		slog.WarnContext(
			ctx, "login attempt failed",
			"attempt", attempt,
			"budget", c.maxAttempts,
			"err", err,
		)
		c.state = StateAnonymous
	}

	c.state = StateLoginFailed
	span.SetStatus(codes.Error, ErrLoginFailed.Error())
	return ErrLoginFailed
}

func (c *Client) attemptLogin(ctx context.Context, username, password string) error {
	page, err := c.fetchLoginPage(ctx)
	if err != nil {
		return err
	}

	answer, err := c.solver.Solve(ctx, page.captchaImage)
	if err != nil {
		return fmt.Errorf("solve captcha: %w", err)
	}

	c.state = StateAuthenticating

	form := map[string]string{}
	for k, v := range page.form {
		form[k] = v
	}
	form["txtParamT01"] = username
	form["txtParamT02"] = password
	form["txtSecCode"] = answer
	form["btnLogin"] = "Login"

	res, err := c.Http.R().
		SetContext(ctx).
		SetFormData(form).
		Post(LoginPath)
	if err != nil {
		return err
	}

	body := strings.ToLower(string(res.Body()))
	finalUrl := strings.ToLower(res.RawResponse.Request.URL.String())
	if isAuthenticatedPage(body, finalUrl) {
		return nil
	}

	if message := loginErrorMessage(res.Body()); message != "" {
		return fmt.Errorf("portal rejected login: %s", message)
	}
	return fmt.Errorf("portal rejected login")
}

// Fetch performs an authenticated GET. a login redirect means the
// session died server-side; the caller must run Login again, Fetch never
// re-authenticates on its own.
func (c *Client) Fetch(ctx context.Context, path string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "client:Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("path", path))

	if c.state != StateAuthenticated {
		err := fmt.Errorf("fetch requires an authenticated session, state is %s", c.state)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	res, err := c.Http.R().
		SetContext(ctx).
		Get(path)
	if err != nil {
		span.SetStatus(codes.Error, "request failed")
		return nil, err
	}

	body := strings.ToLower(string(res.Body()))
	finalUrl := strings.ToLower(res.RawResponse.Request.URL.String())
	if strings.Contains(finalUrl, "login.aspx") || strings.Contains(body, "txtseccode") {
		c.state = StateExpired
		span.SetStatus(codes.Error, ErrSessionExpired.Error())
		return nil, ErrSessionExpired
	}

	return res.Body(), nil
}

func isAuthenticatedPage(lowercaseBody, finalUrl string) bool {
	return strings.Contains(lowercaseBody, "çıkış") ||
		strings.Contains(lowercaseBody, "logout") ||
		strings.Contains(lowercaseBody, "hoşgeldiniz") ||
		strings.Contains(finalUrl, "start.aspx")
}

func loginErrorMessage(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(body))
	if err != nil {
		return ""
	}
	message := doc.Find("#lblSonuclar, .error, .hata").First().Text()
	return strings.Trim(message, " \t\n")
}

