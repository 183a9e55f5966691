package login

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
)

// Surface is the part of the browser surface the interceptor drives. The host
// owns it; the interceptor only issues commands.
type Surface interface {
	// StopLoading halts the current page load
	StopLoading() error

	// Reload throws away the current browser session and starts a fresh one
	Reload() error
}

// NavigationEvent is one navigation state change reported by the surface
type NavigationEvent struct {
	URL   string
	Title string
}

// Outcome is the terminal result of a login attempt. Err is nil on success.
type Outcome struct {
	// Credential is the access token, or the authorization code in code mode
	Credential string

	// Token is set when the code was exchanged
	Token *TokenResponse

	Params Params
	RawURL string
	Err    error
}

// Success reports whether the attempt produced a credential
func (o *Outcome) Success() bool {
	return o != nil && o.Err == nil
}

// Options configures an Interceptor
type Options struct {
	Surface   Surface
	Exchanger CodeExchanger
	Logger    *zap.Logger

	// OnSuccess and OnFailure receive the outcome. Nil callbacks are skipped.
	OnSuccess func(*Outcome)
	OnFailure func(*Outcome)
}

// Interceptor watches surface events for the OAuth redirect and turns it into
// exactly one Outcome
type Interceptor struct {
	cfg       Config
	surface   Surface
	exchanger CodeExchanger
	log       *zap.Logger
	onSuccess func(*Outcome)
	onFailure func(*Outcome)

	done atomic.Bool
}

// NewInterceptor creates an interceptor for one login attempt. When cfg has a
// secret and opts has no Exchanger, a default resty backed one is used.
func NewInterceptor(cfg Config, opts Options) *Interceptor {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.RedirectURL == "" {
		log.Warn("no redirect url configured, navigations will never complete the login")
	}
	exchanger := opts.Exchanger
	if exchanger == nil && cfg.AppSecret != "" {
		exchanger = NewExchanger(cfg, nil)
	}
	return &Interceptor{
		cfg:       cfg,
		surface:   opts.Surface,
		exchanger: exchanger,
		log:       log.Named("interceptor"),
		onSuccess: opts.OnSuccess,
		onFailure: opts.OnFailure,
	}
}

// Done reports whether an outcome has been produced
func (i *Interceptor) Done() bool {
	return i.done.Load()
}

// OnNavigation handles a navigation event. It returns nil while the login is
// still in progress, and the outcome once the redirect is seen.
func (i *Interceptor) OnNavigation(ctx context.Context, ev NavigationEvent) *Outcome {
	if i.done.Load() {
		return nil
	}

	if ev.Title == LandingTitle && ev.URL == LandingURL {
		i.log.Debug("landed on instagram home, resetting surface")
		if i.surface != nil {
			if err := i.surface.Reload(); err != nil {
				i.log.Warn("failed to reload surface", zap.Error(err))
			}
		}
	}

	// an empty prefix would match every page
	if ev.URL == "" || i.cfg.RedirectURL == "" || !strings.HasPrefix(ev.URL, i.cfg.RedirectURL) {
		return nil
	}

	// only the first matching event gets to finish the attempt
	if !i.done.CompareAndSwap(false, true) {
		return nil
	}

	if i.surface != nil {
		if err := i.surface.StopLoading(); err != nil {
			i.log.Warn("failed to stop loading", zap.Error(err))
		}
	}

	out := i.classify(ctx, ev.URL)
	i.deliver(out)
	return out
}

func (i *Interceptor) classify(ctx context.Context, rawURL string) *Outcome {
	params, err := ParseRedirect(rawURL)
	if err != nil {
		return &Outcome{RawURL: rawURL, Err: err}
	}

	fail := func(kind Kind, reason string) *Outcome {
		return &Outcome{
			Params: params,
			RawURL: rawURL,
			Err:    &Error{Kind: kind, Params: params, RawURL: rawURL, Reason: reason},
		}
	}

	if token := params.Get("access_token"); token != "" {
		return &Outcome{Credential: token, Params: params, RawURL: rawURL}
	}

	if e := params.Get("error"); e != "" {
		return fail(KindProviderDenied, e)
	}
	if e := params.Get("error_type"); e != "" {
		return fail(KindProviderDenied, e)
	}

	if params.Get("code") == "" {
		return fail(KindMissingExpectedField, "no code in redirect")
	}
	code := CleanCode(params.Get("code"))
	if code == "" {
		return fail(KindMissingExpectedField, "empty code in redirect")
	}

	switch {
	case i.cfg.AppSecret != "" && i.exchanger != nil:
		return i.exchange(ctx, code, params, rawURL)
	case i.cfg.Mode == ModeCode:
		return &Outcome{Credential: code, Params: params, RawURL: rawURL}
	default:
		return fail(KindMissingExpectedField, "got a code but no secret to exchange it with")
	}
}

func (i *Interceptor) exchange(ctx context.Context, code string, params Params, rawURL string) *Outcome {
	tok, err := i.exchanger.Exchange(ctx, code)
	if err != nil {
		i.log.Warn("code exchange failed", zap.Error(err))
		// the caller only learns that the exchange failed; the cause goes to the log
		return &Outcome{
			Params: params,
			RawURL: rawURL,
			Err:    &Error{Kind: KindExchangeFailed, Params: params, RawURL: rawURL},
		}
	}
	return &Outcome{Credential: tok.AccessToken, Token: tok, Params: params, RawURL: rawURL}
}

// OnMessage handles a same-origin message posted by the page. Most messages
// have nothing to do with login and are ignored.
func (i *Interceptor) OnMessage(payload string) *Outcome {
	if i.done.Load() {
		return nil
	}

	var msg map[string]any
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		i.log.Debug("ignoring non-json message", zap.Error(err))
		return nil
	}

	reason := nonEmptyString(msg["error_type"])
	if reason == "" {
		reason = nonEmptyString(msg["error"])
	}
	if reason == "" {
		return nil
	}

	if !i.done.CompareAndSwap(false, true) {
		return nil
	}

	params := flatten(msg)
	out := &Outcome{
		Params: params,
		Err:    &Error{Kind: KindProviderDenied, Params: params, Reason: reason},
	}
	i.deliver(out)
	return out
}

func (i *Interceptor) deliver(out *Outcome) {
	if out.Success() {
		i.log.Info("login succeeded", zap.Bool("exchanged", out.Token != nil))
		if i.onSuccess != nil {
			i.onSuccess(out)
		}
		return
	}

	i.log.Info("login failed", zap.Error(out.Err))
	if i.onFailure != nil {
		i.onFailure(out)
	}
}

func nonEmptyString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if !t {
			return ""
		}
	}
	return fmt.Sprint(v)
}

func flatten(m map[string]any) Params {
	params := make(Params, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case string:
			params[k] = t
		case nil:
			params[k] = ""
		case map[string]any, []any:
			b, _ := json.Marshal(t)
			params[k] = string(b)
		default:
			params[k] = fmt.Sprint(t)
		}
	}
	return params
}
