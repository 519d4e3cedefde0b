// Package identity derives placeholder email addresses from phone numbers.
//
// A synthetic email is <digits-of-phone>@<domain>. Whether an existing
// email was synthesized is decided by a heuristic: a local part made only of
// digits and '+' is treated as generated. A genuine address such as
// 12345@example.com is therefore misclassified; the heuristic is kept for
// compatibility with stored data.
package identity

import (
	"context"
	"errors"
	"net"
	"reflect"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	common "github.com/example/phone-mailer/internal/adapters/common"
	"github.com/example/phone-mailer/internal/metrics"
	"github.com/example/phone-mailer/internal/settings"
	"github.com/example/phone-mailer/internal/util"
)

// ErrPhoneRequired is returned when a phone number has no digits. It is
// always wrapped together with common.ErrValidation.
var ErrPhoneRequired = errors.New("phone number required")

var (
	generatedLocalPart = regexp.MustCompile(`^[0-9+]+$`)
	phoneShaped        = regexp.MustCompile(`^[0-9+\s\-()]+$`)
)

// Settings is the subset of settings.Source the bridge reads.
type Settings interface {
	DomainMode(ctx context.Context, scope string) settings.DomainMode
	CustomDomain(ctx context.Context, scope string) string
	BaseURL(ctx context.Context, scope string) string
}

// Option customises a Bridge.
type Option func(*Bridge)

// WithDefaultScope sets the scope used for login identifiers.
func WithDefaultScope(scope string) Option {
	return func(b *Bridge) {
		if scope = strings.TrimSpace(scope); scope != "" {
			b.defaultScope = scope
		}
	}
}

// Bridge maps phone numbers to synthetic emails for a scope.
type Bridge struct {
	settings     Settings
	logger       zerolog.Logger
	defaultScope string
}

// NewBridge constructs a Bridge.
func NewBridge(s Settings, logger zerolog.Logger, opts ...Option) (*Bridge, error) {
	if s == nil {
		return nil, errors.New("identity: settings dependency is required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	b := &Bridge{settings: s, logger: logger, defaultScope: settings.DefaultScope}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b, nil
}

// NormalizePhone keeps only the decimal digits of raw.
func NormalizePhone(raw string) (string, error) {
	digits := util.DigitsOnly(raw)
	if digits == "" {
		return "", common.WrapValidation(ErrPhoneRequired)
	}
	return digits, nil
}

// ResolveDomain returns the email domain for scope. In custom mode with an
// empty custom domain it returns "", producing addresses such as "123@".
func (b *Bridge) ResolveDomain(ctx context.Context, scope string) string {
	if b.settings.DomainMode(ctx, scope) == settings.DomainCustom {
		if domain := b.settings.CustomDomain(ctx, scope); domain != "" {
			return domain
		}
		b.logger.Warn().Str("scope", scope).Msg("custom domain mode without a custom domain")
		return ""
	}
	host := HostFromBaseURL(b.settings.BaseURL(ctx, scope))
	if host == "" {
		b.logger.Warn().Str("scope", scope).Msg("no base url to derive the email domain from")
	}
	return host
}

// HostFromBaseURL strips the scheme, a leading "www.", any port and any path
// from u.
func HostFromBaseURL(u string) string {
	host := strings.TrimSpace(u)
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if len(host) >= 4 && strings.EqualFold(host[:4], "www.") {
		host = host[4:]
	}
	return strings.ToLower(host)
}

// GenerateEmailFromPhone returns NormalizePhone(raw) + "@" + ResolveDomain(scope).
func (b *Bridge) GenerateEmailFromPhone(ctx context.Context, raw, scope string) (string, error) {
	local, err := NormalizePhone(raw)
	if err != nil {
		metrics.IncEmailOperation("generate", "invalid")
		return "", err
	}
	metrics.IncEmailOperation("generate", "generated")
	return local + "@" + b.ResolveDomain(ctx, scope), nil
}

// IsGeneratedEmail reports whether the local part of email consists only of
// digits and '+'.
func IsGeneratedEmail(email string) bool {
	at := strings.Index(email, "@")
	if at < 0 {
		return false
	}
	return generatedLocalPart.MatchString(email[:at])
}

// RegenerateIfNeeded returns the email for newPhone when current looks
// generated and differs from it. Emails that do not look generated are
// returned untouched without consulting newPhone. On a validation error
// current is returned with the error.
func (b *Bridge) RegenerateIfNeeded(ctx context.Context, current, newPhone, scope string) (string, error) {
	if !IsGeneratedEmail(current) {
		metrics.IncEmailOperation("regenerate", "unchanged")
		return current, nil
	}
	next, err := b.GenerateEmailFromPhone(ctx, newPhone, scope)
	if err != nil {
		return current, err
	}
	if next == current {
		metrics.IncEmailOperation("regenerate", "unchanged")
		return current, nil
	}
	metrics.IncEmailOperation("regenerate", "generated")
	b.logger.Info().
		Str("scope", scope).
		Str("previous", current).
		Str("email", next).
		Msg("synthetic email regenerated")
	return next, nil
}

// NormalizeLoginIdentifier turns a phone-shaped login name into the
// synthetic email of the default scope. Anything else is returned as given.
func (b *Bridge) NormalizeLoginIdentifier(ctx context.Context, input string) string {
	return b.NormalizeIdentifier(ctx, input, b.defaultScope)
}

// NormalizeIdentifier is NormalizeLoginIdentifier for an explicit scope.
func (b *Bridge) NormalizeIdentifier(ctx context.Context, input, scope string) string {
	if !phoneShaped.MatchString(input) {
		return input
	}
	email, err := b.GenerateEmailFromPhone(ctx, input, scope)
	if err != nil {
		metrics.IncEmailOperation("login", "invalid")
		b.logger.Debug().Err(err).Msg("identifier looked like a phone but could not be converted")
		return input
	}
	metrics.IncEmailOperation("login", "generated")
	return email
}

// DefaultScope returns the scope used for login identifiers.
func (b *Bridge) DefaultScope() string { return b.defaultScope }

// PhoneFromGeneratedEmail returns the local part of a generated email.
func PhoneFromGeneratedEmail(email string) (string, bool) {
	if !IsGeneratedEmail(email) {
		return "", false
	}
	return email[:strings.Index(email, "@")], true
}

// FormatPhoneForDisplay renders a phone number for humans: numbers with a
// leading '+' are kept, longer than ten digits gain a '+', and exactly ten
// digits become (xxx) xxx-xxxx.
func FormatPhoneForDisplay(raw string) string {
	clean := util.Dialable(raw)
	switch {
	case clean == "":
		return ""
	case strings.HasPrefix(clean, "+"):
		return clean
	case len(clean) > 10:
		return "+" + clean
	case len(clean) == 10:
		return "(" + clean[:3] + ") " + clean[3:6] + "-" + clean[6:]
	default:
		return clean
	}
}

// IsValidEmail reports whether s is a usable bare address.
func IsValidEmail(s string) bool {
	_, err := util.NormalizeEmail(s)
	return err == nil
}
