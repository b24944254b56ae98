// Package retry wraps backend calls with bounded retry, explicit
// transient-vs-permanent error classification, and jittered pacing between
// sequential term searches.
package retry

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"time"

	"github.com/rs/zerolog/log"
)

// Defaults per the controller contract: five retries with a fixed sleep, no
// exponential backoff.
const (
	DefaultMaxRetries = 5
	DefaultSleep      = 30 * time.Second
	DefaultPaceBase   = 5 * time.Second
)

// PermanentError marks a failure that must not be retried: TLS/certificate
// problems and request-shape errors indicate configuration trouble, not a
// recoverable condition.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return "permanent: " + e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// ExhaustedError is the distinguishable terminal condition produced when the
// retry bound is hit. It aborts the search for one term; whether the run
// continues with the remaining terms is the caller's policy.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Err)
}
func (e *ExhaustedError) Unwrap() error { return e.Err }

// Controller executes operations under the bounded-retry state machine and
// paces consecutive term searches. The zero value uses the defaults.
type Controller struct {
	MaxRetries int
	Sleep      time.Duration
	// PaceBase scales the random jitter applied between term searches.
	PaceBase time.Duration
}

func (c *Controller) maxRetries() int {
	if c.MaxRetries > 0 {
		return c.MaxRetries
	}
	return DefaultMaxRetries
}

func (c *Controller) sleep() time.Duration {
	if c.Sleep > 0 {
		return c.Sleep
	}
	return DefaultSleep
}

// Do runs op until it succeeds, fails permanently, or the retry bound is
// exceeded. Only transient failures are retried.
func (c *Controller) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := c.maxRetries() + 1
	var last error
	for i := 0; i < attempts; i++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !Transient(err) {
			return err
		}
		last = err
		if i == attempts-1 {
			break
		}
		log.Warn().Err(err).Int("attempt", i+1).Msg("transient failure, retrying")
		if err := sleepCtx(ctx, c.sleep()); err != nil {
			return err
		}
	}
	return &ExhaustedError{Attempts: attempts, Err: last}
}

// Pace sleeps a jittered delay between consecutive term searches so scraped
// and rate-limited API backends are not hammered.
func (c *Controller) Pace(ctx context.Context) error {
	base := c.PaceBase
	if base <= 0 {
		base = DefaultPaceBase
	}
	d := time.Duration(rand.Float64() * float64(base))
	return sleepCtx(ctx, d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Transient reports whether err is a recoverable backend failure: connection
// errors and timeouts are; TLS and certificate validation failures, and
// anything explicitly marked permanent, are not.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	var perm *PermanentError
	if errors.As(err, &perm) {
		return false
	}
	if isTLSFailure(err) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	var op *net.OpError
	if errors.As(err, &op) {
		return true
	}
	// Interfaces exposing an explicit transience hint (e.g. HTTP status
	// errors from the fetch client).
	var tr interface{ Transient() bool }
	if errors.As(err, &tr) {
		return tr.Transient()
	}
	return false
}

func isTLSFailure(err error) bool {
	var (
		certInvalid x509.CertificateInvalidError
		unknownAuth x509.UnknownAuthorityError
		hostname    x509.HostnameError
		record      tls.RecordHeaderError
		certVerify  *tls.CertificateVerificationError
	)
	return errors.As(err, &certInvalid) ||
		errors.As(err, &unknownAuth) ||
		errors.As(err, &hostname) ||
		errors.As(err, &record) ||
		errors.As(err, &certVerify)
}
