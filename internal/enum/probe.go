package enum

import (
	"context"
	"fmt"
	"net"
	"net/textproto"
	"time"
)

// ContextDialer is satisfied by net.Dialer and by the SOCKS dialer in
// internal/proxy.
type ContextDialer interface {
	DialContext(ctx context.Context, network, addr string) (net.Conn, error)
}

// probe runs one full check for a single username over a fresh connection:
// connect, banner, HELO, the method-specific exchange, then a best-effort
// QUIT. Every network step is bounded by cfg.Timeout. Any failure before the
// final reply is read becomes an infrastructure outcome, eligible for the
// retry pass; the server's actual answer, whatever it says, never is.
func (e *Engine) probe(ctx context.Context, cfg Config, username string, attempt int) Outcome {
	address := cfg.address(username)
	out := Outcome{Username: username, Attempt: attempt, Address: address}

	infra := func(step string, err error) Outcome {
		out.Kind = KindInfraFailure
		out.Err = fmt.Errorf("%s: %w", step, err)
		e.tracef("%s failed for %s: %v", step, username, err)
		return out
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	conn, err := e.dialer.DialContext(dialCtx, "tcp", cfg.addr())
	if err != nil {
		return infra("connect", err)
	}
	defer conn.Close()

	tp := textproto.NewConn(conn)

	// Push the deadline forward before each exchange so a slow multi-step
	// session still gets cfg.Timeout per reply.
	step := func() {
		conn.SetDeadline(time.Now().Add(cfg.Timeout))
	}

	step()
	code, msg, err := tp.ReadResponse(0)
	if err != nil {
		return infra("banner", err)
	}
	e.tracef("banner for %s: %d %s", username, code, msg)

	step()
	if _, err := tp.Cmd("HELO test"); err != nil {
		return infra("HELO", err)
	}
	code, msg, err = tp.ReadResponse(0)
	if err != nil {
		return infra("HELO", err)
	}
	e.tracef("HELO response for %s: %d %s", username, code, msg)

	switch cfg.Method {
	case MethodVRFY:
		step()
		if _, err := tp.Cmd("VRFY %s", address); err != nil {
			return infra("VRFY", err)
		}
		code, msg, err = tp.ReadResponse(0)
		if err != nil {
			return infra("VRFY", err)
		}
		e.tracef("VRFY response for %s: %d %s", username, code, msg)

	case MethodEXPN:
		step()
		if _, err := tp.Cmd("EXPN %s", address); err != nil {
			return infra("EXPN", err)
		}
		code, msg, err = tp.ReadResponse(0)
		if err != nil {
			return infra("EXPN", err)
		}
		e.tracef("EXPN response for %s: %d %s", username, code, msg)

	case MethodRCPT:
		step()
		if _, err := tp.Cmd("MAIL FROM: %s", cfg.MailFrom); err != nil {
			return infra("MAIL FROM", err)
		}
		// The MAIL FROM reply is traced but plays no part in classification;
		// only the RCPT reply says anything about the recipient.
		mcode, mmsg, err := tp.ReadResponse(0)
		if err != nil {
			return infra("MAIL FROM", err)
		}
		e.tracef("MAIL FROM response for %s: %d %s", username, mcode, mmsg)

		step()
		if _, err := tp.Cmd("RCPT TO: %s", address); err != nil {
			return infra("RCPT TO", err)
		}
		code, msg, err = tp.ReadResponse(0)
		if err != nil {
			return infra("RCPT TO", err)
		}
		e.tracef("RCPT TO response for %s: %d %s", username, code, msg)
	}

	// The verdict is already in hand; a broken QUIT changes nothing.
	step()
	tp.Cmd("QUIT")
	tp.Close()

	switch Classify(code, msg) {
	case ClassValid:
		out.Kind = KindValid
	case ClassAmbiguous:
		out.Kind = KindAmbiguous
		out.Response = fmt.Sprintf("%d %s", code, msg)
	default:
		out.Kind = KindInvalid
	}
	return out
}
