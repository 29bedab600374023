package enum

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Method selects which SMTP command is used to test a mailbox.
type Method string

const (
	MethodVRFY Method = "VRFY"
	MethodEXPN Method = "EXPN"
	MethodRCPT Method = "RCPT"
)

// ParseMethod normalizes a user-supplied method name. Anything other than
// VRFY, EXPN or RCPT is a configuration error and must be rejected before
// any probing starts.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToUpper(strings.TrimSpace(s))); m {
	case MethodVRFY, MethodEXPN, MethodRCPT:
		return m, nil
	default:
		return "", fmt.Errorf("unknown method %q (expected VRFY, EXPN or RCPT)", s)
	}
}

const (
	DefaultPort     = 25
	DefaultMailFrom = "user@example.com"
	DefaultTimeout  = 10 * time.Second
	DefaultWorkers  = 5
)

// Config holds the settings for one enumeration run. It is passed by value
// into each probe and never mutated after Validate.
type Config struct {
	Host     string        // target SMTP server
	Port     int           // default 25
	Method   Method        // default VRFY
	MailFrom string        // used only in RCPT mode
	Domain   string        // optional suffix appended to usernames
	Timeout  time.Duration // per-step network timeout
	Workers  int           // concurrent probes
	Rate     float64       // max probes per second, 0 = unlimited
	Debug    bool          // record a per-step trace of every probe
}

// Validate applies defaults and rejects anything that would otherwise fail
// per-worker at runtime.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("target host is required")
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Method == "" {
		c.Method = MethodVRFY
	}
	m, err := ParseMethod(string(c.Method))
	if err != nil {
		return err
	}
	c.Method = m
	if c.MailFrom == "" {
		c.MailFrom = DefaultMailFrom
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Rate < 0 {
		return fmt.Errorf("rate limit cannot be negative")
	}
	return nil
}

// retryConfig derives the relaxed settings for the second pass: half the
// workers, double the timeout.
func (c Config) retryConfig() Config {
	r := c
	r.Workers = c.Workers / 2
	if r.Workers < 1 {
		r.Workers = 1
	}
	r.Timeout = c.Timeout * 2
	return r
}

func (c Config) addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// address builds the identity actually sent to the server: user@domain when a
// domain is configured, the bare username otherwise.
func (c Config) address(username string) string {
	if c.Domain != "" {
		return username + "@" + c.Domain
	}
	return username
}
