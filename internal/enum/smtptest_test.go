package enum

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// replyHang makes the fake server swallow the command without answering,
// which forces the client into its read deadline.
const replyHang = "__hang__"

// fakeSMTP is a scripted in-process SMTP server. Replies to VRFY/EXPN/RCPT
// are looked up by the address argument; unlisted addresses get a hard
// "user not found" 550.
type fakeSMTP struct {
	ln        net.Listener
	replies   map[string]string
	mailReply string
	silent    bool // accept connections but never send the banner

	mu  sync.Mutex
	got []string
}

func newFakeSMTP(t *testing.T, replies map[string]string) *fakeSMTP {
	return newServer(t, replies, false)
}

// newSilentSMTP accepts connections but never greets, forcing banner timeouts.
func newSilentSMTP(t *testing.T) *fakeSMTP {
	return newServer(t, nil, true)
}

func newServer(t *testing.T, replies map[string]string, silent bool) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &fakeSMTP{
		ln:        ln,
		replies:   replies,
		mailReply: "250 2.1.0 Sender ok",
		silent:    silent,
	}
	go s.serve()
	t.Cleanup(func() { ln.Close() })
	return s
}

func (s *fakeSMTP) host() string {
	host, _, _ := net.SplitHostPort(s.ln.Addr().String())
	return host
}

func (s *fakeSMTP) port() int {
	_, portStr, _ := net.SplitHostPort(s.ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return port
}

func (s *fakeSMTP) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *fakeSMTP) handle(conn net.Conn) {
	defer conn.Close()

	if s.silent {
		io.Copy(io.Discard, conn)
		return
	}

	fmt.Fprintf(conn, "220 mail.example.test ESMTP ready\r\n")
	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		s.record(line)

		fields := strings.Fields(line)
		switch strings.ToUpper(fields[0]) {
		case "HELO":
			fmt.Fprintf(conn, "250 mail.example.test Hello\r\n")
		case "MAIL":
			s.mu.Lock()
			reply := s.mailReply
			s.mu.Unlock()
			fmt.Fprintf(conn, "%s\r\n", reply)
		case "QUIT":
			fmt.Fprintf(conn, "221 Bye\r\n")
			return
		case "VRFY", "EXPN", "RCPT":
			target := fields[len(fields)-1]
			reply, ok := s.replies[target]
			if !ok {
				reply = "550 5.1.1 user not found"
			}
			if reply == replyHang {
				continue
			}
			fmt.Fprintf(conn, "%s\r\n", reply)
		default:
			fmt.Fprintf(conn, "500 Unrecognized command\r\n")
		}
	}
}

func (s *fakeSMTP) setMailReply(reply string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mailReply = reply
}

func (s *fakeSMTP) record(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, line)
}

// sawCommand waits briefly for a command with the given prefix to arrive,
// since the probe does not wait for the QUIT reply.
func (s *fakeSMTP) sawCommand(prefix string) bool {
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		for _, line := range s.got {
			if strings.HasPrefix(strings.ToUpper(line), strings.ToUpper(prefix)) {
				s.mu.Unlock()
				return true
			}
		}
		s.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func testConfig(s *fakeSMTP, method Method) Config {
	return Config{
		Host:    s.host(),
		Port:    s.port(),
		Method:  method,
		Timeout: 200 * time.Millisecond,
		Workers: 3,
		Debug:   true,
	}
}
