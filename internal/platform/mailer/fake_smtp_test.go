package mailer

import (
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"
)

type receivedMail struct {
	From string
	To   []string
	Data []byte
}

// fakeSMTP is a minimal in-process SMTP server without TLS.
type fakeSMTP struct {
	ln         net.Listener
	advertAuth bool
	rejectRcpt bool

	mu       sync.Mutex
	messages []receivedMail
	auths    []string
}

func startFakeSMTP(t *testing.T, advertAuth, rejectRcpt bool) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &fakeSMTP{ln: ln, advertAuth: advertAuth, rejectRcpt: rejectRcpt}
	go s.serve()
	t.Cleanup(func() { _ = ln.Close() })
	return s
}

func (s *fakeSMTP) addr() (string, int) {
	a := s.ln.Addr().(*net.TCPAddr)
	return a.IP.String(), a.Port
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
	tp := textproto.NewConn(conn)
	defer func() { _ = tp.Close() }()

	var cur receivedMail
	_ = tp.PrintfLine("220 localhost ESMTP fake")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "EHLO"):
			_ = tp.PrintfLine("250-localhost")
			if s.advertAuth {
				_ = tp.PrintfLine("250-AUTH PLAIN")
			}
			_ = tp.PrintfLine("250 8BITMIME")
		case strings.HasPrefix(upper, "HELO"):
			_ = tp.PrintfLine("250 localhost")
		case strings.HasPrefix(upper, "AUTH"):
			s.mu.Lock()
			s.auths = append(s.auths, line)
			s.mu.Unlock()
			_ = tp.PrintfLine("235 2.7.0 Authentication successful")
		case strings.HasPrefix(upper, "MAIL FROM:"):
			cur = receivedMail{From: extractPath(line)}
			_ = tp.PrintfLine("250 OK")
		case strings.HasPrefix(upper, "RCPT TO:"):
			if s.rejectRcpt {
				_ = tp.PrintfLine("550 5.1.1 mailbox unavailable")
				continue
			}
			cur.To = append(cur.To, extractPath(line))
			_ = tp.PrintfLine("250 OK")
		case upper == "DATA":
			_ = tp.PrintfLine("354 End data with <CR><LF>.<CR><LF>")
			data, err := tp.ReadDotBytes()
			if err != nil {
				return
			}
			cur.Data = data
			s.mu.Lock()
			s.messages = append(s.messages, cur)
			s.mu.Unlock()
			_ = tp.PrintfLine("250 OK queued")
		case upper == "QUIT":
			_ = tp.PrintfLine("221 Bye")
			return
		default:
			_ = tp.PrintfLine("502 Command not implemented")
		}
	}
}

func extractPath(line string) string {
	start := strings.Index(line, "<")
	end := strings.Index(line, ">")
	if start < 0 || end < start {
		return ""
	}
	return line[start+1 : end]
}

func (s *fakeSMTP) received() []receivedMail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]receivedMail(nil), s.messages...)
}

func (s *fakeSMTP) authLines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.auths...)
}
