package scanner

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// Tuning defaults per spec.md §4.3.
const (
	DefaultConnectTimeout = 200 * time.Millisecond
	DefaultHealthTimeout  = 150 * time.Millisecond
	DefaultCapsTimeout    = 400 * time.Millisecond
	DefaultConcurrency    = 16
	MaxConcurrency        = 64
	DefaultStaleMaxMisses = 2
)

// pool drains a target list with a fixed number of workers pulling
// from a shared atomic index, grounded on the teacher's
// HealthMonitor's "check everything on a tick" loop generalized to a
// one-shot drain.
type pool struct {
	targets   []Target
	idx       atomic.Int64
	done      *atomic.Int64
	seq       int64
	reg       *Registry
	connectTO time.Duration
	healthTO  time.Duration
	capsTO    time.Duration
}

func (p *pool) run(concurrency int) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if concurrency > MaxConcurrency {
		concurrency = MaxConcurrency
	}
	done := make(chan struct{})
	for i := 0; i < concurrency; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			p.worker()
		}()
	}
	for i := 0; i < concurrency; i++ {
		<-done
	}
}

func (p *pool) worker() {
	for {
		i := p.idx.Add(1) - 1
		if int(i) >= len(p.targets) {
			return
		}
		t := p.targets[i]
		p.probe(t)
		p.done.Add(1)
	}
}

func (p *pool) probe(t Target) {
	defer func() { recover() }() // a single bad target must never kill the pool

	conn, err := dialNonBlocking(t.IP, t.Port, p.connectTO)
	if err != nil {
		return
	}
	defer conn.Close()

	if !probeOK(conn, t.IP, "/health", p.healthTO) {
		return
	}

	body, ok := probeBody(conn2(t, p.connectTO), t.IP, "/caps", p.capsTO)
	if !ok {
		return
	}

	var caps capsResponse
	if err := json.Unmarshal(body, &caps); err != nil {
		return
	}

	p.reg.Upsert(NodeRecord{
		IP:       t.IP,
		Port:     t.Port,
		SyncID:   caps.ID,
		Role:     caps.Role,
		Device:   caps.Device,
		Version:  caps.Version,
		LastSeen: nowUnix(),
		SeenScan: p.seq,
	})
}

// conn2 opens a fresh connection for the /caps request; spec.md
// specifies "repeat the exchange" rather than pipelining on the first
// connection, since the first one was closed with Connection: close.
func conn2(t Target, connectTO time.Duration) net.Conn {
	conn, err := dialNonBlocking(t.IP, t.Port, connectTO)
	if err != nil {
		return nil
	}
	return conn
}

// dialNonBlocking performs a non-blocking connect and polls for
// writability within timeout, per spec.md §4.3's worker protocol.
func dialNonBlocking(ip string, port int, timeout time.Duration) (net.Conn, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, err
	}

	addr, err := parseIPv4(ip)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	sa := &unix.SockaddrInet4{Port: port, Addr: addr}

	err = unix.Connect(fd, sa)
	if err != nil && err != unix.EINPROGRESS {
		unix.Close(fd)
		return nil, err
	}

	if err == unix.EINPROGRESS {
		pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
		n, perr := unix.Poll(pfd, int(timeout.Milliseconds()))
		if perr != nil || n == 0 {
			unix.Close(fd)
			return nil, fmt.Errorf("scanner: connect timeout to %s:%d", ip, port)
		}
		if soerr, serr := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR); serr != nil || soerr != 0 {
			unix.Close(fd)
			return nil, fmt.Errorf("scanner: connect failed to %s:%d", ip, port)
		}
	}

	if err := unix.SetNonblock(fd, false); err != nil {
		unix.Close(fd)
		return nil, err
	}

	f := fdToFile(fd, fmt.Sprintf("%s:%d", ip, port))
	conn, err := net.FileConn(f)
	f.Close()
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func probeOK(conn net.Conn, host, path string, timeout time.Duration) bool {
	status, _, ok := httpGet(conn, host, path, timeout)
	if !ok {
		return false
	}
	return strings.HasPrefix(status, "HTTP/1.") && strings.Contains(status, " 200")
}

func probeBody(conn net.Conn, host, path string, timeout time.Duration) ([]byte, bool) {
	if conn == nil {
		return nil, false
	}
	defer conn.Close()
	status, body, ok := httpGet(conn, host, path, timeout)
	if !ok || !strings.HasPrefix(status, "HTTP/1.") || !strings.Contains(status, " 200") {
		return nil, false
	}
	return body, true
}

// httpGet sends a minimal HTTP/1.1 GET with Connection: close and
// reads the response within timeout, returning the status line and
// body.
func httpGet(conn net.Conn, host, path string, timeout time.Duration) (status string, body []byte, ok bool) {
	conn.SetDeadline(time.Now().Add(timeout))
	req := fmt.Sprintf("GET %s HTTP/1.1\r\nHost: %s\r\nConnection: close\r\n\r\n", path, host)
	if _, err := io.WriteString(conn, req); err != nil {
		return "", nil, false
	}

	r := bufio.NewReader(conn)
	line, err := r.ReadString('\n')
	if err != nil {
		return "", nil, false
	}
	status = strings.TrimSpace(line)

	for {
		hl, err := r.ReadString('\n')
		if err != nil {
			return status, nil, false
		}
		if strings.TrimSpace(hl) == "" {
			break
		}
	}

	b, _ := io.ReadAll(io.LimitReader(r, 65536))
	return status, b, true
}
