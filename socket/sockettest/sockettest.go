// Package sockettest provides an in-process FreeCAD-side JSON-RPC server
// for exercising the socket bridge over real TCP.
package sockettest

import (
	"errors"
	"net"
	"strconv"
	"sync"
	"testing"

	"github.com/jonwraymond/cadbridge/jsonrpc"
)

// Handler answers one request. Each request is handled on its own
// goroutine; the handler replies through c, or not at all.
type Handler func(c *Conn, req jsonrpc.Request)

// ExecFunc produces the result of an "execute" request.
type ExecFunc func(code string) any

// Standard answers "ping" with "pong" and "execute" with exec(code). Other
// methods get a method-not-found error.
func Standard(exec ExecFunc) Handler {
	return func(c *Conn, req jsonrpc.Request) {
		switch req.Method {
		case "ping":
			c.Reply(req, "pong")
		case "execute":
			code, _ := req.Params["code"].(string)
			c.Reply(req, exec(code))
		default:
			c.ReplyError(req, jsonrpc.CodeMethodNotFound, "Method not found", req.Method)
		}
	}
}

// Server is a line-delimited JSON-RPC server on a loopback port.
type Server struct {
	t  testing.TB
	ln net.Listener

	mu          sync.Mutex
	handler     Handler
	conns       map[*Conn]struct{}
	requests    []jsonrpc.Request
	accepted    int
	outstanding int
	maxOut      int

	wg sync.WaitGroup
}

// NewServer starts a server and registers its shutdown with t.Cleanup.
func NewServer(t testing.TB, h Handler) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &Server{t: t, ln: ln, handler: h, conns: make(map[*Conn]struct{})}
	s.wg.Add(1)
	go s.acceptLoop()
	t.Cleanup(s.Close)
	return s
}

// Host returns the listening host.
func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.ln.Addr().String())
	return host
}

// Port returns the listening port.
func (s *Server) Port() int {
	_, port, _ := net.SplitHostPort(s.ln.Addr().String())
	n, _ := strconv.Atoi(port)
	return n
}

// SetHandler replaces the handler for subsequent requests.
func (s *Server) SetHandler(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

// Requests returns every request received so far, in arrival order.
func (s *Server) Requests() []jsonrpc.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]jsonrpc.Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestsFor returns the received requests with the given method.
func (s *Server) RequestsFor(method string) []jsonrpc.Request {
	var out []jsonrpc.Request
	for _, r := range s.Requests() {
		if r.Method == method {
			out = append(out, r)
		}
	}
	return out
}

// Accepted returns how many connections were accepted.
func (s *Server) Accepted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted
}

// MaxOutstanding returns the largest number of requests that were read but
// not yet answered at the same moment.
func (s *Server) MaxOutstanding() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxOut
}

// StopListening closes the listener so new dials fail. Live connections
// remain open.
func (s *Server) StopListening() {
	_ = s.ln.Close()
}

// DropConnections closes every live connection.
func (s *Server) DropConnections() {
	s.mu.Lock()
	conns := make([]*Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		c.Close()
	}
}

// Close stops the server and waits for its goroutines.
func (s *Server) Close() {
	s.StopListening()
	s.DropConnections()
	s.wg.Wait()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		nc, err := s.ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.t.Logf("sockettest: accept: %v", err)
			}
			return
		}
		c := &Conn{Conn: nc, srv: s, pending: make(map[string]bool)}
		s.mu.Lock()
		s.accepted++
		s.conns[c] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serve(c)
	}
}

func (s *Server) serve(c *Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
		c.Close()
	}()

	lr := jsonrpc.NewLineReader(c, 0)
	for {
		line, err := lr.ReadLine()
		if err != nil {
			return
		}
		req, err := jsonrpc.DecodeRequest(line)
		if err != nil {
			c.WriteLine(`{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"Parse error"}}`)
			continue
		}

		s.mu.Lock()
		s.requests = append(s.requests, req)
		s.outstanding++
		if s.outstanding > s.maxOut {
			s.maxOut = s.outstanding
		}
		h := s.handler
		s.mu.Unlock()
		c.track(req.ID)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			h(c, req)
		}()
	}
}

// answered balances the outstanding count for a request id.
func (s *Server) answered() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outstanding > 0 {
		s.outstanding--
	}
}

// Conn is one accepted client connection.
type Conn struct {
	net.Conn
	srv *Server

	mu      sync.Mutex
	pending map[string]bool
	closed  bool
}

func (c *Conn) track(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[id] = true
}

func (c *Conn) settle(id string) {
	c.mu.Lock()
	was := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()
	if was {
		c.srv.answered()
	}
}

// Reply sends a success response to req.
func (c *Conn) Reply(req jsonrpc.Request, result any) {
	resp, err := jsonrpc.NewResult(req.ID, result)
	if err != nil {
		c.srv.t.Errorf("sockettest: %v", err)
		return
	}
	c.settle(req.ID)
	c.write(resp)
}

// ReplyError sends an error response to req.
func (c *Conn) ReplyError(req jsonrpc.Request, code int, message string, data any) {
	c.settle(req.ID)
	c.write(jsonrpc.NewErrorResponse(req.ID, code, message, data))
}

// WriteLine sends raw bytes followed by a newline.
func (c *Conn) WriteLine(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	_, _ = c.Conn.Write([]byte(line + "\n"))
}

// WriteRaw sends raw bytes without a terminator.
func (c *Conn) WriteRaw(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	_, _ = c.Conn.Write(data)
}

// Close closes the connection. Safe to call more than once.
func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	pending := len(c.pending)
	c.pending = make(map[string]bool)
	c.mu.Unlock()
	for i := 0; i < pending; i++ {
		c.srv.answered()
	}
	_ = c.Conn.Close()
}

func (c *Conn) write(msg any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	_ = jsonrpc.Encode(c.Conn, msg)
}
