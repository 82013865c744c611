// Package main provides a CI-friendly smoke test for the tasker change stream.
//
// It validates:
//   - register + login against the HTTP API
//   - handshake + subprotocol selection on /ws
//   - hello as the first frame
//   - task create -> "created" change event carrying the new task id
//   - task delete -> "deleted" change event
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	v1 "tasker/contracts/realtime/v1"

	"github.com/coder/websocket"
)

const maxReadBytes = 1 << 20 // 1MiB

type observer struct {
	conn      *websocket.Conn
	sessionID string

	inbox chan v1.Envelope
	errCh chan error
}

func main() {
	var (
		baseURL  = flag.String("url", "http://127.0.0.1:8080", "HTTP base URL")
		origin   = flag.String("origin", "", "Origin header to send on the WS handshake (optional)")
		password = flag.String("password", "smoke-password-1", "Password for the throwaway account")
		title    = flag.String("title", "smoke task", "Task title to create")
		timeout  = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
		verbose  = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	base, err := validateBaseURL(*baseURL)
	if err != nil {
		fatalf("invalid -url: %v", err)
	}
	if err := validateOrigin(*origin); err != nil {
		fatalf("invalid -origin: %v", err)
	}

	root := context.Background()
	email := fmt.Sprintf("smoke-%d@example.com", time.Now().UnixNano())

	var reg struct {
		ID string `json:"id"`
	}
	mustCall(root, http.MethodPost, base+"/auth/register", "", map[string]string{
		"username": "smoke", "email": email, "password": *password,
	}, http.StatusCreated, &reg, *timeout)

	var login struct {
		Token string `json:"token"`
	}
	mustCall(root, http.MethodPost, base+"/auth/login", "", map[string]string{
		"email": email, "password": *password,
	}, http.StatusOK, &login, *timeout)
	if login.Token == "" {
		fatalf("login returned no token")
	}

	obs := mustConnect(root, wsURL(base), *origin, login.Token, *timeout)
	defer closeWS(obs.conn)
	if *verbose {
		fmt.Printf("connected: session=%s account=%s\n", obs.sessionID, reg.ID)
	}

	var created struct {
		ID string `json:"id"`
	}
	mustCall(root, http.MethodPost, base+"/tasks", login.Token, map[string]any{
		"title": *title,
	}, http.StatusCreated, &created, *timeout)

	obs.mustReadChange(root, v1.KindCreated, created.ID, *timeout)

	mustCall(root, http.MethodDelete, base+"/tasks/"+created.ID, login.Token, nil, http.StatusOK, nil, *timeout)
	obs.mustReadChange(root, v1.KindDeleted, created.ID, *timeout)

	fmt.Printf("OK: session=%s account=%s task=%s\n", obs.sessionID, reg.ID, created.ID)
}

func validateBaseURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return "", errors.New("missing host")
	}
	return strings.TrimRight(u.String(), "/"), nil
}

func validateOrigin(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("origin must be http/https, got: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("origin missing host")
	}
	return nil
}

func wsURL(base string) string {
	if rest, ok := strings.CutPrefix(base, "https://"); ok {
		return "wss://" + rest + "/ws"
	}
	return "ws://" + strings.TrimPrefix(base, "http://") + "/ws"
}

func mustCall(parent context.Context, method, target, token string, body any, wantStatus int, out any, stepTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	var rd io.Reader = http.NoBody
	if body != nil {
		rd = bytes.NewReader(mustJSON(body))
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		fatalf("%s %s: %v", method, target, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		fatalf("%s %s: %v", method, target, err)
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxReadBytes))
	if err != nil {
		fatalf("%s %s: read body: %v", method, target, err)
	}
	if res.StatusCode != wantStatus {
		fatalf("%s %s: status=%d want=%d body=%s", method, target, res.StatusCode, wantStatus, strings.TrimSpace(string(raw)))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			fatalf("%s %s: decode: %v", method, target, err)
		}
	}
}

func mustConnect(parent context.Context, target, origin, token string, stepTimeout time.Duration) *observer {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	h := http.Header{}
	if strings.TrimSpace(origin) != "" {
		h.Set("Origin", origin)
	}
	h.Set("Authorization", "Bearer "+token)

	conn, resp, err := websocket.Dial(ctx, target, &websocket.DialOptions{
		Subprotocols: []string{v1.Subprotocol},
		HTTPHeader:   h,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		fatalf("connect: %v", err)
	}
	if sp := conn.Subprotocol(); sp != v1.Subprotocol {
		fatalf("subprotocol mismatch: got=%q want=%q", sp, v1.Subprotocol)
	}

	conn.SetReadLimit(maxReadBytes)

	o := &observer{
		conn:  conn,
		inbox: make(chan v1.Envelope, 64),
		errCh: make(chan error, 1),
	}
	o.startReadLoop()

	hello := o.mustRead(parent, stepTimeout)
	if hello.Type != v1.TypeHello {
		fatalf("first frame: got=%s want=%s", hello.Type, v1.TypeHello)
	}
	var p v1.HelloPayload
	if err := json.Unmarshal(hello.Payload, &p); err != nil {
		fatalf("unmarshal hello payload: %v", err)
	}
	if strings.TrimSpace(p.SessionID) == "" {
		fatalf("hello missing session_id")
	}
	o.sessionID = p.SessionID
	return o
}

func (o *observer) startReadLoop() {
	go func() {
		defer close(o.inbox)

		for {
			_, data, err := o.conn.Read(context.Background())
			if err != nil {
				o.fail(err)
				return
			}

			var env v1.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				o.fail(fmt.Errorf("bad json: %w", err))
				return
			}
			if err := env.Validate(); err != nil {
				o.fail(fmt.Errorf("bad envelope: %w", err))
				return
			}

			select {
			case o.inbox <- env:
			default:
				o.fail(errors.New("inbox overflow: consumer too slow"))
				return
			}
		}
	}()
}

func (o *observer) fail(err error) {
	select {
	case o.errCh <- err:
	default:
	}
}

func (o *observer) mustRead(parent context.Context, stepTimeout time.Duration) v1.Envelope {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		fatalf("timed out waiting for a frame")
	case err := <-o.errCh:
		fatalf("read: %v", err)
	case env, ok := <-o.inbox:
		if !ok {
			fatalf("stream closed")
		}
		return env
	}
	return v1.Envelope{}
}

// mustReadChange skips unrelated frames until a change of kind for resourceID arrives.
func (o *observer) mustReadChange(parent context.Context, kind, resourceID string, stepTimeout time.Duration) {
	deadline := time.Now().Add(stepTimeout)
	for time.Now().Before(deadline) {
		env := o.mustRead(parent, time.Until(deadline))
		if env.Type != v1.TypeChange {
			continue
		}
		var p v1.ChangePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			fatalf("unmarshal change payload: %v", err)
		}
		var res struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(p.Resource, &res)
		if p.Kind == kind && res.ID == resourceID {
			return
		}
	}
	fatalf("no %s change for %s within %s", kind, resourceID, stepTimeout)
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		fatalf("marshal: %v", err)
	}
	return b
}

func closeWS(c *websocket.Conn) {
	if c == nil {
		return
	}
	_ = c.Close(websocket.StatusNormalClosure, "bye")
}

func fatalf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
