/*
 * Copyright 2026 The warcforge authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *       http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package httpcapture

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
)

// Transport is an http.RoundTripper recording every exchange it carries.
//
// It dials its own connection per request so it can tee the raw wire bytes
// into the exchange buffers, exactly as framed on the network. The exchange
// is committed when the response body has been read to the end and closed,
// and discarded when the transport fails mid-exchange. Connections are not
// reused; one exchange maps to one record pair on one connection.
type Transport struct {
	Recorder *Recorder

	// DialContext optionally overrides the dialer.
	DialContext func(ctx context.Context, network, addr string) (net.Conn, error)

	// TLSConfig optionally overrides the TLS client configuration.
	TLSConfig *tls.Config
}

func (t *Transport) dial(req *http.Request) (net.Conn, error) {
	host := req.URL.Host
	if req.URL.Port() == "" {
		switch req.URL.Scheme {
		case "http":
			host = net.JoinHostPort(req.URL.Hostname(), "80")
		case "https":
			host = net.JoinHostPort(req.URL.Hostname(), "443")
		default:
			return nil, fmt.Errorf("httpcapture: unsupported scheme '%s'", req.URL.Scheme)
		}
	}

	var conn net.Conn
	var err error
	if t.DialContext != nil {
		conn, err = t.DialContext(req.Context(), "tcp", host)
	} else {
		conn, err = (&net.Dialer{}).DialContext(req.Context(), "tcp", host)
	}
	if err != nil {
		return nil, err
	}

	if req.URL.Scheme == "https" {
		cfg := t.TLSConfig
		if cfg == nil {
			cfg = &tls.Config{}
		}
		if cfg.ServerName == "" {
			cfg = cfg.Clone()
			cfg.ServerName = req.URL.Hostname()
		}
		tlsConn := tls.Client(conn, cfg)
		if err := tlsConn.HandshakeContext(req.Context()); err != nil {
			_ = conn.Close()
			return nil, err
		}
		conn = tlsConn
	}
	return conn, nil
}

// RoundTrip sends the request over a fresh connection, teeing the raw
// request and response bytes into a new Exchange.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	conn, err := t.dial(req)
	if err != nil {
		return nil, err
	}

	exchange := t.Recorder.NewExchange(req.URL.String())
	exchange.SetConn(conn)

	if err := req.Write(io.MultiWriter(conn, exchange.RequestWriter())); err != nil {
		exchange.Discard()
		_ = conn.Close()
		return nil, err
	}

	br := bufio.NewReader(io.TeeReader(conn, exchange.ResponseWriter()))
	resp, err := http.ReadResponse(br, req)
	if err != nil {
		exchange.Discard()
		_ = conn.Close()
		return nil, err
	}

	resp.Body = &recordedBody{body: resp.Body, exchange: exchange, conn: conn}
	return resp, nil
}

// recordedBody commits the exchange once the caller is done with the
// response. Close drains the remainder of the body so the capture always
// covers the full response.
type recordedBody struct {
	body     io.ReadCloser
	exchange *Exchange
	conn     net.Conn
	closed   bool
}

func (b *recordedBody) Read(p []byte) (int, error) {
	return b.body.Read(p)
}

func (b *recordedBody) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true

	_, drainErr := io.Copy(io.Discard, b.body)
	closeErr := b.body.Close()
	_ = b.conn.Close()

	if drainErr != nil {
		b.exchange.Discard()
		return drainErr
	}
	if closeErr != nil {
		b.exchange.Discard()
		return closeErr
	}
	return b.exchange.Commit()
}
