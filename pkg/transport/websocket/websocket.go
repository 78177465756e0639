// Package websocket provides the websocket endpoint. Binary messages carry
// the byte stream in either direction; message boundaries are not meaningful.
package websocket

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/mwboot/pkg/transport"
)

// Scheme is the URL scheme of the endpoint.
const Scheme = "ws"

// DefaultPath is the HTTP path the endpoint serves on.
const DefaultPath = "/boot"

// Endpoint serves websocket clients over HTTP.
type Endpoint struct {
	Addr string
	Path string
}

// Handler creates the http.Handler attaching every websocket client and
// holding the request open until the connection is closed.
func Handler(ctx context.Context, attach transport.AttachFunc) http.Handler {
	return websocket.Handler(func(conn *websocket.Conn) {
		conn.PayloadType = websocket.BinaryFrame
		glog.Infof("websocket client %s connected", conn.Request().RemoteAddr)
		nc := transport.NewNotifyCloser(conn)
		attach(nc)
		select {
		case <-nc.Closed():
		case <-ctx.Done():
			nc.Close()
		}
	})
}

// Serve implements transport.Endpoint.
func (e *Endpoint) Serve(ctx context.Context, attach transport.AttachFunc) error {
	path := e.Path
	if path == "" {
		path = DefaultPath
	}
	mux := http.NewServeMux()
	mux.Handle(path, Handler(ctx, attach))
	server := &http.Server{Addr: e.Addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()
	glog.Infof("listening on ws://%s%s", e.Addr, path)
	err := server.ListenAndServe()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Dial connects to a websocket endpoint.
func Dial(u *url.URL) (io.ReadWriteCloser, error) {
	target := *u
	if target.Path == "" {
		target.Path = DefaultPath
	}
	conn, err := websocket.Dial(target.String(), "", "http://"+u.Host+"/")
	if err != nil {
		return nil, err
	}
	conn.PayloadType = websocket.BinaryFrame
	return conn, nil
}

func init() {
	transport.Register(Scheme, func(u *url.URL) (transport.Endpoint, error) {
		return &Endpoint{Addr: u.Host, Path: u.Path}, nil
	})
	transport.RegisterDialer(Scheme, Dial)
}
