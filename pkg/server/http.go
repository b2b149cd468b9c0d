package server

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"strings"

	"salesdesk/pkg/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ProvideHTTPServer = fx.Module("http.server",
	fx.Provide(NewHttpServer),
	fx.Invoke(Run),
)

type Server struct {
	server *http.Server
	certs  *certStore
}

type Params struct {
	fx.In
	Config  *config.Config
	Handler *gin.Engine
}

// listenAddr accepts either a bare port ("8080") or a host:port pair.
func listenAddr(addr string) string {
	if addr == "" {
		return ":8080"
	}
	if strings.Contains(addr, ":") {
		return addr
	}
	return ":" + addr
}

func NewHttpServer(p Params) (*Server, error) {
	cfg := p.Config
	srv := &Server{
		server: &http.Server{
			Addr:         listenAddr(cfg.Server.Addr),
			Handler:      p.Handler,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
	}

	if cfg.TLS.Enable {
		certs, err := newCertStore(cfg.TLS.CertPath, cfg.TLS.KeyPath)
		if err != nil {
			return nil, err
		}
		srv.certs = certs
		srv.server.TLSConfig = &tls.Config{
			MinVersion:     tls.VersionTLS12,
			GetCertificate: certs.get,
		}
	}

	return srv, nil
}

func (s *Server) serve(ln net.Listener) {
	var err error
	if s.server.TLSConfig != nil {
		err = s.server.ServeTLS(ln, "", "")
	} else {
		err = s.server.Serve(ln)
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		zap.L().Error("HTTP server exited", zap.Error(err))
	}
}

func Run(lc fx.Lifecycle, srv *Server) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// bind before returning so a taken port fails startup
			ln, err := net.Listen("tcp", srv.server.Addr)
			if err != nil {
				return err
			}
			if srv.certs != nil {
				go srv.certs.watch()
			}
			zap.L().Info("Starting HTTP server",
				zap.String("addr", ln.Addr().String()),
				zap.Bool("tls", srv.server.TLSConfig != nil))
			go srv.serve(ln)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			zap.L().Info("Shutting down HTTP server gracefully...")
			if srv.certs != nil {
				srv.certs.stop()
			}
			return srv.server.Shutdown(ctx)
		},
	})
}
