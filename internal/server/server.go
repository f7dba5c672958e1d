// Package server implements the line-oriented TCP/TLS protocol in
// front of the engine: AUTH, OPEN, SET, GET, ITER, CLOSE, EXIT plus a
// superuser-only user/grant management surface.
package server

import (
	"bufio"
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ubco-db/btree/internal/auth"
	"github.com/ubco-db/btree/internal/config"
	"github.com/ubco-db/btree/internal/logger"
)

type Server struct {
	cfg      *config.Config
	auth     *auth.Authenticator
	store    auth.Store
	log      *logger.Logger
	ln       net.Listener
	shutdown chan struct{}
}

func New(cfg *config.Config, log *logger.Logger) (*Server, error) {
	store, err := auth.NewFileStore(cfg.UserFile)
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:      cfg,
		auth:     auth.NewAuthenticator(store),
		store:    store,
		log:      log,
		shutdown: make(chan struct{}),
	}, nil
}

func (s *Server) Listen() error {
	var l net.Listener
	var err error

	if s.cfg.EnableTLS {
		cert, cErr := tls.LoadX509KeyPair(s.cfg.TLSCert, s.cfg.TLSKey)
		if cErr != nil {
			return fmt.Errorf("failed to load TLS certificate: %w", cErr)
		}
		tlsCfg := &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
		l, err = tls.Listen("tcp", s.cfg.Addr, tlsCfg)
		if err != nil {
			return fmt.Errorf("failed to start TLS listener: %w", err)
		}
		s.log.Infof("listening on %s (TLS)", s.cfg.Addr)
	} else {
		l, err = net.Listen("tcp", s.cfg.Addr)
		if err != nil {
			return fmt.Errorf("failed to start TCP listener: %w", err)
		}
		s.log.Infof("listening on %s", s.cfg.Addr)
	}

	s.ln = l

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		s.log.Infof("shutting down")
		close(s.shutdown)
		s.ln.Close()
	}()

	for {
		conn, err := l.Accept()
		select {
		case <-s.shutdown:
			return nil
		default:
		}
		if err != nil {
			select {
			case <-s.shutdown:
				return nil
			default:
				continue
			}
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	sess := &Session{}
	defer sess.CloseDB()

	scanner := bufio.NewScanner(conn)
	conn.Write([]byte(Prompt))

	for scanner.Scan() {
		select {
		case <-s.shutdown:
			conn.Write([]byte("\nshutting down\n"))
			return
		default:
		}

		resp := s.exec(sess, scanner.Text())
		conn.Write([]byte(resp.Text + "\n"))
		if resp.Close {
			return
		}
		conn.Write([]byte(Prompt))
	}
}

func (s *Server) exec(sess *Session, line string) Response {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return Response{}
	}

	switch strings.ToUpper(parts[0]) {
	case "AUTH":
		return s.authCommand(sess, parts)
	case "OPEN":
		return s.openDBCommand(sess, parts)
	case "SET":
		return setCommand(sess, parts)
	case "GET":
		return getCommand(sess, parts)
	case "ITER":
		return iterCommand(sess, parts)
	case "DEL":
		return delCommand(sess, parts)
	case "CREATEUSER":
		return s.createUserCommand(sess, parts)
	case "DELUSER":
		return s.delUserCommand(sess, parts)
	case "GRANTDB":
		return s.grantDBCommand(sess, parts)
	case "REVOKEDB":
		return s.revokeDBCommand(sess, parts)
	case "DROPDB":
		return s.dropDBCommand(sess, parts)
	case "CLOSE":
		sess.CloseDB()
		return respond(msgOK)
	case "EXIT":
		sess.CloseDB()
		return Response{Text: "bye", Close: true}
	default:
		return errResponse("unknown command " + parts[0])
	}
}
