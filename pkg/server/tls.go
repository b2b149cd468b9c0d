package server

import (
	"crypto/tls"
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// certStore serves the current key pair and swaps it when either file on
// disk changes. A failed reload keeps the previous pair.
type certStore struct {
	certPath string
	keyPath  string

	mu   sync.RWMutex
	cert *tls.Certificate

	done     chan struct{}
	stopOnce sync.Once
}

func newCertStore(certPath, keyPath string) (*certStore, error) {
	s := &certStore{certPath: certPath, keyPath: keyPath, done: make(chan struct{})}
	if err := s.reload(); err != nil {
		return nil, fmt.Errorf("load tls key pair: %w", err)
	}
	return s, nil
}

func (s *certStore) get(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cert == nil {
		return nil, fmt.Errorf("no TLS cert loaded")
	}
	return s.cert, nil
}

func (s *certStore) reload() error {
	cert, err := tls.LoadX509KeyPair(s.certPath, s.keyPath)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cert = &cert
	s.mu.Unlock()
	return nil
}

func (s *certStore) watch() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		zap.L().Error("failed to create fsnotify watcher", zap.Error(err))
		return
	}
	defer watcher.Close()

	for _, p := range []string{s.certPath, s.keyPath} {
		if err := watcher.Add(p); err != nil {
			zap.L().Warn("cannot watch tls file", zap.String("path", p), zap.Error(err))
		}
	}

	for {
		select {
		case <-s.done:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := s.reload(); err != nil {
				zap.L().Error("failed to reload TLS cert", zap.Error(err))
				continue
			}
			zap.L().Info("TLS certificate reloaded")
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			zap.L().Error("watcher error", zap.Error(err))
		}
	}
}

func (s *certStore) stop() {
	s.stopOnce.Do(func() { close(s.done) })
}
