// Package api — HTTP-сервер мини-приложения: роутер gin и жизненный
// цикл http.Server.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// shutdownTimeout — сколько ждём завершения активных запросов.
const shutdownTimeout = 15 * time.Second

// Server — HTTP-сервер.
type Server struct {
	http *http.Server
}

// NewServer создаёт сервер.
func NewServer(addr string, handler http.Handler, readTimeout, writeTimeout time.Duration) *Server {
	return &Server{http: &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}}
}

// Run слушает адрес до отмены ctx, затем дожидается активных запросов.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Infof("HTTP-сервер слушает %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка остановки HTTP-сервера: %w", err)
	}
	log.Info("HTTP-сервер остановлен")
	return nil
}
