package server

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/akolanti/DocChat/internal/adapter/utils"
	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/handlers"
	"github.com/akolanti/DocChat/internal/middleware"
	"github.com/akolanti/DocChat/pkg/logger_i"
)

var (
	server  *http.Server
	_logger *logger_i.Logger
)

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	CloseServices    func()
}

// NewRouter mounts the API behind the middleware chain. mcpHandler may be nil.
func NewRouter(h *handlers.Handler, chain *middleware.Chain, mcpHandler http.Handler) http.Handler {
	r := utils.NewRouter()

	r.Router.Get("/health", h.GetHandler)

	r.Router.Post("/upload", chain.Wrap(h.UploadHandler))
	r.Router.Get("/categories", chain.Wrap(h.ListCategoriesHandler))
	r.Router.Post("/categories", chain.Wrap(h.CreateCategoryHandler))
	r.Router.Delete("/categories/{category}", chain.Wrap(h.DeleteCategoryHandler))
	r.Router.Get("/categories/{category}/documents", chain.Wrap(h.ListDocumentsHandler))
	r.Router.Delete("/categories/{category}/documents/{filename}", chain.Wrap(h.DeleteDocumentHandler))

	r.Router.Post("/chat/start", chain.Wrap(h.ChatStartHandler))
	r.Router.Post("/chat", chain.Wrap(h.ChatHandler))
	r.Router.Post("/ai-solution", chain.Wrap(h.AiSolutionHandler))
	r.Router.Get("/chat/history/{category}", chain.Wrap(h.GetHistoryHandler))
	r.Router.Delete("/chat/history/{category}", chain.Wrap(h.DeleteHistoryHandler))

	if mcpHandler != nil {
		r.Router.Handle("/mcp", chain.Wrap(mcpHandler.ServeHTTP))
	}
	return r.Router
}

// CreateServer configures the process server. Call it before Start and ShutDownHandler.
func CreateServer(listenAddr string, handler http.Handler) {
	_logger = logger_i.NewLogger("Server")
	server = &http.Server{
		Addr:         listenAddr,
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
}

func Start() {
	_logger.Info("Server is listening at", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_logger.Error("Server crashed", "error", err.Error(), "addr", server.Addr)
	}
}

func ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	logger := _logger
	logger.Info("Server is shutting down", "signal", state.String())

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		if server != nil {
			server.SetKeepAlivesEnabled(false)
			if err := server.Shutdown(ctx); err != nil {
				logger.Error("Could not shutdown gracefully", "error", err)
			}
		}
		shutdownParams.CloseServices()
		close(shutdownParams.StopExecution)
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Gracefully shut down")
	case <-ctx.Done():
		logger.Info("Force Shut down")
		os.Exit(1)
	}
}
