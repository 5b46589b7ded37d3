// @title           DocChat API
// @version         1.0
// @description     Question answering over categorized PDF documents. Answers cite document and page.

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/akolanti/DocChat/internal/app"
	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/handlers"
	"github.com/akolanti/DocChat/internal/mcpserver"
	"github.com/akolanti/DocChat/internal/middleware"
	"github.com/akolanti/DocChat/internal/server"
	"github.com/akolanti/DocChat/pkg/logger_i"
)

var (
	configPath string
	listenAddr string
	disableMCP bool
)

func main() {
	flag.StringVar(&configPath, "config", "", "YAML config file (default $DOCCHAT_CONFIG)")
	flag.StringVar(&listenAddr, "listen-addr", "", "server listen address, overrides the config")
	flag.BoolVar(&disableMCP, "no-mcp", false, "do not mount the MCP endpoint at /mcp")
	flag.Parse()

	settings, err := config.Load(configPath)
	if err != nil {
		// logging is not configured yet
		logger_i.Init(config.Default().Log)
		logger_i.NewLogger("main").Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	logger_i.Init(settings.Log)
	var logger = logger_i.NewLogger("main")

	if listenAddr != "" {
		settings.Server.ListenAddr = listenAddr
	}

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	logger.Info("Starting document service", "provider", settings.Generation.Provider, "index", settings.Storage.IndexBackend, "history", settings.History.Store)
	a, err := app.Build(serviceContext, settings)
	if err != nil {
		logger.Error("One or more external services failed to initialize. Shutting down.", "error", err)
		return
	}

	h := handlers.NewHandler(a.Service, a.Sessions, settings.Server)
	chain := middleware.NewChain(settings.Server)
	var mcpHandler = mcpserver.New(a.Service).Handler()
	if disableMCP {
		mcpHandler = nil
	}

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	server.CreateServer(settings.Server.ListenAddr, server.NewRouter(h, chain, mcpHandler))
	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		CloseServices: func() {
			closeExternalServices()
			a.Close()
		},
	}
	go server.ShutDownHandler(shutdownParams)
	go server.Start()

	<-stopExecution
	logger.Info("Server stopped")
}
