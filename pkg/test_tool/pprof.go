package testtool

import (
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof on DefaultServeMux

	"chat_sync_service/pkg/config"
	"chat_sync_service/pkg/logger"

	"go.uber.org/zap"
)

// PprofAddr listen address of the pprof server
const PprofAddr = "127.0.0.1:6060"

// StartPprof serve pprof on PprofAddr, disabled in production
func StartPprof() bool {
	if config.IsProduction() {
		logger.Log.Info("production environment detected, pprof is disabled")
		return false
	}

	go func() {
		logger.Log.Info("starting pprof server", zap.String("addr", PprofAddr))
		if err := http.ListenAndServe(PprofAddr, nil); err != nil {
			logger.Log.Warn("pprof server stopped", zap.Error(err))
		}
	}()
	return true
}
