package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"photobooth/internal/logger"

	"github.com/go-chi/chi/v5"
)

// ShowLogsHandler serves the {level} log file as text/plain.
func ShowLogsHandler(logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename, ok := logFile(w, r)
		if !ok {
			return
		}
		serveLogFile(w, r, logger.Dir(), filename)
	}
}

// ClearLogsHandler truncates the {level} log file via the logger utility.
func ClearLogsHandler(logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename, ok := logFile(w, r)
		if !ok {
			return
		}
		if err := logger.CleanLogs(filename); err != nil {
			http.Error(w, "Unable to clear log", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func logFile(w http.ResponseWriter, r *http.Request) (string, bool) {
	level := chi.URLParam(r, "level")
	name := logger.FileName(level)
	if name == "" {
		http.Error(w, "Unknown log level: "+level, http.StatusNotFound)
		return "", false
	}
	return name, true
}

// serveLogFile is a helper that sets headers and serves a log file if it exists.
func serveLogFile(w http.ResponseWriter, r *http.Request, logDir, filename string) {
	filePath := filepath.Join(logDir, filename)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Log file not found: " + filename))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	http.ServeFile(w, r, filePath)
}
