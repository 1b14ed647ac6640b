// Package device persists a stable per-installation identity used as the
// key into the shared session document.
package device

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hangarcore/pkg/logger"
)

// FileName is the identity file under the per-user writable directory.
const FileName = "device_id.txt"

// ID returns the device identity from dir, creating and persisting a fresh
// UUIDv4 when the file is missing. When the file exists but cannot be read
// (or holds garbage), a new id is returned for this run only and NOT
// persisted, so a transient permission problem cannot overwrite a good
// identity.
func ID(dir string) string {
	path := filepath.Join(dir, FileName)
	b, err := os.ReadFile(path)
	if err == nil {
		if id, perr := uuid.Parse(strings.TrimSpace(string(b))); perr == nil {
			return id.String()
		}
		logger.Log.Warn("device_id_invalid", zap.String("path", path))
		return uuid.NewString()
	}
	if !os.IsNotExist(err) {
		logger.Log.Warn("device_id_unreadable", zap.String("path", path), zap.Error(err))
		return uuid.NewString()
	}

	id := uuid.NewString()
	if err := os.MkdirAll(dir, 0o700); err == nil {
		if werr := os.WriteFile(path, []byte(id+"\n"), 0o600); werr != nil {
			logger.Log.Warn("device_id_persist_failed", zap.String("path", path), zap.Error(werr))
		}
	}
	return id
}
