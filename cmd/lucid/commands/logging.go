package commands

import (
	"fmt"
	"net/url"
	"os"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/robottwo/lucid/internal/core"
)

func init() {
	// Register custom zstd sink for compressed logging
	if err := zap.RegisterSink("zstd", newCompressedSink); err != nil {
		panic(fmt.Sprintf("failed to register zstd sink: %v", err))
	}
}

// initializeLogger builds the process logger writing zstd-compressed JSON
// logs to the lucid data dir. Dev builds force debug level.
func initializeLogger(logLevel string) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", logLevel, err)
	}
	if BUILD_VERSION == "dev" {
		level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	loggerConfig := zap.NewProductionConfig()
	loggerConfig.Level = level
	loggerConfig.OutputPaths = []string{
		"zstd://" + core.LogFile(),
	}
	return loggerConfig.Build()
}

// newCompressedSink creates a new compressed sink from a URL.
// The URL path should point to the log file location.
// Implements proper zstd frame continuation by checking if the existing file
// contains valid zstd frames and appending new frames appropriately.
func newCompressedSink(u *url.URL) (zap.Sink, error) {
	filePath := u.Path

	flags := os.O_CREATE | os.O_WRONLY

	fileInfo, err := os.Stat(filePath)
	if err == nil && fileInfo.Size() > 0 {
		if isValidZstdFile(filePath) {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
	}

	file, err := os.OpenFile(filePath, flags, 0644)
	if err != nil {
		return nil, err
	}

	encoder, err := zstd.NewWriter(file, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	return &compressedSink{
		file:    file,
		encoder: encoder,
	}, nil
}

// isValidZstdFile checks if a file starts with a valid zstd magic number.
// Returns false if file doesn't exist, is empty, or has invalid header.
func isValidZstdFile(filePath string) bool {
	file, err := os.Open(filePath)
	if err != nil {
		return false
	}
	defer func() {
		_ = file.Close()
	}()

	buf := make([]byte, 4)
	n, err := file.Read(buf)
	if err != nil || n < 4 {
		return false
	}

	return buf[0] == 0x28 && buf[1] == 0xB5 && buf[2] == 0x2F && buf[3] == 0xFD
}

// compressedSink wraps a zstd encoder to provide compressed log file writing.
// It implements the WriteSyncer interface required by zap's custom sinks.
type compressedSink struct {
	file    *os.File
	encoder *zstd.Encoder
}

// Write writes compressed data to the underlying file via the zstd encoder.
// Returns len(p) on success to satisfy io.Writer contract, regardless of
// how many compressed bytes were written.
func (s *compressedSink) Write(p []byte) (int, error) {
	_, err := s.encoder.Write(p)
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

// Sync flushes the encoder buffer and syncs the file to disk.
func (s *compressedSink) Sync() error {
	if err := s.encoder.Flush(); err != nil {
		return err
	}
	return s.file.Sync()
}

// Close closes the encoder and then closes the underlying file.
// Always closes the file to prevent file descriptor leaks, even if
// encoder close fails.
func (s *compressedSink) Close() error {
	encErr := s.encoder.Close()
	fileErr := s.file.Close()

	if encErr != nil {
		return encErr
	}
	return fileErr
}
