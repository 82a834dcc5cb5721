package logging

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewParsesLevel(t *testing.T) {
	logger, err := New("debug", "")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %v", logger.GetLevel())
	}
}

func TestNewFallsBackToInfoOnBadLevel(t *testing.T) {
	logger, err := New("not-a-level", "")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if logger.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected fallback to info level, got %v", logger.GetLevel())
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "indexer.log")
	logger, err := New("info", path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	logger.Info("hello")
}

func TestWithComponentAttachesField(t *testing.T) {
	logger, _ := New("info", "")
	entry := WithComponent(logger, "blockarchive")
	if entry.Data["component"] != "blockarchive" {
		t.Fatalf("expected component field to be set, got %+v", entry.Data)
	}
}
