package logger

import (
	"os"
	"testing"

	"github.com/aman-churiwal/api-manager/internal/config"
	log "github.com/sirupsen/logrus"
	gormlogger "gorm.io/gorm/logger"
)

func TestParseLevelFallsBackToInfo(t *testing.T) {
	if got := parseLevel("verbose"); got != log.InfoLevel {
		t.Fatalf("expected info level, got %v", got)
	}
	if got := parseLevel(" DEBUG "); got != log.DebugLevel {
		t.Fatalf("expected debug level, got %v", got)
	}
}

func TestWriterWithoutFileIsStdout(t *testing.T) {
	if w := Writer(config.LoggingConfig{}); w != os.Stdout {
		t.Fatalf("expected stdout writer, got %T", w)
	}
}

func TestGormLevel(t *testing.T) {
	if GormLevel("silent") != gormlogger.Silent {
		t.Fatal("expected silent")
	}
	if GormLevel("") != gormlogger.Warn {
		t.Fatal("expected warn default")
	}
}
