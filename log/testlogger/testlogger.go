package testlogger

import (
	"os"
	"testing"

	"github.com/bnb-chain/kzg-ceremony/log"
)

// Level returns debug when KZG_TEST_LOGS=DEBUG, info otherwise.
func Level(t testing.TB) int {
	logLevel := log.InfoLevel
	debugEnv, isDebug := os.LookupEnv("KZG_TEST_LOGS")
	if isDebug && debugEnv == "DEBUG" {
		t.Log("Enabling DebugLevel logs")
		logLevel = log.DebugLevel
	}

	return logLevel
}

// New returns a configured logger
func New(t testing.TB) log.Logger {
	return log.New(nil, Level(t), true).
		With("testName", t.Name())
}
