// internal/app/bootstrap/config_test.go
package bootstrap

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestValidateConfig(t *testing.T) {
	log := zap.NewNop()

	good := AppConfig{
		MongoURI:    "mongodb://localhost:27017",
		NotifyDelay: 10 * time.Second,
	}
	if err := ValidateConfig(nil, good, log); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	badURI := good
	badURI.MongoURI = "http://not-a-mongo-uri"
	if err := ValidateConfig(nil, badURI, log); err == nil {
		t.Error("invalid mongo URI accepted")
	}

	badDelay := good
	badDelay.NotifyDelay = -time.Second
	if err := ValidateConfig(nil, badDelay, log); err == nil {
		t.Error("negative notify delay accepted")
	}
}
