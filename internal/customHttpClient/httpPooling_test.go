package customHttpClient

import (
	"net/http"
	"testing"
	"time"

	"github.com/akolanti/DocChat/internal/config"
)

func TestShared(t *testing.T) {
	if Shared() != Shared() {
		t.Error("Shared must hand out a single client")
	}
	transport, ok := Shared().Transport.(*http.Transport)
	if !ok {
		t.Fatalf("transport type %T", Shared().Transport)
	}
	if transport.MaxIdleConnsPerHost != config.MaxIdleConnsPerHost {
		t.Errorf("MaxIdleConnsPerHost = %d", transport.MaxIdleConnsPerHost)
	}
	if New(time.Second).Timeout != time.Second {
		t.Error("timeout not applied")
	}
}
