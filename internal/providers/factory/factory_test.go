package factory

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/example/phone-mailer/internal/config"
	waprovider "github.com/example/phone-mailer/internal/providers/whatsapp"
)

func TestGatewayBackends(t *testing.T) {
	p, err := Gateway(config.GatewayConfig{Provider: " Mock "}, zerolog.Nop())
	if err != nil {
		t.Fatalf("mock backend: %v", err)
	}
	if _, ok := p.(*waprovider.MockProvider); !ok {
		t.Fatalf("expected mock provider, got %T", p)
	}

	p, err = Gateway(config.GatewayConfig{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("default backend: %v", err)
	}
	if _, ok := p.(*waprovider.CloudProvider); !ok {
		t.Fatalf("expected http provider by default, got %T", p)
	}

	if _, err := Gateway(config.GatewayConfig{Provider: "twilio"}, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for unsupported backend")
	}
}
