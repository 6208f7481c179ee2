package core

import "testing"

func TestRegisterModule_DuplicatePanics(t *testing.T) {
	t.Cleanup(resetRegistry)

	RegisterModule(&trackingModule{id: "provider.dup"})

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	RegisterModule(&trackingModule{id: "provider.dup"})
}

func TestGetModulesByNamespace(t *testing.T) {
	t.Cleanup(resetRegistry)

	RegisterModule(&trackingModule{id: "provider.openai"})
	RegisterModule(&trackingModule{id: "provider.anthropic"})
	RegisterModule(&trackingModule{id: "memory.sqlite"})
	RegisterModule(&trackingModule{id: "providerx.other"})

	got := GetModulesByNamespace("provider")
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "provider.anthropic" || got[1].ID != "provider.openai" {
		t.Errorf("got %v, want sorted anthropic, openai", got)
	}
}

func TestModuleID_Namespace(t *testing.T) {
	t.Parallel()

	tests := map[ModuleID]string{
		"provider.openai": "provider",
		"gateway.http":    "gateway",
		"heartbeat":       "heartbeat",
	}
	for id, want := range tests {
		if got := id.Namespace(); got != want {
			t.Errorf("%s.Namespace() = %q, want %q", id, got, want)
		}
	}
}
