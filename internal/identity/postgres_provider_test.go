package identity

import (
	"testing"
)

// PostgresProviderはProviderインターフェースを満たすことを検証
func TestPostgresProvider_ImplementsInterface(t *testing.T) {
	var _ Provider = (*PostgresProvider)(nil)
}

// NewPostgresProviderが正しく初期化されることを検証
func TestNewPostgresProvider_Initializes(t *testing.T) {
	provider := NewPostgresProvider(nil)
	if provider == nil {
		t.Fatal("expected non-nil provider")
	}
}
