package workflow

import (
	"context"
	"testing"

	"bitbucket.org/dojoworks/dojo_backend/utils"
)

func TestXmlCacheKeyIsTenantScoped(t *testing.T) {
	ctx := utils.SetTenantIdInContext(context.Background(), "dojo-munich")
	key, ok := xmlCacheKey(ctx, 42)
	if !ok {
		t.Fatal("tenant in context must yield a cache key")
	}
	if key != "SepaBatchXml:dojo-munich:42" {
		t.Fatalf("key = %q, want SepaBatchXml:dojo-munich:42", key)
	}

	other, _ := xmlCacheKey(utils.SetTenantIdInContext(context.Background(), "dojo-berlin"), 42)
	if other == key {
		t.Fatal("different tenants must not share a cache key for the same batch id")
	}
}

func TestXmlCacheKeyRequiresTenant(t *testing.T) {
	if _, ok := xmlCacheKey(context.Background(), 42); ok {
		t.Fatal("no tenant in context must disable the cache")
	}
}
