package settings

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/example/phone-mailer/internal/settings/repository"
)

func TestSnapshotServesPreloadedScopes(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory(map[string]map[string]string{
		DefaultScope: {KeyEnabled: "1", KeyStoreName: "Main"},
		"store-2":    {KeyStoreName: "Second"},
	})
	r := NewResolver(repo, nil, zerolog.Nop())
	snap := NewSnapshot(ctx, r, zerolog.Nop(), DefaultScope, "store-2", "store-2")

	require.ElementsMatch(t, []string{DefaultScope, "store-2"}, snap.Scopes())

	// Later writes are not visible to preloaded scopes.
	require.NoError(t, repo.Upsert(ctx, "store-2", KeyStoreName, "Renamed"))
	require.Equal(t, "Second", snap.StoreName(ctx, "store-2"))
	require.True(t, snap.IsEnabled(ctx, "store-2"))

	// Unknown scopes fall through to the source every time.
	require.Equal(t, "Main", snap.StoreName(ctx, "store-3"))
	require.NoError(t, repo.Upsert(ctx, "store-3", KeyStoreName, "Third"))
	require.Equal(t, "Third", snap.StoreName(ctx, "store-3"))
	require.Len(t, snap.Scopes(), 2)
}

func TestSnapshotTemplatesAreCopies(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(repository.NewMemory(nil), nil, zerolog.Nop())
	snap := NewSnapshot(ctx, r, zerolog.Nop(), DefaultScope)

	tpl := snap.Templates(ctx, DefaultScope)
	tpl[TemplateWelcome] = "mutated"

	require.Equal(t, DefaultTemplates()[TemplateWelcome], snap.Template(ctx, DefaultScope, TemplateWelcome))
	require.Equal(t, DefaultTemplates(), snap.Load(ctx, DefaultScope).Templates)
}

func TestSnapshotValidateConfig(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(repository.NewMemory(map[string]map[string]string{
		"ok":      {KeyEnabled: "1", KeyMessagingEnabled: "1", KeyMessagingAPIKey: "k", KeyMessagingInstance: "i"},
		"partial": {KeyEnabled: "1", KeyMessagingEnabled: "1", KeyMessagingInstance: "i"},
	}), nil, zerolog.Nop())
	snap := NewSnapshot(ctx, r, zerolog.Nop(), "ok", "partial")

	require.True(t, snap.ValidateConfig(ctx, "ok"))
	require.False(t, snap.ValidateConfig(ctx, "partial"))
	require.False(t, snap.ValidateConfig(ctx, "absent"))
	require.Equal(t, Credentials{APIKey: "k", InstanceID: "i"}, snap.Credentials(ctx, "ok"))
}

func TestSnapshotConcurrentReads(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(repository.NewMemory(map[string]map[string]string{
		DefaultScope: {KeyEnabled: "1", KeyDomainMode: "custom", KeyCustomDomain: "x.example"},
	}), nil, zerolog.Nop())
	snap := NewSnapshot(ctx, r, zerolog.Nop(), DefaultScope)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if snap.DomainMode(ctx, DefaultScope) != DomainCustom || snap.CustomDomain(ctx, DefaultScope) != "x.example" {
					t.Errorf("unexpected snapshot value")
					return
				}
			}
		}()
	}
	wg.Wait()
}
