package settings

import (
	"context"
	"fmt"

	"tgnotifier/internal/storage"
)

// Install writes a value for every key not yet present: the seed entry when
// seed has one (raw stored values keyed by schema key), the default
// otherwise. Keys already in the store are never touched, so a reinstall
// keeps the merchant's settings.
func Install(ctx context.Context, st storage.Store, seed map[string]string) error {
	for key, raw := range seed {
		if _, err := Decode(key, raw, true); err != nil {
			return err
		}
	}

	for _, f := range Schema {
		if _, ok, err := st.Get(ctx, f.Key); err != nil {
			return fmt.Errorf("install %s: %w", f.Key, err)
		} else if ok {
			continue
		}
		if raw, ok := seed[f.Key]; ok {
			if err := st.Set(ctx, f.Key, raw); err != nil {
				return fmt.Errorf("seed %s: %w", f.Key, err)
			}
			continue
		}
		if err := put(ctx, st, f.Key, f.Default); err != nil {
			return err
		}
	}
	return nil
}

// Uninstall removes every key.
func Uninstall(ctx context.Context, st storage.Store) error {
	return st.Delete(ctx, Keys()...)
}
