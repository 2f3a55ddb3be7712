package persist

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/thanos-io/objstore"
)

// Archive uploads the file at path on fs to bkt under its base name and
// returns the object name.
func Archive(ctx context.Context, bkt objstore.Bucket, fs afero.Fs, path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	name := filepath.Base(path)
	if err := bkt.Upload(ctx, name, f); err != nil {
		return "", fmt.Errorf("upload %s to %s: %w", name, bkt.Name(), err)
	}

	log.Info().
		Str("component", "persist").
		Str("bucket", bkt.Name()).
		Str("object", name).
		Msg("File archived")
	return name, nil
}
