package tuning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"path/filepath"

	"rpflavor/internal/sim/roleplay"
	"rpflavor/internal/sim/textpool"
)

// Bundle is everything the engine needs from disk.
type Bundle struct {
	Tuning Tuning
	Config roleplay.Config
	Pools  *textpool.Store
}

// LoadBundle reads the tuning file and, when the pool is enabled, every pool
// file it names. Pool paths are relative to the tuning file. A missing tuning
// file or pool file is not fatal and is reported in notes; a broken one is.
func LoadBundle(path string) (Bundle, []string, error) {
	t, notes, err := Load(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Bundle{}, notes, err
		}
		notes = append([]string{"tuning not found, using defaults: " + err.Error()}, notes...)
	}
	b := Bundle{Tuning: t, Config: t.Compile(), Pools: textpool.Empty()}
	if !t.TextPool.Enable {
		return b, notes, nil
	}
	store, errs := textpool.Load(t.PoolFiles(filepath.Dir(path)))
	for _, e := range errs {
		notes = append(notes, e.Error())
	}
	b.Pools = store
	return b, notes, nil
}

// Digest identifies the effective tuning values.
func (t Tuning) Digest() string {
	b, _ := json.Marshal(t)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
