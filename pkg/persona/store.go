package persona

import (
	"os"

	"github.com/kitayama-ai/x-quote-rt-bot/pkg/atomicfile"
)

// LoadProfile reads a persisted Profile from path. A missing file returns
// the zero Profile ("not yet analyzed") and nothing is written.
func LoadProfile(path string) (Profile, error) {
	var p Profile
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return p, nil
	}
	if err := atomicfile.ReadJSON(path, &p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// SaveProfile atomically persists p to path, creating or replacing any
// prior profile for the account.
func SaveProfile(path string, p Profile) error {
	return atomicfile.WriteJSON(path, p)
}
