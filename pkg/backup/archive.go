package backup

import (
	"fmt"
	"os"
)

// Archive describes one backup file. It does not own the file and may
// name a file that does not exist.
type Archive struct {
	Identity

	Name string
	path string
}

// NewArchive validates name and returns an archive that is not bound to
// any repository.
func NewArchive(name string) (*Archive, error) {
	identity, err := ParseName(name)
	if err != nil {
		return nil, err
	}

	return &Archive{
		Identity: identity,
		Name:     name,
	}, nil
}

func (a *Archive) String() string {
	return a.Name
}

// Path is empty for archives not obtained from a Repository.
func (a *Archive) Path() string {
	return a.path
}

// Size stats the archive file.
func (a *Archive) Size() (int64, error) {
	if a.path == "" {
		return 0, fmt.Errorf("archive '%s' is not bound to a repository", a.Name)
	}

	info, err := os.Stat(a.path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
