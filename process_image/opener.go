package process_image

import (
	"fmt"
	"strings"
	"sync"

	"crashmem/process"
)

// Opener resolves a fixed process name to an Image, the way the real
// per-OS openers resolve a name to a live PID. While the image is not
// running, lookups fail with ErrProcessNotFound, so tests can exercise
// the attach-before-launch race and re-attach after exit.
type Opener struct {
	mu    sync.Mutex
	name  string
	image *Image
	opens int
}

var _ process.Opener = (*Opener)(nil)

// NewOpener creates an Opener serving image under the given process name
func NewOpener(name string, image *Image) *Opener {
	return &Opener{name: name, image: image}
}

// Opens returns how many successful opens were served
func (o *Opener) Opens() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens
}

// OpenByName opens the image when the name matches and the image is
// running
func (o *Opener) OpenByName(name string) (process.Process, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !strings.EqualFold(name, o.name) || !o.image.Running() {
		return nil, fmt.Errorf("%q: %w", name, process.ErrProcessNotFound)
	}

	if err := o.image.Open(o.image.GetPID()); err != nil {
		return nil, err
	}
	o.opens++
	return o.image, nil
}

// OpenByPID opens the image when the PID matches
func (o *Opener) OpenByPID(pid process.ProcessID) (process.Process, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if pid != o.image.GetPID() || !o.image.Running() {
		return nil, fmt.Errorf("pid %d: %w", pid, process.ErrProcessNotFound)
	}

	if err := o.image.Open(pid); err != nil {
		return nil, err
	}
	o.opens++
	return o.image, nil
}
