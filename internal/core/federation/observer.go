package federation

import (
	"time"

	pkgif "github.com/dep2p/go-fedhost/pkg/interfaces"
)

type nopObserver struct{}

var _ pkgif.FederationObserver = nopObserver{}

func (nopObserver) RemoteFetched(string, error, time.Duration)        {}
func (nopObserver) ModuleLoaded(string, string, error, time.Duration) {}
func (nopObserver) VersionConflict(string)                            {}
