// Package registry issues and retains the synthetic identities for a
// broadcast session and owns the FPV detection state.
package registry

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/signalsfoundry/dragonsim/model"
)

// fpvChannels are the standard 5.6-5.9 GHz FPV video channels in MHz.
var fpvChannels = []int{
	5621, 5645, 5665, 5685, 5705, 5725, 5745, 5765,
	5785, 5805, 5825, 5845, 5865, 5885,
}

var (
	ridMakes   = []string{"DJI", "Autel", "Skydio", "Parrot"}
	ridModels  = []string{"Mavic 3", "Mini 4 Pro", "Air 3", "EVO II", "X2"}
	ridSources = []string{"FAA", "EASA", "CAA"}
)

// FPV signal-strength operating range: updates drift by a bounded delta
// and are clamped so the value never leaves what the hardware reports.
const (
	fpvMinSignal   = 1000
	fpvMaxSignal   = 1600
	fpvSignalDrift = 30
)

// Registry is an in-memory, concurrency-safe store for session identities.
// Identities are issued once per serial and reused, so a consumer can
// correlate repeated messages to one track. The FPV detection state is the
// one piece of mutable message-to-message state in the system.
type Registry struct {
	mu sync.RWMutex

	serials []string
	caaIDs  []string
	issued  map[string]model.Identity
	idx     int
	current model.Identity

	fpv *model.FPVDetection
}

// New constructs a Registry over the given serial and CAA pools; empty
// pools fall back to the built-in defaults.
func New(serials, caaIDs []string) *Registry {
	if len(serials) == 0 {
		serials = model.DefaultSerials
	}
	if len(caaIDs) == 0 {
		caaIDs = model.DefaultCAARegistrations
	}
	r := &Registry{
		serials: serials,
		caaIDs:  caaIDs,
		issued:  make(map[string]model.Identity, len(serials)),
		idx:     -1,
	}
	r.current = r.identityFor(0)
	r.idx = 0
	return r
}

// NextDrone advances to the next serial in the pool (wrapping) and returns
// its identity. MAC and classification metadata are drawn once per serial
// and stay stable for the session.
func (r *Registry) NextDrone() model.Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.idx = (r.idx + 1) % len(r.serials)
	r.current = r.identityFor(r.idx)
	return r.current
}

// CurrentDrone returns the identity most recently issued by NextDrone.
// Pilot and home messages use this so they always reference the drone
// they belong to.
func (r *Registry) CurrentDrone() model.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// identityFor returns the stable identity for pool index i, creating it on
// first use. Caller holds the lock (or is the constructor).
func (r *Registry) identityFor(i int) model.Identity {
	serial := r.serials[i]
	if id, ok := r.issued[serial]; ok {
		return id
	}
	id := model.Identity{
		UID:    serial,
		MAC:    RandomMAC(),
		Make:   ridMakes[rand.Intn(len(ridMakes))],
		Model:  ridModels[rand.Intn(len(ridModels))],
		Source: ridSources[rand.Intn(len(ridSources))],
		CAAReg: r.caaIDs[i%len(r.caaIDs)],
	}
	r.issued[serial] = id
	return id
}

// RandomMAC returns a random MAC-like address, "A1:B2:..." form.
func RandomMAC() string {
	b := make([]byte, 6)
	for i := range b {
		b[i] = byte(rand.Intn(256))
	}
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", b[0], b[1], b[2], b[3], b[4], b[5])
}

// EnsureFPVDetection returns the FPV lock state, creating it on the first
// call. Frequency, bandwidth, and source are drawn once; every later call
// returns the same lock with its current signal strength.
func (r *Registry) EnsureFPVDetection() model.FPVDetection {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fpv == nil {
		inst := fmt.Sprintf("%02d", 1+rand.Intn(5))
		node := fmt.Sprintf("%04x", 1000+rand.Intn(9000))
		det := model.FPVDetection{
			Frequency:       fpvChannels[rand.Intn(len(fpvChannels))],
			Bandwidth:       fmt.Sprintf("%dMHz", 20*(1+rand.Intn(2))),
			SourceInst:      inst,
			SourceNode:      node,
			DetectionSource: inst + "-" + node,
			SignalStrength:  float64(1200 + rand.Intn(201)),
		}
		det.EstimatedDistance = fpvDistance(det.SignalStrength)
		r.fpv = &det
	}
	return *r.fpv
}

// FPVUpdate perturbs the lock's signal strength by a bounded delta,
// clamps it into the operating range, and returns the update. The second
// return is false when no detection exists yet; callers treat that as "no
// message", never a malformed payload.
func (r *Registry) FPVUpdate() (model.FPVUpdate, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fpv == nil {
		return model.FPVUpdate{}, false
	}

	signal := r.fpv.SignalStrength + (rand.Float64()*2-1)*fpvSignalDrift
	if signal < fpvMinSignal {
		signal = fpvMinSignal
	}
	if signal > fpvMaxSignal {
		signal = fpvMaxSignal
	}
	r.fpv.SignalStrength = signal
	r.fpv.LockSeconds += 10
	r.fpv.EstimatedDistance = fpvDistance(signal)

	return model.FPVUpdate{
		DetectionSource:   r.fpv.DetectionSource,
		Frequency:         r.fpv.Frequency,
		SignalStrength:    signal,
		EstimatedDistance: r.fpv.EstimatedDistance,
	}, true
}

// IssuedCount reports how many distinct identities have been issued so
// far, which is the number of drones a consumer could have tracked.
func (r *Registry) IssuedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.issued)
}

// HasFPVDetection reports whether a lock exists.
func (r *Registry) HasFPVDetection() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fpv != nil
}

// FPVSignal reports the lock's current signal strength, zero when no lock
// exists.
func (r *Registry) FPVSignal() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.fpv == nil {
		return 0
	}
	return r.fpv.SignalStrength
}

// fpvDistance maps a raw signal-strength value to an estimated distance in
// metres using the empirical tiers the FPV receiver firmware reports.
func fpvDistance(signal float64) float64 {
	switch {
	case signal >= 2000:
		return 10
	case signal >= 1800:
		return 25
	case signal >= 1600:
		return 50
	case signal >= 1400:
		return 100
	case signal >= 1200:
		return 300 - (signal-1200)*0.5
	case signal >= 1000:
		return 500
	default:
		return 1000
	}
}
