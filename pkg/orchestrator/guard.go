package orchestrator

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/topdeveloper55/ether-pulse-bridge/internal/metrics"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/bridge"
)

// walletGuard allows one in-flight submission per wallet address.
type walletGuard struct {
	mu     sync.Mutex
	owners map[common.Address]string
}

func newWalletGuard() *walletGuard {
	return &walletGuard{owners: make(map[common.Address]string)}
}

// acquire claims addr for flowID and returns the release func.
func (g *walletGuard) acquire(addr common.Address, flowID string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.owners[addr]; ok {
		return nil, bridge.InFlightError()
	}
	g.owners[addr] = flowID
	metrics.InflightFlows.Inc()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			if g.owners[addr] == flowID {
				delete(g.owners, addr)
				metrics.InflightFlows.Dec()
			}
		})
	}, nil
}

// owner returns the flow holding addr, if any.
func (g *walletGuard) owner(addr common.Address) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, ok := g.owners[addr]
	return id, ok
}
