package solana

import (
	"context"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
)

// RPCCheckResult is the outcome of one getHealth probe
type RPCCheckResult struct {
	URL     string        `json:"url"`
	OK      bool          `json:"ok"`
	Latency time.Duration `json:"latency"`
	Error   string        `json:"error,omitempty"`
}

const healthOK = "ok"

// HealthProber calls getHealth on one endpoint
type HealthProber func(ctx context.Context, url string) (string, error)

func rpcGetHealth(ctx context.Context, url string) (string, error) {
	return rpc.New(url).GetHealth(ctx)
}

func checkRPC(ctx context.Context, probe HealthProber, url string, timeout time.Duration) RPCCheckResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	status, err := probe(ctx, url)
	latency := time.Since(start)
	if err != nil {
		return RPCCheckResult{URL: url, Latency: latency, Error: err.Error()}
	}
	if status != healthOK {
		return RPCCheckResult{URL: url, Latency: latency, Error: "node reports " + status}
	}
	return RPCCheckResult{URL: url, OK: true, Latency: latency}
}

// CheckRPCList probes every endpoint concurrently, preserving input order
func CheckRPCList(ctx context.Context, rpcList []string, timeout time.Duration) []RPCCheckResult {
	return CheckRPCListWith(ctx, rpcGetHealth, rpcList, timeout)
}

func CheckRPCListWith(ctx context.Context, probe HealthProber, rpcList []string, timeout time.Duration) []RPCCheckResult {
	results := make([]RPCCheckResult, len(rpcList))
	var wg sync.WaitGroup
	for i, url := range rpcList {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			results[i] = checkRPC(ctx, probe, url, timeout)
		}(i, url)
	}
	wg.Wait()
	return results
}

// AllHealthy is true when every result is OK and there is at least one
func AllHealthy(results []RPCCheckResult) bool {
	if len(results) == 0 {
		return false
	}
	for _, r := range results {
		if !r.OK {
			return false
		}
	}
	return true
}
