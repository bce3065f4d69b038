package kv

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/sKV/cmd/util"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for sKV nodes",
		Long:    "Runs a fixed number of operations per scenario against a node with several workers and reports throughput and latency percentiles.",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__test"
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfOps              = 10_000
	perfSkip             = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Scenarios to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of workers sending requests concurrently"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How large the value for the set-large scenario should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use per scenario"))
	key = "ops"
	perfTestCmd.Flags().Int(key, 10_000, util.WrapString("Number of operations per scenario"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = max(viper.GetInt("keys"), 1)
	perfNumThreads = max(viper.GetInt("threads"), 1)
	perfOps = max(viper.GetInt("ops"), 1)
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

// scenario is a single load pattern of the perf command
type scenario struct {
	name    string
	prepare func(keys []string) error
	op      func(keys []string, i int) error
}

// result holds the measurements of one scenario
type result struct {
	name    string
	skipped bool
	elapsed time.Duration
	timer   metrics.Timer
	errors  metrics.Counter
}

func scenarios() []scenario {
	largeValue := make([]byte, perfLargeValueSizeKB*1024)

	fill := func(keys []string) error {
		for _, k := range keys {
			if err := rpcStore.Set(k, []byte("test"), 0); err != nil {
				return err
			}
		}
		return nil
	}

	return []scenario{
		{
			name: "set",
			op: func(keys []string, i int) error {
				return rpcStore.Set(keys[i%len(keys)], []byte("test"), 0)
			},
		},
		{
			name: "set-large",
			op: func(keys []string, i int) error {
				return rpcStore.Set(keys[i%len(keys)], largeValue, 0)
			},
		},
		{
			name: "set-ttl",
			op: func(keys []string, i int) error {
				return rpcStore.Set(keys[i%len(keys)], []byte("test"), time.Minute)
			},
		},
		{
			name:    "get",
			prepare: fill,
			op: func(keys []string, i int) error {
				_, _, err := rpcStore.Get(keys[i%len(keys)])
				return err
			},
		},
		{
			name: "get-missing",
			op: func(keys []string, i int) error {
				_, _, err := rpcStore.Get(keys[i%len(keys)] + "-missing")
				return err
			},
		},
		{
			name:    "delete",
			prepare: fill,
			op: func(keys []string, i int) error {
				return rpcStore.Delete(keys[i%len(keys)])
			},
		},
		{
			name:    "mixed",
			prepare: fill,
			op: func(keys []string, i int) error {
				key := keys[i%len(keys)]
				switch i % 10 {
				case 0, 1:
					return rpcStore.Set(key, []byte("test"), 0)
				case 2:
					return rpcStore.Delete(key)
				default:
					_, _, err := rpcStore.Get(key)
					return err
				}
			},
		},
	}
}

func runPerf(cmd *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for sKV nodes")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d, Operations per scenario: %d\n", perfNumThreads, perfOps)
	fmt.Println()

	fmt.Println("starting tests...")

	registry := metrics.NewRegistry()
	var results []result

	for _, sc := range scenarios() {
		res := runScenario(registry, sc)
		results = append(results, res)
		printResult(res)
	}

	if csvPath := viper.GetString("csv"); csvPath != "" {
		if err := writeResultsToCSV(csvPath, results, util.GetClientConfig()); err != nil {
			return err
		}
		fmt.Printf("results written to %s\n", csvPath)
	}

	return nil
}

// runScenario spreads perfOps operations over perfNumThreads workers and times each one
func runScenario(registry metrics.Registry, sc scenario) result {
	res := result{name: sc.name}
	if shouldSkip(sc.name) {
		res.skipped = true
		return res
	}

	res.timer = metrics.GetOrRegisterTimer(sc.name+".latency", registry)
	res.errors = metrics.GetOrRegisterCounter(sc.name+".errors", registry)

	keys := getKeys(sc.name)
	defer cleanup(sc.name, keys)

	if sc.prepare != nil {
		if err := sc.prepare(keys); err != nil {
			log.Printf("(%s) - error preparing keys: %v\n", sc.name, err)
		}
	}

	var next atomic.Int64
	var wg sync.WaitGroup

	start := time.Now()
	for w := 0; w < perfNumThreads; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(next.Add(1)) - 1
				if i >= perfOps {
					return
				}
				opStart := time.Now()
				err := sc.op(keys, i)
				res.timer.UpdateSince(opStart)
				if err != nil {
					res.errors.Inc(1)
				}
			}
		}()
	}
	wg.Wait()
	res.elapsed = time.Since(start)

	return res
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	return slices.Contains(perfSkip, test)
}

// getKeys creates the test keys of a scenario
func getKeys(prefix string) []string {
	keys := make([]string, perfKeySpread)
	for i := range keys {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}
	return keys
}

// cleanup removes the test keys of a scenario
func cleanup(name string, keys []string) {
	for _, k := range keys {
		if err := rpcStore.Delete(k); err != nil {
			log.Printf("(%s) - error deleting key: %v\n", name, err)
		}
	}
}

func (r result) opsPerSec() float64 {
	if r.elapsed <= 0 {
		return 0
	}
	return float64(r.timer.Count()) / r.elapsed.Seconds()
}

// printResult prints the result of a scenario in a formatted way
func printResult(r result) {
	if r.skipped {
		fmt.Printf("%-14sskipped\n", r.name)
		return
	}

	snap := r.timer.Snapshot()
	ps := snap.Percentiles([]float64{0.5, 0.99})
	fmt.Printf("%-14s%8.0f ops/sec\tmean %-10s p50 %-10s p99 %-10s max %-10s errors %d\n",
		r.name,
		r.opsPerSec(),
		time.Duration(snap.Mean()).Round(time.Microsecond),
		time.Duration(ps[0]).Round(time.Microsecond),
		time.Duration(ps[1]).Round(time.Microsecond),
		time.Duration(snap.Max()).Round(time.Microsecond),
		r.errors.Count(),
	)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results []result, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "Skipped", "Ops", "Errors", "OpsPerSec", "MeanNs", "P50Ns", "P99Ns", "MaxNs",
		"Endpoints", "TimeoutSec", "RetryCount", "ConnectionsPerEndpoint",
		"Serializer", "Transport",
		"Threads", "LargeValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for _, r := range results {
		row := []string{r.name, strconv.FormatBool(r.skipped)}
		if r.skipped {
			row = append(row, "0", "0", "0", "0", "0", "0", "0")
		} else {
			snap := r.timer.Snapshot()
			ps := snap.Percentiles([]float64{0.5, 0.99})
			row = append(row,
				strconv.FormatInt(snap.Count(), 10),
				strconv.FormatInt(r.errors.Count(), 10),
				fmt.Sprintf("%.0f", r.opsPerSec()),
				fmt.Sprintf("%.0f", snap.Mean()),
				fmt.Sprintf("%.0f", ps[0]),
				fmt.Sprintf("%.0f", ps[1]),
				strconv.FormatInt(snap.Max(), 10),
			)
		}
		row = append(row,
			strings.Join(config.Endpoints, ";"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.RetryCount),
			strconv.Itoa(config.ConnectionsPerEndpoint),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		)

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", r.name, err)
		}
	}

	return nil
}
