package main

import (
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/corehttpd/corehttpd/internal/config"
)

var (
	benchAddr        string
	benchConfig      string
	benchConcurrency int
	benchSize        int
	benchRandom      bool
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Drive synthetic load against a running server",
	RunE:  runBench,
}

func init() {
	benchCmd.Flags().StringVar(&benchAddr, "addr", "http://127.0.0.1:8080/", "Target base URL")
	benchCmd.Flags().StringVar(&benchConfig, "config", "", "Configuration document to read a virtual host's benchmark{} block from (overrides --size/--random when present)")
	benchCmd.Flags().IntVar(&benchConcurrency, "concurrency", 10, "Number of concurrent workers")
	benchCmd.Flags().IntVar(&benchSize, "size", 1000, "Total number of requests to issue")
	benchCmd.Flags().BoolVar(&benchRandom, "random", false, "Issue requests against random paths from a fixed pool instead of the base URL repeatedly")
}

func runBench(cmd *cobra.Command, args []string) error {
	if benchConfig != "" {
		doc, err := config.Load(benchConfig)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		applyBenchmarkDoc(doc)
	}

	paths := []string{"/"}
	if benchRandom {
		paths = []string{"/", "/index.html", "/static/app.js", "/static/app.css", "/favicon.ico"}
	}

	client := &http.Client{Timeout: 10 * time.Second}
	var wg sync.WaitGroup
	var completed, failed int64
	jobs := make(chan struct{}, benchSize)
	for i := 0; i < benchSize; i++ {
		jobs <- struct{}{}
	}
	close(jobs)

	start := time.Now()
	for w := 0; w < benchConcurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				path := paths[rand.Intn(len(paths))]
				resp, err := client.Get(benchAddr + path)
				if err != nil {
					atomic.AddInt64(&failed, 1)
					continue
				}
				_, _ = io.Copy(io.Discard, resp.Body)
				_ = resp.Body.Close()
				if resp.StatusCode >= 400 {
					atomic.AddInt64(&failed, 1)
				} else {
					atomic.AddInt64(&completed, 1)
				}
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	total := completed + failed
	fmt.Printf("requests: %d  ok: %d  failed: %d  elapsed: %s  req/s: %.1f\n",
		total, completed, failed, elapsed, float64(total)/elapsed.Seconds())
	return nil
}

// applyBenchmarkDoc pulls size/random from the first virtual
// host carrying a benchmark{} block, letting an operator reuse the same
// configuration document the server itself was started with.
func applyBenchmarkDoc(doc *config.Document) {
	for _, vh := range doc.VirtualHosts {
		if vh.Benchmark == nil || !vh.Benchmark.Enabled {
			continue
		}
		if vh.Benchmark.Size > 0 {
			benchSize = vh.Benchmark.Size
		}
		benchRandom = vh.Benchmark.Random
		return
	}
}
