package main

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"
)

// Columns emitted per cgroup, in collector order.
var metrics = []string{
	"cpu_usage_usec",
	"cpu_nr_throttled",
	"cpu_nr_bursts",
	"cpu_burst_usec",
	"cpu_max_quota",
	"cpu_pressure_some_avg10",
	"memory_current",
	"memory_peak",
	"memory_max",
	"memory_oom_events",
	"memory_pressure_some_avg10",
}

// workload produces the cumulative counters and gauges of one cgroup at
// sample i of a table taken every dt seconds.
type workload func(i int, dt float64) []string

var workloads = []struct {
	name string
	gen  workload
}{
	{name: "web", gen: webWorkload},
	{name: "batch", gen: batchWorkload},
}

// webWorkload burns a steady 20ms/s with a CPU and memory spike a third of
// the way through.
func webWorkload(i int, dt float64) []string {
	usage := float64(i) * dt * 20000
	mem := 256.0
	spikeAt := 100
	if i >= spikeAt {
		usage += 500000
	}
	if i == spikeAt || i == spikeAt+1 {
		mem = 900
	}
	return []string{
		ftoa(usage), "0", "0", "0", "max", "0.50",
		mib(mem), mib(900), "max", "0", "0.10",
	}
}

// batchWorkload alternates busy and idle phases on a 30 sample period and
// grows its heap steadily against a 2GiB limit.
func batchWorkload(i int, dt float64) []string {
	var usage float64
	for j := 0; j < i; j++ {
		if (j/15)%2 == 0 {
			usage += dt * 400000
		}
	}
	mem := 512 + 4*float64(i)
	throttled := i / 5
	return []string{
		ftoa(usage), strconv.Itoa(throttled), strconv.Itoa(i / 10), ftoa(float64(i/10) * 2000), "400000", "12.5",
		mib(mem), mib(mem), mib(2048), "0", fmt.Sprintf("%.2f", 15+5*math.Sin(float64(i)/10)),
	}
}

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/samples.csv", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		samples := intParam(r, "samples", 300)
		dt := 1 / float64(intParam(r, "rate", 10))
		w.Header().Set("Content-Type", "text/csv")
		if err := writeTable(w, samples, dt); err != nil {
			log.Printf("write table: %v", err)
		}
	})

	logger := log.New(log.Writer(), "collector-mock ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:    ":8080",
		Handler: logRequests(logger, mux),
	}

	logger.Println("listening on :8080")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

func writeTable(w http.ResponseWriter, samples int, dt float64) error {
	out := csv.NewWriter(w)
	header := []string{"timestamp", "elapsed_sec"}
	for _, wl := range workloads {
		for _, m := range metrics {
			header = append(header, wl.name+"_"+m)
		}
	}
	if err := out.Write(header); err != nil {
		return err
	}

	start := time.Now().Add(-time.Duration(float64(samples)*dt*float64(time.Second))).Unix()
	for i := 0; i < samples; i++ {
		elapsed := float64(i) * dt
		row := []string{strconv.FormatInt(start+int64(elapsed), 10), ftoa(elapsed)}
		for _, wl := range workloads {
			row = append(row, wl.gen(i, dt)...)
		}
		if err := out.Write(row); err != nil {
			return err
		}
	}
	out.Flush()
	return out.Error()
}

func intParam(r *http.Request, name string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func mib(v float64) string { return ftoa(math.Round(v * (1 << 20))) }

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
