package main

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mlorentedev/promptdeck/internal/adapter"
)

type benchOptions struct {
	url         string
	model       string
	runs        int
	temperature string
	topP        string
	jsonOut     string
	warmup      bool
}

type result struct {
	Sample   string `json:"sample"`
	Chars    int    `json:"chars"`
	Model    string `json:"model"`
	Run      int    `json:"run"`
	WallMs   int64  `json:"wall_ms"`
	OutChars int    `json:"out_chars"`
	Error    string `json:"error,omitempty"`
}

func newBenchCmd() *cobra.Command {
	opts := &benchOptions{}
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time /invoke_model against a running promptdeck",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBench(cmd.OutOrStdout(), &http.Client{Timeout: 180 * time.Second}, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.url, "url", "http://localhost:8080", "promptdeck base URL")
	f.StringVar(&opts.model, "model", "", "model id (default: first listed by /api/models)")
	f.IntVar(&opts.runs, "runs", 3, "runs per sample")
	f.StringVar(&opts.temperature, "temperature", "0.5", "temperature form value")
	f.StringVar(&opts.topP, "top-p", "0.9", "top_p form value")
	f.StringVar(&opts.jsonOut, "json", "", "write results to this JSON file")
	f.BoolVar(&opts.warmup, "warmup", false, "send one discarded request per sample first")
	return cmd
}

func runBench(w io.Writer, client *http.Client, opts *benchOptions) error {
	baseURL := strings.TrimRight(opts.url, "/")

	modelID := opts.model
	if modelID == "" {
		id, err := discoverModel(client, baseURL)
		if err != nil {
			return err
		}
		modelID = id
	}

	fmt.Fprintf(w, "Benchmarking %s using model: %s (%d runs per sample)\n", baseURL, modelID, opts.runs)

	var results []result
	var failures int
	for _, s := range Samples {
		if opts.warmup {
			benchmark(client, baseURL, modelID, opts, s, 0)
		}
		for run := 1; run <= opts.runs; run++ {
			r := benchmark(client, baseURL, modelID, opts, s, run)
			results = append(results, r)
			if r.Error != "" {
				fmt.Fprintf(w, "  %s run %d: FAILED (%s)\n", s.Name, run, r.Error)
				failures++
			} else {
				fmt.Fprintf(w, "  %s run %d: %dms\n", s.Name, run, r.WallMs)
			}
		}
	}

	fmt.Fprintln(w)
	printTable(w, results)
	printSummary(w, results)

	if opts.jsonOut != "" {
		if err := writeReport(opts.jsonOut, results, baseURL, modelID); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Fprintf(w, "\nResults written to %s\n", opts.jsonOut)
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d runs failed", failures, len(results))
	}
	return nil
}

func discoverModel(client *http.Client, baseURL string) (string, error) {
	resp, err := client.Get(baseURL + "/api/models")
	if err != nil {
		return "", fmt.Errorf("fetch models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("models endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var models []adapter.ModelInfo
	if err := json.NewDecoder(resp.Body).Decode(&models); err != nil {
		return "", fmt.Errorf("decode models: %w", err)
	}
	if len(models) == 0 {
		return "", fmt.Errorf("no models available")
	}
	return models[0].ID, nil
}

func benchmark(client *http.Client, baseURL, modelID string, opts *benchOptions, s Sample, run int) result {
	r := result{Sample: s.Name, Chars: len(s.Text), Model: modelID, Run: run}

	form := url.Values{
		"input_text":  {s.Text},
		"temperature": {opts.temperature},
		"top_p":       {opts.topP},
		"modelId":     {modelID},
	}

	start := time.Now()
	resp, err := client.PostForm(baseURL+"/invoke_model", form)
	r.WallMs = time.Since(start).Milliseconds()
	if err != nil {
		r.Error = err.Error()
		return r
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	if resp.StatusCode != http.StatusOK {
		r.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
		return r
	}

	r.OutChars = len(outputText(string(body)))
	return r
}

const outputOpen = `<pre id="output_text">`

// outputText pulls the rendered completion out of the index page.
func outputText(page string) string {
	i := strings.Index(page, outputOpen)
	if i < 0 {
		return ""
	}
	rest := page[i+len(outputOpen):]
	j := strings.Index(rest, "</pre>")
	if j < 0 {
		return ""
	}
	return html.UnescapeString(rest[:j])
}

func printTable(w io.Writer, results []result) {
	fmt.Fprintln(w, "| Sample | Chars | Run | Wall (ms) | Out Chars | Ratio |")
	fmt.Fprintln(w, "|--------|-------|-----|-----------|-----------|-------|")
	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(w, "| %-6s | %5d | %d | %9s | %9s | %5s |\n", r.Sample, r.Chars, r.Run, "FAIL", "-", "-")
			continue
		}
		ratio := float64(r.OutChars) / float64(r.Chars)
		fmt.Fprintf(w, "| %-6s | %5d | %d | %9d | %9d | %5.2f |\n", r.Sample, r.Chars, r.Run, r.WallMs, r.OutChars, ratio)
	}
}

func printSummary(w io.Writer, results []result) {
	var ok []result
	for _, r := range results {
		if r.Error == "" {
			ok = append(ok, r)
		}
	}
	if len(ok) == 0 {
		fmt.Fprintf(w, "\nSummary: all %d runs failed\n", len(results))
		return
	}

	var total int64
	minR, maxR := ok[0], ok[0]
	for _, r := range ok {
		total += r.WallMs
		if r.WallMs < minR.WallMs {
			minR = r
		}
		if r.WallMs > maxR.WallMs {
			maxR = r
		}
	}

	fmt.Fprintf(w, "\nSummary:\n")
	fmt.Fprintf(w, "- Avg wall: %dms\n", total/int64(len(ok)))
	fmt.Fprintf(w, "- Min wall: %dms (%s)\n", minR.WallMs, minR.Sample)
	fmt.Fprintf(w, "- Max wall: %dms (%s)\n", maxR.WallMs, maxR.Sample)
	fmt.Fprintf(w, "- Total runs: %d (%d ok, %d failed)\n", len(results), len(ok), len(results)-len(ok))
}

type report struct {
	Timestamp string   `json:"timestamp"`
	URL       string   `json:"url"`
	Model     string   `json:"model"`
	Results   []result `json:"results"`
}

func writeReport(path string, results []result, baseURL, modelID string) error {
	data, err := json.MarshalIndent(report{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		URL:       baseURL,
		Model:     modelID,
		Results:   results,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
