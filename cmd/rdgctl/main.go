// Command rdgctl is the control-plane CLI for the load generator (spec
// §4.3's "stand-alone benchmark CLI... repurposed into a control-plane
// tool" per SPEC_FULL.md), adapted from the teacher's cmd/benchmark/main.go:
// where that tool drove load directly, this one starts/stops/polls the
// generator living inside cmd/server over HTTP.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

func main() {
	var (
		serverURL   string
		action      string
		password    string
		rps         int
		concurrent  int
		activeDBMS  string
		minAmount   int64
		maxAmount   int64
		allowSameDB bool
		pollEvery   time.Duration
	)

	flag.StringVar(&serverURL, "server", "http://localhost:8080", "ledger server base URL")
	flag.StringVar(&action, "action", "status", "start | stop | status")
	flag.StringVar(&password, "password", "", "RDG control password")
	flag.IntVar(&rps, "rps", 10, "requests per second")
	flag.IntVar(&concurrent, "concurrent", 20, "max in-flight requests")
	flag.StringVar(&activeDBMS, "active-dbms", "doc,sql-a,sql-b,sql-c", "comma-separated active engines")
	flag.Int64Var(&minAmount, "min-amount", 1, "minimum transfer amount")
	flag.Int64Var(&maxAmount, "max-amount", 500, "maximum transfer amount")
	flag.BoolVar(&allowSameDB, "allow-same-db", true, "allow same-engine transfers")
	flag.DurationVar(&pollEvery, "poll-every", 2*time.Second, "status poll interval (unused: every action sends a single request)")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}

	switch action {
	case "start":
		body := map[string]any{
			"password":      password,
			"base_url":      serverURL,
			"rps":           rps,
			"concurrent":    concurrent,
			"active_dbms":   strings.Split(activeDBMS, ","),
			"min_amount":    minAmount,
			"max_amount":    maxAmount,
			"allow_same_db": allowSameDB,
		}
		printResponse(post(client, serverURL+"/rdg/start", body))
	case "stop":
		printResponse(post(client, serverURL+"/rdg/stop", map[string]any{"password": password}))
	case "status":
		printResponse(get(client, serverURL+"/rdg/status"))
	default:
		log.Fatalf("rdgctl: unknown action %q (want start|stop|status)", action)
	}
}

func post(client *http.Client, url string, body map[string]any) (int, []byte, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return 0, nil, err
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(buf))
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	return resp.StatusCode, out, err
}

func get(client *http.Client, url string) (int, []byte, error) {
	resp, err := client.Get(url)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	return resp.StatusCode, out, err
}

func printResponse(status int, body []byte, err error) {
	if err != nil {
		log.Fatalf("rdgctl: request failed: %v", err)
	}
	var pretty map[string]any
	if json.Unmarshal(body, &pretty) == nil {
		out, _ := json.MarshalIndent(pretty, "", "  ")
		fmt.Printf("HTTP %d\n%s\n", status, out)
		return
	}
	fmt.Printf("HTTP %d\n%s\n", status, body)
}
