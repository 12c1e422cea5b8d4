// Package cmd implements the harvester command line.
//
// Architecture overview:
//   - fetch: resolves the search term (flag, prompt, or the default for short
//     input), opens the output location (local directory, memory://, or
//     gs://bucket/prefix), searches Wikipedia, and hands the titles to the
//     selected strategy. Results stream back as progress events that print
//     one status line per page, log structured fields, and update Prometheus
//     collectors that can be dumped with --metrics-file.
//   - Strategies: seq handles pages one by one; threads shares one pipeline
//     across a goroutine pool; procs gives every pool worker its own
//     `harvester worker` child process.
//   - worker (hidden): reads JSON tasks on stdin and writes one JSON result
//     per task on stdout. Logs go to stderr. It exits when stdin closes.
//
// Quick checklist:
//   - Configure via flags, a YAML file passed with --config, or HARVESTER_*
//     env vars (HARVESTER_SOURCE_RATE_LIMIT_ENABLED, HARVESTER_RUN_MODE, ...).
//   - Run locally: go run . fetch --term "large language model" --mode threads
//   - Worker processes inherit the parent's environment and --config file, so
//     each child applies the same source settings and its own rate limiter.
package cmd
