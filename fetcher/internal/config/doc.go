// Package config loads and watches the fetcher configuration (the
// `fetcher:` section of config.yaml).
//
// Top-level types:
//   - Config{Fetcher}: the tree parsed from YAML
//   - FetcherConfig: source, interval, output_path, log
//   - SourceConfig: endpoint, app_id_env, stats_data_id, timeout; AppID()
//     resolves the application ID from the environment
//
// Load(path) reads the YAML file, applies defaults (24h interval, 60s
// timeout, data/stats.json), then BACKLOGCAST_* environment overrides, then
// validates required fields.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. It re-adds the watch after each
// event so editors that save by rename keep being observed.
package config
