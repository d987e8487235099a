// Package config loads the server-side configuration from the `server:` section
// of config.yaml (the `fetcher:` key is ignored by the server binary).
//
// Config fields:
//   - HTTPPort               port for the REST API and /metrics (default 8080)
//   - Data.Path              snapshot file written by the fetcher (default data/stats.json)
//   - Data.CacheTTL          how long a parsed snapshot is served (default 1h)
//   - Data.Watch             invalidate the cache when the file changes
//   - Hierarchy              parent region → child regions; empty uses the built-in layout
//   - Estimation.Timezone    zone deciding today's date (default Asia/Tokyo)
//   - Estimation.Strict      reject unknown region/category codes (default true)
//   - Auth.Mode              "apikey" or "none"
//   - Auth.KeyEnv            environment variable holding the expected API key
//   - Auth.Header            HTTP header name (default "x-api-key")
//   - Log.Level              debug | info | warn | error (default info)
//
// Load(path) applies defaults before unmarshalling, then BACKLOGCAST_*
// environment overrides, then validates.
package config
