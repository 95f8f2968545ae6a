// Package app wires the dashboard together and manages its lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration from config.yaml and PICPULSE_* variables
//	2. Initialize logging and OpenTelemetry
//	3. Load and normalize the four CSV files
//	4. Build the report builder and the dashboard service
//	5. Assemble the chi router and the HTTP server
//
// A failed dataset load does not stop startup: the API comes up, data
// endpoints answer 503 and /api/health/ready reports not_ready.
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// Run blocks until SIGINT or SIGTERM and then shuts the server down within
// the configured shutdown timeout. The package never calls os.Exit.
package app
