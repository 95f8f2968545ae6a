// Package config provides configuration management for the dashboard.
//
// # Configuration Sources
//
// Configuration is built in three layers, later layers winning:
//
//  1. Default values (Default)
//  2. A YAML file: $PICPULSE_CONFIG, config.yaml or configs/config.yaml
//  3. Environment variables
//
// # Environment Variables
//
// Every variable carries the PICPULSE prefix followed by the section name:
//
//	PICPULSE_SERVER_PORT=8080
//	PICPULSE_PATHS_DATA_DIR=/srv/picmoney/data
//	PICPULSE_DATA_REFERENCE_DATE=15/06/2024
//	PICPULSE_REPORT_WORKERS=4
//	PICPULSE_LOGGING_LEVEL=debug
//
// # Path Management
//
// ResolvePaths turns the configured directories into absolute ones:
//
//	paths, err := cfg.ResolvePaths("")
//	xlsx := paths.GetReportPath("ceo.xlsx")
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
