// Package services implements the business logic layer between the HTTP
// handlers and the analytics packages.
//
// DashboardService answers the dashboard queries over the loaded tables and
// builds role reports. HealthService reports liveness, readiness and version.
//
// Services take a context.Context on every query, log through an injected
// *slog.Logger and return sentinel errors (ErrDataNotLoaded, ErrUnknownRole)
// that handlers match with errors.Is:
//
//	dash, err := svc.CEO(ctx, filters)
//	if errors.Is(err, services.ErrDataNotLoaded) {
//		// 503
//	}
package services
