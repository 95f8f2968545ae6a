// Package http implements the HTTP handlers of the dashboard API.
//
// Handlers stay thin: they parse and validate the request, call the
// dashboard service and render the result. Successful responses share one
// envelope:
//
//	{"status": "success", "data": ...}
//
// Every error is answered with an RFC 7807 problem document through
// errors.ErrorHandler, so a 400 for a malformed date and a 503 while the
// datasets are missing look alike to clients:
//
//	{
//	    "type": "/errors/validation",
//	    "title": "Bad Request",
//	    "status": 400,
//	    "detail": "Invalid value for parameter \"inicio\"",
//	    "instance": "/api/dashboard/ceo"
//	}
//
// Handlers are tested with httptest against testify mocks of
// DashboardServiceInterface.
package http
